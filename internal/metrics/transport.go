package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Transport wraps an http.RoundTripper and records request count and
// latency for every API call.
type Transport struct {
	Transport http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	start := time.Now()
	resp, err := next.RoundTrip(req)
	duration := time.Since(start).Seconds()

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	RecordRequest(req.Method, normalizePath(req.URL.Path), status, duration)

	return resp, err
}

// normalizePath takes a request path and returns a normalized version for use as a metric label.
// This prevents cardinality explosion from record keys in paths.
// Examples:
//
//	/countries/Peru    -> /countries/:key
//	/day-wise/2020-3-1 -> /day-wise/:key
//	/auth/login        -> /auth/login
func normalizePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 || segments[0] == "auth" {
		return path
	}
	return "/" + segments[0] + "/:key"
}
