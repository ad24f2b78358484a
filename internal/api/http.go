package api

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/sipico/covid-counter-client/internal/metrics"
)

// NewHTTPClient builds the client stack used against the real API:
// a cookie jar, request ids, debug logging and request metrics.
func NewHTTPClient(timeout time.Duration, logger *slog.Logger) *http.Client {
	// cookiejar.New only fails when given a bad PublicSuffixList.
	jar, _ := cookiejar.New(nil) //nolint:errcheck

	var rt http.RoundTripper = &metrics.Transport{Transport: http.DefaultTransport}
	if logger != nil {
		rt = &LoggingTransport{Transport: rt, Logger: logger}
	}
	rt = &RequestIDTransport{Transport: rt}

	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
		Jar:       jar,
	}
}
