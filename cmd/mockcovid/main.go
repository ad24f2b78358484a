// Package main implements a standalone mock COVID counter API for demos and
// end-to-end testing of the client.
package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sipico/covid-counter-client/internal/testutil/mockcovid"
)

// getPort returns the port from the PORT environment variable or the default.
func getPort() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8089"
	}
	return port
}

// getPortAddr formats the port into a server address.
func getPortAddr(port string) string {
	return ":" + port
}

// createAPI creates the mock API. MOCKCOVID_REQUIRE_AUTH=true enforces
// bearer tokens on dataset endpoints; MOCKCOVID_VERBOSE=true logs traffic.
func createAPI() *mockcovid.API {
	var opts []mockcovid.Option
	if os.Getenv("MOCKCOVID_REQUIRE_AUTH") == "true" {
		opts = append(opts, mockcovid.WithRequireAuth(true))
	}
	if os.Getenv("MOCKCOVID_VERBOSE") == "true" {
		opts = append(opts, mockcovid.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	}
	if secret := os.Getenv("MOCKCOVID_SECRET"); secret != "" {
		opts = append(opts, mockcovid.WithSecret([]byte(secret)))
	}
	return mockcovid.NewAPI(opts...)
}

// createHTTPServer creates an http.Server with the given port and handler.
func createHTTPServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              getPortAddr(port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// setupShutdownHandler sets up graceful shutdown handling.
func setupShutdownHandler(httpServer *http.Server) <-chan bool {
	done := make(chan bool)
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down mockcovid server...")
		//nolint:errcheck
		httpServer.Close()
		close(done)
	}()
	return done
}

// runHealthCheck performs an HTTP health check against the local server.
// Returns 0 on success, 1 on failure. Used by container HEALTHCHECK.
func runHealthCheck() int {
	port := getPort()
	return doHealthCheck("http://localhost:" + port + "/health")
}

// doHealthCheck performs the actual health check HTTP request.
func doHealthCheck(url string) int {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return 1
	}
	//nolint:errcheck // Response body close errors are unrecoverable in health check
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

func main() {
	// Handle health check subcommand for distroless container health checks
	if len(os.Args) > 1 && os.Args[1] == "health" {
		os.Exit(runHealthCheck())
	}

	port := getPort()
	api := createAPI()

	httpServer := createHTTPServer(port, api.Handler())

	// Graceful shutdown
	done := setupShutdownHandler(httpServer)

	log.Printf("mockcovid listening on :%s (demo login %s / %s, OTP login %s / %s)",
		port, mockcovid.DemoEmail, mockcovid.DemoPassword, mockcovid.DemoOTPEmail, mockcovid.DemoOTPPassword)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}

	<-done
	log.Println("mockcovid stopped")
}
