// Package testserver starts the HTTP servers clients are tested against.
package testserver

import (
	"crypto/tls"
	"crypto/x509"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/gitlab-org/httpwatch/internal/testhelper"
)

// TestRequestHandler defines a test HTTP request handler with a path and handler function.
type TestRequestHandler struct {
	Path    string
	Handler func(w http.ResponseWriter, r *http.Request)
}

// StartSocketHTTPServer starts a server on a unix socket and returns its http+unix base URL.
func StartSocketHTTPServer(t *testing.T, handlers []TestRequestHandler) string {
	t.Helper()

	// t.TempDir() paths exceed the 108 character limit of socket paths.
	tempDir, err := os.MkdirTemp("", "httpwatch")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, os.RemoveAll(tempDir)) })

	testSocket := filepath.Join(tempDir, "internal.sock")
	socketListener, err := net.Listen("unix", testSocket)
	require.NoError(t, err)

	server := &http.Server{
		Handler:           buildHandler(handlers),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.New(io.Discard, "", 0),
	}
	go func() {
		_ = server.Serve(socketListener)
	}()
	t.Cleanup(func() { _ = server.Close() })

	return "http+unix://" + testSocket
}

// StartHTTPServer starts a TCP based HTTP server
func StartHTTPServer(t *testing.T, handlers []TestRequestHandler) string {
	t.Helper()

	server := httptest.NewServer(buildHandler(handlers))
	t.Cleanup(server.Close)

	return server.URL
}

// StartRetryHTTPServer starts a TCP based HTTP server that fails the first attempt of every
// method and URL with 500.
func StartRetryHTTPServer(t *testing.T, handlers []TestRequestHandler) string {
	t.Helper()

	var mu sync.Mutex
	attempts := map[string]int{}

	failFirst := func(next func(w http.ResponseWriter, r *http.Request)) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Method + " " + r.URL.String()

			mu.Lock()
			attempts[key]++
			attempt := attempts[key]
			mu.Unlock()

			if attempt == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			next(w, r)
		})
	}

	mux := http.NewServeMux()
	for _, handler := range handlers {
		mux.Handle(handler.Path, failFirst(handler.Handler))
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server.URL
}

// StartHTTPSServer starts a TCP based HTTPS server using the certificate under certs/valid of the
// test root. When clientCAPath is set, clients must present a certificate signed by it.
func StartHTTPSServer(t *testing.T, handlers []TestRequestHandler, clientCAPath string) string {
	t.Helper()

	testRoot := testhelper.PrepareTestRootDir(t)

	crt := filepath.Join(testRoot, "certs", "valid", "server.crt")
	key := filepath.Join(testRoot, "certs", "valid", "server.key")

	server := httptest.NewUnstartedServer(buildHandler(handlers))
	cer, err := tls.LoadX509KeyPair(crt, key)
	require.NoError(t, err)

	server.TLS = &tls.Config{
		Certificates: []tls.Certificate{cer},
		MinVersion:   tls.VersionTLS12,
	}

	if clientCAPath != "" {
		caCert, err := os.ReadFile(filepath.Clean(clientCAPath))
		require.NoError(t, err)

		caCertPool := x509.NewCertPool()
		caCertPool.AppendCertsFromPEM(caCert)

		server.TLS.ClientCAs = caCertPool
		server.TLS.ClientAuth = tls.RequireAndVerifyClientCert
	}

	server.StartTLS()
	t.Cleanup(server.Close)

	return server.URL
}

func buildHandler(handlers []TestRequestHandler) http.Handler {
	mux := http.NewServeMux()

	for _, handler := range handlers {
		mux.HandleFunc(handler.Path, handler.Handler)
	}

	return mux
}
