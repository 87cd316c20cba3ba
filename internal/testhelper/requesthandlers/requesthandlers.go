// Package requesthandlers builds the test server handlers shared by client tests.
package requesthandlers

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/gitlab-org/httpwatch/client/testserver"
)

// EchoResponse is the body written by the echo handler.
type EchoResponse struct {
	Method  string      `json:"method"`
	Path    string      `json:"path"`
	Query   string      `json:"query"`
	Body    string      `json:"body"`
	Headers http.Header `json:"headers"`
}

// BuildEchoHandlers answers /echo with a description of the received request.
func BuildEchoHandlers(t *testing.T) []testserver.TestRequestHandler {
	return []testserver.TestRequestHandler{
		{
			Path: "/echo",
			Handler: func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				assert.NoError(t, err)

				w.Header().Set("Content-Type", "application/json")
				assert.NoError(t, json.NewEncoder(w).Encode(EchoResponse{
					Method:  r.Method,
					Path:    r.URL.Path,
					Query:   r.URL.RawQuery,
					Body:    string(body),
					Headers: r.Header,
				}))
			},
		},
	}
}

// BuildErrorHandlers answers /not_found with a JSON error message, /broken with a body that is not
// JSON and /unavailable with 503.
func BuildErrorHandlers(t *testing.T) []testserver.TestRequestHandler {
	return []testserver.TestRequestHandler{
		{
			Path: "/not_found",
			Handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				assert.NoError(t, json.NewEncoder(w).Encode(map[string]string{"message": "Not found!"}))
			},
		},
		{
			Path: "/broken",
			Handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, err := w.Write([]byte("{broken"))
				assert.NoError(t, err)
			},
		},
		{
			Path: "/unavailable",
			Handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
	}
}
