package report

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"gitlab.com/gitlab-org/labkit/fields"
	"gitlab.com/gitlab-org/labkit/v2/log"

	"gitlab.com/gitlab-org/httpwatch/internal/collector"
	"gitlab.com/gitlab-org/httpwatch/internal/telemetry"
)

// NewHandler serves the entries collected by c. Paths are relative to where the handler is mounted:
//
//	GET    /           the whole report
//	GET    /{level}    entries logged at level
//	POST   /collect    collects pending entries under the label query parameter
//	DELETE /           discards everything collected
func NewHandler(c *collector.Collector) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Build(c))
	})

	r.Get("/{level}", func(w http.ResponseWriter, r *http.Request) {
		level := telemetry.Level(chi.URLParam(r, "level"))
		entries := c.ErrorsByLevel(level)
		if entries == nil {
			entries = []telemetry.LogEntry{}
		}

		writeJSON(w, http.StatusOK, entries)
	})

	r.Post("/collect", func(w http.ResponseWriter, r *http.Request) {
		label := r.URL.Query().Get("label")
		if label == "" {
			http.Error(w, "label is required", http.StatusBadRequest)
			return
		}

		c.Collect(label)
		writeJSON(w, http.StatusOK, Build(c))
	})

	r.Delete("/", func(w http.ResponseWriter, _ *http.Request) {
		c.Reset()
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.New().Error("failed to write report", slog.String(fields.ErrorMessage, err.Error()))
	}
}
