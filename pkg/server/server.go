// Package server is the entries service the sync client talks to. It keeps
// the entry list in a single cache slot and serves it over a small JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harrisonrobin/tarefas/pkg/entry"
)

type Server struct {
	entries *EntryStore
	logger  *slog.Logger
	now     func() time.Time
	router  chi.Router
}

func New(entries *EntryStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{entries: entries, logger: logger, now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/entries", s.handleList)
		r.Post("/entries", s.handleReplace)
		r.Get("/entries/{id}", s.handleGet)
		r.Put("/entries/{id}", s.handleUpdate)
		r.Delete("/entries/{id}", s.handleDelete)
		r.Get("/search", s.handleSearch)
		r.Get("/stats", s.handleStats)
	})
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	s.logger.Info("entries server listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"message":   "entries server is running",
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.entries.List()
	if err != nil {
		s.logger.Error("load entries", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	var records []Record
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil || records == nil {
		writeError(w, http.StatusBadRequest, "body must be a list of entries")
		return
	}
	for _, rec := range records {
		if missing := entry.MissingField(rec); missing != "" {
			writeError(w, http.StatusBadRequest, "missing required field: "+missing)
			return
		}
	}
	if err := s.entries.ReplaceAll(records); err != nil {
		s.logger.Error("save entries", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save entries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "entries saved"})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.entries.Get(chi.URLParam(r, "id"))
	s.writeRecord(w, rec, err)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var fields Record
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "body must be an entry object")
		return
	}
	rec, err := s.entries.Merge(chi.URLParam(r, "id"), fields)
	s.writeRecord(w, rec, err)
}

func (s *Server) writeRecord(w http.ResponseWriter, rec Record, err error) {
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "entry not found")
	case err != nil:
		s.logger.Error("entry lookup", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.entries.Delete(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "entry not found")
	case err != nil:
		s.logger.Error("delete entry", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save after delete")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "entry deleted"})
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, []Record{})
		return
	}
	records, err := s.entries.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	results := []Record{}
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Field("title")), q) ||
			strings.Contains(strings.ToLower(rec.Field("content")), q) ||
			strings.Contains(rec.Field("date"), q) {
			results = append(results, rec)
		}
	}
	writeJSON(w, http.StatusOK, results)
}

type yearStats struct {
	Entries int `json:"entries"`
	Words   int `json:"words"`
}

type stats struct {
	TotalEntries int                  `json:"total_entries"`
	TotalWords   int                  `json:"total_words"`
	Years        map[string]yearStats `json:"years"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	records, err := s.entries.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := stats{TotalEntries: len(records), Years: map[string]yearStats{}}
	for _, rec := range records {
		words := len(strings.Fields(rec.Field("content")))
		out.TotalWords += words

		date := rec.Field("date")
		if len(date) < 4 {
			continue
		}
		y := out.Years[date[:4]]
		y.Entries++
		y.Words += words
		out.Years[date[:4]] = y
	}
	writeJSON(w, http.StatusOK, out)
}
