// Copyright 2025 James Ross
package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
)

func (s *Server) listQueues(w http.ResponseWriter, r *http.Request) {
	names, err := s.rt.ListQueues(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"queues": names})
}

func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) {
	queue := mux.Vars(r)["queue"]
	info, counts, err := s.rt.Queue(queue).Retrieve(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"info": info, "counts": counts})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rec, err := s.rt.GetJob(r.Context(), vars["queue"], vars["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listWorkers(w http.ResponseWriter, r *http.Request) {
	query := backend.SearchWorkersQuery{Queue: r.URL.Query().Get("queue")}
	workers, err := s.rt.SearchWorkers(r.Context(), query)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]workerView, 0, len(workers))
	for _, wk := range workers {
		out = append(out, workerView{
			ID:      wk.ID(),
			Queues:  wk.Queues(),
			Running: wk.IsRunning(),
			Paused:  wk.IsPaused(),
			Closed:  wk.IsClosed(),
			Metrics: wk.GetMetrics(),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"workers": out})
}

// workerView flattens backend.WorkerHandle's accessor methods into a
// JSON-serializable shape, since the interface itself carries no tags.
type workerView struct {
	ID      string                `json:"id"`
	Queues  []string              `json:"queues"`
	Running bool                  `json:"running"`
	Paused  bool                  `json:"paused"`
	Closed  bool                  `json:"closed"`
	Metrics backend.WorkerMetrics `json:"metrics"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("adminapi: failed to encode response", map[string]any{"error": err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "JOBS_INTERNAL"
	if ierr, ok := err.(*ignitererr.Error); ok {
		status = ierr.Status
		code = string(ierr.Code)
	}
	s.writeJSON(w, status, map[string]any{"error": code, "message": err.Error()})
}
