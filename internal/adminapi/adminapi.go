// Copyright 2025 James Ross
// Package adminapi is a thin, read-only HTTP surface over a built
// *runtime.Runtime (spec §4.11): listing queues, inspecting a single
// queue's info and counts, looking up one job record, and listing live
// workers. It never mutates state — every mutating operation already
// has a method-chain equivalent on Runtime itself (§4.5). Grounded on
// internal/admin-api/server.go and handlers.go's router-plus-JSON-
// handler shape, generalized from its stdlib ServeMux onto gorilla/mux
// so path variables ({queue}, {id}) are named instead of string-sliced.
package adminapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ignitehq/igniter-jobs/internal/runtime"
	"github.com/ignitehq/igniter-jobs/internal/telemetry"
)

// Server wraps a *runtime.Runtime with a read-only gorilla/mux router.
type Server struct {
	rt     *runtime.Runtime
	logger telemetry.Logger
}

// NewServer builds a Server over an already-built runtime.
func NewServer(rt *runtime.Runtime, logger telemetry.Logger) *Server {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &Server{rt: rt, logger: logger}
}

// Router builds the gorilla/mux router exposing this surface's four
// routes. Exported so a caller can mount it under its own http.Server
// or embed it alongside other routers.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/queues", s.listQueues).Methods(http.MethodGet)
	r.HandleFunc("/queues/{queue}", s.getQueue).Methods(http.MethodGet)
	r.HandleFunc("/queues/{queue}/jobs/{id}", s.getJob).Methods(http.MethodGet)
	r.HandleFunc("/workers", s.listWorkers).Methods(http.MethodGet)
	return r
}
