package api

import (
	"net/http"

	"github.com/dd0wney/cluso-topology/pkg/engine"
	"github.com/dd0wney/cluso-topology/pkg/validation"
)

// IO-Tool calls run on the request context, but the gateway detaches them
// from cancellation: a client hanging up does not abort the tool.

func (s *Server) loadTopology(r *http.Request, req validation.LoadRequest) engine.Result {
	return s.engine.LoadTopology(r.Context(), req)
}

func (s *Server) storeTopology(r *http.Request, req validation.StoreRequest) engine.Result {
	return s.engine.StoreTopology(r.Context(), req)
}

func (s *Server) dropTopology(r *http.Request, req validation.IDRequest) engine.Result {
	return s.engine.DropTopology(r.Context(), req)
}

func (s *Server) handleIOToolStatus(w http.ResponseWriter, r *http.Request) {
	s.respondResult(w, s.engine.IOToolStatus())
}
