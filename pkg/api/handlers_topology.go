package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dd0wney/cluso-topology/pkg/engine"
	"github.com/dd0wney/cluso-topology/pkg/logging"
	"github.com/dd0wney/cluso-topology/pkg/validation"
)

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	s.respondResult(w, s.engine.Topology())
}

func (s *Server) handleNewTopology(w http.ResponseWriter, r *http.Request) {
	s.respondResult(w, s.engine.NewTopology())
}

func (s *Server) createNetwork(_ *http.Request, req validation.NetworkRequest) engine.Result {
	return s.engine.CreateNetwork(req)
}

func (s *Server) createHost(_ *http.Request, req validation.HostRequest) engine.Result {
	return s.engine.CreateHost(req)
}

func (s *Server) createLink(_ *http.Request, req validation.LinkRequest) engine.Result {
	return s.engine.CreateLink(req)
}

func (s *Server) handleRemoveElement(w http.ResponseWriter, r *http.Request) {
	s.respondResult(w, s.engine.RemoveElement(validation.IDRequest{ID: chi.URLParam(r, "id")}))
}

// handleGraph serves the semantic graph as N-Triples.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	data, err := s.engine.Graph()
	if err != nil {
		s.logger.Error("failed to encode semantic graph", logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "graph encoding failed")
		return
	}
	w.Header().Set("Content-Type", "application/n-triples")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
