package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dd0wney/cluso-topology/pkg/engine"
	"github.com/dd0wney/cluso-topology/pkg/logging"
)

// statusCodes maps engine statuses to HTTP codes. Every envelope is still
// JSON, so clients may key off either.
var statusCodes = map[engine.Status]int{
	engine.StatusSuccess:          http.StatusOK,
	engine.StatusGeneralError:     http.StatusUnprocessableEntity,
	engine.StatusMissingArguments: http.StatusBadRequest,
	engine.StatusBusy:             http.StatusConflict,
	engine.StatusRecovered:        http.StatusInternalServerError,
	engine.StatusUnresolved:       http.StatusInternalServerError,
	engine.StatusException:        http.StatusBadGateway,
}

// HTTPStatus returns the HTTP code for an engine status.
func HTTPStatus(s engine.Status) int {
	if code, ok := statusCodes[s]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// decodeRequest decodes a JSON body into v. An empty body leaves v at its
// zero value, so optional-argument operations accept no body at all.
func decodeRequest(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

func (s *Server) respondResult(w http.ResponseWriter, res engine.Result) {
	s.respondJSON(w, HTTPStatus(res.Status), res)
}

// withRequest decodes the body into a fresh T and answers with op's result.
func withRequest[T any](s *Server, op func(*http.Request, T) engine.Result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req T
		if err := decodeRequest(r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondResult(w, op(r, req))
	}
}
