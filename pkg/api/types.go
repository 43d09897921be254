package api

import (
	"github.com/dd0wney/cluso-topology/pkg/events"
	"github.com/dd0wney/cluso-topology/pkg/topology"
)

// ErrorResponse is returned for failures outside the engine's status
// vocabulary: undecodable bodies, unknown routes, missing graph.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// VersionResponse answers GET /api/version.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

// Stream frame kinds.
const (
	FrameSnapshot = "snapshot"
	FrameEvent    = "event"
)

// StreamFrame is one websocket message. The first frame on a connection is
// a snapshot, every later frame an event.
type StreamFrame struct {
	Kind     string             `json:"kind"`
	Topology *topology.Snapshot `json:"topology,omitempty"`
	Event    *events.Message    `json:"event,omitempty"`
}
