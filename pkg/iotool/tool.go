// Package iotool mediates access to the external IO-Tool, the system that
// durably stores semantic-graph content keyed by topology id.
//
// The Gateway allows a single operation in flight. Concurrent callers are
// never queued: they get StatusBusy back immediately.
package iotool

import (
	"context"
	"maps"
)

// Return codes reported by tools. CodeUnreachable is recorded by the
// gateway when the tool could not be reached at all.
const (
	CodeOK          = 0
	CodeNotFound    = 1
	CodeInvalid     = 2
	CodeInternal    = 3
	CodeUnreachable = -1
)

// Operation names a gateway operation.
type Operation string

const (
	OpRequest Operation = "request"
	OpStore   Operation = "store"
	OpDrop    Operation = "drop"
)

// Response is what a tool reports for one operation. Data maps topology
// ids to raw N-Triples content and is only filled by Request.
type Response struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

// Tool is the external persistence system. A returned error means the tool
// could not be reached; failures the tool itself reports are carried in
// Response.Code.
type Tool interface {
	Request(ctx context.Context, id string) (Response, error)
	Store(ctx context.Context, id string, content []byte) (Response, error)
	Drop(ctx context.Context, id string) (Response, error)
}

func copyData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	maps.Copy(out, data)
	return out
}
