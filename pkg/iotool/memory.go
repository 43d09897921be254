package iotool

import (
	"context"
	"sync"
)

// MemoryTool keeps topologies in process memory. It backs tests and the
// default development configuration.
type MemoryTool struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryTool creates an empty MemoryTool.
func NewMemoryTool() *MemoryTool {
	return &MemoryTool{data: make(map[string][]byte)}
}

// Seed stores content without going through a gateway.
func (m *MemoryTool) Seed(id string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = append([]byte(nil), content...)
}

// Len returns the number of stored topologies.
func (m *MemoryTool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *MemoryTool) Request(_ context.Context, id string) (Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.data[id]
	if !ok {
		return Response{Code: CodeNotFound, Message: "topology " + id + " not found"}, nil
	}
	return Response{Code: CodeOK, Message: "OK", Data: map[string]string{id: string(content)}}, nil
}

func (m *MemoryTool) Store(_ context.Context, id string, content []byte) (Response, error) {
	if id == "" {
		return Response{Code: CodeInvalid, Message: "topology id is required"}, nil
	}
	m.Seed(id, content)
	return Response{Code: CodeOK, Message: "OK"}, nil
}

func (m *MemoryTool) Drop(_ context.Context, id string) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return Response{Code: CodeNotFound, Message: "topology " + id + " not found"}, nil
	}
	delete(m.data, id)
	return Response{Code: CodeOK, Message: "OK"}, nil
}
