package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mindbridge/mindbridge/pkg/protocol"
)

// ResourceFunc produces the current value of a resource; the result is
// serialized to JSON text on read.
type ResourceFunc func(ctx context.Context) (interface{}, error)

type resourceEntry struct {
	meta protocol.Resource
	fn   ResourceFunc
}

// ResourceRegistry maps URIs to handlers. Registration happens once at
// startup from the composition root; there is no implicit discovery.
type ResourceRegistry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]resourceEntry
}

func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{
		entries: make(map[string]resourceEntry),
	}
}

func (r *ResourceRegistry) Register(meta protocol.Resource, fn ResourceFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if meta.URI == "" {
		return fmt.Errorf("resource URI cannot be empty")
	}
	if _, exists := r.entries[meta.URI]; exists {
		return fmt.Errorf("resource already registered: %s", meta.URI)
	}
	if meta.MimeType == "" {
		meta.MimeType = "application/json"
	}

	r.entries[meta.URI] = resourceEntry{meta: meta, fn: fn}
	r.order = append(r.order, meta.URI)
	return nil
}

func (r *ResourceRegistry) List() []protocol.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]protocol.Resource, 0, len(r.order))
	for _, uri := range r.order {
		result = append(result, r.entries[uri].meta)
	}
	return result
}

func (r *ResourceRegistry) Read(ctx context.Context, uri string) (*protocol.ResourceContents, error) {
	r.mu.RLock()
	entry, ok := r.entries[uri]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("resource not found: %s", uri)
	}

	value, err := entry.fn(ctx)
	if err != nil {
		return nil, err
	}

	text, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("serialize resource %s: %w", uri, err)
	}

	return &protocol.ResourceContents{
		URI:      uri,
		MimeType: entry.meta.MimeType,
		Text:     string(text),
	}, nil
}
