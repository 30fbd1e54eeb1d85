package mcp

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/mindbridge/mindbridge/pkg/protocol"
)

// PromptFunc renders a prompt's user message from its arguments.
type PromptFunc func(args map[string]string) (string, error)

type promptEntry struct {
	meta protocol.Prompt
	fn   PromptFunc
}

type PromptRegistry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]promptEntry
}

func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{
		entries: make(map[string]promptEntry),
	}
}

func (r *PromptRegistry) Register(meta protocol.Prompt, fn PromptFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if meta.Name == "" {
		return fmt.Errorf("prompt name cannot be empty")
	}
	if _, exists := r.entries[meta.Name]; exists {
		return fmt.Errorf("prompt already registered: %s", meta.Name)
	}

	r.entries[meta.Name] = promptEntry{meta: meta, fn: fn}
	r.order = append(r.order, meta.Name)
	return nil
}

func (r *PromptRegistry) List() []protocol.Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]protocol.Prompt, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.entries[name].meta)
	}
	return result
}

func (r *PromptRegistry) Get(name string, args map[string]string) (*protocol.GetPromptResult, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	text, err := entry.fn(args)
	if err != nil {
		return nil, err
	}

	return &protocol.GetPromptResult{
		Description: entry.meta.Description,
		Messages: []protocol.PromptMessage{
			{
				Role:    "user",
				Content: protocol.TextContent{Type: "text", Text: text},
			},
		},
	}, nil
}

// ModelLookupPrompt renders the model_lookup prompt.
func ModelLookupPrompt(args map[string]string) (string, error) {
	task := args["task"]
	if task == "" {
		return "", fmt.Errorf("task argument is required")
	}
	limit := 5
	if raw, ok := args["limit"]; ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("limit must be a positive integer")
		}
		limit = n
	}
	return fmt.Sprintf("Find up to %d MindSpore models relevant to task: %s", limit, task), nil
}
