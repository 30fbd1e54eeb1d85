package tools

import (
	"context"
	"encoding/json"
	"time"
)

type HealthTool struct {
	startTime time.Time
	version   string
	// registryVersion is read lazily so a watcher-triggered reload is
	// reflected without re-registering the tool.
	registryVersion func() string
}

func NewHealthTool(serverVersion string, registryVersion func() string) *HealthTool {
	return &HealthTool{
		startTime:       time.Now(),
		version:         serverVersion,
		registryVersion: registryVersion,
	}
}

func (t *HealthTool) Name() string {
	return "health"
}

func (t *HealthTool) Description() string {
	return "Check server health and loaded data versions"
}

func (t *HealthTool) Title() string {
	return "Health Check"
}

func (t *HealthTool) Annotations() map[string]bool {
	return ReadOnlyAnnotations()
}

func (t *HealthTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *HealthTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	result := map[string]interface{}{
		"status":  "healthy",
		"version": t.version,
		"uptime":  int64(time.Since(t.startTime).Seconds()),
	}
	if t.registryVersion != nil {
		result["registry_version"] = t.registryVersion()
	}
	return result, nil
}
