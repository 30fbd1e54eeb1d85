package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/mindbridge/mindbridge/internal/logger"
	"github.com/mindbridge/mindbridge/internal/tools"
	"github.com/mindbridge/mindbridge/pkg/protocol"
	"github.com/mindbridge/mindbridge/pkg/version"
)

var log = logger.ForComponent("mcp")

const ServerName = "MindBridge MCP Server"

type ClientInfo struct {
	Name    string
	Version string
}

type Handler struct {
	registry    *tools.Registry
	resources   *ResourceRegistry
	prompts     *PromptRegistry
	toolTimeout time.Duration

	mu          sync.Mutex
	initialized bool
	clientInfo  ClientInfo
}

func NewHandler(registry *tools.Registry, resources *ResourceRegistry, prompts *PromptRegistry, toolTimeout time.Duration) *Handler {
	if toolTimeout <= 0 {
		toolTimeout = 2 * time.Minute
	}
	return &Handler{
		registry:    registry,
		resources:   resources,
		prompts:     prompts,
		toolTimeout: toolTimeout,
	}
}

// Handle dispatches one JSON-RPC request. Errors returned as
// *jsonrpc2.Error reach the client verbatim.
func (h *Handler) Handle(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	switch req.Method {
	case "initialize":
		return h.handleInitialize(req)
	case "ping":
		return map[string]interface{}{}, nil
	case "tools/list":
		return h.handleListTools(), nil
	case "tools/call":
		return h.handleCallTool(ctx, req)
	case "resources/list":
		return map[string]interface{}{"resources": h.resources.List()}, nil
	case "resources/read":
		return h.handleReadResource(ctx, req)
	case "prompts/list":
		return map[string]interface{}{"prompts": h.prompts.List()}, nil
	case "prompts/get":
		return h.handleGetPrompt(req)
	case "notifications/initialized":
		h.mu.Lock()
		h.initialized = true
		h.mu.Unlock()
		return map[string]interface{}{}, nil
	default:
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}
}

func unmarshalParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return nil
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInvalidParams,
			Message: fmt.Sprintf("invalid params: %v", err),
		}
	}
	return nil
}

func (h *Handler) handleInitialize(req *jsonrpc2.Request) (interface{}, error) {
	var initReq struct {
		ProtocolVersion string `json:"protocolVersion"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo"`
	}
	if err := unmarshalParams(req, &initReq); err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.clientInfo = ClientInfo{Name: initReq.ClientInfo.Name, Version: initReq.ClientInfo.Version}
	h.mu.Unlock()

	return map[string]interface{}{
		"protocolVersion": negotiateProtocolVersion(initReq.ProtocolVersion),
		"capabilities": map[string]interface{}{
			"tools":     map[string]interface{}{},
			"resources": map[string]interface{}{},
			"prompts":   map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    ServerName,
			"version": version.Version,
		},
	}, nil
}

func negotiateProtocolVersion(clientVersion string) string {
	for _, v := range version.SupportedProtocolVersions {
		if clientVersion == v {
			return v
		}
	}
	return version.ProtocolVersion
}

func (h *Handler) handleListTools() interface{} {
	toolsList := h.registry.List()
	toolsData := make([]protocol.Tool, len(toolsList))

	for i, t := range toolsList {
		var schema interface{}
		if err := json.Unmarshal(t.Schema(), &schema); err != nil {
			schema = json.RawMessage(t.Schema())
		}

		toolData := protocol.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: schema,
		}
		if annotated, ok := t.(tools.AnnotatedTool); ok {
			toolData.Title = annotated.Title()
			toolData.Annotations = annotated.Annotations()
		}
		toolsData[i] = toolData
	}

	return map[string]interface{}{"tools": toolsData}
}

func (h *Handler) handleCallTool(ctx context.Context, req *jsonrpc2.Request) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool execution panicked: %v", r)
			log.Error("tool panic recovered", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	var callReq struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := unmarshalParams(req, &callReq); err != nil {
		return nil, err
	}
	if callReq.Name == "" {
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInvalidParams,
			Message: "tool name is required",
		}
	}
	if callReq.Arguments == nil {
		callReq.Arguments = json.RawMessage(`{}`)
	}

	value, err := h.registry.ExecuteWithTimeout(ctx, callReq.Name, callReq.Arguments, h.toolTimeout)
	if err != nil {
		if toolErr, ok := err.(*tools.ToolError); ok {
			return nil, &jsonrpc2.Error{Code: int64(toolErr.Code), Message: toolErr.Message}
		}
		return nil, err
	}

	text, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.TextContent{
			{Type: "text", Text: string(text)},
		},
	}, nil
}

func (h *Handler) handleReadResource(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var readReq struct {
		URI string `json:"uri"`
	}
	if err := unmarshalParams(req, &readReq); err != nil {
		return nil, err
	}
	if readReq.URI == "" {
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInvalidParams,
			Message: "resource uri is required",
		}
	}

	contents, err := h.resources.Read(ctx, readReq.URI)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"contents": []protocol.ResourceContents{*contents},
	}, nil
}

func (h *Handler) handleGetPrompt(req *jsonrpc2.Request) (interface{}, error) {
	var promptReq struct {
		Name      string            `json:"name"`
		Arguments map[string]string `json:"arguments"`
	}
	if err := unmarshalParams(req, &promptReq); err != nil {
		return nil, err
	}
	if promptReq.Name == "" {
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInvalidParams,
			Message: "prompt name is required",
		}
	}
	return h.prompts.Get(promptReq.Name, promptReq.Arguments)
}
