package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/mindbridge/mindbridge/internal/tools"
	"github.com/mindbridge/mindbridge/pkg/protocol"
	"github.com/mindbridge/mindbridge/pkg/version"
)

type echoTool struct{}

func (echoTool) Name() string            { return "echo" }
func (echoTool) Description() string     { return "echo the input back" }
func (echoTool) Schema() json.RawMessage { return json.RawMessage(`{"type": "object"}`) }
func (echoTool) Execute(_ context.Context, input json.RawMessage) (interface{}, error) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, err
	}
	return map[string]string{"echo": req.Text}, nil
}

type failingTool struct{}

func (failingTool) Name() string            { return "fail" }
func (failingTool) Description() string     { return "always fails" }
func (failingTool) Schema() json.RawMessage { return json.RawMessage(`{"type": "object"}`) }
func (failingTool) Execute(context.Context, json.RawMessage) (interface{}, error) {
	return nil, errors.New("boom")
}

func testHandler(t *testing.T) *Handler {
	t.Helper()

	registry := tools.NewRegistry()
	if err := registry.Register(echoTool{}); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(failingTool{}); err != nil {
		t.Fatal(err)
	}

	resources := NewResourceRegistry()
	err := resources.Register(protocol.Resource{
		URI:  "mindspore://test/doc",
		Name: "Test document",
	}, func(context.Context) (interface{}, error) {
		return map[string]string{"hello": "world"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	prompts := NewPromptRegistry()
	if err := prompts.Register(protocol.Prompt{
		Name:        "model_lookup",
		Description: "look up models",
		Arguments:   []protocol.PromptArgument{{Name: "task", Required: true}},
	}, ModelLookupPrompt); err != nil {
		t.Fatal(err)
	}

	return NewHandler(registry, resources, prompts, time.Second)
}

func request(t *testing.T, method, params string) *jsonrpc2.Request {
	t.Helper()
	req := &jsonrpc2.Request{Method: method}
	if params != "" {
		raw := json.RawMessage(params)
		req.Params = &raw
	}
	return req
}

func TestHandleInitialize(t *testing.T) {
	h := testHandler(t)

	value, err := h.Handle(context.Background(), nil, request(t, "initialize", `{
		"protocolVersion": "2024-11-05",
		"clientInfo": {"name": "test-client", "version": "1.0"}
	}`))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	result := value.(map[string]interface{})
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion = %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]interface{})
	if info["name"] != ServerName || info["version"] != version.Version {
		t.Errorf("serverInfo = %v", info)
	}
}

func TestHandleInitializeUnknownVersionFallsBack(t *testing.T) {
	h := testHandler(t)

	value, err := h.Handle(context.Background(), nil, request(t, "initialize", `{"protocolVersion": "1999-01-01"}`))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	result := value.(map[string]interface{})
	if result["protocolVersion"] != version.ProtocolVersion {
		t.Errorf("protocolVersion = %v, want server default", result["protocolVersion"])
	}
}

func TestHandlePing(t *testing.T) {
	h := testHandler(t)
	if _, err := h.Handle(context.Background(), nil, request(t, "ping", "")); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestHandleListTools(t *testing.T) {
	h := testHandler(t)

	value, err := h.Handle(context.Background(), nil, request(t, "tools/list", ""))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	list := value.(map[string]interface{})["tools"].([]protocol.Tool)
	if len(list) != 2 {
		t.Fatalf("tools = %d, want 2", len(list))
	}
	if list[0].Name != "echo" || list[1].Name != "fail" {
		t.Errorf("tool order = [%s, %s]", list[0].Name, list[1].Name)
	}
}

func TestHandleCallTool(t *testing.T) {
	h := testHandler(t)

	value, err := h.Handle(context.Background(), nil, request(t, "tools/call", `{
		"name": "echo",
		"arguments": {"text": "hi"}
	}`))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	result := value.(*protocol.CallToolResult)
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("content = %+v", result.Content)
	}
	if !strings.Contains(result.Content[0].Text, `"echo":"hi"`) {
		t.Errorf("text = %q", result.Content[0].Text)
	}
}

func TestHandleCallToolErrors(t *testing.T) {
	h := testHandler(t)

	if _, err := h.Handle(context.Background(), nil, request(t, "tools/call", `{"name": ""}`)); err == nil {
		t.Error("accepted empty tool name")
	}

	_, err := h.Handle(context.Background(), nil, request(t, "tools/call", `{"name": "ghost"}`))
	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %T (%v), want *jsonrpc2.Error", err, err)
	}
	if rpcErr.Code != -32601 {
		t.Errorf("code = %d, want -32601", rpcErr.Code)
	}

	if _, err := h.Handle(context.Background(), nil, request(t, "tools/call", `{"name": "fail"}`)); err == nil {
		t.Error("failing tool reported success")
	}
}

func TestHandleCallToolDefaultsArguments(t *testing.T) {
	h := testHandler(t)
	if _, err := h.Handle(context.Background(), nil, request(t, "tools/call", `{"name": "echo"}`)); err != nil {
		t.Errorf("call without arguments: %v", err)
	}
}

func TestHandleListAndReadResources(t *testing.T) {
	h := testHandler(t)

	value, err := h.Handle(context.Background(), nil, request(t, "resources/list", ""))
	if err != nil {
		t.Fatalf("resources/list: %v", err)
	}
	list := value.(map[string]interface{})["resources"].([]protocol.Resource)
	if len(list) != 1 || list[0].URI != "mindspore://test/doc" {
		t.Fatalf("resources = %+v", list)
	}
	if list[0].MimeType != "application/json" {
		t.Errorf("mime type = %q, want application/json default", list[0].MimeType)
	}

	value, err = h.Handle(context.Background(), nil, request(t, "resources/read", `{"uri": "mindspore://test/doc"}`))
	if err != nil {
		t.Fatalf("resources/read: %v", err)
	}
	contents := value.(map[string]interface{})["contents"].([]protocol.ResourceContents)
	if len(contents) != 1 || contents[0].Text != `{"hello":"world"}` {
		t.Errorf("contents = %+v", contents)
	}

	if _, err := h.Handle(context.Background(), nil, request(t, "resources/read", `{"uri": "mindspore://nope"}`)); err == nil {
		t.Error("read of unknown resource succeeded")
	}
	if _, err := h.Handle(context.Background(), nil, request(t, "resources/read", `{}`)); err == nil {
		t.Error("read without uri succeeded")
	}
}

func TestHandleGetPrompt(t *testing.T) {
	h := testHandler(t)

	value, err := h.Handle(context.Background(), nil, request(t, "prompts/get", `{
		"name": "model_lookup",
		"arguments": {"task": "text-generation", "limit": "3"}
	}`))
	if err != nil {
		t.Fatalf("prompts/get: %v", err)
	}
	result := value.(*protocol.GetPromptResult)
	if len(result.Messages) != 1 || result.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", result.Messages)
	}
	want := "Find up to 3 MindSpore models relevant to task: text-generation"
	if result.Messages[0].Content.Text != want {
		t.Errorf("prompt text = %q, want %q", result.Messages[0].Content.Text, want)
	}

	if _, err := h.Handle(context.Background(), nil, request(t, "prompts/get", `{"name": "model_lookup"}`)); err == nil {
		t.Error("prompt without required task argument succeeded")
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	h := testHandler(t)

	_, err := h.Handle(context.Background(), nil, request(t, "bogus/method", ""))
	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %T, want *jsonrpc2.Error", err)
	}
	if rpcErr.Code != jsonrpc2.CodeMethodNotFound {
		t.Errorf("code = %d, want %d", rpcErr.Code, jsonrpc2.CodeMethodNotFound)
	}
}

func TestHandleInvalidParams(t *testing.T) {
	h := testHandler(t)

	_, err := h.Handle(context.Background(), nil, request(t, "tools/call", `[1, 2]`))
	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %T, want *jsonrpc2.Error", err)
	}
	if rpcErr.Code != jsonrpc2.CodeInvalidParams {
		t.Errorf("code = %d, want %d", rpcErr.Code, jsonrpc2.CodeInvalidParams)
	}
}

func TestModelLookupPromptLimitValidation(t *testing.T) {
	if _, err := ModelLookupPrompt(map[string]string{"task": "x", "limit": "-1"}); err == nil {
		t.Error("negative limit accepted")
	}
	if _, err := ModelLookupPrompt(map[string]string{"task": "x", "limit": "abc"}); err == nil {
		t.Error("non-numeric limit accepted")
	}
	text, err := ModelLookupPrompt(map[string]string{"task": "ocr"})
	if err != nil {
		t.Fatalf("ModelLookupPrompt: %v", err)
	}
	if text != "Find up to 5 MindSpore models relevant to task: ocr" {
		t.Errorf("text = %q", text)
	}
}
