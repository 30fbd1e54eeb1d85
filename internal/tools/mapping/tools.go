package mapping

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mindbridge/mindbridge/internal/mapping"
	"github.com/mindbridge/mindbridge/internal/tools"
)

// GetTools builds the mapping tool set over a shared store.
func GetTools(store *mapping.Store) []tools.Tool {
	return []tools.Tool{
		NewTranslateTool(store),
		NewDiagnoseTool(store),
		NewQueryTool(store),
	}
}

type TranslateTool struct {
	translator *mapping.Translator
}

func NewTranslateTool(store *mapping.Store) *TranslateTool {
	return &TranslateTool{translator: mapping.NewTranslator(store)}
}

func (t *TranslateTool) Name() string {
	return "translate_code"
}

func (t *TranslateTool) Description() string {
	return `Translate a PyTorch code snippet using the API mapping tables.

Consistent entries are rewritten to their MindSpore equivalents;
entries whose behavior differs are never rewritten, only flagged and
annotated with review markers. The annotated output is derived from the
original code, independent of the rewritten output.`
}

func (t *TranslateTool) Title() string {
	return "Translate PyTorch Code"
}

func (t *TranslateTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *TranslateTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"code": {
				"type": "string",
				"description": "Original PyTorch code"
			},
			"section": {
				"type": "string",
				"description": "Optional section (e.g. 'torchvision') to narrow the mapping scope"
			}
		},
		"required": ["code"]
	}`)
}

func (t *TranslateTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var req struct {
		Code    string `json:"code"`
		Section string `json:"section"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, err
	}
	if req.Code == "" {
		return nil, fmt.Errorf("code is required")
	}
	return t.translator.Translate(req.Code, req.Section)
}

type DiagnoseTool struct {
	diagnoser *mapping.Diagnoser
}

func NewDiagnoseTool(store *mapping.Store) *DiagnoseTool {
	return &DiagnoseTool{diagnoser: mapping.NewDiagnoser(store)}
}

func (t *DiagnoseTool) Name() string {
	return "diagnose_translation"
}

func (t *DiagnoseTool) Description() string {
	return `Diagnose an LLM-produced MindSpore translation against the mapping tables.

Classifies each known API as applied, missing or extra, lists diff-entry
hits, and returns the original code annotated with review markers.`
}

func (t *DiagnoseTool) Title() string {
	return "Diagnose Translation"
}

func (t *DiagnoseTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *DiagnoseTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"original_code": {
				"type": "string",
				"description": "Original PyTorch code"
			},
			"translated_code": {
				"type": "string",
				"description": "Translated MindSpore code to check"
			},
			"section": {
				"type": "string",
				"description": "Optional section to narrow the mapping scope"
			}
		},
		"required": ["original_code", "translated_code"]
	}`)
}

func (t *DiagnoseTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var req struct {
		OriginalCode   string `json:"original_code"`
		TranslatedCode string `json:"translated_code"`
		Section        string `json:"section"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, err
	}
	if req.OriginalCode == "" {
		return nil, fmt.Errorf("original_code is required")
	}
	return t.diagnoser.Diagnose(req.OriginalCode, req.TranslatedCode, req.Section)
}

type QueryTool struct {
	store *mapping.Store
}

func NewQueryTool(store *mapping.Store) *QueryTool {
	return &QueryTool{store: store}
}

func (t *QueryTool) Name() string {
	return "query_op_mapping"
}

func (t *QueryTool) Description() string {
	return "Query the PyTorch→MindSpore API mapping by name or substring"
}

func (t *QueryTool) Title() string {
	return "Query API Mapping"
}

func (t *QueryTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *QueryTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"op": {
				"type": "string",
				"description": "PyTorch API name or substring (e.g. 'torch.addmm' or 'addmm')"
			},
			"section": {
				"type": "string",
				"description": "Optional section (e.g. 'torch', 'torchvision') to narrow the search"
			}
		},
		"required": ["op"]
	}`)
}

func (t *QueryTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var req struct {
		Op      string `json:"op"`
		Section string `json:"section"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, err
	}
	if req.Op == "" {
		return nil, fmt.Errorf("op is required")
	}
	return t.store.Query(req.Op, req.Section)
}
