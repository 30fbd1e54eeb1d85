package models

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mindbridge/mindbridge/internal/models"
	"github.com/mindbridge/mindbridge/internal/tools"
)

// GetTools builds the registry tool set over a shared store.
func GetTools(store *models.Store) []tools.Tool {
	return []tools.Tool{
		NewListModelsTool(store),
		NewGetModelInfoTool(store),
		NewSearchModelsTool(store),
		NewFetchOfficialModelsTool(store),
	}
}

type ListModelsTool struct {
	store *models.Store
}

func NewListModelsTool(store *models.Store) *ListModelsTool {
	return &ListModelsTool{store: store}
}

func (t *ListModelsTool) Name() string {
	return "list_models"
}

func (t *ListModelsTool) Description() string {
	return "List official MindSpore models with optional filters on group/category/task/suite or an id/name substring"
}

func (t *ListModelsTool) Title() string {
	return "List Models"
}

func (t *ListModelsTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *ListModelsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"group": {
				"type": "string",
				"description": "Filter by model group"
			},
			"category": {
				"type": "string",
				"description": "Filter by category"
			},
			"task": {
				"type": "string",
				"description": "Filter by task (e.g. 'text-generation')"
			},
			"suite": {
				"type": "string",
				"description": "Filter by suite"
			},
			"q": {
				"type": "string",
				"description": "Substring of model id or name"
			}
		}
	}`)
}

func (t *ListModelsTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var req struct {
		Group    string `json:"group"`
		Category string `json:"category"`
		Task     string `json:"task"`
		Suite    string `json:"suite"`
		Q        string `json:"q"`
	}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, err
		}
	}

	list, err := t.store.List(models.Filter{
		Group:    req.Group,
		Category: req.Category,
		Task:     req.Task,
		Suite:    req.Suite,
		Query:    req.Q,
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total":  len(list),
		"models": list,
	}, nil
}

type GetModelInfoTool struct {
	store *models.Store
}

func NewGetModelInfoTool(store *models.Store) *GetModelInfoTool {
	return &GetModelInfoTool{store: store}
}

func (t *GetModelInfoTool) Name() string {
	return "get_model_info"
}

func (t *GetModelInfoTool) Description() string {
	return "Return the full registry record of a model by id or name (case-insensitive)"
}

func (t *GetModelInfoTool) Title() string {
	return "Get Model Info"
}

func (t *GetModelInfoTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *GetModelInfoTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"model_id": {
				"type": "string",
				"description": "Model id or name"
			}
		},
		"required": ["model_id"]
	}`)
}

func (t *GetModelInfoTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var req struct {
		ModelID string `json:"model_id"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, err
	}
	if req.ModelID == "" {
		return nil, fmt.Errorf("model_id is required")
	}
	return t.store.Get(req.ModelID)
}

type SearchModelsTool struct {
	store *models.Store
}

func NewSearchModelsTool(store *models.Store) *SearchModelsTool {
	return &SearchModelsTool{store: store}
}

func (t *SearchModelsTool) Name() string {
	return "search_models"
}

func (t *SearchModelsTool) Description() string {
	return "Full-text search over model ids and names, ranked by relevance"
}

func (t *SearchModelsTool) Title() string {
	return "Search Models"
}

func (t *SearchModelsTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *SearchModelsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "Search query"
			},
			"limit": {
				"type": "integer",
				"description": "Max results (default 20)"
			}
		},
		"required": ["query"]
	}`)
}

func (t *SearchModelsTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, err
	}
	if req.Query == "" {
		return nil, fmt.Errorf("search query is required")
	}

	results, err := t.store.Search(req.Query, req.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"query":   req.Query,
		"total":   len(results),
		"results": results,
	}, nil
}

type FetchOfficialModelsTool struct {
	store *models.Store
}

func NewFetchOfficialModelsTool(store *models.Store) *FetchOfficialModelsTool {
	return &FetchOfficialModelsTool{store: store}
}

func (t *FetchOfficialModelsTool) Name() string {
	return "fetch_official_models"
}

func (t *FetchOfficialModelsTool) Description() string {
	return "Return the full official models registry document"
}

func (t *FetchOfficialModelsTool) Title() string {
	return "Fetch Official Models"
}

func (t *FetchOfficialModelsTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *FetchOfficialModelsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *FetchOfficialModelsTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return t.store.Registry()
}
