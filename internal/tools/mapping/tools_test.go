package mapping

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mindbridge/mindbridge/internal/data"
	"github.com/mindbridge/mindbridge/internal/mapping"
)

func testStore(t *testing.T) *mapping.Store {
	t.Helper()
	src := data.NewMemSource()
	src.Put(data.Key{Kind: data.KindConsistent}, []byte(`{
		"items": [{"pytorch": "torch.abs", "mindspore": "mindspore.ops.abs", "description": "consistent"}]
	}`))
	src.Put(data.Key{Kind: data.KindDiff}, []byte(`{
		"items": [{"pytorch": "torch.svd", "mindspore": "mindspore.ops.svd", "description": "returns differ"}]
	}`))
	store, err := mapping.NewStore(src, 0)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestGetTools(t *testing.T) {
	toolSet := GetTools(testStore(t))
	if len(toolSet) != 3 {
		t.Fatalf("tool count = %d, want 3", len(toolSet))
	}
	want := map[string]bool{"translate_code": true, "diagnose_translation": true, "query_op_mapping": true}
	for _, tool := range toolSet {
		if !want[tool.Name()] {
			t.Errorf("unexpected tool %q", tool.Name())
		}
		var schema map[string]interface{}
		if err := json.Unmarshal(tool.Schema(), &schema); err != nil {
			t.Errorf("%s schema is not valid JSON: %v", tool.Name(), err)
		}
	}
}

func TestTranslateToolExecute(t *testing.T) {
	tool := NewTranslateTool(testStore(t))

	value, err := tool.Execute(context.Background(), json.RawMessage(`{"code": "y = torch.abs(x)"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res, ok := value.(*mapping.TranslationResult)
	if !ok {
		t.Fatalf("result type = %T", value)
	}
	if res.Translated != "y = mindspore.ops.abs(x)" {
		t.Errorf("Translated = %q", res.Translated)
	}
}

func TestTranslateToolRequiresCode(t *testing.T) {
	tool := NewTranslateTool(testStore(t))
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Error("Execute accepted empty code")
	}
	if _, err := tool.Execute(context.Background(), json.RawMessage(`not json`)); err == nil {
		t.Error("Execute accepted malformed input")
	}
}

func TestDiagnoseToolExecute(t *testing.T) {
	tool := NewDiagnoseTool(testStore(t))

	input := json.RawMessage(`{
		"original_code": "y = torch.abs(x)",
		"translated_code": "y = mindspore.ops.abs(x)"
	}`)
	value, err := tool.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	report, ok := value.(*mapping.DiagnosisReport)
	if !ok {
		t.Fatalf("result type = %T", value)
	}
	if len(report.Applied) != 1 || len(report.Missing) != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestDiagnoseToolRequiresOriginal(t *testing.T) {
	tool := NewDiagnoseTool(testStore(t))
	input := json.RawMessage(`{"translated_code": "y = 1"}`)
	if _, err := tool.Execute(context.Background(), input); err == nil {
		t.Error("Execute accepted empty original_code")
	}
}

func TestQueryToolExecute(t *testing.T) {
	tool := NewQueryTool(testStore(t))

	value, err := tool.Execute(context.Background(), json.RawMessage(`{"op": "svd"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res, ok := value.(*mapping.QueryResult)
	if !ok {
		t.Fatalf("result type = %T", value)
	}
	if len(res.Diff) != 1 || res.Diff[0].SourceAPI != "torch.svd" {
		t.Errorf("query result = %+v", res)
	}
}

func TestQueryToolRequiresOp(t *testing.T) {
	tool := NewQueryTool(testStore(t))
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Error("Execute accepted empty op")
	}
}

func TestToolsHonorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, tool := range GetTools(testStore(t)) {
		if _, err := tool.Execute(ctx, json.RawMessage(`{"code":"x","op":"x","original_code":"x","translated_code":"x"}`)); err == nil {
			t.Errorf("%s ignored a cancelled context", tool.Name())
		}
	}
}
