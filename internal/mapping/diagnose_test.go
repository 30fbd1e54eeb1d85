package mapping

import (
	"strings"
	"testing"

	"github.com/mindbridge/mindbridge/internal/data"
)

func mustDiagnoser(t *testing.T, src data.Source) *Diagnoser {
	t.Helper()
	return NewDiagnoser(mustStore(t, src))
}

func TestDiagnoseAppliedTranslation(t *testing.T) {
	src := translatorSource(t)
	tr := mustTranslator(t, src)
	d := mustDiagnoser(t, src)

	code := "y = torch.addmm(c, a, b)\nz = torch.abs(y)"
	res, err := tr.Translate(code, "")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	report, err := d.Diagnose(code, res.Translated, "")
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	if len(report.Applied) != 2 {
		t.Fatalf("applied = %d, want 2", len(report.Applied))
	}
	for _, a := range report.Applied {
		if a.SourceCount != 1 || a.TranslatedCount != 1 {
			t.Errorf("%s counts = %d/%d, want 1/1", a.SourceAPI, a.SourceCount, a.TranslatedCount)
		}
	}
	if len(report.Missing) != 0 {
		t.Errorf("missing = %+v, want none after a faithful translation", report.Missing)
	}
	if len(report.Extra) != 0 {
		t.Errorf("extra = %+v, want none", report.Extra)
	}
}

func TestDiagnoseMissingMapping(t *testing.T) {
	src := translatorSource(t)
	d := mustDiagnoser(t, src)

	original := "z = torch.abs(x)"
	translated := "z = torch.abs(x)" // untouched, the mapping was not applied

	report, err := d.Diagnose(original, translated, "")
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	if len(report.Missing) != 1 || report.Missing[0].SourceAPI != "torch.abs" {
		t.Fatalf("missing = %+v, want torch.abs", report.Missing)
	}
	if report.Missing[0].SourceCount != 1 || report.Missing[0].TranslatedCount != 0 {
		t.Errorf("missing counts = %d/%d, want 1/0",
			report.Missing[0].SourceCount, report.Missing[0].TranslatedCount)
	}

	marker := "# TODO: replace torch.abs -> mindspore.ops.abs per mapping"
	if !strings.Contains(report.Annotated, marker) {
		t.Errorf("annotated missing marker %q: %q", marker, report.Annotated)
	}
}

func TestDiagnoseExtraCall(t *testing.T) {
	src := translatorSource(t)
	d := mustDiagnoser(t, src)

	original := "print('no torch here')"
	translated := "z = mindspore.ops.abs(x)"

	report, err := d.Diagnose(original, translated, "")
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	if len(report.Extra) != 1 {
		t.Fatalf("extra = %+v, want one entry", report.Extra)
	}
	e := report.Extra[0]
	if e.TargetAPI != "mindspore.ops.abs" {
		t.Errorf("extra entry = %+v", e)
	}
	if e.Note != extraCallNote {
		t.Errorf("note = %q, want %q", e.Note, extraCallNote)
	}
	if len(report.Missing) != 0 {
		t.Errorf("missing = %+v, want none", report.Missing)
	}
}

func TestDiagnoseDiffHitsAndMarkers(t *testing.T) {
	src := translatorSource(t)
	d := mustDiagnoser(t, src)

	original := "u, s, v = torch.svd(a)\ny = torch.mm(a, b)"
	report, err := d.Diagnose(original, original, "")
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	if len(report.DiffHits) != 2 {
		t.Fatalf("diff hits = %d, want 2", len(report.DiffHits))
	}
	for _, h := range report.DiffHits {
		if h.Count != 1 {
			t.Errorf("%s hit count = %d, want 1", h.SourceAPI, h.Count)
		}
		if h.SourceAPI == "torch.mm" && h.ShapeHint != shapeHint {
			t.Errorf("torch.mm shape hint = %q, want %q", h.ShapeHint, shapeHint)
		}
	}

	if !strings.Contains(report.Annotated, "# TODO: check mapping torch.svd -> mindspore.ops.svd") {
		t.Errorf("annotated missing svd marker: %q", report.Annotated)
	}
	if !strings.Contains(report.Annotated, "# TODO: check mapping torch.mm -> mindspore.*") {
		t.Errorf("annotated missing mm marker: %q", report.Annotated)
	}
}

func TestDiagnoseCountsAreBoundarySafe(t *testing.T) {
	src := translatorSource(t)
	d := mustDiagnoser(t, src)

	// torch.abs embedded in a longer identifier must not count.
	report, err := d.Diagnose("mytorch.abs(x)", "", "")
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if len(report.Applied) != 0 {
		t.Errorf("applied = %+v, want none", report.Applied)
	}
}

func TestDiagnoseNeverMutatesTranslated(t *testing.T) {
	src := translatorSource(t)
	d := mustDiagnoser(t, src)

	original := "u = torch.svd(a)"
	translated := "u = something.else(a)"
	report, err := d.Diagnose(original, translated, "")
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(report.Annotated, "torch.svd(a)") {
		t.Errorf("annotated must derive from original: %q", report.Annotated)
	}
	if strings.Contains(report.Annotated, "something.else") {
		t.Errorf("annotated leaked translated buffer: %q", report.Annotated)
	}
}
