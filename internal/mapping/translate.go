package mapping

import "fmt"

// APIs whose mapped counterpart expects matrix-shaped inputs; hits get a
// shape hint in the recorded entry, not in the code.
var shapeHintAPIs = map[string]struct{}{
	"torch.addmm":  {},
	"torch.mm":     {},
	"torch.matmul": {},
	"torch.bmm":    {},
}

const shapeHint = "check input/output shapes (expects matrix/matched dims)"

type Replacement struct {
	Entry
	Count int `json:"count"`
}

type Warning struct {
	Entry
	Count     int    `json:"count"`
	ShapeHint string `json:"shape_hint,omitempty"`
}

type TranslationResult struct {
	Translated   string        `json:"translated"`
	Annotated    string        `json:"annotated"`
	Replacements []Replacement `json:"replacements"`
	Warnings     []Warning     `json:"warnings"`
}

type Translator struct {
	store *Store
}

func NewTranslator(store *Store) *Translator {
	return &Translator{store: store}
}

// Translate rewrites consistent-API calls in code and annotates
// differing-API calls. The rewritten and annotated outputs are
// independent views of the same input: annotation starts from the
// original code, never from the rewritten buffer.
func (t *Translator) Translate(code, section string) (*TranslationResult, error) {
	set, err := t.store.Load(section)
	if err != nil {
		return nil, err
	}

	res := &TranslationResult{
		Replacements: []Replacement{},
		Warnings:     []Warning{},
	}

	translated := code
	for _, e := range set.Consistent {
		if e.SourceAPI == "" || e.TargetAPI == "" {
			continue
		}
		next, n := ReplaceAll(translated, e.SourceAPI, e.TargetAPI)
		if n == 0 {
			continue
		}
		translated = next
		res.Replacements = append(res.Replacements, Replacement{Entry: e.brief(), Count: n})
	}

	annotated := code
	for _, e := range set.Diff {
		if e.SourceAPI == "" {
			continue
		}
		marker := reviewMarker(e)
		next, n := ExpandAll(annotated, e.SourceAPI, func(m string) string {
			return marker + "\n" + m
		})
		if n == 0 {
			continue
		}
		annotated = next
		w := Warning{Entry: e.brief(), Count: n}
		if _, ok := shapeHintAPIs[e.SourceAPI]; ok {
			w.ShapeHint = shapeHint
		}
		res.Warnings = append(res.Warnings, w)
	}

	res.Translated = translated
	res.Annotated = annotated
	return res, nil
}

func reviewMarker(e Entry) string {
	desc := e.Description
	if desc == "" {
		desc = "diff"
	}
	return fmt.Sprintf("# TODO: check mapping %s -> %s: %s", e.SourceAPI, targetOrWildcard(e.TargetAPI), desc)
}

func replaceMarker(sourceAPI, targetAPI string) string {
	return fmt.Sprintf("# TODO: replace %s -> %s per mapping", sourceAPI, targetOrWildcard(targetAPI))
}

func targetOrWildcard(targetAPI string) string {
	if targetAPI == "" {
		return "mindspore.*"
	}
	return targetAPI
}
