package mapping

type AppliedMapping struct {
	Entry
	SourceCount     int    `json:"source_count"`
	TranslatedCount int    `json:"translated_count"`
	Note            string `json:"note,omitempty"`
}

type DiffHit struct {
	Entry
	Count     int    `json:"count"`
	ShapeHint string `json:"shape_hint,omitempty"`
}

type DiagnosisReport struct {
	Applied   []AppliedMapping `json:"applied_mappings"`
	Missing   []AppliedMapping `json:"missing_mappings"`
	Extra     []AppliedMapping `json:"extra_calls"`
	DiffHits  []DiffHit        `json:"diff_hits"`
	Annotated string           `json:"annotated"`
}

const extraCallNote = "MindSpore API present but no matching PyTorch call found"

type Diagnoser struct {
	store *Store
}

func NewDiagnoser(store *Store) *Diagnoser {
	return &Diagnoser{store: store}
}

// Diagnose compares a translation produced elsewhere against the mapping
// table. Counting is boundary-safe on both buffers; all annotation goes
// onto a buffer seeded from original, and translated is never mutated.
func (d *Diagnoser) Diagnose(original, translated, section string) (*DiagnosisReport, error) {
	set, err := d.store.Load(section)
	if err != nil {
		return nil, err
	}

	report := &DiagnosisReport{
		Applied:  []AppliedMapping{},
		Missing:  []AppliedMapping{},
		Extra:    []AppliedMapping{},
		DiffHits: []DiffHit{},
	}

	for _, e := range set.Consistent {
		if e.SourceAPI == "" || e.TargetAPI == "" {
			continue
		}
		sourceCount := Count(original, e.SourceAPI)
		translatedCount := Count(translated, e.TargetAPI)
		if sourceCount == 0 && translatedCount == 0 {
			continue
		}
		applied := AppliedMapping{
			Entry:           e.brief(),
			SourceCount:     sourceCount,
			TranslatedCount: translatedCount,
		}
		report.Applied = append(report.Applied, applied)
		if sourceCount > 0 && translatedCount == 0 {
			report.Missing = append(report.Missing, applied)
		}
		if sourceCount == 0 && translatedCount > 0 {
			extra := applied
			extra.Note = extraCallNote
			report.Extra = append(report.Extra, extra)
		}
	}

	annotated := original
	for _, e := range set.Diff {
		if e.SourceAPI == "" {
			continue
		}
		sourceCount := Count(original, e.SourceAPI)
		if sourceCount == 0 {
			continue
		}
		hit := DiffHit{Entry: e.brief(), Count: sourceCount}
		if _, ok := shapeHintAPIs[e.SourceAPI]; ok {
			hit.ShapeHint = shapeHint
		}
		report.DiffHits = append(report.DiffHits, hit)

		marker := reviewMarker(e)
		annotated, _ = ExpandAll(annotated, e.SourceAPI, func(m string) string {
			return marker + "\n" + m
		})
	}

	for _, miss := range report.Missing {
		marker := replaceMarker(miss.SourceAPI, miss.TargetAPI)
		annotated, _ = ExpandAll(annotated, miss.SourceAPI, func(m string) string {
			return marker + "\n" + m
		})
	}

	report.Annotated = annotated
	return report, nil
}
