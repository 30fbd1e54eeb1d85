package mapping

import (
	"fmt"
	"strings"

	"github.com/mindbridge/mindbridge/internal/data"
)

// Entry is one row of the PyTorch→MindSpore correspondence table as
// produced by the ETL scrape.
type Entry struct {
	Section     string `json:"section,omitempty"`
	Header      string `json:"header,omitempty"`
	SourceAPI   string `json:"pytorch"`
	TargetAPI   string `json:"mindspore,omitempty"`
	Description string `json:"description,omitempty"`
}

// IsConsistent reports whether the entry belongs to the consistent
// partition. The description sentinel is the sole routing criterion.
func (e Entry) IsConsistent() bool {
	return strings.EqualFold(e.Description, "consistent")
}

// brief drops the header context so recorded results carry only the
// section/pytorch/mindspore/description fields.
func (e Entry) brief() Entry {
	e.Header = ""
	return e
}

type Meta struct {
	Source       string   `json:"source,omitempty"`
	FetchedAt    string   `json:"fetched_at,omitempty"`
	TotalRows    int      `json:"total_rows,omitempty"`
	DiffRows     int      `json:"diff_rows,omitempty"`
	VersionHints []string `json:"version_hints,omitempty"`
}

type Document struct {
	Meta  Meta    `json:"meta"`
	Items []Entry `json:"items"`
}

// Set is a read-only snapshot of the mapping table, partitioned at load
// time and sorted by source API length descending within each partition.
type Set struct {
	Consistent []Entry
	Diff       []Entry
}

// LoadError marks a fatal failure to read or parse a required base
// document. Malformed optional section documents never produce one.
type LoadError struct {
	Key data.Key
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load mapping document %s: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
