package models

import "fmt"

// Model is one registry record. The field set doubles as the projection
// returned by list queries.
type Model struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Group    string                 `json:"group,omitempty"`
	Category string                 `json:"category,omitempty"`
	Task     []string               `json:"task,omitempty"`
	Suite    string                 `json:"suite,omitempty"`
	Variants []string               `json:"variants,omitempty"`
	Links    map[string]interface{} `json:"links,omitempty"`
	Metrics  map[string]interface{} `json:"metrics,omitempty"`
	Dataset  string                 `json:"dataset,omitempty"`
	Hardware map[string]interface{} `json:"hardware,omitempty"`
}

type Registry struct {
	Version     string  `json:"version"`
	Source      string  `json:"source,omitempty"`
	GeneratedAt string  `json:"generated_at,omitempty"`
	Count       int     `json:"count"`
	Models      []Model `json:"models"`
}

// NotFoundError is returned for lookups that match no model. It names
// the registry version consulted, distinct from load failures.
type NotFoundError struct {
	ID      string
	Version string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("model %q not found in registry (version=%s)", e.ID, e.Version)
}

// Filter narrows a List call. Group, Category and Suite compare
// case-insensitively for equality; Task must be a member of the model's
// task list; Query is a case-insensitive substring of id or name.
type Filter struct {
	Group    string
	Category string
	Task     string
	Suite    string
	Query    string
}
