package models

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mindbridge/mindbridge/internal/data"
)

// Store keeps the model registry in an embedded SQLite database: plain
// columns for the filterable fields, the untouched JSON record for
// lookups, and an FTS5 table for ranked name search.
type Store struct {
	db     *sql.DB
	source data.Source

	mu      sync.RWMutex
	version string
	raw     []byte
}

// NewStore opens the database (":memory:" when dbPath is empty), creates
// the schema and performs the initial registry load. A missing or
// malformed registry document is a fatal load error.
func NewStore(source data.Source, dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, source: source}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Reload(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS models (
		position INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		group_name TEXT,
		category TEXT,
		suite TEXT,
		tasks TEXT,
		doc TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_models_id ON models(id);
	CREATE INDEX IF NOT EXISTS idx_models_group ON models(group_name);

	CREATE VIRTUAL TABLE IF NOT EXISTS models_fts USING fts5(id, name);

	CREATE TABLE IF NOT EXISTS registry_meta (
		key TEXT PRIMARY KEY,
		value TEXT
	)
	`

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Reload re-reads the registry document from the source and rebuilds the
// tables. Nothing partial is committed on failure.
func (s *Store) Reload() error {
	key := data.Key{Kind: data.KindRegistry}
	raw, err := s.source.Load(key)
	if err != nil {
		return fmt.Errorf("load model registry %s: %w", key, err)
	}

	var payload struct {
		Version     string             `json:"version"`
		Source      string             `json:"source"`
		GeneratedAt string             `json:"generated_at"`
		Models      *[]json.RawMessage `json:"models"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("load model registry %s: %w", key, err)
	}
	if payload.Models == nil {
		return fmt.Errorf("load model registry %s: document has no 'models' array", key)
	}

	type row struct {
		model Model
		doc   []byte
	}
	rows := make([]row, 0, len(*payload.Models))
	for i, rec := range *payload.Models {
		var m Model
		if err := json.Unmarshal(rec, &m); err != nil {
			return fmt.Errorf("load model registry %s: model #%d: %w", key, i, err)
		}
		rows = append(rows, row{model: m, doc: rec})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM models"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM models_fts"); err != nil {
		return err
	}

	for i, r := range rows {
		tasks, err := json.Marshal(r.model.Task)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT INTO models (position, id, name, group_name, category, suite, tasks, doc) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			i, r.model.ID, r.model.Name, r.model.Group, r.model.Category, r.model.Suite, string(tasks), string(r.doc),
		); err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT INTO models_fts (rowid, id, name) VALUES (?, ?, ?)",
			i, r.model.ID, r.model.Name,
		); err != nil {
			return err
		}
	}

	meta := map[string]string{
		"version":      payload.Version,
		"source":       payload.Source,
		"generated_at": payload.GeneratedAt,
	}
	for k, v := range meta {
		if _, err := tx.Exec(
			"INSERT INTO registry_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			k, v,
		); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.version = payload.Version
	s.raw = raw
	return nil
}

// Version reports the registry version currently loaded.
func (s *Store) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Registry returns the full registry document as loaded.
func (s *Store) Registry() (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.raw == nil {
		return nil, errors.New("model registry not loaded")
	}
	return json.RawMessage(s.raw), nil
}

// List returns the models matching f, projected to the documented field
// set, preserving the registry's original order.
func (s *Store) List(f Filter) ([]Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT doc, tasks FROM models"
	var conds []string
	var args []interface{}

	if f.Group != "" {
		conds = append(conds, "lower(group_name) = lower(?)")
		args = append(args, f.Group)
	}
	if f.Category != "" {
		conds = append(conds, "lower(category) = lower(?)")
		args = append(args, f.Category)
	}
	if f.Suite != "" {
		conds = append(conds, "lower(suite) = lower(?)")
		args = append(args, f.Suite)
	}
	if f.Query != "" {
		conds = append(conds, "(instr(lower(id), lower(?)) > 0 OR instr(lower(name), lower(?)) > 0)")
		args = append(args, f.Query, f.Query)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY position"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]Model, 0)
	for rows.Next() {
		var doc, tasks string
		if err := rows.Scan(&doc, &tasks); err != nil {
			return nil, err
		}
		if f.Task != "" && !taskListContains(tasks, f.Task) {
			continue
		}
		var m Model
		if err := json.Unmarshal([]byte(doc), &m); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func taskListContains(tasksJSON, task string) bool {
	var tasks []string
	if err := json.Unmarshal([]byte(tasksJSON), &tasks); err != nil {
		return false
	}
	for _, t := range tasks {
		if strings.EqualFold(t, task) {
			return true
		}
	}
	return false
}

// Get returns the full registry record for a model by id or name,
// case-insensitively. No match yields a *NotFoundError carrying the
// registry version.
func (s *Store) Get(idOrName string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRow(
		"SELECT doc FROM models WHERE lower(id) = lower(?) OR lower(name) = lower(?) ORDER BY position LIMIT 1",
		idOrName, idOrName,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ID: idOrName, Version: s.version}
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(doc), nil
}

type SearchResult struct {
	Model
	Rank float64 `json:"rank"`
}

// Search runs a ranked full-text query over model ids and names.
func (s *Store) Search(query string, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		"SELECT m.doc, rank FROM models_fts JOIN models m ON m.position = models_fts.rowid WHERE models_fts MATCH ? ORDER BY rank LIMIT ?",
		query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]SearchResult, 0)
	for rows.Next() {
		var doc string
		var rank float64
		if err := rows.Scan(&doc, &rank); err != nil {
			return nil, err
		}
		var r SearchResult
		if err := json.Unmarshal([]byte(doc), &r.Model); err != nil {
			return nil, err
		}
		r.Rank = rank
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
