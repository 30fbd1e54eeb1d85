package mapping

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mindbridge/mindbridge/internal/data"
	"github.com/mindbridge/mindbridge/internal/logger"
)

var log = logger.ForComponent("mapping")

const DefaultCacheSize = 16

// Store loads and merges mapping documents into immutable Set snapshots.
// Snapshots are cached per section key; Invalidate drops them all.
type Store struct {
	source data.Source
	cache  *lru.Cache[string, *Set]
}

func NewStore(source data.Source, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *Set](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{source: source, cache: cache}, nil
}

// Load returns the mapping snapshot for section. An empty section merges
// every known section table into the base tables; a named section
// appends just that section's tables. Entries are routed to the
// consistent or diff partition by the description sentinel and each
// partition is sorted by source API length descending, which the
// translator's longest-match-first pass relies on.
func (s *Store) Load(section string) (*Set, error) {
	if set, ok := s.cache.Get(section); ok {
		return set, nil
	}

	var pool []Entry

	for _, kind := range []data.Kind{data.KindConsistent, data.KindDiff} {
		doc, err := s.loadRequired(data.Key{Kind: kind})
		if err != nil {
			return nil, err
		}
		pool = append(pool, doc.Items...)
	}

	if section != "" {
		for _, kind := range []data.Kind{data.KindConsistent, data.KindDiff} {
			items, ok := s.loadOptional(data.Key{Kind: kind, Section: section})
			if ok {
				pool = append(pool, items...)
			}
		}
	} else {
		for _, kind := range []data.Kind{data.KindConsistent, data.KindDiff} {
			sections, err := s.source.Sections(kind)
			if err != nil {
				return nil, &LoadError{Key: data.Key{Kind: kind}, Err: err}
			}
			for _, sec := range sections {
				items, ok := s.loadOptional(data.Key{Kind: kind, Section: sec})
				if ok {
					pool = append(pool, items...)
				}
			}
		}
	}

	set := partition(pool)
	s.cache.Add(section, set)
	return set, nil
}

func (s *Store) loadRequired(key data.Key) (*Document, error) {
	raw, err := s.source.Load(key)
	if err != nil {
		return nil, &LoadError{Key: key, Err: err}
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &LoadError{Key: key, Err: err}
	}
	return &doc, nil
}

// loadOptional treats a missing section document as an empty
// contribution and skips a malformed one without aborting the merge.
func (s *Store) loadOptional(key data.Key) ([]Entry, bool) {
	raw, err := s.source.Load(key)
	if err != nil {
		if !errors.Is(err, data.ErrNotFound) {
			log.Warn("skipping unreadable section document", "key", key.String(), "error", err)
		}
		return nil, false
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Warn("skipping malformed section document", "key", key.String(), "error", err)
		return nil, false
	}
	return doc.Items, true
}

func partition(pool []Entry) *Set {
	set := &Set{}
	for _, e := range pool {
		if e.IsConsistent() {
			set.Consistent = append(set.Consistent, e)
		} else {
			set.Diff = append(set.Diff, e)
		}
	}
	sortByLength(set.Consistent)
	sortByLength(set.Diff)
	return set
}

func sortByLength(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].SourceAPI) > len(entries[j].SourceAPI)
	})
}

// Invalidate drops every cached snapshot. The next Load re-reads the
// documents from the source.
func (s *Store) Invalidate() {
	s.cache.Purge()
}

type QueryResult struct {
	Consistent []Entry `json:"consistent"`
	Diff       []Entry `json:"diff"`
}

// Query returns the entries whose source API contains op,
// case-insensitively, in the store's natural (length-descending) order.
func (s *Store) Query(op, section string) (*QueryResult, error) {
	set, err := s.Load(section)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(op)
	match := func(entries []Entry) []Entry {
		hits := make([]Entry, 0)
		for _, e := range entries {
			if strings.Contains(strings.ToLower(e.SourceAPI), needle) {
				hits = append(hits, e)
			}
		}
		return hits
	}

	return &QueryResult{
		Consistent: match(set.Consistent),
		Diff:       match(set.Diff),
	}, nil
}
