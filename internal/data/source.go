package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind selects which document family a Key refers to.
type Kind int

const (
	KindConsistent Kind = iota
	KindDiff
	KindRegistry
)

func (k Kind) String() string {
	switch k {
	case KindConsistent:
		return "consistent"
	case KindDiff:
		return "diff"
	case KindRegistry:
		return "registry"
	default:
		return "unknown"
	}
}

// Key identifies one document independent of storage layout. An empty
// Section addresses the base table of the given kind.
type Key struct {
	Kind    Kind
	Section string
}

func (k Key) String() string {
	if k.Section == "" {
		return k.Kind.String()
	}
	return fmt.Sprintf("%s[%s]", k.Kind, k.Section)
}

var ErrNotFound = errors.New("document not found")

// Source resolves keys to raw document payloads. Implementations must
// return ErrNotFound (possibly wrapped) for absent documents so callers
// can tell optional-missing apart from hard I/O failures.
type Source interface {
	Load(key Key) ([]byte, error)
	Sections(kind Kind) ([]string, error)
}

const (
	RegistryFileName   = "mindspore_official_models.json"
	consistentFileName = "pytorch_ms_api_mapping_consistent.json"
	diffFileName       = "pytorch_ms_api_mapping_diff.json"
	sectionDirName     = "convert"
)

// FileSource reads documents from the directory layout produced by the
// ETL scripts: base tables at the root, per-section tables under
// convert/consistent and convert/diff.
type FileSource struct {
	root string
}

func NewFileSource(root string) *FileSource {
	return &FileSource{root: root}
}

func (s *FileSource) path(key Key) (string, error) {
	if key.Section != "" {
		if strings.ContainsAny(key.Section, `/\`) || strings.Contains(key.Section, "..") {
			return "", fmt.Errorf("invalid section name %q", key.Section)
		}
	}

	switch key.Kind {
	case KindRegistry:
		return filepath.Join(s.root, RegistryFileName), nil
	case KindConsistent:
		if key.Section == "" {
			return filepath.Join(s.root, consistentFileName), nil
		}
		return filepath.Join(s.root, sectionDirName, "consistent", key.Section+".json"), nil
	case KindDiff:
		if key.Section == "" {
			return filepath.Join(s.root, diffFileName), nil
		}
		return filepath.Join(s.root, sectionDirName, "diff", key.Section+".json"), nil
	default:
		return "", fmt.Errorf("unknown document kind %d", key.Kind)
	}
}

func (s *FileSource) Load(key Key) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	decoded, err := DecodeUTF8(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return decoded, nil
}

func (s *FileSource) Sections(kind Kind) ([]string, error) {
	var pattern string
	switch kind {
	case KindConsistent:
		pattern = sectionDirName + "/consistent/*.json"
	case KindDiff:
		pattern = sectionDirName + "/diff/*.json"
	default:
		return nil, fmt.Errorf("kind %s has no sections", kind)
	}

	matches, err := doublestar.Glob(os.DirFS(s.root), pattern)
	if err != nil {
		return nil, err
	}

	sections := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		sections = append(sections, strings.TrimSuffix(base, ".json"))
	}
	sort.Strings(sections)
	return sections, nil
}

// MemSource is an in-memory Source for tests and for callers that
// already hold the documents (spec treats them as materialized).
type MemSource struct {
	docs map[Key][]byte
}

func NewMemSource() *MemSource {
	return &MemSource{docs: make(map[Key][]byte)}
}

func (s *MemSource) Put(key Key, doc []byte) {
	s.docs[key] = doc
}

func (s *MemSource) Load(key Key) ([]byte, error) {
	doc, ok := s.docs[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return doc, nil
}

func (s *MemSource) Sections(kind Kind) ([]string, error) {
	var sections []string
	for key := range s.docs {
		if key.Kind == kind && key.Section != "" {
			sections = append(sections, key.Section)
		}
	}
	sort.Strings(sections)
	return sections, nil
}
