package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Common errors for fixture loading.
var (
	ErrFileNotFound     = errors.New("fixture file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("fixture file is empty")
	ErrNoFixtures       = errors.New("no fixture files matched")
	ErrVersion          = errors.New("unsupported fixture version")
)

// Format is a fixture encoding.
type Format string

// Fixture formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf returns the format implied by a file extension. Anything that
// is not .yaml or .yml is JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFromFile reads and validates one fixture file.
func LoadFromFile(path string) (*Fixture, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	f, err := Parse(data, FormatOf(path))
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) && verr.Source == "" {
			verr.Source = path
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Sources = []string{path}
	return f, nil
}

// Parse decodes and validates a fixture document.
func Parse(data []byte, format Format) (*Fixture, error) {
	doc, err := decodeDocument(data, format)
	if err != nil {
		return nil, err
	}
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	// The schema has run on the generic document; decode the canonical JSON
	// form into typed structs.
	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode fixture: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(canonical))
	dec.UseNumber()

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	if f.Version != CurrentVersion {
		return nil, fmt.Errorf("%w %q, expected %q", ErrVersion, f.Version, CurrentVersion)
	}
	return &f, nil
}

// decodeDocument returns the document as generic JSON values, with numbers
// as json.Number.
func decodeDocument(data []byte, format Format) (any, error) {
	if format == FormatYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
		if doc == nil {
			return nil, ErrEmptyFile
		}
		// yaml.v3 produces int and float64; go through JSON so the schema
		// validator sees the same types for both formats.
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
		data = b
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after document", ErrInvalidJSON)
	}
	return doc, nil
}

// LoadGlob loads every file matching the patterns, in sorted order within
// each pattern, and merges them. Patterns may use ** to match directories
// recursively. Plain paths are loaded as-is.
func LoadGlob(patterns ...string) (*Fixture, error) {
	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		matches, err := expandGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 && !hasMeta(pattern) {
			// Let LoadFromFile report the missing file.
			matches = []string{pattern}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFixtures, strings.Join(patterns, ", "))
	}

	fixtures := make([]*Fixture, 0, len(files))
	for _, file := range files {
		f, err := LoadFromFile(file)
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, f)
	}
	return Merge(fixtures...), nil
}

// Merge combines fixtures in order. Rules are concatenated, globals are
// merged with later fixtures winning, and settings set by a later fixture
// override earlier ones.
func Merge(fixtures ...*Fixture) *Fixture {
	out := &Fixture{Version: CurrentVersion, Globals: map[string]any{}}
	for _, f := range fixtures {
		if f == nil {
			continue
		}
		out.Rules = append(out.Rules, f.Rules...)
		maps.Copy(out.Globals, f.Globals)
		out.Sources = append(out.Sources, f.Sources...)

		s := f.Settings
		if s.DefaultLatency.Set {
			out.Settings.DefaultLatency = s.DefaultLatency
		}
		if s.CaseSensitivePatterns != nil {
			out.Settings.CaseSensitivePatterns = s.CaseSensitivePatterns
		}
		if s.OnSequenceMismatch != "" {
			out.Settings.OnSequenceMismatch = s.OnSequenceMismatch
		}
		if s.UnmatchedError != nil {
			out.Settings.UnmatchedError = s.UnmatchedError
		}
	}
	return out
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// expandGlob uses doublestar for ** patterns and filepath.Glob otherwise.
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return doublestar.FilepathGlob(pattern)
	}
	return filepath.Glob(pattern)
}
