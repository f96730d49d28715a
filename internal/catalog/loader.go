package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for catalog files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

// Source yields the catalog entries once at startup.
type Source interface {
	LoadEntries(ctx context.Context) ([]Entry, error)
}

// Load reads entries from src, validates them and builds the catalog.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	entries, err := src.LoadEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog entries: %w", err)
	}
	if err := Validate(entries); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return New(entries), nil
}

// Validate rejects entries without a name or with a negative price.
func Validate(entries []Entry) error {
	for i, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("entry %d: name is required", i)
		}
		if e.Price < 0 {
			return fmt.Errorf("entry %d (%s %s): negative price %v", i, e.Name, e.Model, e.Price)
		}
	}
	return nil
}

// FileSource loads a catalog from a .json, .yaml or .yml file.
type FileSource struct {
	Path string
}

// LoadEntries implements Source.
func (s FileSource) LoadEntries(ctx context.Context) ([]Entry, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	return Decode(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(s.Path)), "."))
}

// Decode reads entries in the given format ("json", "yaml" or "yml").
func Decode(r io.Reader, format string) ([]Entry, error) {
	var entries []Entry

	switch format {
	case "json":
		if err := json.NewDecoder(r).Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode json catalog: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return entries, nil
}

// StaticSource serves a fixed slice, mostly for tests and embedding.
type StaticSource []Entry

// LoadEntries implements Source.
func (s StaticSource) LoadEntries(ctx context.Context) ([]Entry, error) {
	out := make([]Entry, len(s))
	copy(out, s)
	return out, nil
}
