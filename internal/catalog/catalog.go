// Package catalog builds, persists and queries the persona catalog.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
)

const FormatVersion = 1

var (
	ErrCatalogUnavailable  = errors.New("persona catalog unavailable")
	ErrCatalogBuildFailure = errors.New("persona catalog build failed")
	ErrNoMatchFound        = errors.New("no persona matches profile")
)

// Catalog is an ordered, immutable set of personas with unique keys.
// It is safe for concurrent readers.
type Catalog struct {
	schema      models.Schema
	generatedAt time.Time
	personas    []models.Persona
	index       map[string]int
}

// New validates personas and indexes them by key in the given order.
func New(schema models.Schema, generatedAt time.Time, personas []models.Persona) (*Catalog, error) {
	c := &Catalog{
		schema:      schema,
		generatedAt: generatedAt,
		personas:    make([]models.Persona, len(personas)),
		index:       make(map[string]int, len(personas)),
	}
	for i, p := range personas {
		if err := p.Profile.Validate(); err != nil {
			return nil, fmt.Errorf("persona %d: %w", i, err)
		}
		key := p.Profile.Key()
		if p.Key != "" && p.Key != key {
			return nil, fmt.Errorf("persona %d: key %q does not match profile %q", i, p.Key, key)
		}
		if _, dup := c.index[key]; dup {
			return nil, fmt.Errorf("persona %d: duplicate key %q", i, key)
		}
		p.Key = key
		c.personas[i] = p
		c.index[key] = i
	}
	return c, nil
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.personas)
}

func (c *Catalog) Schema() models.Schema  { return c.schema }
func (c *Catalog) GeneratedAt() time.Time { return c.generatedAt }

// Personas returns a copy of the records in catalog order.
func (c *Catalog) Personas() []models.Persona {
	out := make([]models.Persona, len(c.personas))
	copy(out, c.personas)
	return out
}

// Lookup returns the persona stored under key.
func (c *Catalog) Lookup(key string) (models.Persona, bool) {
	i, ok := c.index[key]
	if !ok {
		return models.Persona{}, false
	}
	return c.personas[i], true
}

type document struct {
	Version     int              `json:"version"`
	GeneratedAt time.Time        `json:"generated_at"`
	Schema      models.Schema    `json:"schema"`
	Personas    []models.Persona `json:"personas"`
}

// Encode writes the catalog document as indented JSON.
func (c *Catalog) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(document{
		Version:     FormatVersion,
		GeneratedAt: c.generatedAt,
		Schema:      c.schema,
		Personas:    c.personas,
	})
}

// Decode reads a catalog document. Every failure wraps ErrCatalogUnavailable.
func Decode(r io.Reader) (*Catalog, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCatalogUnavailable, err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCatalogUnavailable, doc.Version)
	}
	if len(doc.Personas) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrCatalogUnavailable)
	}
	c, err := New(doc.Schema, doc.GeneratedAt, doc.Personas)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return c, nil
}

// Load reads the catalog file at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer f.Close()
	return Decode(f)
}

// Save replaces the file at path with c. The write goes to a temporary file
// in the same directory and is renamed into place, so readers see either the
// previous catalog or the new one.
func Save(path string, c *Catalog) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = c.Encode(tmp); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync catalog: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod catalog: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}
