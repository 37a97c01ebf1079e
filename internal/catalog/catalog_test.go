package catalog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
)

func buildSmall(t *testing.T) *Catalog {
	t.Helper()
	b := &Builder{Describer: TemplateDescriber{}}
	c, _, err := b.Build(context.Background(), smallSchema())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return c
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	c := buildSmall(t)
	path := filepath.Join(t.TempDir(), "personas.json")
	if err := Save(path, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != c.Len() {
		t.Fatalf("expected %d personas, got %d", c.Len(), loaded.Len())
	}
	for i, p := range c.Personas() {
		got := loaded.Personas()[i]
		if got.Key != p.Key || got.Description != p.Description {
			t.Fatalf("persona %d differs after reload: %+v vs %+v", i, got, p)
		}
	}
	if loaded.Schema().Size() != smallSchema().Size() {
		t.Fatalf("schema not preserved")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.json")
	if err := Save(path, buildSmall(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "personas.json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}

func TestSaveFailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.json")
	if err := Save(path, buildSmall(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// A directory in the way of the rename makes the final step fail.
	blocked := filepath.Join(dir, "blocked")
	if err := os.MkdirAll(filepath.Join(blocked, "child"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := Save(blocked, buildSmall(t)); err == nil {
		t.Fatalf("expected Save onto a non-empty directory to fail")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("existing catalog changed")
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	tests := map[string]string{
		"malformed": `{"version":1,`,
		"version":   `{"version":9,"personas":[{"profile":{"category":"cafe","franchise":true,"new_store":true,"size":"small","age_band":"20s","segment":"students"}}]}`,
		"empty":     `{"version":1,"personas":[]}`,
		"invalid":   `{"version":1,"personas":[{"profile":{"category":"bakery","franchise":true,"new_store":true,"size":"small","age_band":"20s","segment":"students"}}]}`,
		"duplicate": `{"version":1,"personas":[
			{"profile":{"category":"cafe","franchise":true,"new_store":true,"size":"small","age_band":"20s","segment":"students"}},
			{"profile":{"category":"cafe","franchise":true,"new_store":true,"size":"small","age_band":"20s","segment":"students"}}]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			if !errors.Is(err, ErrCatalogUnavailable) {
				t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
			}
		})
	}
}

func TestNewRejectsMismatchedKey(t *testing.T) {
	p := smallSchema().Combinations()[0]
	_, err := New(smallSchema(), time.Now(), []models.Persona{{Profile: p, Key: "other"}})
	if err == nil {
		t.Fatalf("expected key mismatch error")
	}
}
