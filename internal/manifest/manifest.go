// Package manifest loads, caches, and validates per-device function
// tables, and projects them into MCP tool descriptors.
package manifest

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/librescoot/arduino-mcp-adapter/internal/wire"
)

// Parameter is a single named, typed argument of a Function.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Function is one entry in a Manifest's function table.
type Function struct {
	Tag    uint8       `json:"tag"`
	Name   string      `json:"name"`
	Desc   string      `json:"desc"`
	Return string      `json:"return,omitempty"`
	Params []Parameter `json:"params"`
}

// HasReturn reports whether the function declares a non-void return type.
func (f Function) HasReturn() bool {
	return f.Return != ""
}

// Manifest is a named, versioned description of a device's callable
// surface, keyed by device identity in a Registry.
type Manifest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Version     string     `json:"version"`
	Functions   []Function `json:"functions"`
}

// FindFunction returns the function named name, if any.
func (m *Manifest) FindFunction(name string) (Function, bool) {
	for _, f := range m.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return Function{}, false
}

// validate enforces internal consistency: unique tags, unique parameter
// names within a function, and warns (but does not fail) on unknown
// parameter or return types, which are treated as strings.
func (m *Manifest) validate() error {
	seenTags := make(map[uint8]string)
	for _, f := range m.Functions {
		if other, ok := seenTags[f.Tag]; ok {
			return fmt.Errorf("manifest %q: duplicate tag %d used by both %q and %q", m.Name, f.Tag, other, f.Name)
		}
		seenTags[f.Tag] = f.Name

		seenParams := make(map[string]bool)
		for _, p := range f.Params {
			if seenParams[p.Name] {
				return fmt.Errorf("manifest %q: function %q has duplicate parameter %q", m.Name, f.Name, p.Name)
			}
			seenParams[p.Name] = true
			if jsonTypeFor(p.Type) == "string" && p.Type != string(wire.TypeCStr) {
				log.Printf("manifest %q: function %q parameter %q has unknown type %q, treating it as a string", m.Name, f.Name, p.Name, p.Type)
			}
		}
		if f.HasReturn() && jsonTypeFor(f.Return) == "string" && f.Return != string(wire.TypeCStr) {
			log.Printf("manifest %q: function %q has unknown return type %q, treating it as a string", m.Name, f.Name, f.Return)
		}
	}
	return nil
}

// Registry loads manifest files from a directory, keyed by device identity
// (file name, minus the .json extension). Entries are cached immutably
// once loaded and are never evicted except by an explicit Reload.
type Registry struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*Manifest
}

// NewRegistry returns a Registry rooted at dir. dir need not exist yet: a
// missing directory produces warnings and empty results rather than a
// fatal error, matching the CLI's tolerant startup behavior.
func NewRegistry(dir string) *Registry {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Printf("manifest: directory %s does not exist; no device manifests are available", dir)
	}
	return &Registry{
		dir:   dir,
		cache: make(map[string]*Manifest),
	}
}

// Get returns the manifest for identity, loading and caching it from
// <dir>/<identity>.json on first use.
func (r *Registry) Get(identity string) (*Manifest, error) {
	r.mu.RLock()
	if m, ok := r.cache[identity]; ok {
		r.mu.RUnlock()
		return m, nil
	}
	r.mu.RUnlock()

	m, err := r.load(identity)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[identity] = m
	r.mu.Unlock()
	return m, nil
}

// Reload evicts any cached manifest for identity and loads it fresh.
func (r *Registry) Reload(identity string) (*Manifest, error) {
	r.mu.Lock()
	delete(r.cache, identity)
	r.mu.Unlock()
	return r.Get(identity)
}

// List enumerates the device identities with a manifest file in the
// registry directory, in sorted order. A missing directory yields an
// empty list rather than an error.
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: reading directory %s: %w", r.dir, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Registry) load(identity string) (*Manifest, error) {
	path := filepath.Join(r.dir, identity+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest not found for device %q (expected file %s)", identity, path)
		}
		return nil, fmt.Errorf("manifest: reading %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parsing %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// jsonTypeFor maps a manifest parameter type onto a JSON-Schema primitive.
// Unrecognized types default to "string", matching the wire codec's
// treat-as-string fallback.
func jsonTypeFor(paramType string) string {
	switch paramType {
	case string(wire.TypeI16), string(wire.TypeI32):
		return "integer"
	case string(wire.TypeF32), string(wire.TypeF64):
		return "number"
	case string(wire.TypeBool):
		return "boolean"
	case string(wire.TypeCStr):
		return "string"
	default:
		return "string"
	}
}
