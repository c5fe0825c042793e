package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `{
  "name": "rover",
  "description": "test rover",
  "version": "1.0.0",
  "functions": [
    {"tag": 3, "name": "setSpeed", "desc": "set motor speed", "params": [{"name": "value", "type": "i16"}]},
    {"tag": 7, "name": "getPosition", "desc": "read position", "return": "i32", "params": []}
  ]
}`

func writeManifest(t *testing.T, dir, identity, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, identity+".json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRegistryGetCachesAndLoads(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "rover-1", sampleManifest)

	reg := NewRegistry(dir)
	m, err := reg.Get("rover-1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "rover" || len(m.Functions) != 2 {
		t.Fatalf("unexpected manifest: %+v", m)
	}

	// Second Get must hit the cache (overwrite file to prove it isn't reread).
	writeManifest(t, dir, "rover-1", `{"name":"changed","description":"","version":"","functions":[]}`)
	m2, err := reg.Get("rover-1")
	if err != nil {
		t.Fatal(err)
	}
	if m2.Name != "rover" {
		t.Fatalf("expected cached manifest, got %+v", m2)
	}
}

func TestRegistryReloadEvicts(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "rover-1", sampleManifest)
	reg := NewRegistry(dir)
	if _, err := reg.Get("rover-1"); err != nil {
		t.Fatal(err)
	}

	writeManifest(t, dir, "rover-1", `{"name":"rover2","description":"","version":"","functions":[]}`)
	m, err := reg.Reload("rover-1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "rover2" {
		t.Fatalf("reload did not pick up new content: %+v", m)
	}
}

func TestRegistryListSorted(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "zeta", sampleManifest)
	writeManifest(t, dir, "alpha", sampleManifest)
	reg := NewRegistry(dir)

	ids, err := reg.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "zeta" {
		t.Fatalf("unexpected order: %v", ids)
	}
}

func TestRegistryListMissingDirIsEmpty(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "does-not-exist"))
	ids, err := reg.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty list, got %v", ids)
	}
}

func TestRegistryGetMissingManifest(t *testing.T) {
	reg := NewRegistry(t.TempDir())
	if _, err := reg.Get("nope"); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestValidateDuplicateTagRejected(t *testing.T) {
	m := Manifest{
		Name: "dup",
		Functions: []Function{
			{Tag: 1, Name: "a"},
			{Tag: 1, Name: "b"},
		},
	}
	if err := m.validate(); err == nil {
		t.Fatal("expected duplicate tag to be rejected")
	}
}

func TestValidateArgumentsExactSet(t *testing.T) {
	f := Function{Name: "setSpeed", Params: []Parameter{{Name: "value", Type: "i16"}}}

	args := map[string]json.RawMessage{"value": json.RawMessage("150")}
	if err := ValidateArguments(f, args); err != nil {
		t.Fatalf("valid args rejected: %v", err)
	}

	missing := map[string]json.RawMessage{}
	if err := ValidateArguments(f, missing); err == nil {
		t.Fatal("expected error for missing parameter")
	}

	extra := map[string]json.RawMessage{"value": json.RawMessage("150"), "bogus": json.RawMessage(`"x"`)}
	if err := ValidateArguments(f, extra); err == nil {
		t.Fatal("expected error for unexpected parameter")
	}
}

func TestValidateArgumentsI16Range(t *testing.T) {
	f := Function{Name: "setSpeed", Params: []Parameter{{Name: "value", Type: "i16"}}}
	args := map[string]json.RawMessage{"value": json.RawMessage("99999")}
	err := ValidateArguments(f, args)
	if err == nil {
		t.Fatal("expected out-of-range i16 to be rejected")
	}
}

func TestToolsListProjection(t *testing.T) {
	var m Manifest
	if err := json.Unmarshal([]byte(sampleManifest), &m); err != nil {
		t.Fatal(err)
	}
	tools := m.ToolsList()
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	schema := tools[0].InputSchema
	if schema["type"] != "object" {
		t.Fatalf("unexpected schema type: %v", schema["type"])
	}
	required := schema["required"].([]string)
	if len(required) != 1 || required[0] != "value" {
		t.Fatalf("unexpected required: %v", required)
	}
}
