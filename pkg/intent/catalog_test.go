package intent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleIntents() []Intent {
	return []Intent{
		{
			Tag:       "greeting",
			Patterns:  []string{"hi", "hello"},
			Responses: []string{"Hello!", "Hi there!"},
		},
		{
			Tag:       "goodbye",
			Patterns:  []string{"bye"},
			Responses: []string{"Goodbye!"},
		},
	}
}

func TestNewCatalog(t *testing.T) {
	catalog, err := NewCatalog(sampleIntents())
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	if !catalog.Has("greeting") || !catalog.Has("goodbye") {
		t.Error("catalog missing expected tags")
	}
	if catalog.Has("weather") {
		t.Error("catalog should not report absent tags")
	}
	if got := catalog.Responses("goodbye"); len(got) != 1 || got[0] != "Goodbye!" {
		t.Errorf("Responses(goodbye) = %v", got)
	}
	if got := catalog.Responses("weather"); got != nil {
		t.Errorf("Responses for absent tag = %v, want nil", got)
	}
	if got := catalog.Tags(); len(got) != 2 || got[0] != "greeting" {
		t.Errorf("Tags() = %v, want document order", got)
	}
}

func TestNewCatalogRejects(t *testing.T) {
	tests := []struct {
		name    string
		intents []Intent
	}{
		{"empty catalog", nil},
		{"empty tag", []Intent{{Tag: "", Responses: []string{"x"}}}},
		{"no responses", []Intent{{Tag: "greeting"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCatalog(tt.intents); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewCatalogDuplicateKeepsFirst(t *testing.T) {
	catalog, err := NewCatalog([]Intent{
		{Tag: "greeting", Responses: []string{"first"}},
		{Tag: "greeting", Responses: []string{"second"}},
	})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	if got := catalog.Responses("greeting"); len(got) != 1 || got[0] != "first" {
		t.Errorf("duplicate tag should keep first occurrence, got %v", got)
	}
	if len(catalog.Intents()) != 1 {
		t.Errorf("catalog has %d intents, want 1", len(catalog.Intents()))
	}
}

func TestParseCatalogFormats(t *testing.T) {
	jsonDoc := `{"intents": [{"tag": "greeting", "patterns": ["hi"], "responses": ["Hello!"]}]}`
	yamlDoc := "intents:\n  - tag: greeting\n    patterns: [hi]\n    responses: [Hello!]\n"

	tests := []struct {
		name string
		data string
	}{
		{"intents.json", jsonDoc},
		{"intents.yaml", yamlDoc},
		{"intents.yml", yamlDoc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := ParseCatalog([]byte(tt.data), tt.name)
			if err != nil {
				t.Fatalf("ParseCatalog failed: %v", err)
			}
			if !catalog.Has("greeting") {
				t.Error("parsed catalog missing greeting")
			}
		})
	}
}

func TestParseCatalogBadData(t *testing.T) {
	if _, err := ParseCatalog([]byte("{not json"), "intents.json"); err == nil {
		t.Error("expected error for malformed json")
	}
	if _, err := ParseCatalog([]byte("intents: ["), "intents.yaml"); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intents.json")
	doc := `{"intents": [{"tag": "greeting", "patterns": ["hi"], "responses": ["Hello!"]}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if !catalog.Has("greeting") {
		t.Error("loaded catalog missing greeting")
	}
}

func TestSelectorMembership(t *testing.T) {
	catalog, err := NewCatalog(sampleIntents())
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	sel := NewSelector(1)

	// Multiple candidates: any member of the response set is valid.
	for i := 0; i < 20; i++ {
		reply := sel.Select("greeting", catalog)
		if reply != "Hello!" && reply != "Hi there!" {
			t.Fatalf("Select returned %q, not in response set", reply)
		}
	}

	if got := sel.Select("goodbye", catalog); got != "Goodbye!" {
		t.Errorf("single response Select = %q", got)
	}
}

func TestSelectorFallback(t *testing.T) {
	catalog, err := NewCatalog(sampleIntents())
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	sel := NewSelector(1)

	tests := []struct {
		name    string
		tag     string
		catalog *Catalog
	}{
		{"empty tag", "", catalog},
		{"absent tag", "weather", catalog},
		{"nil catalog", "greeting", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sel.Select(tt.tag, tt.catalog); got != FallbackReply {
				t.Errorf("Select = %q, want fallback", got)
			}
		})
	}
}

func TestFixedReplies(t *testing.T) {
	// The refusal and fallback strings are part of the API contract.
	if !strings.Contains(SafeRefusalReply, "can't continue") {
		t.Errorf("unexpected refusal reply: %q", SafeRefusalReply)
	}
	if !strings.Contains(FallbackReply, "rephrase") {
		t.Errorf("unexpected fallback reply: %q", FallbackReply)
	}
}
