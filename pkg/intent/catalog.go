package intent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Intent is one named category of user request: example utterances used at
// training time and the pre-authored candidate replies served for it.
type Intent struct {
	Tag       string   `json:"tag" yaml:"tag"`
	Patterns  []string `json:"patterns" yaml:"patterns"`
	Responses []string `json:"responses" yaml:"responses"`
}

// Catalog maps intent tags to their reply candidates. Immutable once loaded;
// safe for concurrent readers. A catalog and the classifier it serves are
// produced by the same training run and installed together as one bundle.
type Catalog struct {
	intents []Intent
	byTag   map[string]*Intent
}

// catalogDocument is the on-disk shape shared by intents.json and
// intents.yaml.
type catalogDocument struct {
	Intents []Intent `json:"intents" yaml:"intents"`
}

// NewCatalog builds a catalog from parsed intents. Intents with an empty tag
// or no responses are rejected; duplicate tags keep the first occurrence.
func NewCatalog(intents []Intent) (*Catalog, error) {
	byTag := make(map[string]*Intent, len(intents))
	kept := make([]Intent, 0, len(intents))

	for _, in := range intents {
		if in.Tag == "" {
			return nil, fmt.Errorf("intent with empty tag")
		}
		if len(in.Responses) == 0 {
			return nil, fmt.Errorf("intent %q has no responses", in.Tag)
		}
		if _, dup := byTag[in.Tag]; dup {
			continue
		}
		kept = append(kept, in)
		byTag[in.Tag] = &kept[len(kept)-1]
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("catalog contains no intents")
	}

	return &Catalog{intents: kept, byTag: byTag}, nil
}

// ParseCatalog decodes a catalog document. Format is chosen by the name
// extension: .yaml/.yml use YAML, everything else JSON.
func ParseCatalog(data []byte, name string) (*Catalog, error) {
	var doc catalogDocument

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse intents yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse intents json: %w", err)
		}
	}

	return NewCatalog(doc.Intents)
}

// LoadCatalog reads and parses an intents document from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intents file: %w", err)
	}
	return ParseCatalog(data, path)
}

// Responses returns the reply candidates for a tag, or nil if the tag is not
// in the catalog. A missing tag is a normal outcome (the unmatched-tag
// fallback case), never an error.
func (c *Catalog) Responses(tag string) []string {
	if in, ok := c.byTag[tag]; ok {
		return in.Responses
	}
	return nil
}

// Has reports whether the catalog contains a tag.
func (c *Catalog) Has(tag string) bool {
	_, ok := c.byTag[tag]
	return ok
}

// Intents returns the catalog entries in document order.
func (c *Catalog) Intents() []Intent {
	return c.intents
}

// Tags returns all tags in document order.
func (c *Catalog) Tags() []string {
	tags := make([]string, len(c.intents))
	for i, in := range c.intents {
		tags[i] = in.Tag
	}
	return tags
}
