package dialogue

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var defaultProfiles []byte

// CharacterProfile is a named character archetype with its canned lines.
type CharacterProfile struct {
	ID    string   `yaml:"id"`
	Lines []string `yaml:"lines"`
}

type catalogFile struct {
	Characters []CharacterProfile `yaml:"characters"`
}

// Catalog is an immutable, ordered set of character profiles.
type Catalog struct {
	ids   []string
	lines map[string][]string
}

var (
	ErrNoCharacters = errors.New("catalog has no characters")
	ErrEmptyID      = errors.New("character id is empty")
	ErrDuplicateID  = errors.New("duplicate character id")
	ErrNoLines      = errors.New("character has no lines")
	ErrEmptyLine    = errors.New("character has an empty line")
)

var defaultCatalog = mustParseCatalog(defaultProfiles)

// NewCatalog validates profiles and builds a catalog from them. Profiles keep
// their order; lines are copied so later changes to the input are not seen.
func NewCatalog(profiles []CharacterProfile) (*Catalog, error) {
	if len(profiles) == 0 {
		return nil, ErrNoCharacters
	}

	c := &Catalog{
		ids:   make([]string, 0, len(profiles)),
		lines: make(map[string][]string, len(profiles)),
	}
	for i, p := range profiles {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return nil, fmt.Errorf("profile %d: %w", i, ErrEmptyID)
		}
		if _, ok := c.lines[id]; ok {
			return nil, fmt.Errorf("profile %q: %w", id, ErrDuplicateID)
		}
		if len(p.Lines) == 0 {
			return nil, fmt.Errorf("profile %q: %w", id, ErrNoLines)
		}
		for j, line := range p.Lines {
			if strings.TrimSpace(line) == "" {
				return nil, fmt.Errorf("profile %q line %d: %w", id, j, ErrEmptyLine)
			}
		}
		c.ids = append(c.ids, id)
		c.lines[id] = append([]string(nil), p.Lines...)
	}
	return c, nil
}

// ParseCatalog reads a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(f.Characters)
}

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog from %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", path, err)
	}
	return c, nil
}

// DefaultCatalog returns the built-in six-character catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

func mustParseCatalog(data []byte) *Catalog {
	c, err := ParseCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

// IDs returns character ids in catalog order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Lines returns a copy of the lines for id.
func (c *Catalog) Lines(id string) ([]string, bool) {
	lines, ok := c.lines[id]
	if !ok {
		return nil, false
	}
	return append([]string(nil), lines...), true
}

// Has reports whether id is a known character.
func (c *Catalog) Has(id string) bool {
	_, ok := c.lines[id]
	return ok
}

// Len returns the number of characters.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// Profiles returns copies of all profiles in catalog order.
func (c *Catalog) Profiles() []CharacterProfile {
	out := make([]CharacterProfile, 0, len(c.ids))
	for _, id := range c.ids {
		lines, _ := c.Lines(id)
		out = append(out, CharacterProfile{ID: id, Lines: lines})
	}
	return out
}
