package dialogue

import (
	"math/rand"
	"sync"

	"github.com/apresai/dialoguegen/internal/random"
)

// ErrorLine is returned by Pick in place of a line when the character is not
// in the catalog. Callers display it like any generated text.
const ErrorLine = "Error: Database connection failed."

// Picker selects canned lines uniformly at random.
type Picker struct {
	catalog *Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker creates a picker over catalog. A zero seed draws a random one.
func NewPicker(catalog *Catalog, seed int64) *Picker {
	return &Picker{
		catalog: catalog,
		rng:     random.NewRand(seed),
	}
}

// Catalog returns the catalog the picker draws from.
func (p *Picker) Catalog() *Catalog {
	return p.catalog
}

// Pick returns a random line for characterID formatted as "[id]: line", or
// ErrorLine when the character is unknown.
func (p *Picker) Pick(characterID string) string {
	lines, ok := p.catalog.lines[characterID]
	if !ok {
		return ErrorLine
	}

	p.mu.Lock()
	idx := p.rng.Intn(len(lines))
	p.mu.Unlock()

	return FormatLine(characterID, lines[idx])
}

// FormatLine prefixes line with the speaking character.
func FormatLine(characterID, line string) string {
	return "[" + characterID + "]: " + line
}
