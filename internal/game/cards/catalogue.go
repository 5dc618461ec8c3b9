// Package cards holds card definitions. A definition is data: printed
// characteristics plus ability templates built from engine primitives.
package cards

import (
	"slices"
	"strings"
	"sync"

	"github.com/magefree/mage-engine-go/internal/game"
)

// Builder returns a fresh definition. Templates are rebuilt on every lookup
// so games never share ability state.
type Builder func() game.CardSpec

// Catalogue maps card names to definitions. Lookups are case-insensitive.
type Catalogue struct {
	mu       sync.RWMutex
	builders map[string]Builder
	names    map[string]string
}

// NewCatalogue creates an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{
		builders: make(map[string]Builder),
		names:    make(map[string]string),
	}
}

// Default returns a catalogue with every card in this package.
func Default() *Catalogue {
	c := NewCatalogue()
	registerBasics(c)
	registerSpells(c)
	registerCreatures(c)
	registerEnchantments(c)
	return c
}

// Register adds a definition, replacing any card with the same name.
func (c *Catalogue) Register(name string, b Builder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := strings.ToLower(name)
	c.builders[key] = b
	c.names[key] = name
}

// Lookup returns the definition of a card.
func (c *Catalogue) Lookup(name string) (game.CardSpec, bool) {
	c.mu.RLock()
	b, ok := c.builders[strings.ToLower(name)]
	c.mu.RUnlock()
	if !ok {
		return game.CardSpec{}, false
	}
	return b(), true
}

// Names returns every registered card name, sorted.
func (c *Catalogue) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func (c *Catalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.builders)
}

var _ game.Catalogue = (*Catalogue)(nil)
