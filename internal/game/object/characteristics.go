package object

import (
	"fmt"
	"slices"
	"strings"
)

// Characteristics are the copiable, layer-modifiable values of an object.
type Characteristics struct {
	Name       string
	ManaCost   string
	Colors     Color
	Types      []CardType
	Subtypes   []string
	Supertypes []string
	// Abilities holds keyword names and ability text visible on the object.
	Abilities []string
	Text      string
	Power     int
	Toughness int
	HasPT     bool
	Loyalty   int
}

// Clone returns a deep copy.
func (c Characteristics) Clone() Characteristics {
	c.Types = slices.Clone(c.Types)
	c.Subtypes = slices.Clone(c.Subtypes)
	c.Supertypes = slices.Clone(c.Supertypes)
	c.Abilities = slices.Clone(c.Abilities)
	return c
}

// Equal compares two characteristic sets value by value.
func (c Characteristics) Equal(other Characteristics) bool {
	return c.Name == other.Name &&
		c.ManaCost == other.ManaCost &&
		c.Colors == other.Colors &&
		slices.Equal(c.Types, other.Types) &&
		slices.Equal(c.Subtypes, other.Subtypes) &&
		slices.Equal(c.Supertypes, other.Supertypes) &&
		slices.Equal(c.Abilities, other.Abilities) &&
		c.Text == other.Text &&
		c.Power == other.Power &&
		c.Toughness == other.Toughness &&
		c.HasPT == other.HasPT &&
		c.Loyalty == other.Loyalty
}

func (c *Characteristics) HasType(t CardType) bool {
	return slices.Contains(c.Types, t)
}

func (c *Characteristics) AddType(t CardType) {
	if !c.HasType(t) {
		c.Types = append(c.Types, t)
	}
}

func (c *Characteristics) RemoveType(t CardType) {
	c.Types = slices.DeleteFunc(c.Types, func(x CardType) bool { return x == t })
}

func (c *Characteristics) HasSubtype(s string) bool {
	return slices.ContainsFunc(c.Subtypes, func(x string) bool { return strings.EqualFold(x, s) })
}

func (c *Characteristics) AddSubtype(s string) {
	if !c.HasSubtype(s) {
		c.Subtypes = append(c.Subtypes, s)
	}
}

func (c *Characteristics) HasSupertype(s string) bool {
	return slices.ContainsFunc(c.Supertypes, func(x string) bool { return strings.EqualFold(x, s) })
}

// HasAbility reports whether the named ability or keyword is present.
func (c *Characteristics) HasAbility(name string) bool {
	return slices.ContainsFunc(c.Abilities, func(x string) bool { return strings.EqualFold(x, name) })
}

func (c *Characteristics) AddAbility(name string) {
	if !c.HasAbility(name) {
		c.Abilities = append(c.Abilities, name)
	}
}

func (c *Characteristics) RemoveAbility(name string) {
	c.Abilities = slices.DeleteFunc(c.Abilities, func(x string) bool { return strings.EqualFold(x, name) })
}

// IsPermanent reports whether the characteristics describe a permanent card.
func (c *Characteristics) IsPermanent() bool {
	return slices.ContainsFunc(c.Types, CardType.IsPermanentType)
}

// TypeLine renders "Legendary Creature - Elf Warrior".
func (c *Characteristics) TypeLine() string {
	parts := make([]string, 0, len(c.Supertypes)+len(c.Types))
	parts = append(parts, c.Supertypes...)
	for _, t := range c.Types {
		parts = append(parts, string(t))
	}
	line := strings.Join(parts, " ")
	if len(c.Subtypes) > 0 {
		line += " - " + strings.Join(c.Subtypes, " ")
	}
	return line
}

// PT renders power and toughness, or an empty string when the object has none.
func (c *Characteristics) PT() string {
	if !c.HasPT {
		return ""
	}
	return fmt.Sprintf("%d/%d", c.Power, c.Toughness)
}
