package object

import "strings"

// CardType is a printed card type.
type CardType string

const (
	TypeArtifact     CardType = "Artifact"
	TypeCreature     CardType = "Creature"
	TypeEnchantment  CardType = "Enchantment"
	TypeInstant      CardType = "Instant"
	TypeLand         CardType = "Land"
	TypePlaneswalker CardType = "Planeswalker"
	TypeSorcery      CardType = "Sorcery"
	TypeTribal       CardType = "Tribal"
)

// IsPermanentType reports whether objects of this type can exist on the battlefield.
func (t CardType) IsPermanentType() bool {
	switch t {
	case TypeArtifact, TypeCreature, TypeEnchantment, TypeLand, TypePlaneswalker:
		return true
	}
	return false
}

// Color is a bit set of the five colors.
type Color uint8

const (
	ColorWhite Color = 1 << iota
	ColorBlue
	ColorBlack
	ColorRed
	ColorGreen

	Colorless Color = 0
)

var colorLetters = []struct {
	color  Color
	letter string
}{
	{ColorWhite, "W"},
	{ColorBlue, "U"},
	{ColorBlack, "B"},
	{ColorRed, "R"},
	{ColorGreen, "G"},
}

// Has reports whether c contains every color of other.
func (c Color) Has(other Color) bool {
	return other != Colorless && c&other == other
}

// Count returns the number of colors in the set.
func (c Color) Count() int {
	n := 0
	for _, cl := range colorLetters {
		if c&cl.color != 0 {
			n++
		}
	}
	return n
}

func (c Color) String() string {
	if c == Colorless {
		return "C"
	}
	var b strings.Builder
	for _, cl := range colorLetters {
		if c&cl.color != 0 {
			b.WriteString(cl.letter)
		}
	}
	return b.String()
}

// ParseColors parses a string of color letters such as "WG".
func ParseColors(s string) Color {
	var c Color
	for _, r := range strings.ToUpper(s) {
		for _, cl := range colorLetters {
			if string(r) == cl.letter {
				c |= cl.color
			}
		}
	}
	return c
}

// Kind is the variant of a game object.
type Kind string

const (
	KindCard        Kind = "card"
	KindPermanent   Kind = "permanent"
	KindToken       Kind = "token"
	KindStackObject Kind = "stack_object"
	KindPlayer      Kind = "player"
	KindEmblem      Kind = "emblem"
)

// Restriction is a bit set of rules restrictions applied by layer 8 effects.
type Restriction uint16

const (
	RestrictCantAttack Restriction = 1 << iota
	RestrictCantBlock
	RestrictMustAttack
	RestrictCantBeTargeted
)

// Has reports whether r includes flag.
func (r Restriction) Has(flag Restriction) bool {
	return r&flag != 0
}
