package mana

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ManaType is a type of mana a pool can hold.
type ManaType string

const (
	White     ManaType = "W"
	Blue      ManaType = "U"
	Black     ManaType = "B"
	Red       ManaType = "R"
	Green     ManaType = "G"
	Colorless ManaType = "C"
)

// payOrder is the order in which generic costs draw from a pool.
var payOrder = []ManaType{Colorless, White, Blue, Black, Red, Green}

// Cost is a parsed mana cost such as {2}{G}{G}.
type Cost struct {
	Generic int
	// Colored holds colored and colorless-specific requirements ({C}).
	Colored map[ManaType]int
	X       int // number of {X} symbols
}

var symbolPattern = regexp.MustCompile(`\{([^}]+)\}`)

// ParseCost parses a mana cost string. The empty string is a zero cost.
func ParseCost(costStr string) (*Cost, error) {
	cost := &Cost{Colored: make(map[ManaType]int)}
	if strings.TrimSpace(costStr) == "" {
		return cost, nil
	}

	matches := symbolPattern.FindAllStringSubmatch(costStr, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("invalid mana cost %q", costStr)
	}
	for _, match := range matches {
		symbol := strings.ToUpper(strings.TrimSpace(match[1]))
		switch ManaType(symbol) {
		case White, Blue, Black, Red, Green, Colorless:
			cost.Colored[ManaType(symbol)]++
			continue
		}
		if symbol == "X" {
			cost.X++
			continue
		}
		n, err := strconv.Atoi(symbol)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("unknown mana symbol {%s}", symbol)
		}
		cost.Generic += n
	}
	return cost, nil
}

// MustParseCost is ParseCost for static card data.
func MustParseCost(costStr string) *Cost {
	c, err := ParseCost(costStr)
	if err != nil {
		panic(err)
	}
	return c
}

// ManaValue returns the total mana value, counting X as zero.
func (c *Cost) ManaValue() int {
	if c == nil {
		return 0
	}
	total := c.Generic
	for _, n := range c.Colored {
		total += n
	}
	return total
}

// WithX returns a copy of the cost with X fixed to x.
func (c *Cost) WithX(x int) *Cost {
	out := c.Copy()
	out.Generic += out.X * max(x, 0)
	out.X = 0
	return out
}

// Copy returns a deep copy.
func (c *Cost) Copy() *Cost {
	out := &Cost{Generic: c.Generic, X: c.X, Colored: make(map[ManaType]int, len(c.Colored))}
	for t, n := range c.Colored {
		out.Colored[t] = n
	}
	return out
}

func (c *Cost) String() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	for i := 0; i < c.X; i++ {
		b.WriteString("{X}")
	}
	if c.Generic > 0 || (c.ManaValue() == 0 && c.X == 0) {
		fmt.Fprintf(&b, "{%d}", c.Generic)
	}
	for _, t := range []ManaType{Colorless, White, Blue, Black, Red, Green} {
		for i := 0; i < c.Colored[t]; i++ {
			fmt.Fprintf(&b, "{%s}", t)
		}
	}
	return b.String()
}
