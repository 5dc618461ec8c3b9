package mana

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInsufficientMana is returned when a pool cannot pay a cost.
var ErrInsufficientMana = errors.New("insufficient mana")

// Pool is a player's mana pool. It empties between steps.
type Pool struct {
	amounts map[ManaType]int
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{amounts: make(map[ManaType]int)}
}

// Add adds mana of the given type.
func (p *Pool) Add(t ManaType, amount int) {
	if amount > 0 {
		p.amounts[t] += amount
	}
}

// Amount returns the mana of one type.
func (p *Pool) Amount(t ManaType) int {
	return p.amounts[t]
}

// Total returns all mana in the pool.
func (p *Pool) Total() int {
	total := 0
	for _, n := range p.amounts {
		total += n
	}
	return total
}

// Empty removes all mana.
func (p *Pool) Empty() {
	clear(p.amounts)
}

// CanPay reports whether the pool can pay cost with X fixed to x.
func (p *Pool) CanPay(cost *Cost, x int) bool {
	_, err := p.plan(cost, x)
	return err == nil
}

// Pay removes mana for cost from the pool. Nothing is removed on failure.
func (p *Pool) Pay(cost *Cost, x int) error {
	spend, err := p.plan(cost, x)
	if err != nil {
		return err
	}
	for t, n := range spend {
		p.amounts[t] -= n
		if p.amounts[t] == 0 {
			delete(p.amounts, t)
		}
	}
	return nil
}

func (p *Pool) plan(cost *Cost, x int) (map[ManaType]int, error) {
	if cost == nil {
		return nil, nil
	}
	cost = cost.WithX(x)
	left := make(map[ManaType]int, len(p.amounts))
	for t, n := range p.amounts {
		left[t] = n
	}
	spend := make(map[ManaType]int)
	for t, need := range cost.Colored {
		if left[t] < need {
			return nil, fmt.Errorf("%w: need %d %s, have %d", ErrInsufficientMana, need, t, left[t])
		}
		left[t] -= need
		spend[t] += need
	}
	generic := cost.Generic
	for _, t := range genericOrder(cost, left) {
		use := min(generic, left[t])
		left[t] -= use
		spend[t] += use
		generic -= use
	}
	if generic > 0 {
		return nil, fmt.Errorf("%w: %d generic unpaid", ErrInsufficientMana, generic)
	}
	return spend, nil
}

// genericOrder ranks mana for generic costs: colorless first, then colors
// the cost already asks for, then whichever color the pool holds most of.
// Scarce off-colors are kept for later costs that need them.
func genericOrder(cost *Cost, left map[ManaType]int) []ManaType {
	order := slices.Clone(payOrder)
	rank := func(t ManaType) int {
		switch {
		case t == Colorless:
			return 0
		case cost.Colored[t] > 0:
			return 1
		default:
			return 2
		}
	}
	slices.SortStableFunc(order, func(a, b ManaType) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		return left[b] - left[a]
	})
	return order
}

// Copy returns a deep copy.
func (p *Pool) Copy() *Pool {
	out := NewPool()
	for t, n := range p.amounts {
		out.amounts[t] = n
	}
	return out
}

func (p *Pool) String() string {
	var b strings.Builder
	for _, t := range payOrder {
		for i := 0; i < p.amounts[t]; i++ {
			fmt.Fprintf(&b, "{%s}", t)
		}
	}
	return b.String()
}
