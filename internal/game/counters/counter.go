package counters

import (
	"maps"
	"regexp"
	"slices"
	"strconv"
)

// Counter is a named stack of counters on a permanent or player.
type Counter struct {
	Name  string
	Count int
}

// NewCounter creates a counter; non-positive amounts become 1.
func NewCounter(name string, count int) *Counter {
	if count <= 0 {
		count = 1
	}
	return &Counter{Name: name, Count: count}
}

var boostPattern = regexp.MustCompile(`^([+-])(\d+)/([+-])(\d+)$`)

// ParseBoost parses names like "+1/+1" or "-1/-0" into power and toughness deltas.
func ParseBoost(name string) (power, toughness int, ok bool) {
	m := boostPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	power, _ = strconv.Atoi(m[2])
	toughness, _ = strconv.Atoi(m[4])
	if m[1] == "-" {
		power = -power
	}
	if m[3] == "-" {
		toughness = -toughness
	}
	return power, toughness, true
}

// Counters is the collection of counters on one object.
type Counters struct {
	counts map[string]int
}

// NewCounters creates an empty collection.
func NewCounters() *Counters {
	return &Counters{counts: make(map[string]int)}
}

// Add adds amount counters of the named kind.
func (cs *Counters) Add(name string, amount int) {
	if amount <= 0 {
		return
	}
	cs.counts[name] += amount
}

// Remove removes up to amount counters and returns how many were removed.
func (cs *Counters) Remove(name string, amount int) int {
	have := cs.counts[name]
	if amount <= 0 || have == 0 {
		return 0
	}
	if amount > have {
		amount = have
	}
	if have-amount == 0 {
		delete(cs.counts, name)
	} else {
		cs.counts[name] = have - amount
	}
	return amount
}

// Count returns the number of counters of the named kind.
func (cs *Counters) Count(name string) int {
	if cs == nil {
		return 0
	}
	return cs.counts[name]
}

// Total returns the number of counters of every kind.
func (cs *Counters) Total() int {
	total := 0
	for _, n := range cs.counts {
		total += n
	}
	return total
}

// Clear removes every counter.
func (cs *Counters) Clear() {
	clear(cs.counts)
}

// Names returns counter names in sorted order.
func (cs *Counters) Names() []string {
	return slices.Sorted(maps.Keys(cs.counts))
}

// Map returns a copy of the counts.
func (cs *Counters) Map() map[string]int {
	if cs == nil || len(cs.counts) == 0 {
		return nil
	}
	return maps.Clone(cs.counts)
}

// Copy returns a deep copy.
func (cs *Counters) Copy() *Counters {
	out := NewCounters()
	maps.Copy(out.counts, cs.counts)
	return out
}

// Boost sums the power/toughness deltas of all boost counters in counts.
func Boost(counts map[string]int) (power, toughness int) {
	for name, n := range counts {
		if p, t, ok := ParseBoost(name); ok {
			power += p * n
			toughness += t * n
		}
	}
	return power, toughness
}

// Annihilate removes matching +1/+1 and -1/-1 counters pairwise and reports
// how many pairs were removed.
func (cs *Counters) Annihilate() int {
	pairs := min(cs.counts[string(P1P1)], cs.counts[string(M1M1)])
	if pairs == 0 {
		return 0
	}
	cs.Remove(string(P1P1), pairs)
	cs.Remove(string(M1M1), pairs)
	return pairs
}
