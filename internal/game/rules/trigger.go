package rules

import (
	"slices"
)

// PendingTrigger is a triggered ability that has triggered but is not yet on the stack.
type PendingTrigger struct {
	ID           string
	AbilityID    string
	SourceID     string
	ControllerID string
	Description  string
	Event        Event
}

// OrderRequest asks a player to order their simultaneous triggers.
type OrderRequest struct {
	PlayerID string
	Triggers []PendingTrigger
}

// TriggerDispatcher queues triggered abilities and releases them for the
// stack in APNAP order: all of the active player's triggers first, then each
// other player's in turn order. A player with several triggers chooses their
// order unless auto-ordering is on. The dispatcher never resolves anything.
type TriggerDispatcher struct {
	pending   []PendingTrigger
	awaiting  *OrderRequest
	autoOrder bool
}

// NewTriggerDispatcher creates a dispatcher.
func NewTriggerDispatcher(autoOrder bool) *TriggerDispatcher {
	return &TriggerDispatcher{autoOrder: autoOrder}
}

// Queue adds a triggered ability in detection order.
func (d *TriggerDispatcher) Queue(t PendingTrigger) {
	d.pending = append(d.pending, t)
}

// HasPending reports whether triggers wait to be put on the stack.
func (d *TriggerDispatcher) HasPending() bool {
	return len(d.pending) > 0
}

// Pending returns the queued triggers in detection order.
func (d *TriggerDispatcher) Pending() []PendingTrigger {
	return slices.Clone(d.pending)
}

// Awaiting returns the outstanding order request, if any.
func (d *TriggerDispatcher) Awaiting() *OrderRequest {
	return d.awaiting
}

// Flush releases queued triggers in the order they must be put on the stack.
// When a player has to order several triggers, Flush stops at that player and
// returns the request; triggers of players earlier in APNAP order are returned
// as ready. Players no longer in order are dropped along with their triggers.
func (d *TriggerDispatcher) Flush(order []string, active string) ([]PendingTrigger, *OrderRequest) {
	if d.awaiting != nil {
		return nil, d.awaiting
	}
	var ready []PendingTrigger
	for _, playerID := range apnap(order, active) {
		mine := d.take(playerID)
		if len(mine) == 0 {
			continue
		}
		if len(mine) > 1 && !d.autoOrder {
			d.awaiting = &OrderRequest{PlayerID: playerID, Triggers: mine}
			return ready, d.awaiting
		}
		ready = append(ready, mine...)
	}
	d.pending = nil
	return ready, nil
}

// Order answers the outstanding request. ids must be a permutation of the
// requested trigger ids; the first id is put on the stack first.
func (d *TriggerDispatcher) Order(playerID string, ids []string) ([]PendingTrigger, error) {
	req := d.awaiting
	if req == nil || req.PlayerID != playerID {
		return nil, IllegalAction(playerID, "no trigger ordering requested from this player")
	}
	if len(ids) != len(req.Triggers) {
		return nil, IllegalActionf(playerID, "expected %d triggers, got %d", len(req.Triggers), len(ids))
	}
	ordered := make([]PendingTrigger, 0, len(ids))
	for _, id := range ids {
		i := slices.IndexFunc(req.Triggers, func(t PendingTrigger) bool { return t.ID == id })
		if i < 0 || slices.ContainsFunc(ordered, func(t PendingTrigger) bool { return t.ID == id }) {
			return nil, IllegalActionf(playerID, "unknown or repeated trigger %s", id)
		}
		ordered = append(ordered, req.Triggers[i])
	}
	d.awaiting = nil
	return ordered, nil
}

// DefaultOrder answers the outstanding request with detection order. It is
// used when a decision times out.
func (d *TriggerDispatcher) DefaultOrder() []PendingTrigger {
	if d.awaiting == nil {
		return nil
	}
	out := d.awaiting.Triggers
	d.awaiting = nil
	return out
}

// Clear drops everything, used when the game ends.
func (d *TriggerDispatcher) Clear() {
	d.pending = nil
	d.awaiting = nil
}

func (d *TriggerDispatcher) take(playerID string) []PendingTrigger {
	var mine []PendingTrigger
	rest := d.pending[:0:0]
	for _, t := range d.pending {
		if t.ControllerID == playerID {
			mine = append(mine, t)
		} else {
			rest = append(rest, t)
		}
	}
	d.pending = rest
	return mine
}

// apnap returns players in turn order starting with the active player.
func apnap(order []string, active string) []string {
	i := slices.Index(order, active)
	if i < 0 {
		return slices.Clone(order)
	}
	return append(slices.Clone(order[i:]), order[:i]...)
}
