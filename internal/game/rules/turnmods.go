package rules

import "slices"

// TurnModKind is the kind of change a turn modification makes.
type TurnModKind int

const (
	ModSkipStep TurnModKind = iota
	ModSkipPhase
	ModExtraTurn
	ModSkipTurn
	ModExtraPhase
	ModReplacePhase
)

func (k TurnModKind) String() string {
	switch k {
	case ModSkipStep:
		return "SKIP_STEP"
	case ModSkipPhase:
		return "SKIP_PHASE"
	case ModExtraTurn:
		return "EXTRA_TURN"
	case ModSkipTurn:
		return "SKIP_TURN"
	case ModExtraPhase:
		return "EXTRA_PHASE"
	case ModReplacePhase:
		return "REPLACE_PHASE"
	default:
		return "UNKNOWN"
	}
}

// TurnMod is a one-time change to the turn structure. Phase is the phase to
// skip or replace, or the phase an extra phase follows; NewPhase is the phase
// inserted or substituted.
type TurnMod struct {
	ID       string
	PlayerID string
	SourceID string
	Kind     TurnModKind
	Step     Step
	Phase    Phase
	NewPhase Phase
}

// TurnMods holds queued turn modifications. Each is removed when used.
type TurnMods struct {
	queued []TurnMod
	used   []TurnMod
}

// NewTurnMods creates an empty queue.
func NewTurnMods() *TurnMods {
	return &TurnMods{}
}

// Add queues a modification.
func (m *TurnMods) Add(mod TurnMod) {
	m.queued = append(m.queued, mod)
}

// Pending returns the queued modifications, oldest first.
func (m *TurnMods) Pending() []TurnMod {
	if m == nil {
		return nil
	}
	return slices.Clone(m.queued)
}

// Used returns the modifications consumed so far, in consumption order.
func (m *TurnMods) Used() []TurnMod {
	if m == nil {
		return nil
	}
	return slices.Clone(m.used)
}

// RemovePlayer drops every modification for a player who left.
func (m *TurnMods) RemovePlayer(playerID string) {
	m.queued = slices.DeleteFunc(m.queued, func(mod TurnMod) bool { return mod.PlayerID == playerID })
}

func (m *TurnMods) UseSkipStep(playerID string, step Step) bool {
	_, ok := m.use(false, func(mod TurnMod) bool {
		return mod.Kind == ModSkipStep && mod.PlayerID == playerID && mod.Step == step
	})
	return ok
}

func (m *TurnMods) UseSkipPhase(playerID string, phase Phase) bool {
	_, ok := m.use(false, func(mod TurnMod) bool {
		return mod.Kind == ModSkipPhase && mod.PlayerID == playerID && mod.Phase == phase
	})
	return ok
}

func (m *TurnMods) UseSkipTurn(playerID string) bool {
	_, ok := m.use(false, func(mod TurnMod) bool {
		return mod.Kind == ModSkipTurn && mod.PlayerID == playerID
	})
	return ok
}

// UseExtraTurn takes the most recently created extra turn.
func (m *TurnMods) UseExtraTurn() (TurnMod, bool) {
	return m.use(true, func(mod TurnMod) bool { return mod.Kind == ModExtraTurn })
}

func (m *TurnMods) UseExtraPhase(playerID string, after Phase) (Phase, bool) {
	mod, ok := m.use(false, func(mod TurnMod) bool {
		return mod.Kind == ModExtraPhase && mod.PlayerID == playerID && mod.Phase == after
	})
	return mod.NewPhase, ok
}

func (m *TurnMods) UseReplacePhase(playerID string, phase Phase) (Phase, bool) {
	mod, ok := m.use(false, func(mod TurnMod) bool {
		return mod.Kind == ModReplacePhase && mod.PlayerID == playerID && mod.Phase == phase
	})
	return mod.NewPhase, ok
}

func (m *TurnMods) use(newestFirst bool, match func(TurnMod) bool) (TurnMod, bool) {
	if m == nil {
		return TurnMod{}, false
	}
	i := -1
	if newestFirst {
		for j := len(m.queued) - 1; j >= 0; j-- {
			if match(m.queued[j]) {
				i = j
				break
			}
		}
	} else {
		i = slices.IndexFunc(m.queued, match)
	}
	if i < 0 {
		return TurnMod{}, false
	}
	mod := m.queued[i]
	m.queued = slices.Delete(m.queued, i, i+1)
	m.used = append(m.used, mod)
	return mod, true
}
