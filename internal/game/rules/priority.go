package rules

import "slices"

// StackState is the state of the stack and priority loop.
type StackState int

const (
	StackEmpty StackState = iota
	StackHasPendingObjects
	StackResolving
)

func (s StackState) String() string {
	switch s {
	case StackEmpty:
		return "EMPTY"
	case StackHasPendingObjects:
		return "HAS_PENDING_OBJECTS"
	case StackResolving:
		return "RESOLVING"
	default:
		return "UNKNOWN"
	}
}

// PassOutcome tells the engine what a priority pass led to.
type PassOutcome int

const (
	// PassNext gives priority to the next player in turn order.
	PassNext PassOutcome = iota
	// PassResolve means all players passed in succession with a non-empty stack.
	PassResolve
	// PassAdvance means all players passed in succession with an empty stack.
	PassAdvance
)

// PriorityLoop tracks who holds priority and how many players have passed in
// succession. Any action other than passing resets the pass count.
type PriorityLoop struct {
	order  []string
	active string
	holder string
	passes int
	state  StackState
}

// NewPriorityLoop creates a loop with no holder.
func NewPriorityLoop() *PriorityLoop {
	return &PriorityLoop{}
}

// Reset opens a priority window: the active player receives priority.
func (p *PriorityLoop) Reset(order []string, active string, stackEmpty bool) {
	p.order = slices.Clone(order)
	p.active = active
	p.holder = active
	p.passes = 0
	p.setPending(stackEmpty)
}

// Close ends the window; nobody holds priority.
func (p *PriorityLoop) Close() {
	p.holder = ""
	p.passes = 0
}

// Grant gives priority to playerID after it took an action.
func (p *PriorityLoop) Grant(playerID string, stackEmpty bool) {
	p.holder = playerID
	p.passes = 0
	p.setPending(stackEmpty)
}

// Holder returns the player holding priority, or "" when nobody does.
func (p *PriorityLoop) Holder() string {
	return p.holder
}

// State returns the stack state.
func (p *PriorityLoop) State() StackState {
	return p.state
}

// Pass records a pass by playerID.
func (p *PriorityLoop) Pass(playerID string, stackEmpty bool) (PassOutcome, error) {
	if p.state == StackResolving {
		return PassNext, IllegalAction(playerID, "stack is resolving")
	}
	if playerID == "" || playerID != p.holder {
		return PassNext, ErrNotPriorityHolder
	}
	p.passes++
	if p.passes >= len(p.order) {
		p.holder = ""
		p.passes = 0
		if stackEmpty {
			return PassAdvance, nil
		}
		return PassResolve, nil
	}
	p.holder = p.next(playerID)
	return PassNext, nil
}

// BeginResolution marks the top object as resolving. No player acts meanwhile.
func (p *PriorityLoop) BeginResolution() {
	p.state = StackResolving
	p.holder = ""
	p.passes = 0
}

// EndResolution returns priority to the active player.
func (p *PriorityLoop) EndResolution(stackEmpty bool) {
	p.holder = p.active
	p.passes = 0
	p.setPending(stackEmpty)
}

// RemovePlayer drops a player who left the game from the rotation.
func (p *PriorityLoop) RemovePlayer(playerID string) {
	if p.holder == playerID {
		p.holder = p.next(playerID)
		if p.holder == playerID {
			p.holder = ""
		}
	}
	p.order = slices.DeleteFunc(p.order, func(id string) bool { return id == playerID })
}

func (p *PriorityLoop) next(playerID string) string {
	i := slices.Index(p.order, playerID)
	if i < 0 || len(p.order) == 0 {
		return ""
	}
	return p.order[(i+1)%len(p.order)]
}

func (p *PriorityLoop) setPending(stackEmpty bool) {
	if stackEmpty {
		p.state = StackEmpty
	} else {
		p.state = StackHasPendingObjects
	}
}
