package rules

import (
	"fmt"
	"slices"
)

// Phase represents the broad phases of a turn.
type Phase int

const (
	PhaseBeginning Phase = iota
	PhasePrecombatMain
	PhaseCombat
	PhasePostcombatMain
	PhaseEnding
)

var phaseNames = map[Phase]string{
	PhaseBeginning:      "BEGINNING",
	PhasePrecombatMain:  "PRECOMBAT_MAIN",
	PhaseCombat:         "COMBAT",
	PhasePostcombatMain: "POSTCOMBAT_MAIN",
	PhaseEnding:         "ENDING",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Step represents the individual steps that comprise a turn.
type Step int

const (
	StepUntap Step = iota
	StepUpkeep
	StepDraw
	StepMain1
	StepBeginCombat
	StepDeclareAttackers
	StepDeclareBlockers
	StepCombatDamage
	StepEndCombat
	StepMain2
	StepEnd
	StepCleanup
)

var stepNames = map[Step]string{
	StepUntap:            "UNTAP",
	StepUpkeep:           "UPKEEP",
	StepDraw:             "DRAW",
	StepMain1:            "MAIN1",
	StepBeginCombat:      "BEGIN_COMBAT",
	StepDeclareAttackers: "DECLARE_ATTACKERS",
	StepDeclareBlockers:  "DECLARE_BLOCKERS",
	StepCombatDamage:     "COMBAT_DAMAGE",
	StepEndCombat:        "END_COMBAT",
	StepMain2:            "MAIN2",
	StepEnd:              "END",
	StepCleanup:          "CLEANUP",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STEP_%d", int(s))
}

// HasPriority reports whether players receive priority during the step.
// Cleanup only grants priority when something triggers, which the engine handles.
func (s Step) HasPriority() bool {
	return s != StepUntap && s != StepCleanup
}

// IsMain reports whether the step is a main phase.
func (s Step) IsMain() bool {
	return s == StepMain1 || s == StepMain2
}

var turnPhases = []Phase{PhaseBeginning, PhasePrecombatMain, PhaseCombat, PhasePostcombatMain, PhaseEnding}

var phaseSteps = map[Phase][]Step{
	PhaseBeginning:      {StepUntap, StepUpkeep, StepDraw},
	PhasePrecombatMain:  {StepMain1},
	PhaseCombat:         {StepBeginCombat, StepDeclareAttackers, StepDeclareBlockers, StepCombatDamage, StepEndCombat},
	PhasePostcombatMain: {StepMain2},
	PhaseEnding:         {StepEnd, StepCleanup},
}

// Transition describes what happened when the turn structure advanced.
type Transition struct {
	NewTurn       bool
	ExtraTurn     bool
	TurnNumber    int
	ActivePlayer  string
	Phase         Phase
	Step          Step
	SkippedSteps  []Step
	SkippedPhases []Phase
	SkippedTurns  []string
}

// TurnManager walks phases and steps and rotates the active player,
// consuming turn modifications as their phase, step or turn is reached.
type TurnManager struct {
	order      []string
	active     string
	rotation   string // player whose regular turn was taken last
	turnNumber int
	extraTurn  bool
	phases     []Phase // remaining phases, phases[0] is current when inPhase
	steps      []Step  // remaining steps of the current phase, steps[0] is current
	inPhase    bool
	started    bool
}

// NewTurnManager creates a turn manager; first takes the first turn.
func NewTurnManager(order []string, first string) *TurnManager {
	return &TurnManager{
		order:    slices.Clone(order),
		active:   first,
		rotation: first,
	}
}

func (tm *TurnManager) ActivePlayer() string { return tm.active }

func (tm *TurnManager) TurnNumber() int { return tm.turnNumber }

func (tm *TurnManager) IsExtraTurn() bool { return tm.extraTurn }

func (tm *TurnManager) Started() bool { return tm.started }

// Order returns the players in turn order.
func (tm *TurnManager) Order() []string { return slices.Clone(tm.order) }

// CurrentPhase returns the current phase.
func (tm *TurnManager) CurrentPhase() Phase {
	if len(tm.phases) == 0 {
		return PhaseBeginning
	}
	return tm.phases[0]
}

// CurrentStep returns the current step.
func (tm *TurnManager) CurrentStep() Step {
	if len(tm.steps) == 0 {
		return StepUntap
	}
	return tm.steps[0]
}

// RemovePlayer takes a player out of the rotation.
func (tm *TurnManager) RemovePlayer(playerID string) {
	i := slices.Index(tm.order, playerID)
	if i < 0 {
		return
	}
	if tm.rotation == playerID && len(tm.order) > 1 {
		tm.rotation = tm.order[(i+len(tm.order)-1)%len(tm.order)]
	}
	tm.order = slices.Delete(tm.order, i, i+1)
}

// Next advances to the next step that is not skipped and reports the transition.
func (tm *TurnManager) Next(mods *TurnMods) Transition {
	var tr Transition
	switch {
	case !tm.started:
		tm.started = true
		tm.turnNumber = 1
		tm.phases = slices.Clone(turnPhases)
		tr.NewTurn = true
	case len(tm.steps) > 0:
		tm.steps = tm.steps[1:]
	}

	for {
		if len(tm.steps) > 0 {
			if mods.UseSkipStep(tm.active, tm.steps[0]) {
				tr.SkippedSteps = append(tr.SkippedSteps, tm.steps[0])
				tm.steps = tm.steps[1:]
				continue
			}
			break
		}
		if tm.inPhase {
			finished := tm.phases[0]
			tm.phases = tm.phases[1:]
			tm.inPhase = false
			if extra, ok := mods.UseExtraPhase(tm.active, finished); ok {
				tm.phases = append([]Phase{extra}, tm.phases...)
			}
		}
		if len(tm.phases) == 0 {
			tm.advanceTurn(mods, &tr)
			continue
		}
		phase := tm.phases[0]
		if mods.UseSkipPhase(tm.active, phase) {
			tr.SkippedPhases = append(tr.SkippedPhases, phase)
			tm.phases = tm.phases[1:]
			continue
		}
		if replacement, ok := mods.UseReplacePhase(tm.active, phase); ok {
			phase = replacement
			tm.phases[0] = replacement
		}
		tm.inPhase = true
		tm.steps = slices.Clone(phaseSteps[phase])
	}

	tr.TurnNumber = tm.turnNumber
	tr.ActivePlayer = tm.active
	tr.Phase = tm.phases[0]
	tr.Step = tm.steps[0]
	tr.ExtraTurn = tm.extraTurn
	return tr
}

func (tm *TurnManager) advanceTurn(mods *TurnMods, tr *Transition) {
	for {
		next, extra := tm.nextPlayer(mods)
		if next == "" {
			tm.phases = slices.Clone(turnPhases)
			return
		}
		if !extra {
			tm.rotation = next
		}
		if mods.UseSkipTurn(next) {
			tr.SkippedTurns = append(tr.SkippedTurns, next)
			continue
		}
		tm.active = next
		tm.extraTurn = extra
		tm.turnNumber++
		tm.phases = slices.Clone(turnPhases)
		tm.steps = nil
		tm.inPhase = false
		tr.NewTurn = true
		return
	}
}

func (tm *TurnManager) nextPlayer(mods *TurnMods) (string, bool) {
	if mod, ok := mods.UseExtraTurn(); ok && slices.Contains(tm.order, mod.PlayerID) {
		return mod.PlayerID, true
	}
	if len(tm.order) == 0 {
		return "", false
	}
	i := slices.Index(tm.order, tm.rotation)
	return tm.order[(i+1)%len(tm.order)], false
}
