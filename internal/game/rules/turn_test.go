package rules

import "testing"

func TestTurnManagerSequence(t *testing.T) {
	tm := NewTurnManager([]string{"Alice", "Bob"}, "Alice")

	expected := []struct {
		phase Phase
		step  Step
	}{
		{PhaseBeginning, StepUntap},
		{PhaseBeginning, StepUpkeep},
		{PhaseBeginning, StepDraw},
		{PhasePrecombatMain, StepMain1},
		{PhaseCombat, StepBeginCombat},
		{PhaseCombat, StepDeclareAttackers},
		{PhaseCombat, StepDeclareBlockers},
		{PhaseCombat, StepCombatDamage},
		{PhaseCombat, StepEndCombat},
		{PhasePostcombatMain, StepMain2},
		{PhaseEnding, StepEnd},
		{PhaseEnding, StepCleanup},
	}

	mods := NewTurnMods()
	for i, exp := range expected {
		tr := tm.Next(mods)
		if tr.Phase != exp.phase || tm.CurrentPhase() != exp.phase {
			t.Fatalf("step %d: expected phase %s, got %s", i, exp.phase, tr.Phase)
		}
		if tr.Step != exp.step || tm.CurrentStep() != exp.step {
			t.Fatalf("step %d: expected step %s, got %s", i, exp.step, tr.Step)
		}
		if tr.NewTurn != (i == 0) {
			t.Fatalf("step %d: unexpected NewTurn=%v", i, tr.NewTurn)
		}
	}
}

func TestTurnManagerAdvanceWrapsTurn(t *testing.T) {
	tm := NewTurnManager([]string{"Alice", "Bob"}, "Alice")
	mods := NewTurnMods()
	tm.Next(mods)
	for i := 0; i < 11; i++ {
		tm.Next(mods)
	}
	tr := tm.Next(mods)
	if !tr.NewTurn || tr.ActivePlayer != "Bob" || tr.TurnNumber != 2 || tr.Step != StepUntap {
		t.Fatalf("expected Bob's untap on turn 2, got %+v", tr)
	}
}

// advanceToTurn steps until a new turn starts and returns its transition.
func advanceToTurn(tm *TurnManager, mods *TurnMods) Transition {
	for {
		tr := tm.Next(mods)
		if tr.NewTurn {
			return tr
		}
	}
}

func TestSkipUntapConsumedOnce(t *testing.T) {
	tm := NewTurnManager([]string{"Alice", "Bob"}, "Alice")
	mods := NewTurnMods()
	tm.Next(mods) // Alice untap, turn 1

	mods.Add(TurnMod{ID: "m1", PlayerID: "Alice", Kind: ModSkipStep, Step: StepUntap})

	bob := advanceToTurn(tm, mods)
	if bob.ActivePlayer != "Bob" || bob.Step != StepUntap {
		t.Fatalf("Bob's untap must not be skipped, got %+v", bob)
	}

	alice := advanceToTurn(tm, mods)
	if alice.ActivePlayer != "Alice" || alice.Step != StepUpkeep {
		t.Fatalf("expected Alice to start at upkeep, got %+v", alice)
	}
	if len(alice.SkippedSteps) != 1 || alice.SkippedSteps[0] != StepUntap {
		t.Fatalf("expected untap reported as skipped, got %v", alice.SkippedSteps)
	}
	if len(mods.Pending()) != 0 || len(mods.Used()) != 1 {
		t.Fatalf("modification must be consumed exactly once")
	}

	advanceToTurn(tm, mods)
	again := advanceToTurn(tm, mods)
	if again.ActivePlayer != "Alice" || again.Step != StepUntap || len(again.SkippedSteps) != 0 {
		t.Fatalf("skip must not recur, got %+v", again)
	}
}

func TestExtraTurnsMostRecentFirst(t *testing.T) {
	tm := NewTurnManager([]string{"Alice", "Bob"}, "Alice")
	mods := NewTurnMods()
	tm.Next(mods)

	mods.Add(TurnMod{ID: "x1", PlayerID: "Bob", Kind: ModExtraTurn})
	mods.Add(TurnMod{ID: "x2", PlayerID: "Alice", Kind: ModExtraTurn})

	order := []string{}
	extra := []bool{}
	for i := 0; i < 4; i++ {
		tr := advanceToTurn(tm, mods)
		order = append(order, tr.ActivePlayer)
		extra = append(extra, tr.ExtraTurn)
	}
	want := []string{"Alice", "Bob", "Bob", "Alice"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("turn order: expected %v, got %v", want, order)
		}
	}
	if !extra[0] || !extra[1] || extra[2] || extra[3] {
		t.Fatalf("unexpected extra flags %v", extra)
	}
}

func TestSkipTurnAndPhaseMods(t *testing.T) {
	tm := NewTurnManager([]string{"Alice", "Bob"}, "Alice")
	mods := NewTurnMods()
	tm.Next(mods)

	mods.Add(TurnMod{PlayerID: "Bob", Kind: ModSkipTurn})

	tr := advanceToTurn(tm, mods)
	if tr.ActivePlayer != "Alice" || tr.TurnNumber != 2 || len(tr.SkippedTurns) != 1 {
		t.Fatalf("Bob's turn should be skipped, got %+v", tr)
	}

	mods.Add(TurnMod{PlayerID: "Alice", Kind: ModSkipPhase, Phase: PhaseCombat})
	mods.Add(TurnMod{PlayerID: "Alice", Kind: ModExtraPhase, Phase: PhasePostcombatMain, NewPhase: PhaseCombat})

	var steps []Step
	for {
		tr = tm.Next(mods)
		if tr.NewTurn {
			break
		}
		steps = append(steps, tr.Step)
	}
	want := []Step{StepUpkeep, StepDraw, StepMain1, StepMain2,
		StepBeginCombat, StepDeclareAttackers, StepDeclareBlockers, StepCombatDamage, StepEndCombat,
		StepEnd, StepCleanup}
	if len(steps) != len(want) {
		t.Fatalf("expected %v, got %v", want, steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, steps)
		}
	}
}

func TestReplacePhase(t *testing.T) {
	tm := NewTurnManager([]string{"Alice"}, "Alice")
	mods := NewTurnMods()
	mods.Add(TurnMod{PlayerID: "Alice", Kind: ModReplacePhase, Phase: PhaseCombat, NewPhase: PhasePostcombatMain})
	var steps []Step
	for i := 0; i < 6; i++ {
		steps = append(steps, tm.Next(mods).Step)
	}
	want := []Step{StepUntap, StepUpkeep, StepDraw, StepMain1, StepMain2, StepMain2}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, steps)
		}
	}
}
