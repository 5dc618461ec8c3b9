package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingWatcher struct {
	*BaseWatcher
	count int
}

func (w *countingWatcher) Watch(e Event) {
	if e.Type == EventSpellCast {
		w.count++
		w.SetCondition(true)
	}
}

func (w *countingWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.count = 0
}

func (w *countingWatcher) Copy() Watcher {
	return &countingWatcher{BaseWatcher: w.CopyBase(), count: w.count}
}

func TestWatcherRegistry(t *testing.T) {
	r := NewWatcherRegistry()
	w := &countingWatcher{BaseWatcher: NewBaseWatcher(WatcherScopeGame, "spells")}
	r.Add(w)
	r.Add(w)
	assert.Equal(t, 1, r.Len())

	r.Watch(NewEvent(EventSpellCast, "c", "c", "alice"))
	r.Watch(NewEvent(EventDrewCard, "c", "", "alice"))
	assert.Equal(t, 1, w.count)
	assert.True(t, w.ConditionMet())

	cp := w.Copy().(*countingWatcher)
	r.Reset()
	assert.Equal(t, 0, w.count)
	assert.False(t, w.ConditionMet())
	assert.Equal(t, 1, cp.count)

	got, ok := r.Get("spells")
	assert.True(t, ok)
	assert.Same(t, w, got)
	r.Remove("spells")
	_, ok = r.Get("spells")
	assert.False(t, ok)
	assert.Equal(t, "GAME", WatcherScopeGame.String())
}
