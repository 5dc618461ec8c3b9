package rules

import "slices"

// WatcherScope defines the scope of a watcher's tracking.
type WatcherScope int

const (
	// WatcherScopeGame tracks events for the entire game.
	WatcherScopeGame WatcherScope = iota
	// WatcherScopePlayer tracks events for a specific player.
	WatcherScopePlayer
	// WatcherScopeCard tracks events for a specific card/permanent.
	WatcherScopeCard
)

func (ws WatcherScope) String() string {
	switch ws {
	case WatcherScopeGame:
		return "GAME"
	case WatcherScopePlayer:
		return "PLAYER"
	case WatcherScopeCard:
		return "CARD"
	default:
		return "UNKNOWN"
	}
}

// Watcher observes every game event and accumulates information that
// abilities and dynamic values read later ("this turn" counts and the like).
type Watcher interface {
	Watch(event Event)
	// Reset clears turn-scoped state; it runs at the start of every turn.
	Reset()
	Scope() WatcherScope
	Key() string
	Copy() Watcher
}

// BaseWatcher carries the bookkeeping shared by watchers.
type BaseWatcher struct {
	scope     WatcherScope
	key       string
	condition bool
}

// NewBaseWatcher creates a base watcher.
func NewBaseWatcher(scope WatcherScope, key string) *BaseWatcher {
	return &BaseWatcher{scope: scope, key: key}
}

func (bw *BaseWatcher) Scope() WatcherScope { return bw.scope }

func (bw *BaseWatcher) Key() string { return bw.key }

// ConditionMet returns whether the tracked condition happened.
func (bw *BaseWatcher) ConditionMet() bool { return bw.condition }

func (bw *BaseWatcher) SetCondition(condition bool) { bw.condition = condition }

func (bw *BaseWatcher) Reset() { bw.condition = false }

// CopyBase returns a copy of the base state.
func (bw *BaseWatcher) CopyBase() *BaseWatcher {
	cp := *bw
	return &cp
}

// WatcherRegistry holds the watchers of one game in registration order.
type WatcherRegistry struct {
	watchers []Watcher
}

// NewWatcherRegistry creates a registry.
func NewWatcherRegistry() *WatcherRegistry {
	return &WatcherRegistry{}
}

// Add registers a watcher; a watcher with the same key is replaced.
func (r *WatcherRegistry) Add(w Watcher) {
	if i := r.index(w.Key()); i >= 0 {
		r.watchers[i] = w
		return
	}
	r.watchers = append(r.watchers, w)
}

// Remove unregisters a watcher.
func (r *WatcherRegistry) Remove(key string) {
	if i := r.index(key); i >= 0 {
		r.watchers = slices.Delete(r.watchers, i, i+1)
	}
}

// Get finds a watcher by key.
func (r *WatcherRegistry) Get(key string) (Watcher, bool) {
	if i := r.index(key); i >= 0 {
		return r.watchers[i], true
	}
	return nil, false
}

// Watch forwards an event to every watcher.
func (r *WatcherRegistry) Watch(event Event) {
	for _, w := range r.watchers {
		w.Watch(event)
	}
}

// Reset resets every watcher.
func (r *WatcherRegistry) Reset() {
	for _, w := range r.watchers {
		w.Reset()
	}
}

func (r *WatcherRegistry) Len() int { return len(r.watchers) }

func (r *WatcherRegistry) index(key string) int {
	return slices.IndexFunc(r.watchers, func(w Watcher) bool { return w.Key() == key })
}
