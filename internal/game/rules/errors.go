package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalAction marks a player action the rules do not allow right now.
	// The action has no effect and the player is prompted again.
	ErrIllegalAction = errors.New("illegal action")

	// ErrInvariantViolation marks an engine bug. The game halts.
	ErrInvariantViolation = errors.New("invariant violation")

	ErrNotPriorityHolder = IllegalAction("", "player does not hold priority")
)

// IllegalActionError describes a rejected player action.
type IllegalActionError struct {
	PlayerID string
	Reason   string
}

// IllegalAction builds an IllegalActionError.
func IllegalAction(playerID, reason string) *IllegalActionError {
	return &IllegalActionError{PlayerID: playerID, Reason: reason}
}

// IllegalActionf builds an IllegalActionError with a formatted reason.
func IllegalActionf(playerID, format string, args ...any) *IllegalActionError {
	return IllegalAction(playerID, fmt.Sprintf(format, args...))
}

func (e *IllegalActionError) Error() string {
	if e.PlayerID == "" {
		return fmt.Sprintf("illegal action: %s", e.Reason)
	}
	return fmt.Sprintf("illegal action by %s: %s", e.PlayerID, e.Reason)
}

func (e *IllegalActionError) Unwrap() error { return ErrIllegalAction }

// Is matches any IllegalActionError with the same reason, so callers can test
// against ErrNotPriorityHolder without caring about the player.
func (e *IllegalActionError) Is(target error) bool {
	var other *IllegalActionError
	if errors.As(target, &other) {
		return other.Reason == e.Reason
	}
	return false
}

// InvariantError describes a broken engine invariant.
type InvariantError struct {
	Op     string
	Detail string
}

// Invariantf builds an InvariantError.
func Invariantf(op, format string, args ...any) *InvariantError {
	return &InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation in %s: %s", e.Op, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }
