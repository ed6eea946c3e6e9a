package game

import (
	"errors"
	"fmt"
)

// ErrNoOp is returned when an idempotent step finds it has already been
// applied, typically because another client won the race. Callers treat it
// as success.
var ErrNoOp = errors.New("step already applied")

// ErrNotReady is returned when a step's preconditions are not met yet, e.g.
// resolution before every card or the attribute has arrived.
var ErrNotReady = errors.New("step not ready")

// ValidationError is an action attempted in the wrong phase or by an actor
// without the conventional right to perform it.
type ValidationError struct {
	Op     string
	Player string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Player != "" {
		return fmt.Sprintf("%s by %s rejected: %s", e.Op, e.Player, e.Reason)
	}
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
}

func invalid(op, player, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op, Player: player, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// StateInconsistencyError records a round reference to a card the deck
// catalog does not know, or one lacking the compared attribute. Such
// entries are skipped, never fatal.
type StateInconsistencyError struct {
	Player    string
	CardID    string
	Attribute string
}

func (e *StateInconsistencyError) Error() string {
	if e.Attribute != "" {
		return fmt.Sprintf("card %s played by %s has no attribute %q", e.CardID, e.Player, e.Attribute)
	}
	return fmt.Sprintf("card %s played by %s is not in the deck", e.CardID, e.Player)
}
