// Package notice maps cart mutation outcomes to the user-facing
// messages a client should show. Keeping the mapping here leaves the
// cart manager free of any display concern.
package notice

import (
	"errors"

	"bookstore/internal/service/cart"
	"bookstore/internal/store"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// FromOutcome renders one notice per mutation outcome. Each failure
// class gets its own message so the client can show something more
// useful than a generic error.
func FromOutcome(o cart.Outcome) Notice {
	switch o.Kind {
	case cart.OutcomeItemAdded:
		return Notice{Level: LevelSuccess, Message: "Added to your cart"}
	case cart.OutcomeQuantityUpdated:
		return Notice{Level: LevelSuccess, Message: "Cart updated"}
	case cart.OutcomeItemRemoved:
		return Notice{Level: LevelSuccess, Message: "Removed from your cart"}
	case cart.OutcomeCartCleared:
		return Notice{Level: LevelSuccess, Message: "Your cart is now empty"}
	case cart.OutcomeUnauthenticated:
		return Notice{Level: LevelError, Message: "Please sign in to manage your cart"}
	}

	switch {
	case errors.Is(o.Err, cart.ErrInvalidQuantity):
		return Notice{Level: LevelError, Message: "Quantity must be at least 1"}
	case errors.Is(o.Err, store.ErrNotFound):
		return Notice{Level: LevelError, Message: "That item is no longer in your cart"}
	case errors.Is(o.Err, store.ErrDuplicate):
		return Notice{Level: LevelError, Message: "That item is already in your cart"}
	default:
		return Notice{Level: LevelError, Message: "Something went wrong updating your cart. Please try again."}
	}
}
