package notice

import (
	"testing"

	"bookstore/internal/service/cart"
	"bookstore/internal/store"
)

func TestFromOutcome_SuccessKinds(t *testing.T) {
	cases := []struct {
		kind cart.OutcomeKind
		want string
	}{
		{cart.OutcomeItemAdded, "Added to your cart"},
		{cart.OutcomeQuantityUpdated, "Cart updated"},
		{cart.OutcomeItemRemoved, "Removed from your cart"},
		{cart.OutcomeCartCleared, "Your cart is now empty"},
	}
	for _, tc := range cases {
		n := FromOutcome(cart.Outcome{Kind: tc.kind})
		if n.Level != LevelSuccess || n.Message != tc.want {
			t.Fatalf("%s -> %+v, want success %q", tc.kind, n, tc.want)
		}
	}
}

func TestFromOutcome_FailureClasses(t *testing.T) {
	unauth := FromOutcome(cart.Outcome{Kind: cart.OutcomeUnauthenticated, Err: cart.ErrUnauthenticated})
	if unauth.Level != LevelError || unauth.Message != "Please sign in to manage your cart" {
		t.Fatalf("unauthenticated notice = %+v", unauth)
	}

	gone := FromOutcome(cart.Outcome{Kind: cart.OutcomeFailed, Err: store.ErrNotFound})
	if gone.Level != LevelError || gone.Message != "That item is no longer in your cart" {
		t.Fatalf("not-found notice = %+v", gone)
	}

	down := FromOutcome(cart.Outcome{Kind: cart.OutcomeFailed, Err: store.ErrUnavailable})
	if down.Level != LevelError || down.Message == "" {
		t.Fatalf("unavailable notice = %+v", down)
	}
}
