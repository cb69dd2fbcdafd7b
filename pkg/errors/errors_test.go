package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIs_MatchesByKindAndMessage(t *testing.T) {
	a := New(KindNotFound, "certificate not found")
	b := New(KindNotFound, "certificate not found")
	c := New(KindNotFound, "template not found")

	if !errors.Is(a, b) {
		t.Error("same kind and message should match")
	}
	if errors.Is(a, c) {
		t.Error("different message should not match")
	}
	if !errors.Is(a, &Error{Kind: KindNotFound}) {
		t.Error("kind-only target should match any message")
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("revoke: %w", New(KindAlreadyRevoked, "already revoked"))
	if got := KindOf(err); got != KindAlreadyRevoked {
		t.Errorf("expected %s, got %s", KindAlreadyRevoked, got)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("expected empty kind, got %s", got)
	}
}

func TestOptimisticLock_IsConflict(t *testing.T) {
	if KindOf(ErrOptimisticLock) != KindConflict {
		t.Error("ErrOptimisticLock should be a conflict")
	}
}
