package authz

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeMembership struct {
	members map[string]bool
	err     error
	calls   int
}

func (f *fakeMembership) IsMember(_ context.Context, uid string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.members[uid], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIsAdministrator(t *testing.T) {
	store := &fakeMembership{members: map[string]bool{"admin-1": true}}
	c := NewChecker(store, testLogger())

	if !c.IsAdministrator(context.Background(), "admin-1") {
		t.Fatal("expected admin-1 to be an administrator")
	}
	if c.IsAdministrator(context.Background(), "client-1") {
		t.Fatal("expected client-1 not to be an administrator")
	}
}

func TestIsAdministrator_EmptyIdentitySkipsLookup(t *testing.T) {
	store := &fakeMembership{members: map[string]bool{}}
	c := NewChecker(store, testLogger())

	if c.IsAdministrator(context.Background(), "") {
		t.Fatal("anonymous caller must never be an administrator")
	}
	if store.calls != 0 {
		t.Fatalf("expected no lookup for empty identity, got %d", store.calls)
	}
}

func TestIsAdministrator_FailsClosedOnLookupError(t *testing.T) {
	store := &fakeMembership{err: errors.New("store unavailable")}
	c := NewChecker(store, testLogger())

	if c.IsAdministrator(context.Background(), "admin-1") {
		t.Fatal("lookup failure must deny, not grant")
	}
}
