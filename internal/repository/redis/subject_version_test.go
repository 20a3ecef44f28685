package redis

import (
	"context"
	"testing"
)

func TestSubjectVersionStore_DefaultsToZero(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewSubjectVersionStore(client, "sv:test")

	version, err := store.GetSubjectVersion(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetSubjectVersion returned error: %v", err)
	}
	if version != 0 {
		t.Fatalf("expected version 0 for unseen user, got %d", version)
	}
}

func TestSubjectVersionStore_BumpIsMonotonic(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewSubjectVersionStore(client, "sv:test")

	ctx := context.Background()

	v1, err := store.BumpSubjectVersion(ctx, "user-1")
	if err != nil {
		t.Fatalf("BumpSubjectVersion returned error: %v", err)
	}
	v2, err := store.BumpSubjectVersion(ctx, "user-1")
	if err != nil {
		t.Fatalf("BumpSubjectVersion returned error: %v", err)
	}
	if v2 != v1+1 {
		t.Fatalf("expected version to increment by one, got %d then %d", v1, v2)
	}

	current, err := store.GetSubjectVersion(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetSubjectVersion returned error: %v", err)
	}
	if current != v2 {
		t.Fatalf("expected stored version %d, got %d", v2, current)
	}
}

func TestSubjectVersionStore_UsersAreIndependent(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewSubjectVersionStore(client, "sv:test")

	ctx := context.Background()

	if _, err := store.BumpSubjectVersion(ctx, "user-1"); err != nil {
		t.Fatalf("BumpSubjectVersion returned error: %v", err)
	}

	other, err := store.GetSubjectVersion(ctx, "user-2")
	if err != nil {
		t.Fatalf("GetSubjectVersion returned error: %v", err)
	}
	if other != 0 {
		t.Fatalf("expected other user untouched, got %d", other)
	}
}

func TestSubjectVersionStore_EmptyUserID(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewSubjectVersionStore(client, "sv:test")

	if _, err := store.GetSubjectVersion(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if _, err := store.BumpSubjectVersion(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank user id")
	}
}
