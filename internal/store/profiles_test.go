package store_test

import (
	"context"
	"errors"
	"testing"

	"pistore/internal/models"
	"pistore/internal/store"
	"pistore/internal/store/storetest"
)

func TestAddressRoundTrip(t *testing.T) {
	profiles := store.NewProfileStore(storetest.NewMemoryKV())
	ctx := context.Background()

	if _, err := profiles.Address(ctx, "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before save, got %v", err)
	}

	saved, err := profiles.SaveAddress(ctx, "Alice", models.Address{Name: " Alice ", Phone: "123", Address: "Main St 1"})
	if err != nil {
		t.Fatalf("SaveAddress returned error: %v", err)
	}
	if saved.Name != "Alice" || saved.UpdatedAt.IsZero() {
		t.Fatalf("expected trimmed name and updatedAt, got %+v", saved)
	}

	loaded, err := profiles.Address(ctx, "alice")
	if err != nil {
		t.Fatalf("Address returned error: %v", err)
	}
	if loaded.Address != "Main St 1" {
		t.Fatalf("unexpected address %+v", loaded)
	}
}

func TestAvatarRoundTrip(t *testing.T) {
	profiles := store.NewProfileStore(storetest.NewMemoryKV())
	ctx := context.Background()

	if err := profiles.SaveAvatar(ctx, "alice", "http://x/files/avatars/a.png"); err != nil {
		t.Fatalf("SaveAvatar returned error: %v", err)
	}
	url, err := profiles.Avatar(ctx, "ALICE")
	if err != nil || url != "http://x/files/avatars/a.png" {
		t.Fatalf("unexpected avatar %q err=%v", url, err)
	}
}
