package helpers

import (
	"context"
	"testing"

	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewTestSnapshotStore returns a backup store writing into a temporary
// directory.
func NewTestSnapshotStore(t *testing.T, source *store.SQLiteStore) *store.SnapshotStore {
	t.Helper()

	s, err := store.NewSnapshotStore(source, t.TempDir())
	if err != nil {
		t.Fatalf("failed to create snapshot store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// SeedContacts creates one contact per "first last" name and returns them in
// order.
func SeedContacts(t *testing.T, s store.ContactStore, names ...[2]string) []*domain.Contact {
	t.Helper()

	out := make([]*domain.Contact, 0, len(names))
	for _, n := range names {
		c := &domain.Contact{FirstName: n[0], LastName: n[1]}
		if err := s.CreateContact(context.Background(), c); err != nil {
			t.Fatalf("failed to seed contact %s %s: %v", n[0], n[1], err)
		}
		out = append(out, c)
	}
	return out
}

// Fixture bundles a contact store with its backup store.
type Fixture struct {
	Store   *store.SQLiteStore
	Backups *store.SnapshotStore
}

// NewFixture returns an in-memory store with a temporary backup directory.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	s := NewTestSQLiteStore(t)
	return &Fixture{Store: s, Backups: NewTestSnapshotStore(t, s)}
}
