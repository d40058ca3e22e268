package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/xiaot623/rolo/internal/domain"
)

func newTestSnapshots(t *testing.T, source *SQLiteStore) *SnapshotStore {
	t.Helper()
	snaps, err := NewSnapshotStore(source, t.TempDir())
	if err != nil {
		t.Fatalf("NewSnapshotStore failed: %v", err)
	}
	t.Cleanup(func() { _ = snaps.Close() })
	return snaps
}

func TestSnapshotStoreCreateListDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	snaps := newTestSnapshots(t, store)

	first, err := snaps.CreateBackup(ctx, "before add_note", true)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	second, err := snaps.CreateBackup(ctx, "manual", false)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("expected monotonic ids, got %d then %d", first.ID, second.ID)
	}
	if _, err := os.Stat(first.Path); err != nil {
		t.Fatalf("expected snapshot file: %v", err)
	}

	backups, err := snaps.ListBackups(ctx)
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 2 || !backups[0].IsAuto || backups[1].IsAuto {
		t.Fatalf("unexpected backups: %+v", backups)
	}

	if err := snaps.DeleteBackup(ctx, first.ID); err != nil {
		t.Fatalf("DeleteBackup failed: %v", err)
	}
	if _, err := os.Stat(first.Path); !os.IsNotExist(err) {
		t.Fatalf("expected snapshot file to be removed, got %v", err)
	}

	third, err := snaps.CreateBackup(ctx, "again", true)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	if third.ID <= second.ID {
		t.Fatalf("ids must never be reused: %d after %d", third.ID, second.ID)
	}
}

func TestSnapshotStoreRestore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	snaps := newTestSnapshots(t, store)

	mustCreateContact(t, store, "Ada", "Lovelace")
	before, err := snaps.CreateBackup(ctx, "one contact", false)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	mustCreateContact(t, store, "Alan", "Turing")

	if _, err := snaps.CreateBackup(ctx, "before restore_backup", true); err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	if err := snaps.Restore(ctx, before.ID); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	contacts, err := store.SearchContacts(ctx, "*", 0)
	if err != nil {
		t.Fatalf("SearchContacts failed: %v", err)
	}
	if len(contacts) != 1 || contacts[0].FirstName != "Ada" {
		t.Fatalf("unexpected contacts after restore: %+v", contacts)
	}

	// The backup list survives the restore.
	backups, err := snaps.ListBackups(ctx)
	if err != nil || len(backups) != 2 {
		t.Fatalf("expected 2 backups after restore, got %d err=%v", len(backups), err)
	}

	err = snaps.Restore(ctx, 999)
	if te := domain.AsToolError(err); te == nil || te.Kind != domain.ErrorKindNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSnapshotStoreRestoreKeepsConversation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	snaps := newTestSnapshots(t, store)

	ada := mustCreateContact(t, store, "Ada", "Lovelace")
	before, err := snaps.CreateBackup(ctx, "before chat", false)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	if err := store.CreateSession(ctx, &domain.Session{SessionID: "later", UserID: "local", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := store.DeleteContact(ctx, ada.ID); err != nil {
		t.Fatalf("DeleteContact failed: %v", err)
	}

	if err := snaps.Restore(ctx, before.ID); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	contacts, err := store.SearchContacts(ctx, "*", 0)
	if err != nil || len(contacts) != 1 {
		t.Fatalf("expected restored contact, got %d err=%v", len(contacts), err)
	}
	session, err := store.GetSession(ctx, "later")
	if err != nil || session == nil {
		t.Fatalf("expected session to survive restore, got %v err=%v", session, err)
	}

	msg := &domain.Message{
		MessageID: "m1",
		SessionID: "later",
		Message:   domain.ConversationMessage{Role: domain.RoleUser, Content: "hi"},
		CreatedAt: time.Now(),
	}
	if err := store.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage after restore failed: %v", err)
	}

	// Snapshots stay detached, so further backups still work.
	if _, err := snaps.CreateBackup(ctx, "after restore", true); err != nil {
		t.Fatalf("CreateBackup after restore failed: %v", err)
	}
}
