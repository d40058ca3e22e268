package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/xiaot623/rolo/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustCreateContact(t *testing.T, store *SQLiteStore, first, last string) *domain.Contact {
	t.Helper()
	c := &domain.Contact{FirstName: first, LastName: last}
	if err := store.CreateContact(context.Background(), c); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}
	return c
}

func TestSQLiteStoreContacts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	ada := mustCreateContact(t, store, "Ada", "Lovelace")
	mustCreateContact(t, store, "Alan", "Turing")
	if ada.ID == 0 {
		t.Fatalf("expected contact id to be set")
	}

	got, err := store.GetContact(ctx, ada.ID)
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if got == nil || got.DisplayName() != "Ada Lovelace" {
		t.Fatalf("unexpected contact: %+v", got)
	}

	missing, err := store.GetContact(ctx, 999)
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing contact, got %+v", missing)
	}

	all, err := store.SearchContacts(ctx, "*", 0)
	if err != nil {
		t.Fatalf("SearchContacts failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(all))
	}
	blank, err := store.SearchContacts(ctx, "  ", 0)
	if err != nil {
		t.Fatalf("SearchContacts failed: %v", err)
	}
	if len(blank) != 2 {
		t.Fatalf("expected blank query to match everything, got %d", len(blank))
	}

	found, err := store.SearchContacts(ctx, "ada love", 0)
	if err != nil {
		t.Fatalf("SearchContacts failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != ada.ID {
		t.Fatalf("unexpected search result: %+v", found)
	}

	email := "ada@example.com"
	updated, err := store.UpdateContact(ctx, ada.ID, domain.ContactPatch{Email: &email})
	if err != nil {
		t.Fatalf("UpdateContact failed: %v", err)
	}
	if updated == nil || updated.Email != email || updated.LastName != "Lovelace" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	none, err := store.UpdateContact(ctx, 999, domain.ContactPatch{Email: &email})
	if err != nil {
		t.Fatalf("UpdateContact failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil update for missing contact")
	}

	deleted, err := store.DeleteContact(ctx, ada.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteContact: deleted=%v err=%v", deleted, err)
	}
}

func TestSQLiteStoreFindContactsByName(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	mustCreateContact(t, store, "John", "Smith")
	mustCreateContact(t, store, "Johnny", "Appleseed")
	mustCreateContact(t, store, "Mary", "Jones")

	matches, err := store.FindContactsByName(ctx, "john")
	if err != nil {
		t.Fatalf("FindContactsByName failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}

	matches, err = store.FindContactsByName(ctx, "100%")
	if err != nil {
		t.Fatalf("FindContactsByName failed: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected LIKE wildcards to be escaped, got %d matches", len(matches))
	}
}

func TestSQLiteStoreTagsNotesRelationships(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	a := mustCreateContact(t, store, "Ada", "Lovelace")
	b := mustCreateContact(t, store, "Charles", "Babbage")

	if err := store.AddTagToContact(ctx, a.ID, "math"); err != nil {
		t.Fatalf("AddTagToContact failed: %v", err)
	}
	if err := store.AddTagToContact(ctx, a.ID, "MATH"); err != nil {
		t.Fatalf("AddTagToContact twice failed: %v", err)
	}
	tags, err := store.ListContactTags(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListContactTags failed: %v", err)
	}
	if len(tags) != 1 || tags[0] != "math" {
		t.Fatalf("unexpected tags: %v", tags)
	}

	note := &domain.Note{ContactID: a.ID, Content: "wrote the first program"}
	if err := store.AddNote(ctx, note); err != nil {
		t.Fatalf("AddNote failed: %v", err)
	}
	notes, err := store.ListNotes(ctx, a.ID)
	if err != nil || len(notes) != 1 {
		t.Fatalf("ListNotes: %v %v", notes, err)
	}

	rel := &domain.Relationship{ContactID: a.ID, RelatedContactID: b.ID, Type: "colleague"}
	if err := store.AddRelationship(ctx, rel); err != nil {
		t.Fatalf("AddRelationship failed: %v", err)
	}
	fromB, err := store.ListRelationships(ctx, b.ID)
	if err != nil {
		t.Fatalf("ListRelationships failed: %v", err)
	}
	if len(fromB) != 1 || fromB[0].RelatedContactID != a.ID || fromB[0].RelatedName != "Ada Lovelace" {
		t.Fatalf("unexpected relationships: %+v", fromB)
	}

	// Deleting a contact cascades to its tags, notes and relationships.
	if _, err := store.DeleteContact(ctx, a.ID); err != nil {
		t.Fatalf("DeleteContact failed: %v", err)
	}
	fromB, err = store.ListRelationships(ctx, b.ID)
	if err != nil || len(fromB) != 0 {
		t.Fatalf("expected cascade, got %+v err=%v", fromB, err)
	}
	all, err := store.ListTags(ctx)
	if err != nil || len(all) != 1 || all[0].Contacts != 0 {
		t.Fatalf("unexpected tags after delete: %+v err=%v", all, err)
	}
}

func TestSQLiteStoreExecuteSQL(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	mustCreateContact(t, store, "Ada", "Lovelace")

	res, err := store.ExecuteSQL(ctx, "SELECT first_name, last_name FROM contacts", true)
	if err != nil {
		t.Fatalf("ExecuteSQL failed: %v", err)
	}
	if res.RowCount != 1 || res.Rows[0][0] != "Ada" {
		t.Fatalf("unexpected result: %+v", res)
	}

	res, err = store.ExecuteSQL(ctx, "UPDATE contacts SET company = 'Analytical Engines'", false)
	if err != nil {
		t.Fatalf("ExecuteSQL failed: %v", err)
	}
	if res.RowsAffected != 1 {
		t.Fatalf("expected 1 row affected, got %d", res.RowsAffected)
	}

	// A second statement fails the whole call and nothing runs.
	if _, err := store.ExecuteSQL(ctx, "DELETE FROM notes; DELETE FROM contacts", false); err == nil {
		t.Fatalf("expected multi-statement query to fail")
	}
	contacts, err := store.SearchContacts(ctx, "", 0)
	if err != nil || len(contacts) != 1 {
		t.Fatalf("expected contacts to be untouched, got %d contacts err=%v", len(contacts), err)
	}

	if _, err := store.ExecuteSQL(ctx, "UPDATE contacts SET company = 'A;B';", false); err != nil {
		t.Fatalf("ExecuteSQL with trailing semicolon failed: %v", err)
	}
}

func TestSQLiteStoreSessionAndMessages(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	session := &domain.Session{
		SessionID: "s1",
		UserID:    "u1",
		CreatedAt: time.Now(),
		Metadata:  json.RawMessage(`{"client":"cli"}`),
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	gotSession, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if gotSession == nil || gotSession.UserID != "u1" {
		t.Fatalf("unexpected session: %+v", gotSession)
	}

	msgs := []domain.ConversationMessage{
		{Role: domain.RoleUser, Content: "tag ada as math"},
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCallRequest{{ID: "c1", Name: "add_tag_to_contact", Arguments: map[string]interface{}{"contact_id": float64(1)}}}},
		{Role: domain.RoleTool, Content: `{"success":true}`, ToolCallID: "c1", ToolName: "add_tag_to_contact"},
		{Role: domain.RoleAssistant, Content: "done"},
	}
	for i, m := range msgs {
		if err := store.CreateMessage(ctx, &domain.Message{
			MessageID: fmt.Sprintf("m%d", i),
			SessionID: "s1",
			Message:   m,
			CreatedAt: time.Now(),
		}); err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
	}

	latest, err := store.GetMessages(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(latest) != 2 || latest[0].Message.Role != domain.RoleTool || latest[1].Message.Content != "done" {
		t.Fatalf("unexpected messages: %+v", latest)
	}
	if latest[0].Message.ToolCallID != "c1" {
		t.Fatalf("expected tool call id to round-trip")
	}

	all, err := store.GetMessages(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(all) != 4 || len(all[1].Message.ToolCalls) != 1 || all[1].Message.ToolCalls[0].Name != "add_tag_to_contact" {
		t.Fatalf("unexpected transcript: %+v", all)
	}
}

func TestSQLiteStoreToolCalls(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	backupID := int64(4)
	records := []*domain.ToolCallRecord{
		{ToolCallID: "tc_1", SessionID: "s1", ToolName: "search_contacts", Classification: domain.ClassificationRead, Success: true, Message: "ok", CreatedAt: time.Now().Add(-time.Second)},
		{ToolCallID: "tc_2", SessionID: "s1", ToolName: "add_tag_to_contact", Classification: domain.ClassificationWrite, Args: json.RawMessage(`{"contact_id":1}`), Success: true, Message: "ok", BackupID: &backupID, CreatedAt: time.Now()},
		{ToolCallID: "tc_3", SessionID: "s2", ToolName: "execute_sql", Success: false, ErrorKind: domain.ErrorKindConfirmationRequired, Message: "confirm", CreatedAt: time.Now()},
	}
	for _, r := range records {
		if err := store.CreateToolCall(ctx, r); err != nil {
			t.Fatalf("CreateToolCall failed: %v", err)
		}
	}

	got, err := store.ListToolCalls(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("ListToolCalls failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ToolCallID != "tc_2" || got[0].BackupID == nil || *got[0].BackupID != 4 {
		t.Fatalf("unexpected newest record: %+v", got[0])
	}
	if got[1].BackupID != nil {
		t.Fatalf("expected read call without backup id")
	}
}
