// Package store defines the storage interface and the SQLite implementation.
package store

import (
	"context"

	"github.com/xiaot623/rolo/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	ContactStore
	ConversationStore

	// Lifecycle
	Close() error
}

// ContactStore holds the address book.
type ContactStore interface {
	// Contact operations
	CreateContact(ctx context.Context, contact *domain.Contact) error
	GetContact(ctx context.Context, id int64) (*domain.Contact, error)
	UpdateContact(ctx context.Context, id int64, patch domain.ContactPatch) (*domain.Contact, error)
	DeleteContact(ctx context.Context, id int64) (bool, error)
	SearchContacts(ctx context.Context, query string, limit int) ([]domain.Contact, error)
	FindContactsByName(ctx context.Context, name string) ([]domain.Contact, error)

	// Tag operations
	AddTagToContact(ctx context.Context, contactID int64, tagName string) error
	RemoveTagFromContact(ctx context.Context, contactID int64, tagName string) (bool, error)
	ListTags(ctx context.Context) ([]domain.Tag, error)
	ListContactTags(ctx context.Context, contactID int64) ([]string, error)
	DeleteTag(ctx context.Context, name string) (bool, error)

	// Note operations
	AddNote(ctx context.Context, note *domain.Note) error
	ListNotes(ctx context.Context, contactID int64) ([]domain.Note, error)
	DeleteNote(ctx context.Context, id int64) (bool, error)

	// Relationship operations
	AddRelationship(ctx context.Context, rel *domain.Relationship) error
	ListRelationships(ctx context.Context, contactID int64) ([]domain.Relationship, error)
	DeleteRelationship(ctx context.Context, id int64) (bool, error)

	// Raw SQL
	ExecuteSQL(ctx context.Context, query string, readOnly bool) (*SQLResult, error)
}

// ConversationStore persists chat sessions and the tool call audit trail.
type ConversationStore interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	GetOrCreateSession(ctx context.Context, sessionID, userID string) (*domain.Session, error)

	// Message operations
	CreateMessage(ctx context.Context, message *domain.Message) error
	GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)

	// ToolCall operations
	CreateToolCall(ctx context.Context, record *domain.ToolCallRecord) error
	ListToolCalls(ctx context.Context, sessionID string, limit int) ([]domain.ToolCallRecord, error)
}

// BackupStore creates and lists recoverable snapshots of the contact database.
// CreateBackup must be atomic and return monotonically increasing ids.
type BackupStore interface {
	CreateBackup(ctx context.Context, comment string, isAuto bool) (*domain.Backup, error)
	ListBackups(ctx context.Context) ([]domain.Backup, error)
	DeleteBackup(ctx context.Context, id int64) error
}

// SQLResult is the outcome of a raw SQL statement.
type SQLResult struct {
	Columns      []string        `json:"columns,omitempty"`
	Rows         [][]interface{} `json:"rows,omitempty"`
	RowCount     int             `json:"row_count"`
	Truncated    bool            `json:"truncated,omitempty"`
	RowsAffected int64           `json:"rows_affected,omitempty"`
	LastInsertID int64           `json:"last_insert_id,omitempty"`
}
