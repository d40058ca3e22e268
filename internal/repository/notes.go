package store

import (
	"context"
	"time"

	"github.com/xiaot623/rolo/internal/domain"
)

// AddNote stores a note and sets its ID.
func (s *SQLiteStore) AddNote(ctx context.Context, note *domain.Note) error {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (contact_id, content, created_at) VALUES (?, ?, ?)`,
		note.ContactID, note.Content, note.CreatedAt)
	if err != nil {
		return err
	}
	note.ID, err = res.LastInsertId()
	return err
}

// ListNotes returns the notes of a contact, oldest first.
func (s *SQLiteStore) ListNotes(ctx context.Context, contactID int64) ([]domain.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, contact_id, content, created_at FROM notes WHERE contact_id = ? ORDER BY created_at, id`,
		contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []domain.Note{}
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.ContactID, &n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// DeleteNote removes a note.
func (s *SQLiteStore) DeleteNote(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
