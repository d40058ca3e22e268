package store

import (
	"context"
	"strings"

	"github.com/xiaot623/rolo/internal/domain"
)

// AddTagToContact attaches a tag to a contact, creating the tag if needed.
// Attaching a tag twice is a no-op.
func (s *SQLiteStore) AddTagToContact(ctx context.Context, contactID int64, tagName string) error {
	tagName = strings.TrimSpace(tagName)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, tagName); err != nil {
		return err
	}
	var tagID int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, tagName).Scan(&tagID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO contact_tags (contact_id, tag_id) VALUES (?, ?)`, contactID, tagID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveTagFromContact detaches a tag. It reports false if the contact did
// not carry the tag.
func (s *SQLiteStore) RemoveTagFromContact(ctx context.Context, contactID int64, tagName string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM contact_tags
		 WHERE contact_id = ? AND tag_id = (SELECT id FROM tags WHERE name = ?)`,
		contactID, strings.TrimSpace(tagName))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListTags lists all tags with the number of contacts carrying each.
func (s *SQLiteStore) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name, COUNT(ct.contact_id)
		 FROM tags t LEFT JOIN contact_tags ct ON ct.tag_id = t.id
		 GROUP BY t.id, t.name
		 ORDER BY t.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Contacts); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ListContactTags returns the tag names of a contact.
func (s *SQLiteStore) ListContactTags(ctx context.Context, contactID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.name FROM tags t JOIN contact_tags ct ON ct.tag_id = t.id
		 WHERE ct.contact_id = ? ORDER BY t.name`, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// DeleteTag removes a tag from every contact and deletes it.
func (s *SQLiteStore) DeleteTag(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
