package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/xiaot623/rolo/internal/domain"
)

const contactColumns = `id, first_name, last_name, nickname, email, phone, company, birthday, created_at, updated_at`

// CreateContact inserts a contact and sets its ID.
func (s *SQLiteStore) CreateContact(ctx context.Context, contact *domain.Contact) error {
	now := time.Now().UTC()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (first_name, last_name, nickname, email, phone, company, birthday, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		contact.FirstName, contact.LastName, contact.Nickname, contact.Email, contact.Phone,
		contact.Company, contact.Birthday, contact.CreatedAt, contact.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	contact.ID = id
	return nil
}

// GetContact retrieves a contact by ID.
func (s *SQLiteStore) GetContact(ctx context.Context, id int64) (*domain.Contact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	contact, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// UpdateContact applies a patch and returns the updated contact, or nil if
// the contact does not exist.
func (s *SQLiteStore) UpdateContact(ctx context.Context, id int64, patch domain.ContactPatch) (*domain.Contact, error) {
	var sets []string
	var args []interface{}
	add := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}
	add("first_name", patch.FirstName)
	add("last_name", patch.LastName)
	add("nickname", patch.Nickname)
	add("email", patch.Email)
	add("phone", patch.Phone)
	add("company", patch.Company)
	add("birthday", patch.Birthday)

	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, time.Now().UTC(), id)
		res, err := s.db.ExecContext(ctx,
			fmt.Sprintf(`UPDATE contacts SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, nil
		}
	}
	return s.GetContact(ctx, id)
}

// DeleteContact removes a contact together with its notes, tags and
// relationships.
func (s *SQLiteStore) DeleteContact(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SearchContacts matches query against names, email and company. An empty
// query or "*" matches every contact.
func (s *SQLiteStore) SearchContacts(ctx context.Context, query string, limit int) ([]domain.Contact, error) {
	q := `SELECT ` + contactColumns + ` FROM contacts`
	var args []interface{}

	query = strings.TrimSpace(query)
	if query != "" && query != "*" {
		pattern := "%" + escapeLike(query) + "%"
		q += ` WHERE first_name LIKE ? ESCAPE '\'
			OR last_name LIKE ? ESCAPE '\'
			OR (first_name || ' ' || last_name) LIKE ? ESCAPE '\'
			OR nickname LIKE ? ESCAPE '\'
			OR email LIKE ? ESCAPE '\'
			OR company LIKE ? ESCAPE '\'`
		for i := 0; i < 6; i++ {
			args = append(args, pattern)
		}
	}
	q += ` ORDER BY last_name, first_name, id`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.queryContacts(ctx, q, args...)
}

// FindContactsByName returns every contact whose full name or nickname
// contains name.
func (s *SQLiteStore) FindContactsByName(ctx context.Context, name string) ([]domain.Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(name) + "%"
	return s.queryContacts(ctx,
		`SELECT `+contactColumns+` FROM contacts
		 WHERE (first_name || ' ' || last_name) LIKE ? ESCAPE '\'
		    OR nickname LIKE ? ESCAPE '\'
		 ORDER BY id`, pattern, pattern)
}

func (s *SQLiteStore) queryContacts(ctx context.Context, query string, args ...interface{}) ([]domain.Contact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContact(row rowScanner) (*domain.Contact, error) {
	var c domain.Contact
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Nickname, &c.Email, &c.Phone,
		&c.Company, &c.Birthday, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
