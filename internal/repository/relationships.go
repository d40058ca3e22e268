package store

import (
	"context"
	"time"

	"github.com/xiaot623/rolo/internal/domain"
)

// AddRelationship links two contacts and sets the relationship ID.
func (s *SQLiteStore) AddRelationship(ctx context.Context, rel *domain.Relationship) error {
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO relationships (contact_id, related_contact_id, relationship_type, created_at) VALUES (?, ?, ?, ?)`,
		rel.ContactID, rel.RelatedContactID, rel.Type, rel.CreatedAt)
	if err != nil {
		return err
	}
	rel.ID, err = res.LastInsertId()
	return err
}

// ListRelationships returns the relationships a contact takes part in, in
// either direction.
func (s *SQLiteStore) ListRelationships(ctx context.Context, contactID int64) ([]domain.Relationship, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.contact_id, r.related_contact_id, r.relationship_type, r.created_at,
		        TRIM(c.first_name || ' ' || c.last_name)
		 FROM relationships r JOIN contacts c ON c.id = r.related_contact_id
		 WHERE r.contact_id = ?
		 UNION ALL
		 SELECT r.id, r.related_contact_id, r.contact_id, r.relationship_type, r.created_at,
		        TRIM(c.first_name || ' ' || c.last_name)
		 FROM relationships r JOIN contacts c ON c.id = r.contact_id
		 WHERE r.related_contact_id = ?
		 ORDER BY 1`, contactID, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rels := []domain.Relationship{}
	for rows.Next() {
		var r domain.Relationship
		if err := rows.Scan(&r.ID, &r.ContactID, &r.RelatedContactID, &r.Type, &r.CreatedAt, &r.RelatedName); err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// DeleteRelationship removes a relationship.
func (s *SQLiteStore) DeleteRelationship(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM relationships WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
