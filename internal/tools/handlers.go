package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/internal/sqlguard"
)

type searchArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit" validate:"gte=0,lte=200"`
}

type contactRef struct {
	ContactID int64 `json:"contact_id" validate:"gt=0"`
}

type contactArgs struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Birthday  string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
}

type updateArgs struct {
	ContactID int64   `json:"contact_id" validate:"gt=0"`
	FirstName *string `json:"first_name" validate:"omitempty,min=1"`
	LastName  *string `json:"last_name"`
	Nickname  *string `json:"nickname"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone"`
	Company   *string `json:"company"`
	Birthday  *string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
}

func (a updateArgs) patch() domain.ContactPatch {
	return domain.ContactPatch{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Nickname:  a.Nickname,
		Email:     a.Email,
		Phone:     a.Phone,
		Company:   a.Company,
		Birthday:  a.Birthday,
	}
}

func (a updateArgs) Check() error {
	if a.patch().Empty() {
		return fmt.Errorf("no fields to update")
	}
	return nil
}

type tagArgs struct {
	ContactID int64  `json:"contact_id" validate:"gt=0"`
	TagName   string `json:"tag_name" validate:"required"`
}

func (a tagArgs) Check() error {
	if strings.TrimSpace(a.TagName) == "" {
		return fmt.Errorf("tag_name must not be blank")
	}
	return nil
}

type noteArgs struct {
	ContactID int64  `json:"contact_id" validate:"gt=0"`
	Content   string `json:"content" validate:"required"`
}

type relationshipArgs struct {
	ContactID        int64  `json:"contact_id" validate:"gt=0"`
	RelatedContactID int64  `json:"related_contact_id" validate:"gt=0"`
	RelationshipType string `json:"relationship_type" validate:"required"`
}

func (a relationshipArgs) Check() error {
	if a.ContactID == a.RelatedContactID {
		return fmt.Errorf("a contact cannot be related to itself")
	}
	return nil
}

type relationshipByNameArgs struct {
	ContactName      string `json:"contact_name" validate:"required"`
	RelatedName      string `json:"related_name" validate:"required"`
	RelationshipType string `json:"relationship_type" validate:"required"`
}

type noteRef struct {
	NoteID int64 `json:"note_id" validate:"gt=0"`
}

type tagRef struct {
	TagName string `json:"tag_name" validate:"required"`
}

type relationshipRef struct {
	RelationshipID int64 `json:"relationship_id" validate:"gt=0"`
}

type backupRef struct {
	BackupID int64 `json:"backup_id" validate:"gt=0"`
}

type sqlArgs struct {
	SQL string `json:"sql" validate:"required"`
}

type noArgs struct{}

func (c *catalog) searchContacts(ctx context.Context, args searchArgs) (interface{}, error) {
	limit := args.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}
	contacts, err := c.contacts.SearchContacts(ctx, args.Query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return contacts, nil
}

func (c *catalog) getContact(ctx context.Context, args contactRef) (interface{}, error) {
	contact, err := c.requireContact(ctx, args.ContactID)
	if err != nil {
		return nil, err
	}
	details := &domain.ContactDetails{Contact: *contact}
	if details.Tags, err = c.contacts.ListContactTags(ctx, contact.ID); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	if details.Notes, err = c.contacts.ListNotes(ctx, contact.ID); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	if details.Relationships, err = c.contacts.ListRelationships(ctx, contact.ID); err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	return details, nil
}

func (c *catalog) listTags(ctx context.Context, _ noArgs) (interface{}, error) {
	tags, err := c.contacts.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	if tags == nil {
		tags = []domain.Tag{}
	}
	return tags, nil
}

func (c *catalog) listNotes(ctx context.Context, args contactRef) (interface{}, error) {
	if _, err := c.requireContact(ctx, args.ContactID); err != nil {
		return nil, err
	}
	notes, err := c.contacts.ListNotes(ctx, args.ContactID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	return notes, nil
}

func (c *catalog) listRelationships(ctx context.Context, args contactRef) (interface{}, error) {
	if _, err := c.requireContact(ctx, args.ContactID); err != nil {
		return nil, err
	}
	rels, err := c.contacts.ListRelationships(ctx, args.ContactID)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	if rels == nil {
		rels = []domain.Relationship{}
	}
	return rels, nil
}

func (c *catalog) listBackups(ctx context.Context, _ noArgs) (interface{}, error) {
	return c.backups.ListBackups(ctx)
}

func (c *catalog) createContact(ctx context.Context, args contactArgs) (interface{}, error) {
	contact := &domain.Contact{
		FirstName: strings.TrimSpace(args.FirstName),
		LastName:  strings.TrimSpace(args.LastName),
		Nickname:  strings.TrimSpace(args.Nickname),
		Email:     strings.TrimSpace(args.Email),
		Phone:     strings.TrimSpace(args.Phone),
		Company:   strings.TrimSpace(args.Company),
		Birthday:  args.Birthday,
	}
	if err := c.contacts.CreateContact(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return contact, nil
}

func (c *catalog) updateContact(ctx context.Context, args updateArgs) (interface{}, error) {
	contact, err := c.contacts.UpdateContact(ctx, args.ContactID, args.patch())
	if err != nil {
		return nil, fmt.Errorf("failed to update contact %d: %w", args.ContactID, err)
	}
	if contact == nil {
		return nil, domain.NotFoundError("contact %d not found", args.ContactID)
	}
	return contact, nil
}

func (c *catalog) addTag(ctx context.Context, args tagArgs) (interface{}, error) {
	contact, err := c.requireContact(ctx, args.ContactID)
	if err != nil {
		return nil, err
	}
	if err := c.contacts.AddTagToContact(ctx, contact.ID, args.TagName); err != nil {
		return nil, fmt.Errorf("failed to tag contact %d: %w", contact.ID, err)
	}
	tags, err := c.contacts.ListContactTags(ctx, contact.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return map[string]interface{}{"contact_id": contact.ID, "tags": tags}, nil
}

func (c *catalog) removeTag(ctx context.Context, args tagArgs) (interface{}, error) {
	if _, err := c.requireContact(ctx, args.ContactID); err != nil {
		return nil, err
	}
	removed, err := c.contacts.RemoveTagFromContact(ctx, args.ContactID, args.TagName)
	if err != nil {
		return nil, fmt.Errorf("failed to remove tag: %w", err)
	}
	if !removed {
		return nil, domain.NotFoundError("contact %d is not tagged %q", args.ContactID, args.TagName)
	}
	return map[string]interface{}{"contact_id": args.ContactID, "removed": args.TagName}, nil
}

func (c *catalog) addNote(ctx context.Context, args noteArgs) (interface{}, error) {
	if _, err := c.requireContact(ctx, args.ContactID); err != nil {
		return nil, err
	}
	note := &domain.Note{ContactID: args.ContactID, Content: args.Content}
	if err := c.contacts.AddNote(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to add note: %w", err)
	}
	return note, nil
}

func (c *catalog) addRelationship(ctx context.Context, args relationshipArgs) (interface{}, error) {
	if _, err := c.requireContact(ctx, args.ContactID); err != nil {
		return nil, err
	}
	related, err := c.requireContact(ctx, args.RelatedContactID)
	if err != nil {
		return nil, err
	}
	return c.link(ctx, args.ContactID, related, args.RelationshipType)
}

func (c *catalog) addRelationshipByName(ctx context.Context, args relationshipByNameArgs) (interface{}, error) {
	contact, err := c.resolveContact(ctx, args.ContactName)
	if err != nil {
		return nil, err
	}
	related, err := c.resolveContact(ctx, args.RelatedName)
	if err != nil {
		return nil, err
	}
	if contact.ID == related.ID {
		return nil, domain.ValidationError("%q and %q are the same contact", args.ContactName, args.RelatedName)
	}
	return c.link(ctx, contact.ID, related, args.RelationshipType)
}

func (c *catalog) link(ctx context.Context, contactID int64, related *domain.Contact, kind string) (interface{}, error) {
	rel := &domain.Relationship{
		ContactID:        contactID,
		RelatedContactID: related.ID,
		RelatedName:      related.DisplayName(),
		Type:             strings.TrimSpace(kind),
	}
	if err := c.contacts.AddRelationship(ctx, rel); err != nil {
		return nil, fmt.Errorf("failed to add relationship: %w", err)
	}
	return rel, nil
}

func (c *catalog) deleteContact(ctx context.Context, args contactRef) (interface{}, error) {
	deleted, err := c.contacts.DeleteContact(ctx, args.ContactID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete contact %d: %w", args.ContactID, err)
	}
	if !deleted {
		return nil, domain.NotFoundError("contact %d not found", args.ContactID)
	}
	return map[string]interface{}{"deleted": true, "contact_id": args.ContactID}, nil
}

func (c *catalog) deleteNote(ctx context.Context, args noteRef) (interface{}, error) {
	deleted, err := c.contacts.DeleteNote(ctx, args.NoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete note %d: %w", args.NoteID, err)
	}
	if !deleted {
		return nil, domain.NotFoundError("note %d not found", args.NoteID)
	}
	return map[string]interface{}{"deleted": true, "note_id": args.NoteID}, nil
}

func (c *catalog) deleteTag(ctx context.Context, args tagRef) (interface{}, error) {
	deleted, err := c.contacts.DeleteTag(ctx, args.TagName)
	if err != nil {
		return nil, fmt.Errorf("failed to delete tag %q: %w", args.TagName, err)
	}
	if !deleted {
		return nil, domain.NotFoundError("tag %q not found", args.TagName)
	}
	return map[string]interface{}{"deleted": true, "tag_name": args.TagName}, nil
}

func (c *catalog) deleteRelationship(ctx context.Context, args relationshipRef) (interface{}, error) {
	deleted, err := c.contacts.DeleteRelationship(ctx, args.RelationshipID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete relationship %d: %w", args.RelationshipID, err)
	}
	if !deleted {
		return nil, domain.NotFoundError("relationship %d not found", args.RelationshipID)
	}
	return map[string]interface{}{"deleted": true, "relationship_id": args.RelationshipID}, nil
}

func (c *catalog) restoreBackup(ctx context.Context, args backupRef) (interface{}, error) {
	if err := c.backups.Restore(ctx, args.BackupID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"restored": args.BackupID}, nil
}

func (c *catalog) executeSQL(ctx context.Context, args sqlArgs) (interface{}, error) {
	return c.contacts.ExecuteSQL(ctx, args.SQL, sqlguard.IsReadOnly(args.SQL))
}
