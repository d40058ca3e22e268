package tools

import (
	"context"
	"fmt"

	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/internal/repository"
)

// Backups is the part of the backup store exposed as tools.
type Backups interface {
	ListBackups(ctx context.Context) ([]domain.Backup, error)
	Restore(ctx context.Context, id int64) error
}

const defaultSearchLimit = 20

type catalog struct {
	contacts store.ContactStore
	backups  Backups
}

// RegisterBuiltins registers the contact manager tools.
func RegisterBuiltins(r *Registry, contacts store.ContactStore, backups Backups) error {
	c := &catalog{contacts: contacts, backups: backups}
	for _, t := range c.tools() {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func (c *catalog) tools() []Tool {
	contactID := domain.Property{Type: "integer", Description: "ID of the contact"}
	confirm := domain.Property{Type: "boolean", Description: "Set to true only after the user explicitly confirmed", Default: false}

	return []Tool{
		// Read
		{
			Name:           "search_contacts",
			Description:    "Search contacts by name, nickname, email or company. Use \"*\" to list everyone.",
			Classification: domain.ClassificationRead,
			Parameters: object(map[string]domain.Property{
				"query": {Type: "string", Description: "Text to search for; \"*\" matches every contact", Default: "*"},
				"limit": {Type: "integer", Description: "Maximum number of contacts to return", Default: defaultSearchLimit},
			}),
			Handler: Typed(c.searchContacts),
		},
		{
			Name:           "get_contact",
			Description:    "Get a contact with its tags, notes and relationships.",
			Classification: domain.ClassificationRead,
			Parameters:     object(map[string]domain.Property{"contact_id": contactID}, "contact_id"),
			Handler:        Typed(c.getContact),
		},
		{
			Name:           "list_tags",
			Description:    "List all tags and how many contacts carry each.",
			Classification: domain.ClassificationRead,
			Parameters:     object(nil),
			Handler:        Typed(c.listTags),
		},
		{
			Name:           "list_notes",
			Description:    "List the notes of a contact.",
			Classification: domain.ClassificationRead,
			Parameters:     object(map[string]domain.Property{"contact_id": contactID}, "contact_id"),
			Handler:        Typed(c.listNotes),
		},
		{
			Name:           "list_relationships",
			Description:    "List the relationships of a contact.",
			Classification: domain.ClassificationRead,
			Parameters:     object(map[string]domain.Property{"contact_id": contactID}, "contact_id"),
			Handler:        Typed(c.listRelationships),
		},
		{
			Name:           "list_backups",
			Description:    "List database backups, oldest first.",
			Classification: domain.ClassificationRead,
			Parameters:     object(nil),
			Handler:        Typed(c.listBackups),
		},

		// Write
		{
			Name:           "create_contact",
			Description:    "Create a new contact.",
			Classification: domain.ClassificationWrite,
			Parameters:     object(contactFields(), "first_name"),
			Handler:        Typed(c.createContact),
		},
		{
			Name:           "update_contact",
			Description:    "Update fields of an existing contact. Only the given fields change.",
			Classification: domain.ClassificationWrite,
			Parameters:     object(withContactID(contactFields(), contactID), "contact_id"),
			Handler:        Typed(c.updateContact),
		},
		{
			Name:           "add_tag_to_contact",
			Description:    "Attach a tag to a contact, creating the tag if needed.",
			Classification: domain.ClassificationWrite,
			Parameters: object(map[string]domain.Property{
				"contact_id": contactID,
				"tag_name":   {Type: "string", Description: "Tag to attach"},
			}, "contact_id", "tag_name"),
			Handler: Typed(c.addTag),
		},
		{
			Name:           "remove_tag_from_contact",
			Description:    "Detach a tag from a contact.",
			Classification: domain.ClassificationWrite,
			Parameters: object(map[string]domain.Property{
				"contact_id": contactID,
				"tag_name":   {Type: "string", Description: "Tag to detach"},
			}, "contact_id", "tag_name"),
			Handler: Typed(c.removeTag),
		},
		{
			Name:           "add_note",
			Description:    "Add a note to a contact.",
			Classification: domain.ClassificationWrite,
			Parameters: object(map[string]domain.Property{
				"contact_id": contactID,
				"content":    {Type: "string", Description: "Text of the note"},
			}, "contact_id", "content"),
			Handler: Typed(c.addNote),
		},
		{
			Name:           "add_relationship",
			Description:    "Link two contacts by ID, e.g. as spouse, colleague or friend.",
			Classification: domain.ClassificationWrite,
			Parameters: object(map[string]domain.Property{
				"contact_id":         contactID,
				"related_contact_id": {Type: "integer", Description: "ID of the other contact"},
				"relationship_type":  {Type: "string", Description: "Kind of relationship"},
			}, "contact_id", "related_contact_id", "relationship_type"),
			Handler: Typed(c.addRelationship),
		},
		{
			Name:           "add_relationship_by_name",
			Description:    "Link two contacts by name. Fails with AMBIGUOUS_MATCH if a name matches more than one contact.",
			Classification: domain.ClassificationWrite,
			Parameters: object(map[string]domain.Property{
				"contact_name":      {Type: "string", Description: "Name of the first contact"},
				"related_name":      {Type: "string", Description: "Name of the other contact"},
				"relationship_type": {Type: "string", Description: "Kind of relationship"},
			}, "contact_name", "related_name", "relationship_type"),
			Handler: Typed(c.addRelationshipByName),
		},

		// Destructive
		{
			Name:           "delete_contact",
			Description:    "Delete a contact with its notes, tags and relationships.",
			Classification: domain.ClassificationDestructive,
			Parameters:     object(map[string]domain.Property{"contact_id": contactID, ArgConfirm: confirm}, "contact_id"),
			Handler:        Typed(c.deleteContact),
		},
		{
			Name:           "delete_note",
			Description:    "Delete a note.",
			Classification: domain.ClassificationDestructive,
			Parameters: object(map[string]domain.Property{
				"note_id":  {Type: "integer", Description: "ID of the note"},
				ArgConfirm: confirm,
			}, "note_id"),
			Handler: Typed(c.deleteNote),
		},
		{
			Name:           "delete_tag",
			Description:    "Delete a tag and remove it from every contact.",
			Classification: domain.ClassificationDestructive,
			Parameters: object(map[string]domain.Property{
				"tag_name": {Type: "string", Description: "Tag to delete"},
				ArgConfirm: confirm,
			}, "tag_name"),
			Handler: Typed(c.deleteTag),
		},
		{
			Name:           "delete_relationship",
			Description:    "Delete a relationship.",
			Classification: domain.ClassificationDestructive,
			Parameters: object(map[string]domain.Property{
				"relationship_id": {Type: "integer", Description: "ID of the relationship"},
				ArgConfirm:        confirm,
			}, "relationship_id"),
			Handler: Typed(c.deleteRelationship),
		},
		{
			Name:           "restore_backup",
			Description:    "Replace the database with a backup. The current state is backed up first.",
			Classification: domain.ClassificationDestructive,
			Parameters: object(map[string]domain.Property{
				"backup_id": {Type: "integer", Description: "ID of the backup to restore"},
				ArgConfirm:  confirm,
			}, "backup_id"),
			Handler: Typed(c.restoreBackup),
		},

		// SQL
		{
			Name: "execute_sql",
			Description: "Run a single SQL statement against the contact database. " +
				"Always requires confirm=true, which you may only set after the user approved the exact statement.",
			Classification: domain.ClassificationSQL,
			Parameters: object(map[string]domain.Property{
				ArgSQL:     {Type: "string", Description: "One SQL statement without comments"},
				ArgConfirm: confirm,
			}, ArgSQL),
			Handler: Typed(c.executeSQL),
		},
	}
}

func object(props map[string]domain.Property, required ...string) domain.ParameterSchema {
	if props == nil {
		props = map[string]domain.Property{}
	}
	if required == nil {
		required = []string{}
	}
	return domain.ParameterSchema{Type: "object", Properties: props, Required: required}
}

func contactFields() map[string]domain.Property {
	return map[string]domain.Property{
		"first_name": {Type: "string", Description: "First name"},
		"last_name":  {Type: "string", Description: "Last name"},
		"nickname":   {Type: "string", Description: "Nickname"},
		"email":      {Type: "string", Description: "Email address"},
		"phone":      {Type: "string", Description: "Phone number"},
		"company":    {Type: "string", Description: "Company or organisation"},
		"birthday":   {Type: "string", Description: "Birthday as YYYY-MM-DD"},
	}
}

func withContactID(props map[string]domain.Property, id domain.Property) map[string]domain.Property {
	props["contact_id"] = id
	return props
}

// requireContact loads a contact or reports NOT_FOUND.
func (c *catalog) requireContact(ctx context.Context, id int64) (*domain.Contact, error) {
	contact, err := c.contacts.GetContact(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact %d: %w", id, err)
	}
	if contact == nil {
		return nil, domain.NotFoundError("contact %d not found", id)
	}
	return contact, nil
}

// resolveContact finds exactly one contact by name. Several matches are
// reported with their candidates instead of picking one.
func (c *catalog) resolveContact(ctx context.Context, name string) (*domain.Contact, error) {
	matches, err := c.contacts.FindContactsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %q: %w", name, err)
	}
	switch len(matches) {
	case 0:
		return nil, domain.NotFoundError("no contact matches %q", name)
	case 1:
		return &matches[0], nil
	}
	candidates := make([]string, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, fmt.Sprintf("%s (id %d)", m.DisplayName(), m.ID))
	}
	return nil, domain.AmbiguousMatchError(name, candidates)
}
