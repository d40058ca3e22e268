package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/tests/helpers"
)

func newTestCatalog(t *testing.T) (*Registry, *helpers.Fixture) {
	t.Helper()
	fx := helpers.NewFixture(t)
	r := NewRegistry(nil, nil)
	require.NoError(t, RegisterBuiltins(r, fx.Store, fx.Backups))
	require.NoError(t, r.Freeze())
	return r, fx
}

// run normalizes, binds and calls a tool without any safety routing.
func run(t *testing.T, r *Registry, name string, args map[string]interface{}) (interface{}, error) {
	t.Helper()
	tool, ok := r.Lookup(name)
	require.True(t, ok, name)
	normalized, err := Normalize(tool.Parameters, args)
	if err != nil {
		return nil, err
	}
	call, err := tool.Handler.Bind(normalized)
	if err != nil {
		return nil, err
	}
	return call(context.Background())
}

func TestBuiltinCatalog(t *testing.T) {
	r, _ := newTestCatalog(t)

	classes := map[string]domain.Classification{}
	for _, tool := range r.Enabled() {
		classes[tool.Name] = tool.Classification
	}
	assert.Equal(t, domain.ClassificationRead, classes["search_contacts"])
	assert.Equal(t, domain.ClassificationWrite, classes["add_tag_to_contact"])
	assert.Equal(t, domain.ClassificationDestructive, classes["delete_contact"])
	assert.Equal(t, domain.ClassificationSQL, classes["execute_sql"])

	search, _ := r.Lookup("search_contacts")
	assert.Equal(t, "*", search.Parameters.Properties["query"].Default)
}

func TestBuiltinSearchDefaultsToEverything(t *testing.T) {
	r, fx := newTestCatalog(t)
	helpers.SeedContacts(t, fx.Store, [2]string{"Ada", "Lovelace"}, [2]string{"Alan", "Turing"})

	for _, args := range []map[string]interface{}{{}, {"query": ""}, {"query": nil}} {
		got, err := run(t, r, "search_contacts", args)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	}
}

func TestBuiltinContactLifecycle(t *testing.T) {
	r, _ := newTestCatalog(t)

	created, err := run(t, r, "create_contact", map[string]interface{}{"first_name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)
	id := created.(*domain.Contact).ID

	_, err = run(t, r, "update_contact", map[string]interface{}{"contact_id": float64(id)})
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindValidation, domain.AsToolError(err).Kind)

	updated, err := run(t, r, "update_contact", map[string]interface{}{"contact_id": float64(id), "company": "Analytical"})
	require.NoError(t, err)
	assert.Equal(t, "Analytical", updated.(*domain.Contact).Company)

	_, err = run(t, r, "add_tag_to_contact", map[string]interface{}{"contact_id": float64(id), "tag_name": "math"})
	require.NoError(t, err)
	_, err = run(t, r, "add_note", map[string]interface{}{"contact_id": float64(id), "content": "first programmer"})
	require.NoError(t, err)

	details, err := run(t, r, "get_contact", map[string]interface{}{"contact_id": float64(id)})
	require.NoError(t, err)
	d := details.(*domain.ContactDetails)
	assert.Equal(t, []string{"math"}, d.Tags)
	assert.Len(t, d.Notes, 1)

	_, err = run(t, r, "remove_tag_from_contact", map[string]interface{}{"contact_id": float64(id), "tag_name": "physics"})
	assert.Equal(t, domain.ErrorKindNotFound, domain.AsToolError(err).Kind)

	_, err = run(t, r, "delete_contact", map[string]interface{}{"contact_id": float64(id)})
	require.NoError(t, err)
	_, err = run(t, r, "get_contact", map[string]interface{}{"contact_id": float64(id)})
	assert.Equal(t, domain.ErrorKindNotFound, domain.AsToolError(err).Kind)
}

func TestBuiltinRelationshipByNameNeverGuesses(t *testing.T) {
	r, fx := newTestCatalog(t)
	helpers.SeedContacts(t, fx.Store,
		[2]string{"John", "Smith"},
		[2]string{"Johnny", "Appleseed"},
		[2]string{"Mary", "Jones"},
	)

	_, err := run(t, r, "add_relationship_by_name", map[string]interface{}{
		"contact_name":      "john",
		"related_name":      "mary",
		"relationship_type": "friend",
	})
	require.Error(t, err)
	te := domain.AsToolError(err)
	assert.Equal(t, domain.ErrorKindAmbiguousMatch, te.Kind)
	assert.Len(t, te.Candidates, 2)

	_, err = run(t, r, "add_relationship_by_name", map[string]interface{}{
		"contact_name":      "nobody",
		"related_name":      "mary",
		"relationship_type": "friend",
	})
	assert.Equal(t, domain.ErrorKindNotFound, domain.AsToolError(err).Kind)

	got, err := run(t, r, "add_relationship_by_name", map[string]interface{}{
		"contact_name":      "john smith",
		"related_name":      "mary",
		"relationship_type": "friend",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mary Jones", got.(*domain.Relationship).RelatedName)

	rels, err := fx.Store.ListRelationships(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, rels, 1)
}

func TestBuiltinRestoreBackup(t *testing.T) {
	r, fx := newTestCatalog(t)
	ctx := context.Background()
	helpers.SeedContacts(t, fx.Store, [2]string{"Ada", "Lovelace"})

	b, err := fx.Backups.CreateBackup(ctx, "manual", false)
	require.NoError(t, err)
	helpers.SeedContacts(t, fx.Store, [2]string{"Alan", "Turing"})

	_, err = run(t, r, "restore_backup", map[string]interface{}{"backup_id": float64(b.ID), "confirm": true})
	require.NoError(t, err)

	contacts, err := fx.Store.SearchContacts(ctx, "*", 0)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)

	_, err = run(t, r, "restore_backup", map[string]interface{}{"backup_id": float64(99)})
	assert.Equal(t, domain.ErrorKindNotFound, domain.AsToolError(err).Kind)
}
