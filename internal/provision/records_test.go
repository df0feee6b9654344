package provision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medienwerk/credsheet/internal/models"
	"github.com/medienwerk/credsheet/internal/vault/vaulttest"
)

func TestCreateRecord_FieldsInSchemaOrder(t *testing.T) {
	store := vaulttest.NewStore()
	folder := store.SeedFolder("acme.test", "")
	prov := NewRecordProvisioner(store, zap.NewNop())
	tx := NewTransaction("acme", store, zap.NewNop())

	rec, err := prov.CreateRecord(context.Background(), tx, folder.UID, models.WebsiteLogin, "Website", map[string]string{
		"url":      "https://acme.test/admin",
		"password": "pw",
		"login":    "admin",
	})
	require.NoError(t, err)

	assert.Equal(t, []models.Field{
		{Name: "login", Value: "admin"},
		{Name: "password", Value: "pw"},
		{Name: "url", Value: "https://acme.test/admin"},
	}, rec.Fields)
	assert.Equal(t, []string{rec.UID}, tx.CreatedUIDs())
}

func TestCreateRecord_SchemaViolations(t *testing.T) {
	store := vaulttest.NewStore()
	folder := store.SeedFolder("acme.test", "")
	prov := NewRecordProvisioner(store, zap.NewNop())

	tests := []struct {
		name       string
		recordType models.RecordType
		fields     map[string]string
	}{
		{
			name:       "missing mandatory field",
			recordType: models.Mailbox,
			fields:     map[string]string{"email": "a@b.test"},
		},
		{
			name:       "unknown field",
			recordType: models.Webmail,
			fields:     map[string]string{"url": "https://x", "port": "443"},
		},
		{
			name:       "unknown record type",
			recordType: models.RecordType("ssh-key"),
			fields:     map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := NewTransaction("acme", store, zap.NewNop())
			_, err := prov.CreateRecord(context.Background(), tx, folder.UID, tt.recordType, "title", tt.fields)
			require.Error(t, err)
			var schemaErr *models.SchemaError
			assert.ErrorAs(t, err, &schemaErr)
			// Validation failed before any vault call: nothing to roll back.
			assert.Empty(t, tx.CreatedUIDs())
		})
	}
}

func TestCreateRecord_EmptyValuesAllowed(t *testing.T) {
	store := vaulttest.NewStore()
	folder := store.SeedFolder("acme.test", "")
	prov := NewRecordProvisioner(store, zap.NewNop())
	tx := NewTransaction("acme", store, zap.NewNop())

	rec, err := prov.CreateRecord(context.Background(), tx, folder.UID, models.Mailbox, "Mailbox", map[string]string{
		"email":    "info@acme.test",
		"password": "",
	})
	require.NoError(t, err)
	v, ok := rec.FieldValue("password")
	assert.True(t, ok)
	assert.Empty(t, v)
}
