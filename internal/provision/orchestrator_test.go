package provision

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medienwerk/credsheet/internal/contextbuild"
	"github.com/medienwerk/credsheet/internal/models"
	"github.com/medienwerk/credsheet/internal/render"
	"github.com/medienwerk/credsheet/internal/vault/vaulttest"
)

const externalStructureJSON = `{
  "root_folder": "${customer_name}",
  "subfolders": ["mail", "web"],
  "records": [
    {
      "type": "mailbox",
      "title": "Mailbox ${customer_email}",
      "folder": "mail",
      "fields": {"email": "${customer_email}", "password": "${generated}"}
    },
    {
      "type": "webmail",
      "title": "Webmail",
      "folder": "mail",
      "fields": {"url": "https://webmail.${customer_name}"}
    },
    {
      "type": "website-login",
      "title": "Website",
      "folder": "web",
      "fields": {"login": "admin", "password": "${generated}", "url": "https://${customer_name}/admin"}
    }
  ]
}`

const documentTemplate = "Sheet for {{.customer_name}}\n" +
	"Mail: {{.primary_email}} / {{.primary_email_password}}\n" +
	"Webmail: {{.webmail_url}}\n" +
	"Support: {{.support_email}}"

// stubConverter marks the document as converted without an external
// process.
type stubConverter struct {
	err error
}

func (c stubConverter) ConvertToPDF(_ context.Context, document []byte) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	return append([]byte("%PDF|"), document...), nil
}

type testEnv struct {
	store *vaulttest.Store
	orch  *Orchestrator
}

func newTestEnv(t *testing.T, structureJSON string) *testEnv {
	t.Helper()
	store := vaulttest.NewStore()
	target := store.SeedFolder("customers", "")

	structureRec := store.SeedRecord(models.VaultRecord{
		Type: models.Document, Title: "customer structure", FolderUID: target.UID,
		Notes: structureJSON,
	})
	templateRec := store.SeedRecord(models.VaultRecord{
		Type: models.Document, Title: "sheet template", FolderUID: target.UID,
		Fields: []models.Field{{Name: "filename", Value: "template.docx"}},
	})
	require.NoError(t, store.AttachFile(context.Background(), templateRec.UID, "template.docx", []byte(documentTemplate)))

	builder := contextbuild.NewBuilder(store, "support@medienwerk.test", zap.NewNop())
	orch := NewOrchestrator(store, builder, render.NewRenderer(), stubConverter{}, Config{
		StructureRecordUID: structureRec.UID,
		TemplateRecordUID:  templateRec.UID,
		TargetFolder:       "customers",
		ShareTTL:           7 * 24 * time.Hour,
	}, zap.NewNop())

	return &testEnv{store: store, orch: orch}
}

func externalCustomer() models.CustomerSpec {
	return models.CustomerSpec{
		Name:         "acme.test",
		PrimaryEmail: "info@acme.test",
		Category:     models.CategoryExternal,
	}
}

func TestProcessCustomer_Commits(t *testing.T) {
	env := newTestEnv(t, externalStructureJSON)
	ctx := context.Background()

	result := env.orch.ProcessCustomer(ctx, externalCustomer())
	require.NoError(t, result.Err)
	assert.Equal(t, models.StateCommitted, result.State)

	require.NotNil(t, result.Share)
	assert.NotEmpty(t, result.Share.Token)
	assert.True(t, result.Share.ExpiresAt.After(time.Now()))

	// The customer hierarchy exists in the vault.
	rootUID, err := env.store.Resolve(ctx, "acme.test")
	require.NoError(t, err)
	records, err := env.store.ListRecords(ctx, rootUID, true)
	require.NoError(t, err)
	// Three credential records plus the uploaded sheet record.
	assert.Len(t, records, 4)

	// The share targets the sheet record, whose attachment carries the
	// rendered credential values.
	sheet := env.store.Attachment(result.Share.RecordUID, "acme.test_Credentials.pdf")
	require.NotNil(t, sheet)
	assert.Contains(t, string(sheet), "info@acme.test")
	assert.Contains(t, string(sheet), "https://webmail.acme.test")
	assert.Contains(t, string(sheet), "support@medienwerk.test")
}

func TestProcessCustomer_RecordFailureRollsBack(t *testing.T) {
	env := newTestEnv(t, externalStructureJSON)
	ctx := context.Background()

	created := 0
	env.store.CreateRecordHook = func(*models.VaultRecord) error {
		created++
		if created == 2 {
			return errors.New("record service unavailable")
		}
		return nil
	}

	result := env.orch.ProcessCustomer(ctx, externalCustomer())
	assert.Equal(t, models.StateRolledBack, result.State)
	assert.Equal(t, "VaultError", result.ErrKind)

	// The first record and the folder hierarchy created before the
	// failure are gone again; only the target folder may remain.
	_, err := env.store.Resolve(ctx, "acme.test")
	assert.Error(t, err)
	targetUID, err := env.store.Resolve(ctx, "customers")
	require.NoError(t, err)
	assert.True(t, env.store.HasFolder(targetUID))
}

func TestProcessCustomer_MissingRequiredType(t *testing.T) {
	// No website-login record in the structure, but the customer is
	// external and therefore requires one.
	structure := `{
	  "root_folder": "${customer_name}",
	  "subfolders": ["mail"],
	  "records": [
	    {"type": "mailbox", "title": "Mailbox", "folder": "mail",
	     "fields": {"email": "${customer_email}", "password": "${generated}"}},
	    {"type": "webmail", "title": "Webmail", "folder": "mail",
	     "fields": {"url": "https://webmail.${customer_name}"}}
	  ]
	}`
	env := newTestEnv(t, structure)
	ctx := context.Background()

	result := env.orch.ProcessCustomer(ctx, externalCustomer())
	assert.Equal(t, models.StateRolledBack, result.State)
	assert.Equal(t, "MissingRecordTypeError", result.ErrKind)

	// Everything provisioned before the context build was rolled back.
	_, err := env.store.Resolve(ctx, "acme.test")
	assert.Error(t, err)
}

func TestProcessCustomer_FolderConflict(t *testing.T) {
	env := newTestEnv(t, externalStructureJSON)
	ctx := context.Background()

	targetUID, err := env.store.Resolve(ctx, "customers")
	require.NoError(t, err)
	existing := env.store.SeedFolder("acme.test", targetUID)
	occupant := env.store.SeedRecord(models.VaultRecord{
		Type: models.Mailbox, Title: "pre-existing", FolderUID: existing.UID,
		Fields: []models.Field{{Name: "email", Value: "keep@acme.test"}, {Name: "password", Value: "keep"}},
	})

	result := env.orch.ProcessCustomer(ctx, externalCustomer())
	assert.Equal(t, models.StateRolledBack, result.State)
	assert.Equal(t, "FolderConflictError", result.ErrKind)

	// The conflicting folder and its contents were never touched.
	assert.True(t, env.store.HasFolder(existing.UID))
	assert.True(t, env.store.HasRecord(occupant.UID))
}

func TestProcessCustomer_CancellationRollsBack(t *testing.T) {
	env := newTestEnv(t, externalStructureJSON)
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel mid-provisioning; the next transition boundary must notice
	// and undo what was created.
	env.store.CreateRecordHook = func(*models.VaultRecord) error {
		cancel()
		return nil
	}

	result := env.orch.ProcessCustomer(ctx, externalCustomer())
	assert.Equal(t, models.StateRolledBack, result.State)
	assert.Equal(t, "Canceled", result.ErrKind)

	_, err := env.store.Resolve(context.Background(), "acme.test")
	assert.Error(t, err, "canceled run must not leave the hierarchy behind")
}

func TestProcessCustomer_InvalidSpecSkipsVault(t *testing.T) {
	env := newTestEnv(t, externalStructureJSON)

	tests := []models.CustomerSpec{
		{Name: "", Category: models.CategoryExternal},
		{Name: "acme.test", Category: models.Category("partner")},
	}
	for _, customer := range tests {
		t.Run(fmt.Sprintf("%s/%s", customer.Name, customer.Category), func(t *testing.T) {
			result := env.orch.ProcessCustomer(context.Background(), customer)
			assert.Equal(t, models.StateRolledBack, result.State)
			assert.Equal(t, "ValidationError", result.ErrKind)
		})
	}

	// No hierarchy appeared for the invalid specs.
	_, err := env.store.Resolve(context.Background(), "acme.test")
	assert.Error(t, err)
}

func TestProcessCustomer_ShareFailureRollsBack(t *testing.T) {
	env := newTestEnv(t, externalStructureJSON)
	env.store.ShareHook = func(string) error {
		return errors.New("share service rejected the request")
	}

	result := env.orch.ProcessCustomer(context.Background(), externalCustomer())
	assert.Equal(t, models.StateRolledBack, result.State)
	assert.Equal(t, "ShareError", result.ErrKind)

	// Even the uploaded sheet record is rolled back.
	_, err := env.store.Resolve(context.Background(), "acme.test")
	assert.Error(t, err)
}

func TestProcessCustomer_ConversionFailure(t *testing.T) {
	env := newTestEnv(t, externalStructureJSON)
	env.orch.converter = stubConverter{err: &models.ConversionError{Message: "soffice crashed"}}

	result := env.orch.ProcessCustomer(context.Background(), externalCustomer())
	assert.Equal(t, models.StateRolledBack, result.State)
	assert.Equal(t, "ConversionError", result.ErrKind)
}
