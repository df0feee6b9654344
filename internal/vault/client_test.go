package vault

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medienwerk/credsheet/internal/models"
	"github.com/medienwerk/credsheet/internal/vault/vaulttest"
)

func newTestClient(t *testing.T) (*Client, *vaulttest.Store) {
	t.Helper()
	store := vaulttest.NewStore()
	srv := httptest.NewServer(vaulttest.NewServer(store, "ops@example.test", "master-pw").Handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client(), zap.NewNop()), store
}

func TestAuthenticate(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	err := client.Authenticate(ctx, "ops@example.test", "master-pw")
	require.NoError(t, err)

	session := client.Session()
	require.NotNil(t, session)
	assert.Equal(t, "ops@example.test", session.User)
	assert.NotEmpty(t, session.Token)
	// Expiry comes from the JWT exp claim issued by the server.
	assert.True(t, session.ExpiresAt.After(time.Now()))
	assert.False(t, session.Expired())
}

func TestSessionExpired(t *testing.T) {
	client, _ := newTestClient(t)

	// No session yet: the client is unusable.
	assert.True(t, client.SessionExpired())

	require.NoError(t, client.Authenticate(context.Background(), "ops@example.test", "master-pw"))
	assert.False(t, client.SessionExpired())

	// A token whose exp claim has passed reports expired again.
	client.session.ExpiresAt = time.Now().Add(-time.Minute)
	assert.True(t, client.SessionExpired())
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	client, _ := newTestClient(t)

	err := client.Authenticate(context.Background(), "ops@example.test", "wrong")
	require.Error(t, err)
	assert.True(t, models.IsAuthentication(err))
	assert.Nil(t, client.Session())
}

func TestRequestsWithoutSession(t *testing.T) {
	client, store := newTestClient(t)
	folder := store.SeedFolder("customers", "")

	_, err := client.ListFolders(context.Background(), folder.UID)
	require.Error(t, err)
	assert.True(t, models.IsAuthentication(err))
}

func TestFolderAndRecordLifecycle(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.Authenticate(ctx, "ops@example.test", "master-pw"))

	target := store.SeedFolder("customers", "")

	root, err := client.CreateFolder(ctx, "acme", target.UID)
	require.NoError(t, err)
	assert.NotEmpty(t, root.UID)
	assert.Equal(t, target.UID, root.ParentUID)

	rec, err := client.CreateRecord(ctx, &models.VaultRecord{
		Type:      models.Mailbox,
		Title:     "mailbox info@acme",
		FolderUID: root.UID,
		Fields: []models.Field{
			{Name: "email", Value: "info@acme.test"},
			{Name: "password", Value: "s3cret"},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.UID)

	got, err := client.GetRecord(ctx, rec.UID)
	require.NoError(t, err)
	assert.Equal(t, rec.Fields, got.Fields)

	records, err := client.ListRecords(ctx, root.UID, false)
	require.NoError(t, err)
	require.Len(t, records, 1)

	uid, err := client.Resolve(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, root.UID, uid)
}

func TestDeleteRecord_Idempotent(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.Authenticate(ctx, "ops@example.test", "master-pw"))

	folder := store.SeedFolder("acme", "")
	rec := store.SeedRecord(models.VaultRecord{Type: models.Webmail, Title: "webmail", FolderUID: folder.UID})

	require.NoError(t, client.DeleteRecord(ctx, rec.UID))
	assert.False(t, store.HasRecord(rec.UID))

	// Second delete of the same UID must observe the same vault state.
	require.NoError(t, client.DeleteRecord(ctx, rec.UID))
	assert.False(t, store.HasRecord(rec.UID))
}

func TestAttachAndDownload(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.Authenticate(ctx, "ops@example.test", "master-pw"))

	folder := store.SeedFolder("acme", "")
	rec := store.SeedRecord(models.VaultRecord{Type: models.Mailbox, Title: "sheet", FolderUID: folder.UID})

	pdf := []byte("%PDF-1.7 fake content")
	require.NoError(t, client.AttachFile(ctx, rec.UID, "acme_credentials.pdf", pdf))

	got, err := client.DownloadFile(ctx, rec.UID, "acme_credentials.pdf")
	require.NoError(t, err)
	assert.Equal(t, pdf, got)
}

func TestAttachFile_Rejected(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.Authenticate(ctx, "ops@example.test", "master-pw"))

	err := client.AttachFile(ctx, "no-such-record", "x.pdf", []byte("data"))
	require.Error(t, err)
	var attachErr *models.AttachmentError
	assert.ErrorAs(t, err, &attachErr)
}

func TestCreateShareLink(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.Authenticate(ctx, "ops@example.test", "master-pw"))

	folder := store.SeedFolder("acme", "")
	rec := store.SeedRecord(models.VaultRecord{Type: models.Mailbox, Title: "sheet", FolderUID: folder.UID})

	link, err := client.CreateShareLink(ctx, rec.UID, 7*24*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, link.Token)
	assert.Equal(t, rec.UID, link.RecordUID)
	assert.True(t, link.ExpiresAt.After(time.Now()))
}

func TestCreateShareLink_MissingRecord(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.Authenticate(ctx, "ops@example.test", "master-pw"))

	_, err := client.CreateShareLink(ctx, "gone", time.Hour)
	require.Error(t, err)
	var shareErr *models.ShareError
	assert.ErrorAs(t, err, &shareErr)
}
