// Package vault implements the HTTP client for the vault REST API: session
// authentication, path resolution, folder and record lifecycle, file
// attachments and one-time share links. The workflow packages consume it
// through small interfaces they declare themselves.
package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/medienwerk/credsheet/internal/models"
)

// Client talks to the vault REST API on behalf of one authenticated
// session. All calls are synchronous with no internal retry: a transient
// failure surfaces immediately to the caller.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	log     *zap.Logger
}

// NewClient creates a Client for the vault at baseURL. httpClient may be
// nil, in which case a client with a 30s timeout is used.
func NewClient(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		log:     log,
	}
}

// Session returns the current session handle, nil before Authenticate.
func (c *Client) Session() *Session {
	return c.session
}

// SessionExpired reports whether the client lacks a usable session,
// either because Authenticate was never called or because the token's
// expiry claim has passed.
func (c *Client) SessionExpired() bool {
	return c.session == nil || c.session.Expired()
}

// Authenticate logs in with the given credentials and stores the session
// token for subsequent calls. Any failure here is fatal for the whole
// run, so it is reported as an AuthenticationError.
func (c *Client) Authenticate(ctx context.Context, user, password string) error {
	body, _ := json.Marshal(map[string]string{"username": user, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return &models.AuthenticationError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &models.AuthenticationError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &models.AuthenticationError{Message: fmt.Sprintf("vault returned %s", resp.Status)}
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &models.AuthenticationError{Message: fmt.Sprintf("decode login response: %v", err)}
	}

	c.session = &Session{
		Token:     result.Token,
		User:      user,
		ExpiresAt: parseExpiry(result.Token),
	}
	c.log.Info("vault session established",
		zap.String("user", user),
		zap.Time("expires_at", c.session.ExpiresAt))
	return nil
}

// Resolve maps a folder/record path or UID to the object's UID.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	var result struct {
		UID string `json:"uid"`
	}
	q := url.Values{"ref": {ref}}
	err := c.do(ctx, http.MethodGet, "/api/resolve?"+q.Encode(), nil, &result)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", ref, err)
	}
	return result.UID, nil
}

// GetRecord fetches a record with all its fields.
func (c *Client) GetRecord(ctx context.Context, uid string) (*models.VaultRecord, error) {
	var rec models.VaultRecord
	if err := c.do(ctx, http.MethodGet, "/api/records/"+uid, nil, &rec); err != nil {
		return nil, fmt.Errorf("get record %s: %w", uid, err)
	}
	return &rec, nil
}

// ListFolders returns the direct child folders of parentUID.
func (c *Client) ListFolders(ctx context.Context, parentUID string) ([]models.VaultFolder, error) {
	var folders []models.VaultFolder
	if err := c.do(ctx, http.MethodGet, "/api/folders/"+parentUID+"/folders", nil, &folders); err != nil {
		return nil, fmt.Errorf("list folders under %s: %w", parentUID, err)
	}
	return folders, nil
}

// ListRecords returns the records inside folderUID; with recursive set it
// walks the whole subtree.
func (c *Client) ListRecords(ctx context.Context, folderUID string, recursive bool) ([]models.VaultRecord, error) {
	var records []models.VaultRecord
	path := "/api/folders/" + folderUID + "/records?recursive=" + strconv.FormatBool(recursive)
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, fmt.Errorf("list records in %s: %w", folderUID, err)
	}
	return records, nil
}

// CreateFolder creates a folder under parentUID and returns it.
func (c *Client) CreateFolder(ctx context.Context, name, parentUID string) (*models.VaultFolder, error) {
	body := map[string]string{"name": name, "parent_uid": parentUID}
	var folder models.VaultFolder
	if err := c.do(ctx, http.MethodPost, "/api/folders", body, &folder); err != nil {
		return nil, fmt.Errorf("create folder %q: %w", name, err)
	}
	return &folder, nil
}

// DeleteFolder removes a folder and everything beneath it. Deleting a
// folder that no longer exists is a no-op.
func (c *Client) DeleteFolder(ctx context.Context, uid string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/folders/"+uid, nil, nil); err != nil {
		return fmt.Errorf("delete folder %s: %w", uid, err)
	}
	return nil
}

// CreateRecord creates a typed record inside rec.FolderUID and returns
// the stored record with its assigned UID.
func (c *Client) CreateRecord(ctx context.Context, rec *models.VaultRecord) (*models.VaultRecord, error) {
	var created models.VaultRecord
	if err := c.do(ctx, http.MethodPost, "/api/records", rec, &created); err != nil {
		return nil, fmt.Errorf("create record %q: %w", rec.Title, err)
	}
	return &created, nil
}

// DeleteRecord removes a record. Deleting a non-existent UID is a no-op;
// rollback retries depend on that.
func (c *Client) DeleteRecord(ctx context.Context, uid string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/records/"+uid, nil, nil); err != nil {
		return fmt.Errorf("delete record %s: %w", uid, err)
	}
	return nil
}

// AttachFile uploads a binary blob under the given record.
func (c *Client) AttachFile(ctx context.Context, recordUID, name string, data []byte) error {
	q := url.Values{"name": {name}}
	path := "/api/records/" + recordUID + "/files?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return &models.AttachmentError{RecordUID: recordUID, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &models.AttachmentError{RecordUID: recordUID, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &models.AuthenticationError{Message: "vault session rejected"}
	}
	if resp.StatusCode != http.StatusCreated {
		return &models.AttachmentError{RecordUID: recordUID, Message: readError(resp)}
	}
	return nil
}

// DownloadFile fetches an attachment by name from a record.
func (c *Client) DownloadFile(ctx context.Context, recordUID, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/records/"+recordUID+"/files/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, fmt.Errorf("download %q from record %s: %w", name, recordUID, err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %q from record %s: %w", name, recordUID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %q from record %s: %s", name, recordUID, readError(resp))
	}
	return io.ReadAll(resp.Body)
}

// CreateShareLink issues a one-time share link for a record. Failures are
// reported as ShareError.
func (c *Client) CreateShareLink(ctx context.Context, recordUID string, ttl time.Duration) (*models.ShareLink, error) {
	body := map[string]int64{"ttl_seconds": int64(ttl.Seconds())}
	var link models.ShareLink
	if err := c.do(ctx, http.MethodPost, "/api/records/"+recordUID+"/share", body, &link); err != nil {
		if models.IsAuthentication(err) {
			return nil, err
		}
		return nil, &models.ShareError{RecordUID: recordUID, Message: err.Error()}
	}
	return &link, nil
}

// do performs a JSON request against the vault API. body is marshalled
// when non-nil; out is decoded from the response when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &models.AuthenticationError{Message: "vault session rejected"}
	case resp.StatusCode >= 400:
		return fmt.Errorf("vault returned %s: %s", resp.Status, readError(resp))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.session != nil {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
}

// readError extracts a short error message from a non-2xx response body.
func readError(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	if len(data) > 0 {
		return string(data)
	}
	return resp.Status
}
