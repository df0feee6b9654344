// Package vaulttest provides an in-memory vault used by workflow tests:
// a Store implementing the same operations as the HTTP client, and a chi
// server exposing the Store over the vault REST surface so the real
// client can be tested against it.
package vaulttest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medienwerk/credsheet/internal/models"
)

// Store is an in-memory vault. It is safe for concurrent use and keeps
// deterministic ordering (by name/title) for listings.
type Store struct {
	mu      sync.Mutex
	folders map[string]models.VaultFolder
	records map[string]models.VaultRecord
	files   map[string]map[string][]byte
	shares  map[string][]models.ShareLink

	// CreateRecordHook, when set, runs before each record creation and
	// may return an error to simulate a vault-side failure.
	CreateRecordHook func(rec *models.VaultRecord) error
	// CreateFolderHook mirrors CreateRecordHook for folders.
	CreateFolderHook func(name, parentUID string) error
	// DeleteHook, when set, runs before any folder/record deletion.
	DeleteHook func(uid string) error
	// ShareHook, when set, runs before share link creation.
	ShareHook func(recordUID string) error
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		folders: make(map[string]models.VaultFolder),
		records: make(map[string]models.VaultRecord),
		files:   make(map[string]map[string][]byte),
		shares:  make(map[string][]models.ShareLink),
	}
}

// SeedFolder inserts a folder directly, bypassing hooks. Used by tests to
// set up the target folder the workflow provisions under.
func (s *Store) SeedFolder(name, parentUID string) models.VaultFolder {
	s.mu.Lock()
	defer s.mu.Unlock()
	folder := models.VaultFolder{UID: uuid.NewString(), ParentUID: parentUID, Name: name}
	s.folders[folder.UID] = folder
	return folder
}

// SeedRecord inserts a record directly, bypassing hooks and schema checks.
func (s *Store) SeedRecord(rec models.VaultRecord) models.VaultRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.UID == "" {
		rec.UID = uuid.NewString()
	}
	s.records[rec.UID] = rec
	return rec
}

// Resolve maps a UID or a root-level folder name to a UID.
func (s *Store) Resolve(_ context.Context, ref string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.folders[ref]; ok {
		return ref, nil
	}
	if _, ok := s.records[ref]; ok {
		return ref, nil
	}
	for _, f := range s.folders {
		if f.Name == ref {
			return f.UID, nil
		}
	}
	return "", fmt.Errorf("object %q not found", ref)
}

// GetRecord returns a copy of the record with the given UID.
func (s *Store) GetRecord(_ context.Context, uid string) (*models.VaultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[uid]
	if !ok {
		return nil, fmt.Errorf("record %s not found", uid)
	}
	return &rec, nil
}

// ListFolders returns the direct child folders of parentUID sorted by name.
func (s *Store) ListFolders(_ context.Context, parentUID string) ([]models.VaultFolder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.VaultFolder
	for _, f := range s.folders {
		if f.ParentUID == parentUID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListRecords returns records in folderUID, walking the subtree when
// recursive is true, sorted by title.
func (s *Store) ListRecords(_ context.Context, folderUID string, recursive bool) ([]models.VaultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uids := map[string]bool{folderUID: true}
	if recursive {
		s.collectSubfolders(folderUID, uids)
	}
	var out []models.VaultRecord
	for _, r := range s.records {
		if uids[r.FolderUID] {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// collectSubfolders adds every descendant of folderUID to set. Caller
// holds the lock.
func (s *Store) collectSubfolders(folderUID string, set map[string]bool) {
	for _, f := range s.folders {
		if f.ParentUID == folderUID && !set[f.UID] {
			set[f.UID] = true
			s.collectSubfolders(f.UID, set)
		}
	}
}

// CreateFolder creates a folder under parentUID.
func (s *Store) CreateFolder(_ context.Context, name, parentUID string) (*models.VaultFolder, error) {
	if s.CreateFolderHook != nil {
		if err := s.CreateFolderHook(name, parentUID); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if parentUID != "" {
		if _, ok := s.folders[parentUID]; !ok {
			return nil, fmt.Errorf("parent folder %s not found", parentUID)
		}
	}
	folder := models.VaultFolder{UID: uuid.NewString(), ParentUID: parentUID, Name: name}
	s.folders[folder.UID] = folder
	return &folder, nil
}

// DeleteFolder removes a folder and everything beneath it. Unknown UIDs
// are a no-op.
func (s *Store) DeleteFolder(_ context.Context, uid string) error {
	if s.DeleteHook != nil {
		if err := s.DeleteHook(uid); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.folders[uid]; !ok {
		return nil
	}
	doomed := map[string]bool{uid: true}
	s.collectSubfolders(uid, doomed)
	for fuid := range doomed {
		delete(s.folders, fuid)
	}
	for ruid, rec := range s.records {
		if doomed[rec.FolderUID] {
			delete(s.records, ruid)
			delete(s.files, ruid)
		}
	}
	return nil
}

// CreateRecord validates the record against its type schema and stores it.
func (s *Store) CreateRecord(_ context.Context, rec *models.VaultRecord) (*models.VaultRecord, error) {
	if s.CreateRecordHook != nil {
		if err := s.CreateRecordHook(rec); err != nil {
			return nil, err
		}
	}
	if !rec.Type.Valid() {
		return nil, &models.SchemaError{Type: rec.Type, Message: "unknown record type"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.folders[rec.FolderUID]; !ok {
		return nil, fmt.Errorf("folder %s not found", rec.FolderUID)
	}
	stored := *rec
	stored.UID = uuid.NewString()
	s.records[stored.UID] = stored
	return &stored, nil
}

// DeleteRecord removes a record; unknown UIDs are a no-op.
func (s *Store) DeleteRecord(_ context.Context, uid string) error {
	if s.DeleteHook != nil {
		if err := s.DeleteHook(uid); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, uid)
	delete(s.files, uid)
	return nil
}

// maxAttachmentSize mirrors the vault's upload limit.
const maxAttachmentSize = 16 << 20

// AttachFile stores a blob under the record.
func (s *Store) AttachFile(_ context.Context, recordUID, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[recordUID]; !ok {
		return &models.AttachmentError{RecordUID: recordUID, Message: "record not found"}
	}
	if len(data) == 0 {
		return &models.AttachmentError{RecordUID: recordUID, Message: "empty attachment"}
	}
	if len(data) > maxAttachmentSize {
		return &models.AttachmentError{RecordUID: recordUID, Message: "attachment too large"}
	}
	if s.files[recordUID] == nil {
		s.files[recordUID] = make(map[string][]byte)
	}
	s.files[recordUID][name] = data
	return nil
}

// DownloadFile returns a previously attached blob.
func (s *Store) DownloadFile(_ context.Context, recordUID, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[recordUID][name]
	if !ok {
		return nil, fmt.Errorf("attachment %q on record %s not found", name, recordUID)
	}
	return data, nil
}

// CreateShareLink issues a one-time link for the record.
func (s *Store) CreateShareLink(_ context.Context, recordUID string, ttl time.Duration) (*models.ShareLink, error) {
	if s.ShareHook != nil {
		if err := s.ShareHook(recordUID); err != nil {
			return nil, &models.ShareError{RecordUID: recordUID, Message: err.Error()}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[recordUID]; !ok {
		return nil, &models.ShareError{RecordUID: recordUID, Message: "record not found"}
	}
	link := models.ShareLink{
		Token:     uuid.NewString(),
		RecordUID: recordUID,
		ExpiresAt: time.Now().Add(ttl),
	}
	s.shares[recordUID] = append(s.shares[recordUID], link)
	return &link, nil
}

// HasFolder reports whether the folder still exists. Test helper.
func (s *Store) HasFolder(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.folders[uid]
	return ok
}

// HasRecord reports whether the record still exists. Test helper.
func (s *Store) HasRecord(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[uid]
	return ok
}

// Attachment returns the stored attachment bytes, nil when missing. Test
// helper.
func (s *Store) Attachment(recordUID, name string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[recordUID][name]
}
