package provision

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/medienwerk/credsheet/internal/models"
)

// FolderAPI is the vault surface the folder provisioner needs.
type FolderAPI interface {
	ListFolders(ctx context.Context, parentUID string) ([]models.VaultFolder, error)
	ListRecords(ctx context.Context, folderUID string, recursive bool) ([]models.VaultRecord, error)
	CreateFolder(ctx context.Context, name, parentUID string) (*models.VaultFolder, error)
	DeleteFolder(ctx context.Context, uid string) error
}

// FolderProvisioner creates the per-customer folder hierarchy: one root
// folder with category subfolders beneath it.
type FolderProvisioner struct {
	vault FolderAPI
	log   *zap.Logger
}

// NewFolderProvisioner creates a FolderProvisioner.
func NewFolderProvisioner(vault FolderAPI, log *zap.Logger) *FolderProvisioner {
	return &FolderProvisioner{vault: vault, log: log}
}

// CreateHierarchy creates the root folder named rootName under targetUID
// plus one subfolder per entry, tracking every created folder in tx. An
// existing folder with the same name is reused only when it is empty
// (no records anywhere beneath it, no child folders); a non-empty one is
// a FolderConflictError the caller must resolve, never overwrite.
// It returns the root folder and the subfolder name to UID mapping.
func (p *FolderProvisioner) CreateHierarchy(ctx context.Context, tx *Transaction, rootName string, subfolders []string, targetUID string) (*models.VaultFolder, map[string]string, error) {
	root, err := p.rootFolder(ctx, tx, rootName, targetUID)
	if err != nil {
		return nil, nil, err
	}

	subUIDs := make(map[string]string, len(subfolders))
	for _, name := range subfolders {
		sub, err := p.vault.CreateFolder(ctx, name, root.UID)
		if err != nil {
			return nil, nil, fmt.Errorf("create subfolder %q: %w", name, err)
		}
		tx.TrackFolder(sub.UID)
		subUIDs[name] = sub.UID
	}
	return root, subUIDs, nil
}

// rootFolder finds-or-creates the customer root under targetUID.
func (p *FolderProvisioner) rootFolder(ctx context.Context, tx *Transaction, rootName, targetUID string) (*models.VaultFolder, error) {
	siblings, err := p.vault.ListFolders(ctx, targetUID)
	if err != nil {
		return nil, fmt.Errorf("inspect target folder: %w", err)
	}

	for i := range siblings {
		existing := &siblings[i]
		if existing.Name != rootName {
			continue
		}
		empty, err := p.isEmpty(ctx, existing.UID)
		if err != nil {
			return nil, err
		}
		if !empty {
			return nil, &models.FolderConflictError{Name: rootName, UID: existing.UID}
		}
		// Empty leftover from an earlier aborted run: reuse it, and track
		// it so a failure in this run cleans it up too.
		p.log.Info("reusing empty existing customer folder",
			zap.String("name", rootName), zap.String("uid", existing.UID))
		tx.TrackFolder(existing.UID)
		return existing, nil
	}

	root, err := p.vault.CreateFolder(ctx, rootName, targetUID)
	if err != nil {
		return nil, fmt.Errorf("create root folder %q: %w", rootName, err)
	}
	tx.TrackFolder(root.UID)
	return root, nil
}

// isEmpty reports whether the folder subtree holds no records and no
// child folders.
func (p *FolderProvisioner) isEmpty(ctx context.Context, uid string) (bool, error) {
	records, err := p.vault.ListRecords(ctx, uid, true)
	if err != nil {
		return false, fmt.Errorf("inspect folder %s: %w", uid, err)
	}
	if len(records) > 0 {
		return false, nil
	}
	children, err := p.vault.ListFolders(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("inspect folder %s: %w", uid, err)
	}
	return len(children) == 0, nil
}

// Delete removes a folder and, from the workflow's point of view,
// everything created under it.
func (p *FolderProvisioner) Delete(ctx context.Context, uid string) error {
	return p.vault.DeleteFolder(ctx, uid)
}
