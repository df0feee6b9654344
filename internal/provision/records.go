package provision

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/medienwerk/credsheet/internal/models"
)

// RecordAPI is the vault surface the record provisioner needs.
type RecordAPI interface {
	CreateRecord(ctx context.Context, rec *models.VaultRecord) (*models.VaultRecord, error)
	DeleteRecord(ctx context.Context, uid string) error
	AttachFile(ctx context.Context, recordUID, name string, data []byte) error
}

// RecordProvisioner creates typed records inside the customer hierarchy.
// Field sets are validated against the declared schema for the record
// type before any network call, so a SchemaError never leaves partial
// state behind.
type RecordProvisioner struct {
	vault RecordAPI
	log   *zap.Logger
}

// NewRecordProvisioner creates a RecordProvisioner.
func NewRecordProvisioner(vault RecordAPI, log *zap.Logger) *RecordProvisioner {
	return &RecordProvisioner{vault: vault, log: log}
}

// CreateRecord validates fields against the schema of recordType,
// creates the record in folderUID and tracks it in tx. Fields are stored
// in schema order regardless of input order.
func (p *RecordProvisioner) CreateRecord(ctx context.Context, tx *Transaction, folderUID string, recordType models.RecordType, title string, fields map[string]string) (*models.VaultRecord, error) {
	ordered, err := orderedFields(recordType, fields)
	if err != nil {
		return nil, err
	}

	rec, err := p.vault.CreateRecord(ctx, &models.VaultRecord{
		Type:      recordType,
		Title:     title,
		FolderUID: folderUID,
		Fields:    ordered,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s record %q: %w", recordType, title, err)
	}
	tx.TrackRecord(rec.UID)
	p.log.Debug("record created",
		zap.String("uid", rec.UID),
		zap.String("type", string(recordType)),
		zap.String("title", title))
	return rec, nil
}

// orderedFields checks fields against the type schema: every schema
// field must be present (empty values are allowed, missing ones are
// not), and unknown field names are rejected.
func orderedFields(recordType models.RecordType, fields map[string]string) ([]models.Field, error) {
	schema := recordType.Schema()
	if schema == nil {
		return nil, &models.SchemaError{Type: recordType, Message: "unknown record type"}
	}

	known := make(map[string]bool, len(schema))
	ordered := make([]models.Field, 0, len(schema))
	for _, name := range schema {
		known[name] = true
		value, ok := fields[name]
		if !ok {
			return nil, &models.SchemaError{Type: recordType, Field: name, Message: "mandatory field missing"}
		}
		ordered = append(ordered, models.Field{Name: name, Value: value})
	}
	for name := range fields {
		if !known[name] {
			return nil, &models.SchemaError{Type: recordType, Field: name, Message: "field not in schema"}
		}
	}
	return ordered, nil
}

// Delete removes a record; deleting a non-existent UID is a no-op, which
// rollback retries rely on.
func (p *RecordProvisioner) Delete(ctx context.Context, uid string) error {
	return p.vault.DeleteRecord(ctx, uid)
}

// Attach associates a binary blob with a record.
func (p *RecordProvisioner) Attach(ctx context.Context, recordUID, filename string, data []byte) error {
	return p.vault.AttachFile(ctx, recordUID, filename, data)
}
