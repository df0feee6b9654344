// Package models defines the core data structures of the provisioning
// workflow: customer specs, vault objects, record type schemas and the
// error taxonomy shared by all workflow components.
package models

import "time"

// CustomerSpec describes one customer to provision. It is assembled from
// CLI flags, CSV rows or interactive prompts and is immutable once a
// provisioning run for the customer starts.
type CustomerSpec struct {
	// Name is the customer name, typically the hosted domain.
	Name string `json:"name"`
	// PrimaryEmail is the customer's primary mailbox address.
	PrimaryEmail string `json:"primary_email"`
	// Category decides the template and the mandatory record types.
	Category Category `json:"category"`
	// Extra holds optional free-form parameters forwarded into the
	// structure template substitution.
	Extra map[string]string `json:"extra,omitempty"`
}

// Field is one named credential value inside a vault record. Records keep
// fields as an ordered slice so creation and flattening are deterministic.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// VaultFolder is a folder inside the vault, referenced by the workflow
// via its UID. The vault owns the object; the workflow only tracks the id.
type VaultFolder struct {
	UID string `json:"uid"`
	// ParentUID is empty for folders created at the target root.
	ParentUID string `json:"parent_uid,omitempty"`
	Name      string `json:"name"`
}

// VaultRecord is a typed structured entry in the vault holding named
// credential fields.
type VaultRecord struct {
	UID       string     `json:"uid"`
	Type      RecordType `json:"type"`
	Title     string     `json:"title"`
	Fields    []Field    `json:"fields"`
	FolderUID string     `json:"folder_uid"`
	// Notes carries free text; structure templates live in the notes of
	// their template record.
	Notes string `json:"notes,omitempty"`
}

// FieldValue returns the value of the named field and whether it exists.
func (r *VaultRecord) FieldValue(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// ShareLink is a one-time, expiring access link issued for a vault record.
// Token and expiry are opaque vault data; the workflow only forwards them.
type ShareLink struct {
	Token     string    `json:"token"`
	RecordUID string    `json:"record_uid"`
	ExpiresAt time.Time `json:"expires_at"`
}

// State is one step of the per-customer provisioning state machine.
type State string

const (
	StatePending         State = "pending"
	StateContextBuilding State = "context_building"
	StateProvisioning    State = "provisioning"
	StateRendering       State = "rendering"
	StateConverting      State = "converting"
	StateUploading       State = "uploading"
	StateSharing         State = "sharing"
	// StateCommitted is terminal: every created object stays in the vault.
	StateCommitted State = "committed"
	// StateRolledBack is terminal: every created object has been deleted
	// (best effort) after a failure.
	StateRolledBack State = "rolled_back"
)

// Terminal reports whether the state ends a customer's run.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack
}

// CustomerResult records the outcome of one customer within a batch run.
type CustomerResult struct {
	Customer CustomerSpec `json:"customer"`
	State    State        `json:"state"`
	// Share is set only when the run committed.
	Share *ShareLink `json:"share,omitempty"`
	// Err is the failure that triggered rollback, nil on success.
	Err error `json:"-"`
	// ErrKind is the taxonomy name of Err, empty on success.
	ErrKind string `json:"err_kind,omitempty"`
}
