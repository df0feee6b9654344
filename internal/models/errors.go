package models

import (
	"context"
	"errors"
	"fmt"
)

// The workflow distinguishes failure modes with typed errors so the
// orchestrator can decide between aborting the whole batch, skipping a
// customer, or rolling the customer's transaction back. Only
// AuthenticationError is batch-fatal; everything else is scoped to the
// customer whose run raised it.

// AuthenticationError indicates the vault session could not be
// established or has expired. It aborts the entire run.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// ValidationError indicates a bad customer spec, UID or folder path.
// The customer is skipped without opening a vault transaction.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// PolicyError indicates an unsatisfiable credential generation policy.
type PolicyError struct {
	Message string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("unsatisfiable policy: %s", e.Message)
}

// FolderConflictError indicates a folder with the deterministic customer
// name already exists and is not empty, so it cannot be reused silently.
type FolderConflictError struct {
	Name string
	UID  string
}

func (e *FolderConflictError) Error() string {
	return fmt.Sprintf("folder %q (%s) already exists and is not empty", e.Name, e.UID)
}

// SchemaError indicates record fields that do not match the declared
// schema for the record type.
type SchemaError struct {
	Type    RecordType
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("record type %s: field %q: %s", e.Type, e.Field, e.Message)
}

// MissingRecordTypeError indicates a record type mandated by the
// customer's category is absent from the customer folder.
type MissingRecordTypeError struct {
	Type     RecordType
	Category Category
}

func (e *MissingRecordTypeError) Error() string {
	return fmt.Sprintf("record type %s required for category %s is missing", e.Type, e.Category)
}

// FieldCollisionError indicates two distinct source fields flattened to
// the same placeholder key.
type FieldCollisionError struct {
	Key string
}

func (e *FieldCollisionError) Error() string {
	return fmt.Sprintf("placeholder key %q produced by two different source fields", e.Key)
}

// TemplateRenderError indicates unresolved mandatory placeholders or a
// malformed document template.
type TemplateRenderError struct {
	Message string
}

func (e *TemplateRenderError) Error() string {
	return fmt.Sprintf("template render failed: %s", e.Message)
}

// ConversionError indicates the PDF converter failed; there is never a
// partial PDF.
type ConversionError struct {
	Message string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("pdf conversion failed: %s", e.Message)
}

// AttachmentError indicates the vault rejected a file upload.
type AttachmentError struct {
	RecordUID string
	Message   string
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment upload to record %s rejected: %s", e.RecordUID, e.Message)
}

// ShareError indicates one-time share link creation failed.
type ShareError struct {
	RecordUID string
	Message   string
}

func (e *ShareError) Error() string {
	return fmt.Sprintf("share link for record %s: %s", e.RecordUID, e.Message)
}

// RollbackError collects deletions that failed during rollback. It is
// logged, never re-raised: cleanup is best effort.
type RollbackError struct {
	FailedUIDs []string
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback left %d objects behind: %v", len(e.FailedUIDs), e.FailedUIDs)
}

// IsAuthentication reports whether err is an AuthenticationError.
func IsAuthentication(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// ErrKind returns the taxonomy name for err, used in batch reports and
// audit rows. Unknown errors report as "VaultError".
func ErrKind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "Canceled"
	}
	for kind, match := range kindMatchers {
		if match(err) {
			return kind
		}
	}
	return "VaultError"
}

func as[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

var kindMatchers = map[string]func(error) bool{
	"AuthenticationError":    as[*AuthenticationError],
	"ValidationError":        as[*ValidationError],
	"PolicyError":            as[*PolicyError],
	"FolderConflictError":    as[*FolderConflictError],
	"SchemaError":            as[*SchemaError],
	"MissingRecordTypeError": as[*MissingRecordTypeError],
	"FieldCollisionError":    as[*FieldCollisionError],
	"TemplateRenderError":    as[*TemplateRenderError],
	"ConversionError":        as[*ConversionError],
	"AttachmentError":        as[*AttachmentError],
	"ShareError":             as[*ShareError],
	"RollbackError":          as[*RollbackError],
}
