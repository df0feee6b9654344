package models

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"authentication", &AuthenticationError{Message: "bad password"}, "AuthenticationError"},
		{"validation", &ValidationError{Field: "name", Message: "required"}, "ValidationError"},
		{"policy", &PolicyError{Message: "no classes"}, "PolicyError"},
		{"folder conflict", &FolderConflictError{Name: "acme", UID: "f-1"}, "FolderConflictError"},
		{"schema", &SchemaError{Type: Mailbox, Field: "email", Message: "missing"}, "SchemaError"},
		{"missing type", &MissingRecordTypeError{Type: Webmail, Category: CategoryInternal}, "MissingRecordTypeError"},
		{"collision", &FieldCollisionError{Key: "webmail_url"}, "FieldCollisionError"},
		{"render", &TemplateRenderError{Message: "bad placeholder"}, "TemplateRenderError"},
		{"conversion", &ConversionError{Message: "soffice exited"}, "ConversionError"},
		{"attachment", &AttachmentError{RecordUID: "r-1", Message: "too large"}, "AttachmentError"},
		{"share", &ShareError{RecordUID: "r-1", Message: "denied"}, "ShareError"},
		{"rollback", &RollbackError{FailedUIDs: []string{"r-1"}}, "RollbackError"},
		{"canceled", context.Canceled, "Canceled"},
		{"deadline", context.DeadlineExceeded, "Canceled"},
		{"unknown", errors.New("boom"), "VaultError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrKind(tt.err))
		})
	}
}

func TestErrKindUnwrapsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("create record: %w", &SchemaError{Type: Mailbox, Field: "email", Message: "missing"})
	assert.Equal(t, "SchemaError", ErrKind(err))
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", &AuthenticationError{Message: "expired"})
	assert.True(t, IsAuthentication(wrapped))
	assert.False(t, IsAuthentication(errors.New("other")))

	assert.True(t, IsValidation(fmt.Errorf("row 2: %w", &ValidationError{Field: "category", Message: "unknown"})))
	assert.False(t, IsValidation(wrapped))
}

func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "invalid name: required", (&ValidationError{Field: "name", Message: "required"}).Error())
	assert.Equal(t, "validation failed: empty row", (&ValidationError{Message: "empty row"}).Error())
}
