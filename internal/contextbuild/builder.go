// Package contextbuild flattens the typed records of a customer folder
// into the flat placeholder mapping consumed by the template engine. The
// mapping is derived, never persisted, and rebuilt from vault state on
// every run.
package contextbuild

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/medienwerk/credsheet/internal/models"
)

// RecordLister is the single vault operation the builder needs.
type RecordLister interface {
	// ListRecords returns the records in the folder, walking subfolders
	// when recursive is true.
	ListRecords(ctx context.Context, folderUID string, recursive bool) ([]models.VaultRecord, error)
}

// Builder assembles template contexts from vault state.
type Builder struct {
	vault RecordLister
	// supportEmail lands in the support_email placeholder.
	supportEmail string
	// now is replaceable in tests.
	now func() time.Time
	log *zap.Logger
}

// NewBuilder creates a Builder reading records through lister.
func NewBuilder(lister RecordLister, supportEmail string, log *zap.Logger) *Builder {
	return &Builder{
		vault:        lister,
		supportEmail: supportEmail,
		now:          time.Now,
		log:          log,
	}
}

// Build resolves the customer's folder subtree into a flat placeholder
// mapping. Every recognized record type contributes its full declared
// field set: keys for absent optional values hold empty strings, so a
// missing key always signals a structural problem rather than absent
// data. It fails with MissingRecordTypeError when a type mandated by the
// customer's category is absent, and with FieldCollisionError when two
// distinct source fields map to the same key. For a fixed vault snapshot
// repeated calls return an identical mapping.
func (b *Builder) Build(ctx context.Context, folderUID string, customer models.CustomerSpec) (map[string]string, error) {
	records, err := b.vault.ListRecords(ctx, folderUID, true)
	if err != nil {
		return nil, fmt.Errorf("enumerate customer records: %w", err)
	}

	tc := make(map[string]string)
	seedKeys(tc)

	present := make(map[models.RecordType]bool)
	// written tracks keys filled from a record field, so a second source
	// writing the same key is detected as a collision.
	written := make(map[string]bool)

	var mailboxes []models.VaultRecord
	for _, rec := range records {
		if !rec.Type.Valid() {
			b.log.Warn("skipping record of unrecognized type",
				zap.String("uid", rec.UID), zap.String("type", string(rec.Type)))
			continue
		}
		present[rec.Type] = true
		if rec.Type == models.Mailbox {
			mailboxes = append(mailboxes, rec)
			continue
		}
		for _, field := range rec.Fields {
			key, ok := placeholderKeys[rec.Type][field.Name]
			if !ok {
				continue
			}
			if written[key] {
				return nil, &models.FieldCollisionError{Key: key}
			}
			written[key] = true
			tc[key] = field.Value
		}
	}

	if err := b.assignMailboxes(tc, written, mailboxes); err != nil {
		return nil, err
	}

	for _, required := range customer.Category.RequiredTypes() {
		if !present[required] {
			return nil, &models.MissingRecordTypeError{Type: required, Category: customer.Category}
		}
	}

	b.addDerived(tc, customer)
	return tc, nil
}

// seedKeys pre-populates every placeholder key declared in the table
// with an empty string.
func seedKeys(tc map[string]string) {
	for _, fields := range placeholderKeys {
		for _, key := range fields {
			tc[key] = ""
		}
	}
	for _, pair := range mailboxKeys {
		tc[pair[0]] = ""
		tc[pair[1]] = ""
	}
}

// assignMailboxes fills the primary/secondary mailbox slots in sorted
// e-mail order so assignment is deterministic.
func (b *Builder) assignMailboxes(tc map[string]string, written map[string]bool, mailboxes []models.VaultRecord) error {
	sort.Slice(mailboxes, func(i, j int) bool {
		ei, _ := mailboxes[i].FieldValue("email")
		ej, _ := mailboxes[j].FieldValue("email")
		return ei < ej
	})

	for i, rec := range mailboxes {
		if i >= len(mailboxKeys) {
			b.log.Warn("more mailbox records than template slots, extras ignored",
				zap.String("uid", rec.UID))
			break
		}
		email, _ := rec.FieldValue("email")
		password, _ := rec.FieldValue("password")
		emailSlot, passwordSlot := mailboxKeys[i][0], mailboxKeys[i][1]
		if written[emailSlot] || written[passwordSlot] {
			return &models.FieldCollisionError{Key: emailSlot}
		}
		written[emailSlot], written[passwordSlot] = true, true
		tc[emailSlot] = email
		tc[passwordSlot] = password
	}
	return nil
}

// addDerived fills the non-record placeholders: customer identity,
// support contact, current date and mail host defaults derived from the
// customer domain when the vault holds no explicit mail-hosts values.
func (b *Builder) addDerived(tc map[string]string, customer models.CustomerSpec) {
	domain := customerDomain(customer.Name)

	tc["customer_name"] = domain
	tc["current_date"] = b.now().Format("2006-01-02")
	tc["support_email"] = b.supportEmail

	if tc["smtp_server"] == "" {
		tc["smtp_server"] = "smtp." + domain
	}
	if tc["imap_server"] == "" {
		tc["imap_server"] = "imap." + domain
	}
	if tc["pop_server"] == "" {
		tc["pop_server"] = "pop." + domain
	}
	if tc["smtp_port"] == "" {
		tc["smtp_port"] = "465"
	}
	if tc["imap_port"] == "" {
		tc["imap_port"] = "993"
	}
	if tc["pop_port"] == "" {
		tc["pop_port"] = "995"
	}
}

// customerDomain derives the bare domain from a customer name like
// "acme.example (100000)": the parenthesized account number is dropped.
func customerDomain(name string) string {
	domain := name
	if i := strings.Index(domain, "("); i >= 0 {
		domain = domain[:i]
	}
	return strings.TrimSpace(domain)
}
