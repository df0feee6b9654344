package contextbuild

import (
	"fmt"

	"github.com/medienwerk/credsheet/internal/models"
)

// placeholderKeys is the declared flattening table: it maps each
// (record type, field name) pair to the placeholder key the template
// engine sees. Keeping this as one table, checked once for collisions,
// replaces ad hoc string concatenation and makes a duplicate key a
// startup failure instead of a silently overwritten value.
//
// Mailbox is absent here on purpose: mailbox records may appear more
// than once per customer and are assigned to primary/secondary slots by
// sorted e-mail address (see mailboxKeys).
var placeholderKeys = map[models.RecordType]map[string]string{
	models.Webmail: {
		"url": "webmail_url",
	},
	models.WebsiteLogin: {
		"login":    "website_login",
		"password": "website_password",
		"url":      "website_url",
	},
	models.StatisticsLogin: {
		"login":    "statistics_login",
		"password": "statistics_password",
		"url":      "statistics_url",
	},
	models.MailHosts: {
		"smtp_server": "smtp_server",
		"imap_server": "imap_server",
		"pop_server":  "pop_server",
		"smtp_port":   "smtp_port",
		"imap_port":   "imap_port",
		"pop_port":    "pop_port",
	},
	models.Alias: {
		"alias":  "alias_address",
		"target": "alias_target",
	},
	models.Forwarding: {
		"source":      "forwarding_source",
		"destination": "forwarding_destination",
	},
}

// mailboxKeys are the placeholder slots mailbox records fill, in
// assignment order.
var mailboxKeys = [][2]string{
	{"primary_email", "primary_email_password"},
	{"secondary_email", "secondary_email_password"},
}

// checkTable verifies that no two table entries produce the same
// placeholder key. Called once at package init; a collision is a
// programming error in the table itself.
func checkTable() error {
	seen := make(map[string]string)
	claim := func(key, source string) error {
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("placeholder key %q claimed by both %s and %s", key, prev, source)
		}
		seen[key] = source
		return nil
	}

	for recType, fields := range placeholderKeys {
		for field, key := range fields {
			if err := claim(key, fmt.Sprintf("%s.%s", recType, field)); err != nil {
				return err
			}
		}
	}
	for i, pair := range mailboxKeys {
		for _, key := range pair {
			if err := claim(key, fmt.Sprintf("mailbox[%d]", i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func init() {
	if err := checkTable(); err != nil {
		panic(err)
	}
}
