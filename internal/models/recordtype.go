package models

// RecordType identifies one of the recognized credential-sheet record kinds.
// The set is closed: every type carries a fixed field schema, so a record
// with unknown or missing fields is rejected before it ever reaches the
// template engine.
type RecordType string

const (
	// Mailbox represents an e-mail account with its password.
	Mailbox RecordType = "mailbox"
	// Webmail represents the webmail entry point for a customer domain.
	Webmail RecordType = "webmail"
	// WebsiteLogin represents the customer's CMS/website login.
	WebsiteLogin RecordType = "website-login"
	// StatisticsLogin represents the web-statistics dashboard login.
	StatisticsLogin RecordType = "statistics-login"
	// MailHosts represents the mail server host/port settings.
	MailHosts RecordType = "mail-hosts"
	// Alias represents an e-mail alias.
	Alias RecordType = "alias"
	// Forwarding represents an e-mail forwarding rule.
	Forwarding RecordType = "forwarding"
	// Document holds a generated file attachment, such as the finished
	// credential sheet PDF. It contributes no placeholder values.
	Document RecordType = "document"
)

// recordSchemas maps each record type to its ordered field schema.
// Order matters: it is the order fields are created in the vault and
// the order the context builder walks them.
var recordSchemas = map[RecordType][]string{
	Mailbox:         {"email", "password"},
	Webmail:         {"url"},
	WebsiteLogin:    {"login", "password", "url"},
	StatisticsLogin: {"login", "password", "url"},
	MailHosts:       {"smtp_server", "imap_server", "pop_server", "smtp_port", "imap_port", "pop_port"},
	Alias:           {"alias", "target"},
	Forwarding:      {"source", "destination"},
	Document:        {"filename"},
}

// Valid reports whether t is one of the recognized record types.
func (t RecordType) Valid() bool {
	_, ok := recordSchemas[t]
	return ok
}

// Schema returns the ordered field names declared for the record type,
// or nil if the type is not recognized. The returned slice must not be
// modified.
func (t RecordType) Schema() []string {
	return recordSchemas[t]
}

// RecordTypes returns all recognized record types in a stable order.
func RecordTypes() []RecordType {
	return []RecordType{Mailbox, Webmail, WebsiteLogin, StatisticsLogin, MailHosts, Alias, Forwarding, Document}
}

// Category classifies a customer and decides which record types their
// credential sheet must contain.
type Category string

const (
	// CategoryInternal is a customer hosted and managed in-house.
	CategoryInternal Category = "internal"
	// CategoryExternal is a customer on external hosting.
	CategoryExternal Category = "external"
)

// requiredTypes lists the record types that must exist in a customer's
// folder before a sheet for that category can be rendered.
var requiredTypes = map[Category][]RecordType{
	CategoryInternal: {Mailbox, Webmail},
	CategoryExternal: {Mailbox, Webmail, WebsiteLogin},
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := requiredTypes[c]
	return ok
}

// RequiredTypes returns the record types mandated for the category.
func (c Category) RequiredTypes() []RecordType {
	return requiredTypes[c]
}
