// Package prompt holds the localized strings used by the interactive
// single-customer mode. English is the fallback for unknown languages
// and missing keys.
package prompt

// Supported language codes.
const (
	LangEN = "en"
	LangDE = "de"
)

var catalogs = map[string]map[string]string{
	LangEN: {
		"structure_uid": "Enter structure template record UID: ",
		"template_uid":  "Enter document template record UID: ",
		"target_folder": "Enter target folder UID/path: ",
		"name":          "Enter customer name: ",
		"email":         "Enter customer email (optional): ",
		"category":      "Enter customer category (internal/external): ",
		"custom":        "Enter custom param (optional): ",
		"invalid_input": "Invalid input. Try again.",
	},
	LangDE: {
		"structure_uid": "Geben Sie die UID des Strukturvorlagenrecords ein: ",
		"template_uid":  "Geben Sie die UID des Dokumentvorlagenrecords ein: ",
		"target_folder": "Geben Sie UID/Pfad des Zielordners ein: ",
		"name":          "Geben Sie den Kundennamen ein: ",
		"email":         "Geben Sie die Kunden-E-Mail ein (optional): ",
		"category":      "Geben Sie die Kundenkategorie ein (internal/external): ",
		"custom":        "Geben Sie benutzerdefinierten Parameter ein (optional): ",
		"invalid_input": "Ungültige Eingabe. Versuchen Sie es erneut.",
	},
}

// Supported reports whether lang has its own catalog.
func Supported(lang string) bool {
	_, ok := catalogs[lang]
	return ok
}

// Get returns the prompt string for key in the given language. Unknown
// languages fall back to English; an unknown key returns the key itself
// so the caller still shows something usable.
func Get(lang, key string) string {
	catalog, ok := catalogs[lang]
	if !ok {
		catalog = catalogs[LangEN]
	}
	if s, ok := catalog[key]; ok {
		return s
	}
	if s, ok := catalogs[LangEN][key]; ok {
		return s
	}
	return key
}
