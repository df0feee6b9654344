package provision

import (
	"encoding/json"
	"strings"

	"github.com/medienwerk/credsheet/internal/credgen"
	"github.com/medienwerk/credsheet/internal/models"
)

// GeneratedMarker in a structure template field value asks the workflow
// to generate a fresh secret for that field.
const GeneratedMarker = "${generated}"

// StructureTemplate describes the folder hierarchy and records to create
// for one customer. It is stored as JSON in the notes of a vault record
// and instantiated per customer by placeholder substitution.
type StructureTemplate struct {
	// RootFolder is the name of the customer root folder, typically
	// "${customer_name}".
	RootFolder string `json:"root_folder"`
	// Subfolders are category folders created beneath the root.
	Subfolders []string `json:"subfolders"`
	// Records are the credential records to create.
	Records []RecordSpec `json:"records"`
}

// RecordSpec is one record entry of a structure template.
type RecordSpec struct {
	Type  models.RecordType `json:"type"`
	Title string            `json:"title"`
	// Folder names the subfolder the record goes into; empty means the
	// customer root.
	Folder string `json:"folder"`
	// Fields maps field names to values. Values may contain ${...}
	// placeholders; the value "${generated}" is replaced with a freshly
	// generated secret.
	Fields map[string]string `json:"fields"`
}

// ParseStructure decodes a structure template from record notes.
func ParseStructure(notes string) (*StructureTemplate, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, &models.ValidationError{Field: "structure template", Message: "record notes are empty"}
	}
	var tmpl StructureTemplate
	if err := json.Unmarshal([]byte(notes), &tmpl); err != nil {
		return nil, &models.ValidationError{Field: "structure template", Message: err.Error()}
	}
	if tmpl.RootFolder == "" {
		return nil, &models.ValidationError{Field: "structure template", Message: "root_folder is required"}
	}
	for _, rec := range tmpl.Records {
		if !rec.Type.Valid() {
			return nil, &models.ValidationError{
				Field:   "structure template",
				Message: "unknown record type " + string(rec.Type),
			}
		}
	}
	return &tmpl, nil
}

// Instantiate returns a copy of the template with customer placeholders
// substituted and generated secrets filled in. The receiver is not
// modified; each customer gets independent secrets.
func (t *StructureTemplate) Instantiate(customer models.CustomerSpec, policy credgen.Policy) (*StructureTemplate, error) {
	values := map[string]string{
		"customer_name":  customer.Name,
		"customer_email": customer.PrimaryEmail,
	}
	for k, v := range customer.Extra {
		values["custom_"+k] = v
	}

	substitute := func(s string) string {
		for k, v := range values {
			s = strings.ReplaceAll(s, "${"+k+"}", v)
		}
		return s
	}

	out := &StructureTemplate{
		RootFolder: substitute(t.RootFolder),
		Subfolders: make([]string, len(t.Subfolders)),
		Records:    make([]RecordSpec, len(t.Records)),
	}
	for i, sub := range t.Subfolders {
		out.Subfolders[i] = substitute(sub)
	}
	for i, rec := range t.Records {
		spec := RecordSpec{
			Type:   rec.Type,
			Title:  substitute(rec.Title),
			Folder: substitute(rec.Folder),
			Fields: make(map[string]string, len(rec.Fields)),
		}
		for name, value := range rec.Fields {
			if value == GeneratedMarker {
				secret, err := credgen.Generate(policy)
				if err != nil {
					return nil, err
				}
				spec.Fields[name] = secret
				continue
			}
			spec.Fields[name] = substitute(value)
		}
		out.Records[i] = spec
	}
	return out, nil
}
