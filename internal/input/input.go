// Package input turns CSV files, repeated CLI flags and interactive
// answers into validated customer specs for the provisioning workflow.
package input

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/medienwerk/credsheet/internal/models"
	"github.com/medienwerk/credsheet/internal/prompt"
)

// ParseCSV reads customer rows from r. Columns are
// name,email,category,custom; only name is mandatory. A header row whose
// first cell is "name" is skipped, as are blank lines. An empty category
// defaults to external.
func ParseCSV(r io.Reader) ([]models.CustomerSpec, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var customers []models.CustomerSpec
	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "name") {
			continue
		}
		spec, err := fromColumns(row)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		customers = append(customers, spec)
	}
	if len(customers) == 0 {
		return nil, &models.ValidationError{Field: "csv", Message: "no customer rows found"}
	}
	return customers, nil
}

// ParseCustomerFlag parses one --customer value in the form
// "name:email:category:custom". Trailing parts may be omitted.
func ParseCustomerFlag(value string) (models.CustomerSpec, error) {
	parts := strings.Split(value, ":")
	if len(parts) > 4 {
		return models.CustomerSpec{}, &models.ValidationError{
			Field:   "customer",
			Message: fmt.Sprintf("too many fields in %q, want name:email:category:custom", value),
		}
	}
	return fromColumns(parts)
}

func fromColumns(cols []string) (models.CustomerSpec, error) {
	get := func(i int) string {
		if i < len(cols) {
			return strings.TrimSpace(cols[i])
		}
		return ""
	}
	spec := models.CustomerSpec{
		Name:         get(0),
		PrimaryEmail: get(1),
	}
	category, err := parseCategory(get(2))
	if err != nil {
		return models.CustomerSpec{}, err
	}
	spec.Category = category
	extra, err := parseExtra(get(3))
	if err != nil {
		return models.CustomerSpec{}, err
	}
	spec.Extra = extra
	if spec.Name == "" {
		return models.CustomerSpec{}, &models.ValidationError{Field: "name", Message: "customer name is required"}
	}
	return spec, nil
}

func parseCategory(s string) (models.Category, error) {
	if s == "" {
		return models.CategoryExternal, nil
	}
	category := models.Category(strings.ToLower(s))
	if !category.Valid() {
		return "", &models.ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("unknown category %q", s),
		}
	}
	return category, nil
}

// parseExtra parses the custom column. Entries are "key=value" pairs
// separated by semicolons; a bare value gets the key "param" so it is
// reachable as ${custom_param} in structure templates.
func parseExtra(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	extra := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			extra["param"] = part
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, &models.ValidationError{Field: "custom", Message: fmt.Sprintf("empty key in %q", part)}
		}
		extra[key] = strings.TrimSpace(value)
	}
	if len(extra) == 0 {
		return nil, nil
	}
	return extra, nil
}

// PromptCustomer reads a single customer interactively. Answers come
// from in, prompts go to out, localized via lang. Name and category are
// re-asked until valid; email and custom may stay empty.
func PromptCustomer(in io.Reader, out io.Writer, lang string) (models.CustomerSpec, error) {
	scanner := bufio.NewScanner(in)
	ask := func(key string) (string, error) {
		fmt.Fprint(out, prompt.Get(lang, key))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("read input: %w", err)
			}
			return "", io.ErrUnexpectedEOF
		}
		return strings.TrimSpace(scanner.Text()), nil
	}

	var spec models.CustomerSpec
	for {
		name, err := ask("name")
		if err != nil {
			return models.CustomerSpec{}, err
		}
		if name == "" {
			fmt.Fprintln(out, prompt.Get(lang, "invalid_input"))
			continue
		}
		spec.Name = name
		break
	}

	email, err := ask("email")
	if err != nil {
		return models.CustomerSpec{}, err
	}
	spec.PrimaryEmail = email

	for {
		answer, err := ask("category")
		if err != nil {
			return models.CustomerSpec{}, err
		}
		category, err := parseCategory(answer)
		if err != nil {
			fmt.Fprintln(out, prompt.Get(lang, "invalid_input"))
			continue
		}
		spec.Category = category
		break
	}

	custom, err := ask("custom")
	if err != nil {
		return models.CustomerSpec{}, err
	}
	extra, err := parseExtra(custom)
	if err != nil {
		return models.CustomerSpec{}, err
	}
	spec.Extra = extra
	return spec, nil
}
