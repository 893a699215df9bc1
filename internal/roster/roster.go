// Package roster turns external recipient lists (pasted text or remote
// group payloads) into normalized user rows for the bulk engine.
package roster

import (
	"fmt"
	"strings"

	"bulkcert-backend/internal/models"
	"bulkcert-backend/internal/pkg/textutil"
	"bulkcert-backend/internal/pkg/validation"
)

// Delimiters maps the configurable delimiter names to their characters.
var Delimiters = map[string]string{
	"tab":       "\t",
	"comma":     ",",
	"semicolon": ";",
}

// ExternalUser is one roster row before reconciliation. Fields holds the
// allow-listed optional fields; Profile holds custom fields whose column
// name was prefixed with "profile_". Later values win on key collision.
type ExternalUser struct {
	Username string
	Fields   map[string]string
	Profile  map[string]string
}

// Field returns an optional field value, "" when absent.
func (u *ExternalUser) Field(name string) string {
	return u.Fields[name]
}

// Result carries the parsed rows plus the parallel human-readable logs
// and errors shown back to the operator.
type Result struct {
	Users  []ExternalUser
	Logs   []string
	Errors []string
}

// ParseLocal parses pasted roster text. The first line is a header of
// case-insensitive column names; username is required, the rest is drawn
// from the fixed allow-list plus profile_ columns matching a known
// custom field. Empty lines are skipped; a row with fewer fields than
// the recognized column count is rejected with a row-numbered error.
func ParseLocal(text, delimiterName string, knownProfileFields []string) *Result {
	res := &Result{}

	delimiter, ok := Delimiters[delimiterName]
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("unknown delimiter %q", delimiterName))
		return res
	}

	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		res.Errors = append(res.Errors, "the roster text is empty")
		return res
	}

	// First row holds the column names, lower-cased for matching.
	headers := strings.Split(strings.TrimSpace(lines[0]), delimiter)
	columns := map[string]int{}
	for m, field := range headers {
		field = strings.ToLower(strings.TrimSpace(field))
		if contains(models.RequiredFields, field) || contains(models.OptionalFields, field) {
			columns[field] = m
			continue
		}
		if name, found := strings.CutPrefix(field, "profile_"); found && contains(knownProfileFields, name) {
			columns[field] = m
		}
	}

	for _, required := range models.RequiredFields {
		if _, ok := columns[required]; !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("the roster must include the %d required column(s)", len(models.RequiredFields)))
			return res
		}
	}

	// Unrecognized header columns keep their position in the rows, so a
	// row is only usable when it reaches the right-most recognized one.
	maxPosition := 0
	for _, position := range columns {
		if position > maxPosition {
			maxPosition = position
		}
	}

	for k, line := range lines[1:] {
		row := k + 2 // header is row 1

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		rowFields := strings.Split(line, delimiter)
		for i := range rowFields {
			rowFields[i] = strings.TrimSpace(rowFields[i])
		}

		if len(rowFields) <= maxPosition {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d has fewer fields than the recognized columns", row))
			continue
		}

		user := ExternalUser{Fields: map[string]string{}, Profile: map[string]string{}}
		bad := false
		for field, position := range columns {
			value := rowFields[position]
			switch {
			case field == "username":
				user.Username = value
			case field == "email":
				user.Fields["email"] = validation.CleanEmail(value)
			case strings.HasPrefix(field, "profile_"):
				user.Profile[field] = value
			default:
				user.Fields[field] = value
			}
		}
		for _, required := range models.RequiredFields {
			if required == "username" && user.Username == "" {
				res.Errors = append(res.Errors, fmt.Sprintf("row %d is missing the required field %q", row, required))
				bad = true
			}
		}
		if bad {
			continue
		}

		res.Users = append(res.Users, user)
	}

	return res
}

// FromMap builds an ExternalUser from a decoded remote payload object.
// Returns false when a required field is missing or empty; unknown keys
// outside the allow-list (other than profile_ ones) are dropped.
func FromMap(raw map[string]any) (ExternalUser, bool) {
	user := ExternalUser{Fields: map[string]string{}, Profile: map[string]string{}}

	for _, required := range models.RequiredFields {
		value := strings.TrimSpace(stringValue(raw[required]))
		if value == "" {
			return user, false
		}
		if required == "username" {
			user.Username = value
		}
	}

	for _, field := range models.OptionalFields {
		value, ok := raw[field]
		if !ok {
			continue
		}
		s := strings.TrimSpace(stringValue(value))
		if field == "email" {
			s = validation.CleanEmail(s)
		}
		user.Fields[field] = s
	}

	for key, value := range raw {
		if strings.HasPrefix(key, "profile_") {
			user.Profile[key] = strings.TrimSpace(stringValue(value))
		}
	}

	return user, true
}

// ParseCustomParams parses "name=value" lines into a parameter map.
// Blank lines are ignored; a repeated name keeps the last value.
func ParseCustomParams(text string) map[string]string {
	params := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, value, _ := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		params[name] = textutil.StripTags(strings.TrimSpace(value))
	}
	return params
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", t), ".0")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
