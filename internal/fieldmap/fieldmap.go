// Package fieldmap translates between the logical field names used at the
// engine's public boundary (camelCase, e.g. "phoneNumber") and the storage
// column names of the contacts table (snake_case, e.g. "phone_number").
// Logical ids without a standard column pass through unchanged and live in
// the contact's custom-fields document.
package fieldmap

import (
	"strings"
	"unicode"
)

// Logical field ids accepted in import records and field edits.
const (
	FieldPhoneNumber = "phoneNumber"
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldPostalCode  = "postalCode"
)

// standardColumns maps logical field ids onto contact storage columns.
var standardColumns = map[string]string{
	FieldPhoneNumber: "phone_number",
	FieldFirstName:   "first_name",
	FieldLastName:    "last_name",
	FieldPostalCode:  "postal_code",
}

// ColumnForField returns the storage column backing a logical field id.
// The second return is false for custom fields.
func ColumnForField(fieldID string) (string, bool) {
	col, ok := standardColumns[fieldID]
	return col, ok
}

// IsStandardField reports whether the logical field id maps to a contact
// storage column.
func IsStandardField(fieldID string) bool {
	_, ok := standardColumns[fieldID]
	return ok
}

// StandardFieldIDs returns the logical ids backed by storage columns.
func StandardFieldIDs() []string {
	return []string{FieldPhoneNumber, FieldFirstName, FieldLastName, FieldPostalCode}
}

// ToSnakeCase converts a camelCase logical name to the storage naming
// convention.
func ToSnakeCase(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToCamelCase converts a snake_case storage name to the external naming
// convention.
func ToCamelCase(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	b.Grow(len(name))
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
