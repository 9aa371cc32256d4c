// Package normalize canonicalises user-supplied identifiers before they are
// stored or compared.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an email address. Student ratings and
// supervision lookups key on this form.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims and collapses internal whitespace, preserving case.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// University returns the case-insensitive comparison key for a university
// name. Capacity quotas and approval visibility compare on this key.
func University(s string) string {
	return text.Fold(Name(s))
}

// Title returns the uniqueness key for a project title.
func Title(s string) string {
	return text.Fold(Name(s))
}

// Role trims and lowercases a role or status token.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status is an alias of Role for status enums.
func Status(s string) string {
	return Role(s)
}

// LocalPart returns the portion of an email before '@'.
func LocalPart(email string) string {
	e := Email(email)
	if i := strings.IndexByte(e, '@'); i >= 0 {
		return e[:i]
	}
	return e
}

// QueryParam trims a query-string value, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
