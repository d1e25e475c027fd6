package kontent

import (
	"strings"

	"github.com/google/uuid"
)

// LanguageRef is a language identifier that is either a codename or a
// canonical GUID. It is parsed once at the boundary so downstream code never
// re-sniffs the format.
type LanguageRef struct {
	value string
	id    bool
}

// ParseLanguageRef classifies s as a GUID when it has the 8-4-4-4-12 hex form,
// and as a codename otherwise.
func ParseLanguageRef(s string) LanguageRef {
	s = strings.TrimSpace(s)
	if IsGUID(s) {
		return LanguageRef{value: strings.ToLower(s), id: true}
	}
	return LanguageRef{value: s}
}

// LanguageID returns a reference to the language with the given GUID.
func LanguageID(id string) LanguageRef {
	return LanguageRef{value: strings.ToLower(id), id: true}
}

// LanguageCodename returns a reference to the language with the given codename.
func LanguageCodename(codename string) LanguageRef {
	return LanguageRef{value: codename}
}

// IsID reports whether the reference is a GUID.
func (r LanguageRef) IsID() bool { return r.id }

// IsZero reports whether the reference is empty.
func (r LanguageRef) IsZero() bool { return r.value == "" }

// String returns the identifier as it appears in request paths.
func (r LanguageRef) String() string { return r.value }

// Matches reports whether the language reference addresses ref.
func (r LanguageRef) Matches(ref Reference) bool {
	if r.id {
		return strings.EqualFold(ref.ID, r.value)
	}
	return ref.Codename == r.value
}

// IsGUID reports whether s is a canonical 36-character GUID.
func IsGUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
