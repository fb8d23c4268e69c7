package security

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxSearchQueryLength defines the maximum allowed length, in characters, for search terms
	MaxSearchQueryLength = 100
)

var (
	errSearchTooLong      = errors.New("search query too long")
	errSearchInvalidChars = errors.New("search query contains invalid characters")
)

// ValidateSearchQuery checks a free-text search term. The term is matched as
// a plain substring, so anything printable is allowed; only oversized terms,
// invalid UTF-8 and control characters are rejected. The term is returned
// unchanged, whitespace included.
func ValidateSearchQuery(query string) (string, error) {
	if query == "" {
		return "", nil
	}

	if !utf8.ValidString(query) {
		return "", errSearchInvalidChars
	}

	if utf8.RuneCountInString(query) > MaxSearchQueryLength {
		return "", errSearchTooLong
	}

	for _, char := range query {
		if !isValidSearchChar(char) {
			return "", errSearchInvalidChars
		}
	}

	return query, nil
}

// isValidSearchChar checks if a character is safe for search queries
func isValidSearchChar(char rune) bool {
	return char == ' ' || !unicode.IsControl(char)
}
