// Package packtitle normalizes user-supplied pack names for publish requests.
package packtitle

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize cleans a raw pack title: separators collapse to single spaces,
// punctuation is dropped, and the result is title-cased. An empty or
// unusable input yields "Untitled Pack".
func Normalize(raw string) string {
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range raw {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Untitled Pack"
	}
	return cases.Title(language.English).String(title)
}

// ValidateShortName checks a pack short name: lowercase letters, digits, and
// underscores only, starting with a letter.
func ValidateShortName(name string) error {
	if name == "" {
		return fmt.Errorf("short name is empty")
	}
	for i, r := range name {
		if i == 0 {
			if r < 'a' || r > 'z' {
				return fmt.Errorf("short name %q must start with a lowercase letter", name)
			}
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return fmt.Errorf("short name %q contains invalid character %q", name, r)
	}
	return nil
}
