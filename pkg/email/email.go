// Package email derives presentation values from email addresses.
package email

import (
	"strings"
	"unicode"
)

// DisplayName builds a readable name from the local part of an address, for
// invitations created without an explicit invitee name. Separator characters
// split the local part into words; the first and last become the name, so
// "jane.doe@example.org" yields "Jane Doe" and "kim@example.org" yields "Kim".
// An address with an empty local part yields "Guest".
func DisplayName(address string) string {
	local := address
	if at := strings.IndexByte(address, '@'); at >= 0 {
		local = address[:at]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "Guest"
	}
	if len(parts) == 1 {
		return capitalize(parts[0])
	}
	return capitalize(parts[0]) + " " + capitalize(parts[len(parts)-1])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
