// Package address turns user-typed recipients into canonical chat addresses.
package address

import "strings"

const (
	// UserSuffix is the domain of individual accounts.
	UserSuffix = "c.us"
	// GroupSuffix is the domain of group chats.
	GroupSuffix = "g.us"

	separator  = "@"
	trunkDigit = '0'
)

// Normalize converts raw into a fully-qualified address using the optional
// dialing region code. It is a pure function.
//
// Rules, in order:
//   - raw containing "@" is returned unchanged
//   - a leading "+" means the number is international: keep its digits only
//   - otherwise a leading trunk "0" is replaced by the region, a number that
//     already starts with the region is kept, anything else gets the region prepended
//
// Region matching is by prefix only.
func Normalize(raw, region string) string {
	if strings.Contains(raw, separator) {
		return raw
	}
	if strings.HasPrefix(raw, "+") {
		return digits(raw) + separator + UserSuffix
	}

	cleaned := digits(raw)
	region = digits(region)
	if region != "" {
		switch {
		case len(cleaned) > 0 && cleaned[0] == trunkDigit:
			cleaned = region + cleaned[1:]
		case strings.HasPrefix(cleaned, region):
		default:
			cleaned = region + cleaned
		}
	}
	return cleaned + separator + UserSuffix
}

// User returns the part before "@".
func User(addr string) string {
	user, _, _ := strings.Cut(addr, separator)
	return user
}

// Domain returns the part after "@", or "" when addr is not qualified.
func Domain(addr string) string {
	_, domain, ok := strings.Cut(addr, separator)
	if !ok {
		return ""
	}
	return domain
}

// IsGroup reports whether addr names a group chat.
func IsGroup(addr string) bool {
	return Domain(addr) == GroupSuffix
}

// Valid reports whether addr has a non-empty user part and a domain.
func Valid(addr string) bool {
	return User(addr) != "" && Domain(addr) != ""
}

// HasNumber reports whether raw can name an account: either it is already
// qualified or it carries at least one digit.
func HasNumber(raw string) bool {
	return strings.Contains(raw, separator) || digits(raw) != ""
}

func digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
