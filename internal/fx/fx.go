// Package fx handles currency-preference pass-through. No rate conversion
// happens anywhere: a source reports the currency it actually delivered and
// callers see that effective currency next to each price.
package fx

import "strings"

// Normalize upper-cases and trims a currency code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsCode reports whether s looks like an ISO 4217 code.
func IsCode(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// Resolve picks the effective currency for a preference against a source's
// supported set. It returns the normalized preference when supported, USD
// otherwise, and reports whether the preference was honored. An empty
// supported set means the source accepts anything.
func Resolve(preference string, supported []string) (string, bool) {
	pref := Normalize(preference)
	if pref == "" {
		pref = "USD"
	}
	if len(supported) == 0 {
		return pref, true
	}
	for _, s := range supported {
		if Normalize(s) == pref {
			return pref, true
		}
	}
	return "USD", false
}
