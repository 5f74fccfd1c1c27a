package rules

import "strings"

const taxIDDigits = 11

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateTaxID reports whether id holds exactly 11 digits (punctuation is
// ignored) that are not all the same digit. The official check digits are
// not verified.
func ValidateTaxID(id string) bool {
	d := digitsOnly(id)
	if len(d) != taxIDDigits {
		return false
	}
	for i := 1; i < len(d); i++ {
		if d[i] != d[0] {
			return true
		}
	}
	return false
}

// FormatTaxID renders the digits of input as 000.000.000-00, formatting
// partial input progressively and dropping digits past the eleventh.
func FormatTaxID(input string) string {
	d := digitsOnly(input)
	if len(d) > taxIDDigits {
		d = d[:taxIDDigits]
	}
	switch {
	case len(d) <= 3:
		return d
	case len(d) <= 6:
		return d[:3] + "." + d[3:]
	case len(d) <= 9:
		return d[:3] + "." + d[3:6] + "." + d[6:]
	default:
		return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
	}
}
