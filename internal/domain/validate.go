package domain

import "strings"

// Validation here is purely syntactic. Checksum or structural rules for the
// Italian codice fiscale are a server concern; the client only guards the
// wire contract (16 alphanumerics, 2-letter province).

const taxCodeLen = 16

// IsValidTaxCode reports whether s, after trimming surrounding whitespace,
// consists of exactly 16 ASCII letters or digits in any case.
func IsValidTaxCode(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != taxCodeLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isAlnum(s[i]) {
			return false
		}
	}
	return true
}

// IsValidProvince reports whether s is exactly two ASCII letters in any case.
func IsValidProvince(s string) bool {
	if len(s) != 2 {
		return false
	}
	return isAlpha(s[0]) && isAlpha(s[1])
}

// NormalizeTaxCode trims and uppercases a tax code. It does not validate.
func NormalizeTaxCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeProvince trims and uppercases a province code. It does not validate.
func NormalizeProvince(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isAlnum(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9')
}
