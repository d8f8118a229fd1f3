package utils

import (
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	// Safaricom international format: 254 followed by 9 digits.
	mpesaPhoneRegex = regexp.MustCompile(`^254\d{9}$`)
	nonDigitRegex   = regexp.MustCompile(`\D`)
)

// NormalizePhone strips all non-digit characters and validates the result
// against the strict international mobile format the Daraja API requires
// (254XXXXXXXXX, 12 digits total). Returns the normalized number and true,
// or "" and false when the input cannot be normalized.
func NormalizePhone(phone string) (string, bool) {
	cleaned := nonDigitRegex.ReplaceAllString(phone, "")
	if !mpesaPhoneRegex.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}

// IsValidEmail performs a shape check on an email address
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// MissingFields returns the names of fields whose values are blank,
// preserving input order.
func MissingFields(fields map[string]string, order []string) []string {
	var missing []string
	for _, name := range order {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
