package utils

import (
	"github.com/customeros/mailsherpa/mailvalidate"
)

func UniqueEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	unique := make([]string, 0, len(emails))

	for _, email := range emails {
		if _, exists := seen[email]; !exists {
			seen[email] = struct{}{}
			unique = append(unique, email)
		}
	}

	return unique
}

// IsValidEmailSyntax reports whether the address is syntactically deliverable.
func IsValidEmailSyntax(email string) bool {
	if email == "" {
		return false
	}
	result := mailvalidate.ValidateEmailSyntax(email)
	return result.IsValid
}

// CleanEmailAddress returns the normalized form of a valid address, or the
// input unchanged when validation fails.
func CleanEmailAddress(email string) string {
	if email == "" {
		return ""
	}
	validation := mailvalidate.ValidateEmailSyntax(email)
	if validation.IsValid {
		return validation.CleanEmail
	}
	return email
}

