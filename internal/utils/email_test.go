package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueEmails(t *testing.T) {
	emails := []string{"jane@example.com", "john@example.com", "jane@example.com"}

	assert.Equal(t, []string{"jane@example.com", "john@example.com"}, UniqueEmails(emails))
	assert.Empty(t, UniqueEmails(nil))
}

func TestIsValidEmailSyntax(t *testing.T) {
	assert.True(t, IsValidEmailSyntax("jane@example.com"))
	assert.False(t, IsValidEmailSyntax("not-an-address"))
	assert.False(t, IsValidEmailSyntax(""))
}

func TestCleanEmailAddress(t *testing.T) {
	assert.Equal(t, "jane@example.com", CleanEmailAddress("jane@example.com"))
	assert.Equal(t, "", CleanEmailAddress(""))
	// invalid input passes through unchanged
	assert.Equal(t, "not-an-address", CleanEmailAddress("not-an-address"))
}
