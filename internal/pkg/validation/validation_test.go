package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("ana@example.org"))
	assert.True(t, IsValidEmail("a.b+c@sub.example.org"))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail("a b@example.org"))
	assert.False(t, IsValidEmail("missing@tld"))
}

func TestCleanEmail(t *testing.T) {
	assert.Equal(t, "ana@example.org", CleanEmail("  Ana@Example.org "))
	assert.Equal(t, "", CleanEmail("broken"))
	assert.Equal(t, "", CleanEmail(""))
}

func TestCleanUsername(t *testing.T) {
	assert.Equal(t, "ana.perez", CleanUsername("  Ana.Perez "))
	assert.Equal(t, "user-01", CleanUsername("User-01!"))
	assert.Equal(t, "", CleanUsername("   "))
}
