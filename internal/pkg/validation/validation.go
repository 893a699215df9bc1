package validation

import (
	"regexp"
	"strings"
)

// Permissive email-syntax rule: /^[^\s@]+@[^\s@]+\.[^\s@]+$/
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Usernames: lowercase letters, digits and a few separators.
var usernameRe = regexp.MustCompile(`[^a-z0-9._@-]`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// CleanEmail trims and lower-cases an email; returns "" if the result
// does not satisfy the email-syntax rule.
func CleanEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRe.MatchString(email) {
		return ""
	}
	return email
}

// CleanUsername trims, lower-cases and strips characters not allowed in
// a username; returns "" when nothing valid remains.
func CleanUsername(username string) string {
	username = strings.TrimSpace(strings.ToLower(username))
	return usernameRe.ReplaceAllString(username, "")
}
