package auth

import "strings"

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes
	maxPasswordLength = 72

	passwordSpecials = "@$!%*?&"
)

// CheckPasswordPolicy enforces the registration password rules: 8 to 72
// characters drawn from letters, digits and @$!%*?&, with at least one
// uppercase letter, one lowercase letter, one digit and one special.
func CheckPasswordPolicy(password string) error {
	var hasUpper, hasLower, hasDigit, hasSpecial, badChar bool

	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		default:
			badChar = true
		}
	}

	var reasons []string
	if len(password) < minPasswordLength {
		reasons = append(reasons, "be at least 8 characters long")
	}
	if len(password) > maxPasswordLength {
		reasons = append(reasons, "be at most 72 characters long")
	}
	if !hasUpper {
		reasons = append(reasons, "include an uppercase letter")
	}
	if !hasLower {
		reasons = append(reasons, "include a lowercase letter")
	}
	if !hasDigit {
		reasons = append(reasons, "include a number")
	}
	if !hasSpecial {
		reasons = append(reasons, "include a special character ("+passwordSpecials+")")
	}
	if badChar {
		reasons = append(reasons, "only use letters, numbers and "+passwordSpecials)
	}

	if len(reasons) > 0 {
		return &PasswordPolicyError{Reasons: reasons}
	}
	return nil
}
