package common

import "regexp"

// NEAR account id rules: lowercase alphanumeric segments separated by
// . _ or -, 2 to 64 characters.
var accountIDPattern = regexp.MustCompile(`^[a-z0-9._-]+$`)

func IsValidAccountID(accountID string) bool {
	if len(accountID) < 2 || len(accountID) > 64 {
		return false
	}

	return accountIDPattern.MatchString(accountID)
}
