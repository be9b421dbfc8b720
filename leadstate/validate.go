package leadstate

import "github.com/badoux/checkmail"

// ValidEmail enforces that a lead's address is format-valid. MX lookups
// are not performed here; they belong to the external verification
// service. Only RFC address-format validity gates a lead insert.
func ValidEmail(email string) bool {
	return checkmail.ValidateFormat(email) == nil
}
