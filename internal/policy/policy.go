// Package policy decides which user may see and change which contact.
//
// Users are identified by their username everywhere: the owner recorded on a contact is the
// username of its creator, and the caller is the username established by authentication.
package policy

import "gitlab.com/dirk.krummacker/address-book/internal/model"

// IsOwner returns true if the caller owns the contact. Contacts without an owner are owned by
// nobody, and an anonymous (empty) caller owns nothing.
func IsOwner(contact model.Contact, caller string) bool {
	if caller == "" || contact.Owner == nil {
		return false
	}
	return *contact.Owner == caller
}
