// Package directory keeps the local recipient directory: the mapping between
// phone-number identifiers and service-issued account ids, plus the trust
// flag for each entry. Here it is driven only by the lifecycle manager, which
// keeps the self entry aligned with the account record.
package directory

import "github.com/google/uuid"

// Address identifies a recipient by number, service id, or both.
type Address struct {
	Number    string
	ServiceID uuid.UUID
}

// IsZero reports whether neither identifier is set.
func (a Address) IsZero() bool {
	return a.Number == "" && a.ServiceID == uuid.Nil
}
