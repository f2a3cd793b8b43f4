package cashbox

import "github.com/google/uuid"

// Actor identifies the caller performing a till operation. It is resolved by
// the identity middleware from the host-issued token; this module never
// authenticates anyone, it only stamps openedBy/closedBy/createdBy.
type Actor struct {
	ID   uuid.UUID
	Name string
}
