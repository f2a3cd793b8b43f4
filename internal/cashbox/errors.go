// Package cashbox defines the domain error taxonomy of the till-session
// ledger. Handlers and callers match these with errors.Is / errors.As; the
// service layer never returns raw gorm errors for precondition failures.
package cashbox

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrInvalidAmount: negative amount on open/close, or a non-positive
	// movement or payment amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSessionAlreadyOpen: open attempted while another session is open.
	// Returned wrapped in SessionAlreadyOpenError, which carries the id of
	// the session that is already open.
	ErrSessionAlreadyOpen = errors.New("a cash session is already open")

	// ErrSessionNotOpen: the operation requires an open session and the
	// referenced one is closed (or there is no open session at all).
	ErrSessionNotOpen = errors.New("cash session is not open")

	// ErrSessionAlreadyClosed: close attempted on an already-closed session.
	ErrSessionAlreadyClosed = errors.New("cash session is already closed")

	// ErrSessionMismatch: a sale references a session id that is not the
	// currently open session (e.g. the till was closed mid-checkout).
	ErrSessionMismatch = errors.New("sale does not belong to the open session")

	// ErrUnbalancedTender: the sale's payment amounts do not sum to its total.
	ErrUnbalancedTender = errors.New("payments do not add up to the sale total")

	// ErrNotFound: the referenced session does not exist.
	ErrNotFound = errors.New("cash session not found")
)

// SessionAlreadyOpenError reports a rejected open together with the id of the
// session that won, so the operator can be redirected to it.
type SessionAlreadyOpenError struct {
	OpenSessionID uuid.UUID
}

func (e *SessionAlreadyOpenError) Error() string {
	return fmt.Sprintf("a cash session is already open (id %s)", e.OpenSessionID)
}

func (e *SessionAlreadyOpenError) Unwrap() error { return ErrSessionAlreadyOpen }
