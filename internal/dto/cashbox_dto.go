package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenSessionRequest struct {
	InitialAmount decimal.Decimal `json:"initial_amount" validate:"min=0"`
}

type ManualMovementRequest struct {
	SessionID   string          `json:"session_id"  validate:"required,uuid"`
	Type        string          `json:"type"        validate:"required,oneof=income expense"`
	Amount      decimal.Decimal `json:"amount"      validate:"required,gt=0"`
	Description string          `json:"description" validate:"required,min=3"`
}

// CountedAmounts is the operator's physical count per tender channel,
// declared at close. Card/transfer come from terminal settlement slips.
type CountedAmounts struct {
	Cash     decimal.Decimal `json:"cash"     validate:"min=0"`
	Card     decimal.Decimal `json:"card"     validate:"min=0"`
	Transfer decimal.Decimal `json:"transfer" validate:"min=0"`
}

type CloseSessionRequest struct {
	SessionID string         `json:"session_id" validate:"required,uuid"`
	Counted   CountedAmounts `json:"counted"    validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// SessionSummary holds the ledger-derived figures for a session. While the
// session is open these are live; after close they are the frozen values
// persisted on the session row.
type SessionSummary struct {
	TotalSales    decimal.Decimal `json:"total_sales"`
	CashSales     decimal.Decimal `json:"cash_sales"`
	CardSales     decimal.Decimal `json:"card_sales"`
	TransferSales decimal.Decimal `json:"transfer_sales"`
	ManualIncome  decimal.Decimal `json:"manual_income"`
	ManualExpense decimal.Decimal `json:"manual_expense"`
	ExpectedCash  decimal.Decimal `json:"expected_cash"`
}

type SessionReportResponse struct {
	SessionID     string          `json:"session_id"`
	Status        string          `json:"status"`
	InitialAmount decimal.Decimal `json:"initial_amount"`
	OpenedBy      string          `json:"opened_by"`
	OpenedAt      string          `json:"opened_at"`
	Summary       SessionSummary  `json:"summary"`

	// Set only on closed sessions.
	Counted  *CountedAmounts  `json:"counted,omitempty"`
	Variance *decimal.Decimal `json:"variance,omitempty"`
	ClosedBy *string          `json:"closed_by,omitempty"`
	ClosedAt *string          `json:"closed_at,omitempty"`
}

type CloseSessionResponse struct {
	SessionID string          `json:"session_id"`
	Status    string          `json:"status"`
	Summary   SessionSummary  `json:"summary"`
	Counted   CountedAmounts  `json:"counted"`
	Variance  decimal.Decimal `json:"variance"`
}

type MovementResponse struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   string          `json:"created_at"`
}

// SessionListItem is returned inside the paginated history listing.
type SessionListItem struct {
	SessionID     string           `json:"session_id"`
	Status        string           `json:"status"`
	InitialAmount decimal.Decimal  `json:"initial_amount"`
	OpenedBy      string           `json:"opened_by"`
	OpenedAt      string           `json:"opened_at"`
	ClosedBy      *string          `json:"closed_by,omitempty"`
	ClosedAt      *string          `json:"closed_at,omitempty"`
	TotalSales    *decimal.Decimal `json:"total_sales,omitempty"`
	Variance      *decimal.Decimal `json:"variance,omitempty"`
}
