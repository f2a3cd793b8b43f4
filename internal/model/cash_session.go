package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session status values.
const (
	SessionOpen   = "open"
	SessionClosed = "closed"
)

// Movement type values.
const (
	MovementIncome  = "income"
	MovementExpense = "expense"
)

// Payment method values (tender channels).
const (
	MethodCash     = "cash"
	MethodCard     = "card"
	MethodTransfer = "transfer"
)

// CashSession represents the lifecycle of a till session.
// Status: "open" | "closed". At most one row may have status = "open" at any
// time — enforced by a partial unique index (see infra.NewDatabase), not by
// application-level reads.
type CashSession struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Status        string          `gorm:"type:varchar(20);not null;default:'open';index"`
	InitialAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	OpenedByID   uuid.UUID `gorm:"type:uuid;not null"`
	OpenedByName string    `gorm:"not null"`
	OpenedAt     time.Time

	ClosedByID   *uuid.UUID `gorm:"type:uuid"`
	ClosedByName *string
	ClosedAt     *time.Time

	// Counted amounts declared by the operator at close. Kept separate from
	// the computed summary columns below so an audit can always distinguish
	// what the ledger predicted from what was physically counted.
	FinalCash     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	FinalCard     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	FinalTransfer *decimal.Decimal `gorm:"type:decimal(12,2)"`

	// Summary columns are computed once at close and frozen; never user-entered.
	TotalSales    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CashSales     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CardSales     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	TransferSales *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ManualIncome  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ManualExpense *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Variance      *decimal.Decimal `gorm:"type:decimal(12,2)"`

	Movements []CashMovement `gorm:"foreignKey:SessionID"`
}

// CashMovement is an immutable manual entry in the till ledger.
// Type: "income" | "expense". Movements are NEVER modified or deleted —
// corrections are offsetting movements, preserving the audit trail.
type CashMovement struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID   uuid.UUID       `gorm:"type:uuid;index;not null"`
	Type        string          `gorm:"type:varchar(20);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description string          `gorm:"not null"`

	CreatedByID   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedByName string    `gorm:"not null"`
	CreatedAt     time.Time
}
