package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is a completed point-of-sale transaction attributed to the session
// that was open when it happened. Pricing, discounts and tender split are
// decided upstream; this subsystem only records the attribution. Sales are
// append-only: no update or delete path exists.
type Sale struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	CreatedByID   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedByName string    `gorm:"not null"`
	CreatedAt     time.Time

	Payments []SalePayment `gorm:"foreignKey:SaleID"`
}

// SalePayment is one tender line of a sale.
// Invariant (re-validated on write): sum of a sale's payment amounts equals
// Sale.Total exactly, and every amount is positive.
type SalePayment struct {
	ID     uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Method string          `gorm:"type:varchar(20);not null"`
	Amount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}
