package dto

import "github.com/shopspring/decimal"

type PaymentRequest struct {
	Method string          `json:"method" validate:"required,oneof=cash card transfer"`
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

// RecordSaleRequest attributes an already-priced sale to the open session.
// Cart contents, discounts and change are settled upstream; only the total
// and the tender split arrive here.
type RecordSaleRequest struct {
	SessionID string           `json:"session_id" validate:"required,uuid"`
	Total     decimal.Decimal  `json:"total"      validate:"min=0"`
	Payments  []PaymentRequest `json:"payments"   validate:"required,min=1,dive"`
}

type SaleResponse struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Total     decimal.Decimal  `json:"total"`
	Payments  []PaymentRequest `json:"payments"`
	CreatedBy string           `json:"created_by"`
	CreatedAt string           `json:"created_at"`
}

type SaleListResponse struct {
	Data  []SaleResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
