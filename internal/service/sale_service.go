package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tallerops/internal/cashbox"
	"tallerops/internal/dto"
	"tallerops/internal/model"
	"tallerops/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleService interface {
	RecordSale(ctx context.Context, actor cashbox.Actor, req dto.RecordSaleRequest) (*dto.SaleResponse, error)
	ListSales(ctx context.Context, sessionID uuid.UUID, page, limit int) (*dto.SaleListResponse, error)
}

type saleService struct {
	repo        repository.SaleRepository
	cashboxRepo repository.CashboxRepository
}

func NewSaleService(repo repository.SaleRepository, cashboxRepo repository.CashboxRepository) SaleService {
	return &saleService{repo: repo, cashboxRepo: cashboxRepo}
}

// ── RecordSale ────────────────────────────────────────────────────────────────

// RecordSale attributes a completed sale to the currently open session.
// Pricing happened upstream; the one arithmetic fact reconciliation depends
// on — Σ payments == total — is re-validated here, exactly, before any write.
// The open-session check runs under a row lock inside the insert transaction,
// so a sale racing a close is either fully recorded in the open session or
// rejected with ErrSessionMismatch for retry against the next session.
func (s *saleService) RecordSale(ctx context.Context, actor cashbox.Actor, req dto.RecordSaleRequest) (*dto.SaleResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session_id: %w", err)
	}
	if req.Total.IsNegative() {
		return nil, fmt.Errorf("sale total: %w", cashbox.ErrInvalidAmount)
	}

	paid := decimal.Zero
	for _, p := range req.Payments {
		if !p.Amount.IsPositive() {
			return nil, fmt.Errorf("payment amount must be positive: %w", cashbox.ErrInvalidAmount)
		}
		switch p.Method {
		case model.MethodCash, model.MethodCard, model.MethodTransfer:
		default:
			return nil, fmt.Errorf("unknown payment method %q", p.Method)
		}
		paid = paid.Add(p.Amount)
	}
	if !paid.Equal(req.Total) {
		return nil, fmt.Errorf("paid %s of %s: %w", paid, req.Total, cashbox.ErrUnbalancedTender)
	}

	sale := &model.Sale{
		SessionID:     sessionID,
		Total:         req.Total,
		CreatedByID:   actor.ID,
		CreatedByName: actor.Name,
		CreatedAt:     time.Now().UTC(),
	}
	for _, p := range req.Payments {
		sale.Payments = append(sale.Payments, model.SalePayment{
			Method: p.Method,
			Amount: p.Amount,
		})
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		session, err := s.cashboxRepo.LockSessionTx(tx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return cashbox.ErrNotFound
			}
			return err
		}
		if session.Status != model.SessionOpen {
			return cashbox.ErrSessionMismatch
		}
		return s.repo.CreateTx(tx, sale)
	})
	if txErr != nil {
		return nil, txErr
	}

	return saleToResponse(sale), nil
}

// ── ListSales ─────────────────────────────────────────────────────────────────

func (s *saleService) ListSales(ctx context.Context, sessionID uuid.UUID, page, limit int) (*dto.SaleListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	sales, total, err := s.repo.ListBySession(ctx, sessionID, page, limit)
	if err != nil {
		return nil, err
	}
	items := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		items = append(items, *saleToResponse(&sales[i]))
	}
	return &dto.SaleListResponse{
		Data:  items,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

func saleToResponse(sale *model.Sale) *dto.SaleResponse {
	payments := make([]dto.PaymentRequest, 0, len(sale.Payments))
	for _, p := range sale.Payments {
		payments = append(payments, dto.PaymentRequest{Method: p.Method, Amount: p.Amount})
	}
	return &dto.SaleResponse{
		ID:        sale.ID.String(),
		SessionID: sale.SessionID.String(),
		Total:     sale.Total,
		Payments:  payments,
		CreatedBy: sale.CreatedByName,
		CreatedAt: sale.CreatedAt.Format(timeLayout),
	}
}
