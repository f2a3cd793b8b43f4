package repository

import (
	"context"

	"tallerops/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID, page, limit int) ([]model.Sale, int64, error)
	SumPaymentsByMethodTx(tx *gorm.DB, sessionID uuid.UUID) (map[string]decimal.Decimal, error)
	SumPaymentsByMethod(ctx context.Context, sessionID uuid.UUID) (map[string]decimal.Decimal, error)
	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).Preload("Payments").Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *saleRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, page, limit int) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64
	offset := (page - 1) * limit

	q := r.db.WithContext(ctx).Model(&model.Sale{}).Where("session_id = ?", sessionID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Payments").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&sales).Error
	return sales, total, err
}

func (r *saleRepo) SumPaymentsByMethodTx(tx *gorm.DB, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	return sumPaymentsByMethod(tx, sessionID)
}

func (r *saleRepo) SumPaymentsByMethod(ctx context.Context, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	return sumPaymentsByMethod(r.db.WithContext(ctx), sessionID)
}

func sumPaymentsByMethod(db *gorm.DB, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	var rows []struct {
		Method string
		Total  decimal.Decimal
	}
	err := db.Raw(
		`SELECT p.method, COALESCE(SUM(p.amount), 0) AS total
		   FROM sale_payments p
		   JOIN sales s ON s.id = p.sale_id
		  WHERE s.session_id = ?
		  GROUP BY p.method`, sessionID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := map[string]decimal.Decimal{
		model.MethodCash:     decimal.Zero,
		model.MethodCard:     decimal.Zero,
		model.MethodTransfer: decimal.Zero,
	}
	for _, row := range rows {
		sums[row.Method] = row.Total
	}
	return sums, nil
}
