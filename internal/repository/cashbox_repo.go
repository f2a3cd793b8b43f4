package repository

import (
	"context"
	"errors"

	"tallerops/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMultipleOpenSessions signals persisted data that violates the
// single-open-session invariant. It is surfaced, never silently resolved.
var ErrMultipleOpenSessions = errors.New("data corruption: more than one open cash session")

type CashboxRepository interface {
	// CreateSession inserts a new open session. The partial unique index on
	// status='open' makes the insert itself the atomic check-and-write; a
	// second concurrent open fails with gorm.ErrDuplicatedKey.
	CreateSession(ctx context.Context, s *model.CashSession) error
	FindOpenSession(ctx context.Context) (*model.CashSession, error)
	FindSessionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error)
	// LockSessionTx loads the session row FOR UPDATE inside tx so that a
	// close and a concurrent write against the same session serialize.
	LockSessionTx(tx *gorm.DB, id uuid.UUID) (*model.CashSession, error)
	UpdateSessionTx(tx *gorm.DB, s *model.CashSession) error
	ListClosedSessions(ctx context.Context, page, limit int) ([]model.CashSession, int64, error)

	CreateMovementTx(tx *gorm.DB, m *model.CashMovement) error
	ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error)
	SumMovementsByTypeTx(tx *gorm.DB, sessionID uuid.UUID) (map[string]decimal.Decimal, error)
	SumMovementsByType(ctx context.Context, sessionID uuid.UUID) (map[string]decimal.Decimal, error)

	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type cashboxRepo struct{ db *gorm.DB }

func NewCashboxRepository(db *gorm.DB) CashboxRepository { return &cashboxRepo{db: db} }

func (r *cashboxRepo) DB() *gorm.DB { return r.db }

func (r *cashboxRepo) CreateSession(ctx context.Context, s *model.CashSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// FindOpenSession returns the single open session, or nil when none exists.
// Finding more than one open row means the uniqueness guarantee was bypassed
// (restored backup, manual edit) — that is reported as ErrMultipleOpenSessions.
func (r *cashboxRepo) FindOpenSession(ctx context.Context) (*model.CashSession, error) {
	var sessions []model.CashSession
	err := r.db.WithContext(ctx).
		Where("status = ?", model.SessionOpen).
		Limit(2).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	switch len(sessions) {
	case 0:
		return nil, nil
	case 1:
		return &sessions[0], nil
	default:
		return nil, ErrMultipleOpenSessions
	}
}

func (r *cashboxRepo) FindSessionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *cashboxRepo) LockSessionTx(tx *gorm.DB, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *cashboxRepo) UpdateSessionTx(tx *gorm.DB, s *model.CashSession) error {
	return tx.Save(s).Error
}

func (r *cashboxRepo) ListClosedSessions(ctx context.Context, page, limit int) ([]model.CashSession, int64, error) {
	var sessions []model.CashSession
	var total int64
	offset := (page - 1) * limit

	q := r.db.WithContext(ctx).Model(&model.CashSession{}).Where("status = ?", model.SessionClosed)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("closed_at DESC").Offset(offset).Limit(limit).Find(&sessions).Error
	return sessions, total, err
}

func (r *cashboxRepo) CreateMovementTx(tx *gorm.DB, m *model.CashMovement) error {
	return tx.Create(m).Error
}

// ListMovements returns the session's manual movements newest first — a
// point-in-time snapshot for operator review.
func (r *cashboxRepo) ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	var movs []model.CashMovement
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&movs).Error
	return movs, err
}

func (r *cashboxRepo) SumMovementsByTypeTx(tx *gorm.DB, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	return sumMovementsByType(tx, sessionID)
}

func (r *cashboxRepo) SumMovementsByType(ctx context.Context, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	return sumMovementsByType(r.db.WithContext(ctx), sessionID)
}

func sumMovementsByType(db *gorm.DB, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	var rows []struct {
		Type  string
		Total decimal.Decimal
	}
	err := db.Raw(
		`SELECT type, COALESCE(SUM(amount), 0) AS total
		   FROM cash_movements
		  WHERE session_id = ?
		  GROUP BY type`, sessionID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := map[string]decimal.Decimal{
		model.MovementIncome:  decimal.Zero,
		model.MovementExpense: decimal.Zero,
	}
	for _, row := range rows {
		sums[row.Type] = row.Total
	}
	return sums, nil
}
