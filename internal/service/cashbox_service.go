package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tallerops/internal/cashbox"
	"tallerops/internal/dto"
	"tallerops/internal/model"
	"tallerops/internal/repository"
	"tallerops/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	activeSessionKey = "cashbox:active"
	timeLayout       = "2006-01-02T15:04:05Z"
)

type CashboxService interface {
	Open(ctx context.Context, actor cashbox.Actor, req dto.OpenSessionRequest) (*dto.SessionReportResponse, error)
	GetActive(ctx context.Context) (*dto.SessionReportResponse, error)
	AddMovement(ctx context.Context, actor cashbox.Actor, req dto.ManualMovementRequest) (*dto.MovementResponse, error)
	ListMovements(ctx context.Context, sessionID uuid.UUID) ([]dto.MovementResponse, error)
	Summarize(ctx context.Context, sessionID uuid.UUID) (*dto.SessionSummary, error)
	Report(ctx context.Context, sessionID uuid.UUID) (*dto.SessionReportResponse, error)
	Close(ctx context.Context, actor cashbox.Actor, req dto.CloseSessionRequest) (*dto.CloseSessionResponse, error)
	History(ctx context.Context, page, limit int) ([]dto.SessionListItem, int64, error)
}

type cashboxService struct {
	repo       repository.CashboxRepository
	sales      repository.SaleRepository
	rdb        *redis.Client // nil disables the active-session cache
	dispatcher *worker.Dispatcher
	cacheTTL   time.Duration
}

func NewCashboxService(
	repo repository.CashboxRepository,
	sales repository.SaleRepository,
	rdb *redis.Client,
	dispatcher *worker.Dispatcher,
	cacheTTL time.Duration,
) CashboxService {
	return &cashboxService{repo: repo, sales: sales, rdb: rdb, dispatcher: dispatcher, cacheTTL: cacheTTL}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Open ──────────────────────────────────────────────────────────────────────

// Open creates a new till session. The no-duplicate-open check is NOT a
// read-then-write here: the insert carries the whole check via the partial
// unique index, so two racing opens resolve in the database and exactly one
// caller wins. The loser gets the winner's id back.
func (s *cashboxService) Open(ctx context.Context, actor cashbox.Actor, req dto.OpenSessionRequest) (*dto.SessionReportResponse, error) {
	if req.InitialAmount.IsNegative() {
		return nil, fmt.Errorf("initial amount: %w", cashbox.ErrInvalidAmount)
	}

	session := &model.CashSession{
		Status:        model.SessionOpen,
		InitialAmount: req.InitialAmount,
		OpenedByID:    actor.ID,
		OpenedByName:  actor.Name,
		OpenedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			conflict := &cashbox.SessionAlreadyOpenError{}
			if open, ferr := s.repo.FindOpenSession(ctx); ferr == nil && open != nil {
				conflict.OpenSessionID = open.ID
			}
			return nil, conflict
		}
		return nil, err
	}

	s.cacheActiveID(ctx, session.ID)
	return s.buildReport(ctx, session)
}

// ── GetActive ─────────────────────────────────────────────────────────────────

// GetActive returns a live report of the open session, or nil when no session
// is open. The open-session id is cached with a short TTL; the report figures
// themselves are always recomputed from the ledger.
func (s *cashboxService) GetActive(ctx context.Context) (*dto.SessionReportResponse, error) {
	if id, ok := s.cachedActiveID(ctx); ok {
		session, err := s.repo.FindSessionByID(ctx, id)
		if err == nil && session.Status == model.SessionOpen {
			return s.buildReport(ctx, session)
		}
		// Stale entry (closed by another instance) — fall through to the DB.
		s.invalidateActiveID(ctx)
	}

	session, err := s.repo.FindOpenSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	s.cacheActiveID(ctx, session.ID)
	return s.buildReport(ctx, session)
}

// ── AddMovement ───────────────────────────────────────────────────────────────

// AddMovement appends a manual income/expense to an open session. Movements
// are immutable — no update or delete path exists; corrections are made by
// adding an offsetting movement.
func (s *cashboxService) AddMovement(ctx context.Context, actor cashbox.Actor, req dto.ManualMovementRequest) (*dto.MovementResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session_id: %w", err)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("movement amount must be positive: %w", cashbox.ErrInvalidAmount)
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, errors.New("movement description is required")
	}
	if req.Type != model.MovementIncome && req.Type != model.MovementExpense {
		return nil, fmt.Errorf("unknown movement type %q", req.Type)
	}

	mov := &model.CashMovement{
		SessionID:     sessionID,
		Type:          req.Type,
		Amount:        req.Amount,
		Description:   req.Description,
		CreatedByID:   actor.ID,
		CreatedByName: actor.Name,
		CreatedAt:     time.Now().UTC(),
	}

	// The open check happens under a row lock in the same transaction as the
	// insert, so a movement can never land in a session that a concurrent
	// close has already frozen.
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		session, err := s.repo.LockSessionTx(tx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return cashbox.ErrNotFound
			}
			return err
		}
		if session.Status != model.SessionOpen {
			return cashbox.ErrSessionNotOpen
		}
		return s.repo.CreateMovementTx(tx, mov)
	})
	if txErr != nil {
		return nil, txErr
	}

	resp := movementToResponse(mov)
	return &resp, nil
}

func (s *cashboxService) ListMovements(ctx context.Context, sessionID uuid.UUID) ([]dto.MovementResponse, error) {
	if _, err := s.findSession(ctx, sessionID); err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovements(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovementResponse, 0, len(movs))
	for i := range movs {
		out = append(out, movementToResponse(&movs[i]))
	}
	return out, nil
}

// ── Summarize ─────────────────────────────────────────────────────────────────

// Summarize derives the live figures of a session from its sale and movement
// history. Pure read — calling it twice with no intervening writes yields
// identical results.
func (s *cashboxService) Summarize(ctx context.Context, sessionID uuid.UUID) (*dto.SessionSummary, error) {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary, err := s.computeSummary(ctx, nil, session)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// Report returns the full session view. Open sessions get live figures;
// closed sessions get the summary frozen at close time, so historical reports
// never shift under a reader.
func (s *cashboxService) Report(ctx context.Context, sessionID uuid.UUID) (*dto.SessionReportResponse, error) {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.buildReport(ctx, session)
}

// ── Close ─────────────────────────────────────────────────────────────────────

// Close reconciles counted money against expected money and performs the
// open→closed transition. The summary is computed, the counted amounts
// attached, and the status flipped in one transaction under a row lock.
// A nonzero variance is reported, never rejected.
func (s *cashboxService) Close(ctx context.Context, actor cashbox.Actor, req dto.CloseSessionRequest) (*dto.CloseSessionResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session_id: %w", err)
	}
	if req.Counted.Cash.IsNegative() || req.Counted.Card.IsNegative() || req.Counted.Transfer.IsNegative() {
		return nil, fmt.Errorf("counted amounts: %w", cashbox.ErrInvalidAmount)
	}

	var summary dto.SessionSummary
	var variance decimal.Decimal
	now := time.Now().UTC()

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		session, err := s.repo.LockSessionTx(tx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return cashbox.ErrNotFound
			}
			return err
		}
		if session.Status == model.SessionClosed {
			return cashbox.ErrSessionAlreadyClosed
		}

		summary, err = s.computeSummary(ctx, tx, session)
		if err != nil {
			return err
		}
		// Cash is the only reconciled channel: card/transfer are settled by
		// the payment processor and recorded for audit only.
		variance = req.Counted.Cash.Sub(summary.ExpectedCash)

		session.Status = model.SessionClosed
		session.ClosedAt = &now
		session.ClosedByID = &actor.ID
		name := actor.Name
		session.ClosedByName = &name

		// Counted figures and computed summary are stored in separate
		// columns: an audit must always be able to tell apart what the
		// ledger predicted from what the operator counted.
		session.FinalCash = &req.Counted.Cash
		session.FinalCard = &req.Counted.Card
		session.FinalTransfer = &req.Counted.Transfer
		session.TotalSales = &summary.TotalSales
		session.CashSales = &summary.CashSales
		session.CardSales = &summary.CardSales
		session.TransferSales = &summary.TransferSales
		session.ManualIncome = &summary.ManualIncome
		session.ManualExpense = &summary.ManualExpense
		session.Variance = &variance

		return s.repo.UpdateSessionTx(tx, session)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.invalidateActiveID(ctx)

	// Best-effort close report for the host's notification collaborator.
	if s.dispatcher != nil {
		_ = s.dispatcher.EnqueueCloseReport(ctx, worker.CloseReportJob{
			SessionID:    sessionID.String(),
			ClosedBy:     actor.Name,
			ClosedAt:     now.Format(timeLayout),
			ExpectedCash: summary.ExpectedCash.String(),
			CountedCash:  req.Counted.Cash.String(),
			Variance:     variance.String(),
		})
	}

	return &dto.CloseSessionResponse{
		SessionID: sessionID.String(),
		Status:    model.SessionClosed,
		Summary:   summary,
		Counted:   req.Counted,
		Variance:  variance,
	}, nil
}

// ── History ───────────────────────────────────────────────────────────────────

func (s *cashboxService) History(ctx context.Context, page, limit int) ([]dto.SessionListItem, int64, error) {
	sessions, total, err := s.repo.ListClosedSessions(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	items := make([]dto.SessionListItem, 0, len(sessions))
	for i := range sessions {
		items = append(items, sessionToListItem(&sessions[i]))
	}
	return items, total, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *cashboxService) findSession(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	session, err := s.repo.FindSessionByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cashbox.ErrNotFound
		}
		return nil, err
	}
	return session, nil
}

// computeSummary derives the session figures from the ledger. When tx is
// non-nil the sums run inside that transaction (close path); otherwise they
// are read-committed snapshots (live report path).
func (s *cashboxService) computeSummary(ctx context.Context, tx *gorm.DB, session *model.CashSession) (dto.SessionSummary, error) {
	var paySums, movSums map[string]decimal.Decimal
	var err error

	if tx != nil {
		if paySums, err = s.sales.SumPaymentsByMethodTx(tx, session.ID); err != nil {
			return dto.SessionSummary{}, err
		}
		if movSums, err = s.repo.SumMovementsByTypeTx(tx, session.ID); err != nil {
			return dto.SessionSummary{}, err
		}
	} else {
		if paySums, err = s.sales.SumPaymentsByMethod(ctx, session.ID); err != nil {
			return dto.SessionSummary{}, err
		}
		if movSums, err = s.repo.SumMovementsByType(ctx, session.ID); err != nil {
			return dto.SessionSummary{}, err
		}
	}

	summary := dto.SessionSummary{
		CashSales:     paySums[model.MethodCash],
		CardSales:     paySums[model.MethodCard],
		TransferSales: paySums[model.MethodTransfer],
		ManualIncome:  movSums[model.MovementIncome],
		ManualExpense: movSums[model.MovementExpense],
	}
	summary.TotalSales = summary.CashSales.Add(summary.CardSales).Add(summary.TransferSales)
	summary.ExpectedCash = session.InitialAmount.
		Add(summary.CashSales).
		Add(summary.ManualIncome).
		Sub(summary.ManualExpense)
	return summary, nil
}

func (s *cashboxService) buildReport(ctx context.Context, session *model.CashSession) (*dto.SessionReportResponse, error) {
	var summary dto.SessionSummary
	if session.Status == model.SessionClosed && session.TotalSales != nil {
		summary = frozenSummary(session)
	} else {
		var err error
		summary, err = s.computeSummary(ctx, nil, session)
		if err != nil {
			return nil, err
		}
	}

	report := &dto.SessionReportResponse{
		SessionID:     session.ID.String(),
		Status:        session.Status,
		InitialAmount: session.InitialAmount,
		OpenedBy:      session.OpenedByName,
		OpenedAt:      session.OpenedAt.Format(timeLayout),
		Summary:       summary,
	}

	if session.FinalCash != nil && session.FinalCard != nil && session.FinalTransfer != nil {
		report.Counted = &dto.CountedAmounts{
			Cash:     *session.FinalCash,
			Card:     *session.FinalCard,
			Transfer: *session.FinalTransfer,
		}
	}
	report.Variance = session.Variance
	report.ClosedBy = session.ClosedByName
	if session.ClosedAt != nil {
		t := session.ClosedAt.Format(timeLayout)
		report.ClosedAt = &t
	}
	return report, nil
}

// frozenSummary rebuilds the summary from the columns persisted at close.
func frozenSummary(session *model.CashSession) dto.SessionSummary {
	summary := dto.SessionSummary{
		TotalSales:    *session.TotalSales,
		CashSales:     *session.CashSales,
		CardSales:     *session.CardSales,
		TransferSales: *session.TransferSales,
		ManualIncome:  *session.ManualIncome,
		ManualExpense: *session.ManualExpense,
	}
	summary.ExpectedCash = session.InitialAmount.
		Add(summary.CashSales).
		Add(summary.ManualIncome).
		Sub(summary.ManualExpense)
	return summary
}

func movementToResponse(m *model.CashMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:          m.ID.String(),
		SessionID:   m.SessionID.String(),
		Type:        m.Type,
		Amount:      m.Amount,
		Description: m.Description,
		CreatedBy:   m.CreatedByName,
		CreatedAt:   m.CreatedAt.Format(timeLayout),
	}
}

func sessionToListItem(s *model.CashSession) dto.SessionListItem {
	item := dto.SessionListItem{
		SessionID:     s.ID.String(),
		Status:        s.Status,
		InitialAmount: s.InitialAmount,
		OpenedBy:      s.OpenedByName,
		OpenedAt:      s.OpenedAt.Format(timeLayout),
		TotalSales:    s.TotalSales,
		Variance:      s.Variance,
	}
	item.ClosedBy = s.ClosedByName
	if s.ClosedAt != nil {
		t := s.ClosedAt.Format(timeLayout)
		item.ClosedAt = &t
	}
	return item
}

// ── Active-session cache ──────────────────────────────────────────────────────
// Only the id is cached; figures are always recomputed from the ledger.

func (s *cashboxService) cachedActiveID(ctx context.Context) (uuid.UUID, bool) {
	if s.rdb == nil {
		return uuid.Nil, false
	}
	val, err := s.rdb.Get(ctx, activeSessionKey).Result()
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s *cashboxService) cacheActiveID(ctx context.Context, id uuid.UUID) {
	if s.rdb == nil {
		return
	}
	_ = s.rdb.Set(ctx, activeSessionKey, id.String(), s.cacheTTL).Err()
}

func (s *cashboxService) invalidateActiveID(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	_ = s.rdb.Del(ctx, activeSessionKey).Err()
}
