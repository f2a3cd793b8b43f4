package repository

import (
	"context"
	"sort"
	"sync"

	"tallerops/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MemoryStore is an in-memory implementation of both repositories, used by
// unit tests and local development without Postgres. It reproduces the two
// database-level guarantees the services rely on: the unique-open-session
// insert (gorm.ErrDuplicatedKey on a second open) and gorm.ErrRecordNotFound
// on missing ids. Tx parameters are ignored — there is no real transaction.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*model.CashSession
	movements []model.CashMovement
	sales     []model.Sale
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*model.CashSession)}
}

var (
	_ CashboxRepository = (*MemoryStore)(nil)
	_ SaleRepository    = (*MemoryStore)(nil)
)

func (m *MemoryStore) DB() *gorm.DB { return nil }

// ── CashboxRepository ─────────────────────────────────────────────────────────

func (m *MemoryStore) CreateSession(_ context.Context, s *model.CashSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sessions {
		if existing.Status == model.SessionOpen {
			return gorm.ErrDuplicatedKey
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemoryStore) FindOpenSession(_ context.Context) (*model.CashSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var open []*model.CashSession
	for _, s := range m.sessions {
		if s.Status == model.SessionOpen {
			open = append(open, s)
		}
	}
	switch len(open) {
	case 0:
		return nil, nil
	case 1:
		cp := *open[0]
		return &cp, nil
	default:
		return nil, ErrMultipleOpenSessions
	}
}

func (m *MemoryStore) FindSessionByID(_ context.Context, id uuid.UUID) (*model.CashSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) LockSessionTx(_ *gorm.DB, id uuid.UUID) (*model.CashSession, error) {
	return m.FindSessionByID(context.Background(), id)
}

func (m *MemoryStore) UpdateSessionTx(_ *gorm.DB, s *model.CashSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemoryStore) ListClosedSessions(_ context.Context, page, limit int) ([]model.CashSession, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var closed []model.CashSession
	for _, s := range m.sessions {
		if s.Status == model.SessionClosed {
			closed = append(closed, *s)
		}
	}
	sort.Slice(closed, func(i, j int) bool {
		return closed[i].ClosedAt.After(*closed[j].ClosedAt)
	})
	total := int64(len(closed))
	start := (page - 1) * limit
	if start >= len(closed) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(closed) {
		end = len(closed)
	}
	return closed[start:end], total, nil
}

func (m *MemoryStore) CreateMovementTx(_ *gorm.DB, mov *model.CashMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mov.ID == uuid.Nil {
		mov.ID = uuid.New()
	}
	m.movements = append(m.movements, *mov)
	return nil
}

func (m *MemoryStore) ListMovements(_ context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CashMovement
	for _, mov := range m.movements {
		if mov.SessionID == sessionID {
			out = append(out, mov)
		}
	}
	// newest first, mirroring the SQL ORDER BY created_at DESC
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) SumMovementsByTypeTx(_ *gorm.DB, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	return m.SumMovementsByType(context.Background(), sessionID)
}

func (m *MemoryStore) SumMovementsByType(_ context.Context, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sums := map[string]decimal.Decimal{
		model.MovementIncome:  decimal.Zero,
		model.MovementExpense: decimal.Zero,
	}
	for _, mov := range m.movements {
		if mov.SessionID == sessionID {
			sums[mov.Type] = sums[mov.Type].Add(mov.Amount)
		}
	}
	return sums, nil
}

// ── SaleRepository ────────────────────────────────────────────────────────────

func (m *MemoryStore) CreateTx(_ *gorm.DB, s *model.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	for i := range s.Payments {
		if s.Payments[i].ID == uuid.Nil {
			s.Payments[i].ID = uuid.New()
		}
		s.Payments[i].SaleID = s.ID
	}
	m.sales = append(m.sales, *s)
	return nil
}

func (m *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sales {
		if m.sales[i].ID == id {
			cp := m.sales[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MemoryStore) ListBySession(_ context.Context, sessionID uuid.UUID, page, limit int) ([]model.Sale, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Sale
	for _, s := range m.sales {
		if s.SessionID == sessionID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	total := int64(len(out))
	start := (page - 1) * limit
	if start >= len(out) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (m *MemoryStore) SumPaymentsByMethodTx(_ *gorm.DB, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	return m.SumPaymentsByMethod(context.Background(), sessionID)
}

func (m *MemoryStore) SumPaymentsByMethod(_ context.Context, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sums := map[string]decimal.Decimal{
		model.MethodCash:     decimal.Zero,
		model.MethodCard:     decimal.Zero,
		model.MethodTransfer: decimal.Zero,
	}
	for _, s := range m.sales {
		if s.SessionID != sessionID {
			continue
		}
		for _, p := range s.Payments {
			sums[p.Method] = sums[p.Method].Add(p.Amount)
		}
	}
	return sums, nil
}

// SessionByID exposes the raw stored session for test assertions.
func (m *MemoryStore) SessionByID(id uuid.UUID) *model.CashSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

// SeedSession inserts a session bypassing the unique-open guard. Tests use it
// to simulate corrupted data (two open rows).
func (m *MemoryStore) SeedSession(s *model.CashSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	m.sessions[s.ID] = &cp
}
