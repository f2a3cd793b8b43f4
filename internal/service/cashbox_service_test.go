package service_test

import (
	"context"
	"sync"
	"testing"

	"tallerops/internal/cashbox"
	"tallerops/internal/dto"
	"tallerops/internal/model"
	"tallerops/internal/repository"
	"tallerops/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestActor(name string) cashbox.Actor {
	return cashbox.Actor{ID: uuid.New(), Name: name}
}

// newCashbox wires a cashbox service and a sale service over one shared
// in-memory store, like the composition root does over one database.
func newCashbox(t *testing.T) (*repository.MemoryStore, service.CashboxService, service.SaleService) {
	t.Helper()
	store := repository.NewMemoryStore()
	cashboxSvc := service.NewCashboxService(store, store, nil, nil, 0)
	saleSvc := service.NewSaleService(store, store)
	return store, cashboxSvc, saleSvc
}

func mustOpen(t *testing.T, svc service.CashboxService, initial int64) uuid.UUID {
	t.Helper()
	resp, err := svc.Open(context.Background(), newTestActor("Maria Lopez"), dto.OpenSessionRequest{
		InitialAmount: decimal.NewFromInt(initial),
	})
	require.NoError(t, err)
	return uuid.MustParse(resp.SessionID)
}

// ── Open ──────────────────────────────────────────────────────────────────────

func TestOpenSession(t *testing.T) {
	_, svc, _ := newCashbox(t)

	resp, err := svc.Open(context.Background(), newTestActor("Maria Lopez"), dto.OpenSessionRequest{
		InitialAmount: decimal.NewFromInt(50000),
	})

	require.NoError(t, err)
	assert.Equal(t, model.SessionOpen, resp.Status)
	assert.Equal(t, "Maria Lopez", resp.OpenedBy)
	assert.Equal(t, "50000", resp.InitialAmount.String())
	assert.Equal(t, "50000", resp.Summary.ExpectedCash.String())
	assert.True(t, resp.Summary.TotalSales.IsZero())
}

func TestOpenSessionNegativeAmount(t *testing.T) {
	_, svc, _ := newCashbox(t)

	_, err := svc.Open(context.Background(), newTestActor("Maria Lopez"), dto.OpenSessionRequest{
		InitialAmount: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, cashbox.ErrInvalidAmount)
}

func TestOpenSessionAlreadyOpen(t *testing.T) {
	_, svc, _ := newCashbox(t)
	firstID := mustOpen(t, svc, 5000)

	_, err := svc.Open(context.Background(), newTestActor("Jorge Diaz"), dto.OpenSessionRequest{
		InitialAmount: decimal.NewFromInt(2000),
	})
	require.ErrorIs(t, err, cashbox.ErrSessionAlreadyOpen)

	var conflict *cashbox.SessionAlreadyOpenError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, firstID, conflict.OpenSessionID)
}

func TestOpenSessionConcurrent(t *testing.T) {
	// Scenario: N opens race with no prior open session. Exactly one wins;
	// every loser learns the winner's id.
	_, svc, _ := newCashbox(t)

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	ids := make([]string, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.Open(context.Background(), newTestActor("Cashier"), dto.OpenSessionRequest{
				InitialAmount: decimal.NewFromInt(1000),
			})
			errs[i] = err
			if err == nil {
				ids[i] = resp.SessionID
			}
		}(i)
	}
	wg.Wait()

	var winnerID string
	wins := 0
	for i := 0; i < n; i++ {
		if errs[i] == nil {
			wins++
			winnerID = ids[i]
		}
	}
	require.Equal(t, 1, wins)

	for i := 0; i < n; i++ {
		if errs[i] == nil {
			continue
		}
		var conflict *cashbox.SessionAlreadyOpenError
		require.ErrorAs(t, errs[i], &conflict)
		assert.Equal(t, winnerID, conflict.OpenSessionID.String())
	}
}

// ── GetActive ─────────────────────────────────────────────────────────────────

func TestGetActive(t *testing.T) {
	_, svc, _ := newCashbox(t)

	resp, err := svc.GetActive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, resp)

	id := mustOpen(t, svc, 3000)

	resp, err = svc.GetActive(context.Background())
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, id.String(), resp.SessionID)
}

func TestGetActiveMultipleOpenIsFatal(t *testing.T) {
	// Two persisted open rows mean the uniqueness guarantee was bypassed.
	// That must surface as an error, never be silently resolved.
	store, svc, _ := newCashbox(t)
	store.SeedSession(&model.CashSession{Status: model.SessionOpen})
	store.SeedSession(&model.CashSession{Status: model.SessionOpen})

	_, err := svc.GetActive(context.Background())
	assert.ErrorIs(t, err, repository.ErrMultipleOpenSessions)
}

// ── Movements ─────────────────────────────────────────────────────────────────

func TestAddMovement(t *testing.T) {
	store, svc, _ := newCashbox(t)
	id := mustOpen(t, svc, 1000)

	resp, err := svc.AddMovement(context.Background(), newTestActor("Maria Lopez"), dto.ManualMovementRequest{
		SessionID:   id.String(),
		Type:        model.MovementIncome,
		Amount:      decimal.NewFromInt(500),
		Description: "change float",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MovementIncome, resp.Type)
	assert.Equal(t, "500", resp.Amount.String())
	assert.Equal(t, "Maria Lopez", resp.CreatedBy)

	movs, err := store.ListMovements(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, movs, 1)
}

func TestAddMovementValidation(t *testing.T) {
	_, svc, _ := newCashbox(t)
	id := mustOpen(t, svc, 1000)
	actor := newTestActor("Maria Lopez")

	_, err := svc.AddMovement(context.Background(), actor, dto.ManualMovementRequest{
		SessionID: id.String(), Type: model.MovementIncome,
		Amount: decimal.Zero, Description: "zero amount",
	})
	assert.ErrorIs(t, err, cashbox.ErrInvalidAmount)

	_, err = svc.AddMovement(context.Background(), actor, dto.ManualMovementRequest{
		SessionID: id.String(), Type: model.MovementExpense,
		Amount: decimal.NewFromInt(100), Description: "   ",
	})
	assert.Error(t, err)

	_, err = svc.AddMovement(context.Background(), actor, dto.ManualMovementRequest{
		SessionID: id.String(), Type: "refund",
		Amount: decimal.NewFromInt(100), Description: "bad type",
	})
	assert.Error(t, err)

	_, err = svc.AddMovement(context.Background(), actor, dto.ManualMovementRequest{
		SessionID: uuid.NewString(), Type: model.MovementIncome,
		Amount: decimal.NewFromInt(100), Description: "ghost session",
	})
	assert.ErrorIs(t, err, cashbox.ErrNotFound)
}

func TestListMovementsNewestFirst(t *testing.T) {
	_, svc, _ := newCashbox(t)
	id := mustOpen(t, svc, 1000)
	actor := newTestActor("Maria Lopez")

	for _, desc := range []string{"first", "second", "third"} {
		_, err := svc.AddMovement(context.Background(), actor, dto.ManualMovementRequest{
			SessionID: id.String(), Type: model.MovementIncome,
			Amount: decimal.NewFromInt(10), Description: desc,
		})
		require.NoError(t, err)
	}

	movs, err := svc.ListMovements(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, movs, 3)
	assert.Equal(t, "third", movs[0].Description)
	assert.Equal(t, "first", movs[2].Description)
}

// ── Summarize ─────────────────────────────────────────────────────────────────

func TestSummarizeCashSale(t *testing.T) {
	// Open with 50000, one cash sale of 10000 → cashSales 10000, expected 60000.
	_, svc, sales := newCashbox(t)
	id := mustOpen(t, svc, 50000)

	_, err := sales.RecordSale(context.Background(), newTestActor("Maria Lopez"), dto.RecordSaleRequest{
		SessionID: id.String(),
		Total:     decimal.NewFromInt(10000),
		Payments:  []dto.PaymentRequest{{Method: model.MethodCash, Amount: decimal.NewFromInt(10000)}},
	})
	require.NoError(t, err)

	summary, err := svc.Summarize(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "10000", summary.CashSales.String())
	assert.Equal(t, "10000", summary.TotalSales.String())
	assert.Equal(t, "60000", summary.ExpectedCash.String())
}

func TestSummarizeManualExpense(t *testing.T) {
	// Continuing the cash-sale case: a 5000 expense drops expected cash to 55000.
	_, svc, sales := newCashbox(t)
	id := mustOpen(t, svc, 50000)

	_, err := sales.RecordSale(context.Background(), newTestActor("Maria Lopez"), dto.RecordSaleRequest{
		SessionID: id.String(),
		Total:     decimal.NewFromInt(10000),
		Payments:  []dto.PaymentRequest{{Method: model.MethodCash, Amount: decimal.NewFromInt(10000)}},
	})
	require.NoError(t, err)

	_, err = svc.AddMovement(context.Background(), newTestActor("Maria Lopez"), dto.ManualMovementRequest{
		SessionID: id.String(), Type: model.MovementExpense,
		Amount: decimal.NewFromInt(5000), Description: "supplier payment",
	})
	require.NoError(t, err)

	summary, err := svc.Summarize(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "5000", summary.ManualExpense.String())
	assert.Equal(t, "55000", summary.ExpectedCash.String())
}

func TestSummarizeTotalsAcrossMethods(t *testing.T) {
	// totalSales must always equal cash + card + transfer.
	_, svc, sales := newCashbox(t)
	id := mustOpen(t, svc, 0)

	_, err := sales.RecordSale(context.Background(), newTestActor("Maria Lopez"), dto.RecordSaleRequest{
		SessionID: id.String(),
		Total:     decimal.NewFromInt(9000),
		Payments: []dto.PaymentRequest{
			{Method: model.MethodCash, Amount: decimal.NewFromInt(2000)},
			{Method: model.MethodCard, Amount: decimal.NewFromInt(3000)},
			{Method: model.MethodTransfer, Amount: decimal.NewFromInt(4000)},
		},
	})
	require.NoError(t, err)

	summary, err := svc.Summarize(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "2000", summary.CashSales.String())
	assert.Equal(t, "3000", summary.CardSales.String())
	assert.Equal(t, "4000", summary.TransferSales.String())
	assert.Equal(t,
		summary.CashSales.Add(summary.CardSales).Add(summary.TransferSales).String(),
		summary.TotalSales.String())
	// Only cash contributes to the expected drawer content.
	assert.Equal(t, "2000", summary.ExpectedCash.String())
}

func TestSummarizeIdempotent(t *testing.T) {
	_, svc, sales := newCashbox(t)
	id := mustOpen(t, svc, 7000)

	_, err := sales.RecordSale(context.Background(), newTestActor("Maria Lopez"), dto.RecordSaleRequest{
		SessionID: id.String(),
		Total:     decimal.NewFromInt(1500),
		Payments:  []dto.PaymentRequest{{Method: model.MethodCash, Amount: decimal.NewFromInt(1500)}},
	})
	require.NoError(t, err)

	first, err := svc.Summarize(context.Background(), id)
	require.NoError(t, err)
	second, err := svc.Summarize(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSummarizeNotFound(t *testing.T) {
	_, svc, _ := newCashbox(t)
	_, err := svc.Summarize(context.Background(), uuid.New())
	assert.ErrorIs(t, err, cashbox.ErrNotFound)
}

// ── Close ─────────────────────────────────────────────────────────────────────

func TestCloseSessionShortage(t *testing.T) {
	// Open 50000, cash sale 10000, expense 5000 → expected 55000.
	// Counted 54000 → variance -1000; afterwards the session is frozen.
	store, svc, sales := newCashbox(t)
	id := mustOpen(t, svc, 50000)
	actor := newTestActor("Maria Lopez")

	_, err := sales.RecordSale(context.Background(), actor, dto.RecordSaleRequest{
		SessionID: id.String(),
		Total:     decimal.NewFromInt(10000),
		Payments:  []dto.PaymentRequest{{Method: model.MethodCash, Amount: decimal.NewFromInt(10000)}},
	})
	require.NoError(t, err)

	_, err = svc.AddMovement(context.Background(), actor, dto.ManualMovementRequest{
		SessionID: id.String(), Type: model.MovementExpense,
		Amount: decimal.NewFromInt(5000), Description: "supplier payment",
	})
	require.NoError(t, err)

	resp, err := svc.Close(context.Background(), newTestActor("Carla Ruiz"), dto.CloseSessionRequest{
		SessionID: id.String(),
		Counted:   dto.CountedAmounts{Cash: decimal.NewFromInt(54000)},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionClosed, resp.Status)
	assert.Equal(t, "55000", resp.Summary.ExpectedCash.String())
	assert.Equal(t, "-1000", resp.Variance.String())

	// The history of a closed session is permanently frozen.
	_, err = svc.AddMovement(context.Background(), actor, dto.ManualMovementRequest{
		SessionID: id.String(), Type: model.MovementIncome,
		Amount: decimal.NewFromInt(100), Description: "late entry",
	})
	assert.ErrorIs(t, err, cashbox.ErrSessionNotOpen)

	_, err = sales.RecordSale(context.Background(), actor, dto.RecordSaleRequest{
		SessionID: id.String(),
		Total:     decimal.NewFromInt(100),
		Payments:  []dto.PaymentRequest{{Method: model.MethodCash, Amount: decimal.NewFromInt(100)}},
	})
	assert.ErrorIs(t, err, cashbox.ErrSessionMismatch)

	_, err = svc.Close(context.Background(), actor, dto.CloseSessionRequest{
		SessionID: id.String(),
		Counted:   dto.CountedAmounts{Cash: decimal.NewFromInt(54000)},
	})
	assert.ErrorIs(t, err, cashbox.ErrSessionAlreadyClosed)

	// Counted figures and computed summary live in separate columns.
	stored := store.SessionByID(id)
	require.NotNil(t, stored)
	assert.Equal(t, "54000", stored.FinalCash.String())
	assert.Equal(t, "10000", stored.CashSales.String())
	assert.Equal(t, "5000", stored.ManualExpense.String())
	assert.Equal(t, "-1000", stored.Variance.String())
}

func TestCloseSessionOverageIsReported(t *testing.T) {
	// A surplus is a report, not an error.
	_, svc, _ := newCashbox(t)
	id := mustOpen(t, svc, 2000)

	resp, err := svc.Close(context.Background(), newTestActor("Maria Lopez"), dto.CloseSessionRequest{
		SessionID: id.String(),
		Counted:   dto.CountedAmounts{Cash: decimal.NewFromInt(2500)},
	})
	require.NoError(t, err)
	assert.Equal(t, "500", resp.Variance.String())
}

func TestCloseSessionNegativeCounted(t *testing.T) {
	_, svc, _ := newCashbox(t)
	id := mustOpen(t, svc, 2000)

	_, err := svc.Close(context.Background(), newTestActor("Maria Lopez"), dto.CloseSessionRequest{
		SessionID: id.String(),
		Counted:   dto.CountedAmounts{Cash: decimal.NewFromInt(-1)},
	})
	assert.ErrorIs(t, err, cashbox.ErrInvalidAmount)
}

func TestCloseSessionNotFound(t *testing.T) {
	_, svc, _ := newCashbox(t)
	_, err := svc.Close(context.Background(), newTestActor("Maria Lopez"), dto.CloseSessionRequest{
		SessionID: uuid.NewString(),
		Counted:   dto.CountedAmounts{},
	})
	assert.ErrorIs(t, err, cashbox.ErrNotFound)
}

func TestClosedReportUsesFrozenSummary(t *testing.T) {
	_, svc, sales := newCashbox(t)
	id := mustOpen(t, svc, 1000)

	_, err := sales.RecordSale(context.Background(), newTestActor("Maria Lopez"), dto.RecordSaleRequest{
		SessionID: id.String(),
		Total:     decimal.NewFromInt(800),
		Payments:  []dto.PaymentRequest{{Method: model.MethodCard, Amount: decimal.NewFromInt(800)}},
	})
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), newTestActor("Maria Lopez"), dto.CloseSessionRequest{
		SessionID: id.String(),
		Counted:   dto.CountedAmounts{Cash: decimal.NewFromInt(1000), Card: decimal.NewFromInt(800)},
	})
	require.NoError(t, err)

	report, err := svc.Report(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.SessionClosed, report.Status)
	assert.Equal(t, "800", report.Summary.CardSales.String())
	require.NotNil(t, report.Counted)
	assert.Equal(t, "800", report.Counted.Card.String())
	require.NotNil(t, report.Variance)
	assert.Equal(t, "0", report.Variance.String())
}

// ── History ───────────────────────────────────────────────────────────────────

func TestHistoryListsClosedSessions(t *testing.T) {
	_, svc, _ := newCashbox(t)

	for i := 0; i < 3; i++ {
		id := mustOpen(t, svc, 1000)
		_, err := svc.Close(context.Background(), newTestActor("Maria Lopez"), dto.CloseSessionRequest{
			SessionID: id.String(),
			Counted:   dto.CountedAmounts{Cash: decimal.NewFromInt(1000)},
		})
		require.NoError(t, err)
	}
	mustOpen(t, svc, 500) // still open — must not appear

	items, total, err := svc.History(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 3)
	for _, item := range items {
		assert.Equal(t, model.SessionClosed, item.Status)
	}
}
