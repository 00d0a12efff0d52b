//go:build integration

package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"stockflow/backend/internal/domain"
	"stockflow/backend/internal/store"
)

// testDatabaseURL prefers STOCKFLOW_TEST_DATABASE_URL and otherwise starts a
// throwaway container.
func testDatabaseURL(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("STOCKFLOW_TEST_DATABASE_URL"); url != "" {
		return url
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stockflow_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	url := testDatabaseURL(t)
	require.NoError(t, Migrate(url))
	// second run is a no-op
	require.NoError(t, Migrate(url))

	s, err := New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIntegrationConcurrentStockDeltasAreSerialized(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	tenant := "it-" + time.Now().Format("150405.000000")
	now := time.Now().UTC()

	require.NoError(t, s.Atomic(ctx, tenant, func(tx store.Tx) error {
		p := domain.Product{ID: "p1", Name: "Coffee", SKU: "C-1", Price: decimal.NewFromInt(9), CreatedAt: now, UpdatedAt: now}
		p.RefreshStatus()
		return tx.Products().Create(ctx, p)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Atomic(ctx, tenant, func(tx store.Tx) error {
				p, err := tx.Products().Get(ctx, "p1")
				if err != nil {
					return err
				}
				p.ApplyStockDelta(2, time.Now().UTC())
				return tx.Products().Update(ctx, *p)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.NoError(t, s.View(ctx, tenant, func(tx store.Tx) error {
		p, err := tx.Products().Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 40, p.Stock)
		assert.Equal(t, int64(20), p.Version)
		assert.Equal(t, domain.StockStatusInStock, p.Status)
		return nil
	}))

	tenants, err := s.Tenants(ctx)
	require.NoError(t, err)
	assert.Contains(t, tenants, tenant)
}

func TestIntegrationSaleAndShiftRoundTrip(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	tenant := "it-sale-" + time.Now().Format("150405.000000")
	now := time.Now().UTC().Truncate(time.Microsecond)

	shift := domain.Shift{ID: "sh-1", EmployeeID: "emp-1", StartTime: now, StartingCashFloat: decimal.NewFromInt(100), Status: domain.ShiftStatusOpen}
	sale := domain.Sale{
		ID:             "s-1",
		Timestamp:      now,
		EmployeeID:     "emp-1",
		ShiftID:        "sh-1",
		Subtotal:       decimal.NewFromInt(20),
		Discount:       decimal.Zero,
		Tax:            decimal.NewFromInt(2),
		Total:          decimal.NewFromInt(22),
		RefundedAmount: decimal.Zero,
		Status:         domain.SaleStatusCompleted,
		Payments:       []domain.Payment{{Method: domain.PaymentCash, Amount: decimal.NewFromInt(22)}},
		LineItems:      []domain.SaleLine{{ProductID: "p1", Name: "Coffee", Quantity: 2, UnitPrice: decimal.NewFromInt(10), Subtotal: decimal.NewFromInt(20)}},
	}
	require.NoError(t, s.Atomic(ctx, tenant, func(tx store.Tx) error {
		if err := tx.Shifts().Create(ctx, shift); err != nil {
			return err
		}
		return tx.Sales().Create(ctx, sale)
	}))

	require.NoError(t, s.Atomic(ctx, tenant, func(tx store.Tx) error {
		got, err := tx.Sales().Get(ctx, "s-1")
		require.NoError(t, err)
		got.LineItems[0].RefundedQuantity = 1
		got.RefundedAmount = decimal.NewFromInt(11)
		got.Status = domain.SaleStatusPartiallyRefunded
		return tx.Sales().Update(ctx, *got)
	}))

	require.NoError(t, s.View(ctx, tenant, func(tx store.Tx) error {
		sales, err := tx.Sales().List(ctx, store.SaleFilter{ShiftID: "sh-1"})
		require.NoError(t, err)
		require.Len(t, sales, 1)
		assert.Equal(t, 1, sales[0].LineItems[0].RefundedQuantity)
		assert.True(t, decimal.NewFromInt(11).Equal(sales[0].RefundedAmount))

		open, err := tx.Shifts().FindOpenByEmployee(ctx, "emp-1")
		require.NoError(t, err)
		assert.Equal(t, "sh-1", open.ID)
		return nil
	}))
}
