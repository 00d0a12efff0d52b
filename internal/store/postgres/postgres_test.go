package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/backend/internal/domain"
	"stockflow/backend/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

var productCols = []string{"id", "name", "sku", "category", "price", "cost", "stock", "version", "created_at", "updated_at"}

func TestAtomicTakesTenantLockAndCommits(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE products`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Atomic(ctx, "t1", func(tx store.Tx) error {
		p := domain.Product{ID: "p1", Name: "Coffee", SKU: "C-1", Price: decimal.NewFromInt(9), Stock: 30, UpdatedAt: now}
		return tx.Products().Update(ctx, p)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicRollsBackWhenCallbackFails(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.Atomic(context.Background(), "t1", func(store.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicRejectsMalformedTenantBeforeBegin(t *testing.T) {
	s, mock := newMockStore(t)

	err := s.Atomic(context.Background(), "", func(store.Tx) error { return nil })
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductGetMapsMissingRowToNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM products`).WithArgs("t1", "missing").WillReturnRows(sqlmock.NewRows(productCols))
	mock.ExpectRollback()

	err := s.View(ctx, "t1", func(tx store.Tx) error {
		_, err := tx.Products().Get(ctx, "missing")
		return err
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductListDerivesStatusFromStock(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(productCols).
		AddRow("p1", "Coffee", "C-1", "grocery", "8.90", "5.10", 26, 3, now, now).
		AddRow("p2", "Tea", "T-1", nil, "3.40", "1.70", 25, 1, now, now).
		AddRow("p3", "Soap", "S-1", "household", "1.50", "0.60", 0, 0, now, now)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM products`).WithArgs("t1").WillReturnRows(rows)
	mock.ExpectCommit()

	var products []domain.Product
	err := s.View(ctx, "t1", func(tx store.Tx) error {
		var err error
		products, err = tx.Products().List(ctx)
		return err
	})
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, domain.StockStatusInStock, products[0].Status)
	assert.True(t, decimal.RequireFromString("8.90").Equal(products[0].Price))
	assert.Equal(t, int64(3), products[0].Version)
	assert.Equal(t, domain.StockStatusLowStock, products[1].Status)
	assert.Empty(t, products[1].Category)
	assert.Equal(t, domain.StockStatusOutOfStock, products[2].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductCreateMapsUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO products`).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := s.Atomic(ctx, "t1", func(tx store.Tx) error {
		return tx.Products().Create(ctx, domain.Product{ID: "p1", SKU: "C-1", Name: "Coffee"})
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOfMissingRowIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE purchase_orders`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.Atomic(ctx, "t1", func(tx store.Tx) error {
		return tx.PurchaseOrders().Update(ctx, domain.PurchaseOrder{ID: "po-x", Status: domain.PurchaseOrderStatusDraft})
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseOrderGetDecodesLineItems(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	cols := []string{"id", "vendor_id", "issue_date", "expected_date", "line_items", "total", "status", "notes", "created_at", "updated_at"}
	lines := []byte(`[{"product_id":"p1","quantity":10,"unit_cost":"2.50","quantity_received":4}]`)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM purchase_orders`).WithArgs("t1", "po-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("po-1", "v1", now, nil, lines, "25.00", "partially_received", nil, now, now))
	mock.ExpectCommit()

	var po *domain.PurchaseOrder
	err := s.View(ctx, "t1", func(tx store.Tx) error {
		var err error
		po, err = tx.PurchaseOrders().Get(ctx, "po-1")
		return err
	})
	require.NoError(t, err)
	require.Len(t, po.LineItems, 1)
	assert.Equal(t, 4, po.LineItems[0].QuantityReceived)
	assert.True(t, decimal.RequireFromString("2.50").Equal(po.LineItems[0].UnitCost))
	require.NotNil(t, po.IssueDate)
	assert.Nil(t, po.ExpectedDate)
	assert.Equal(t, domain.PurchaseOrderStatusPartiallyReceived, po.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftScanKeepsOpenShiftTotalsNil(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	cols := []string{"id", "employee_id", "start_time", "end_time", "starting_cash_float", "ending_cash_float",
		"cash_sales", "card_sales", "total_sales", "discrepancy", "notes", "status"}
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM shifts`).WithArgs("t1", "emp-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("sh-1", "emp-1", now, nil, "100.00", nil, nil, nil, nil, nil, nil, "open"))
	mock.ExpectCommit()

	var shift *domain.Shift
	err := s.View(ctx, "t1", func(tx store.Tx) error {
		var err error
		shift, err = tx.Shifts().FindOpenByEmployee(ctx, "emp-1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftStatusOpen, shift.Status)
	assert.True(t, decimal.NewFromInt(100).Equal(shift.StartingCashFloat))
	assert.Nil(t, shift.EndTime)
	assert.Nil(t, shift.Discrepancy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLogListWithoutLimitPassesNull(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	cols := []string{"id", "actor_username", "actor_role", "action", "entity_type", "entity_id", "detail", "created_at"}
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM audit_logs`).WithArgs("t1", nil).WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectCommit()

	err := s.View(ctx, "t1", func(tx store.Tx) error {
		logs, err := tx.AuditLogs().List(ctx, 0)
		assert.Empty(t, logs)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
