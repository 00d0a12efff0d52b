package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"stockflow/backend/internal/domain"
	"stockflow/backend/internal/store"
)

const saleColumns = `id, ts, customer_id, employee_id, shift_id, subtotal, discount, tax, total, refunded_amount, status, payments, line_items`

type saleRepo struct{ t *tx }

func scanSale(row rowScanner) (domain.Sale, error) {
	var (
		sale       domain.Sale
		customerID sql.NullString
		shiftID    sql.NullString
		payments   []byte
		lineItems  []byte
	)
	if err := row.Scan(&sale.ID, &sale.Timestamp, &customerID, &sale.EmployeeID, &shiftID, &sale.Subtotal, &sale.Discount,
		&sale.Tax, &sale.Total, &sale.RefundedAmount, &sale.Status, &payments, &lineItems); err != nil {
		return domain.Sale{}, err
	}
	if err := json.Unmarshal(payments, &sale.Payments); err != nil {
		return domain.Sale{}, fmt.Errorf("decode sale %s payments: %w", sale.ID, err)
	}
	if err := json.Unmarshal(lineItems, &sale.LineItems); err != nil {
		return domain.Sale{}, fmt.Errorf("decode sale %s line items: %w", sale.ID, err)
	}
	sale.CustomerID = customerID.String
	sale.ShiftID = shiftID.String
	sale.Timestamp = sale.Timestamp.UTC()
	return sale, nil
}

func (r saleRepo) List(ctx context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	rows, err := r.t.q.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE tenant_id = $1
		  AND ($2 = '' OR employee_id = $2)
		  AND ($3 = '' OR shift_id = $3)
		ORDER BY seq
	`, r.t.tenantID, filter.EmployeeID, filter.ShiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Sale, 0, 32)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}

func (r saleRepo) Get(ctx context.Context, id string) (*domain.Sale, error) {
	row := r.t.q.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE tenant_id = $1 AND id = $2
	`, r.t.tenantID, id)
	sale, err := scanSale(row)
	if err != nil {
		return nil, mapNoRows(err, "sale", id)
	}
	return &sale, nil
}

func (r saleRepo) Create(ctx context.Context, sale domain.Sale) error {
	payments, err := encodeJSON(sale.Payments)
	if err != nil {
		return err
	}
	lineItems, err := encodeJSON(sale.LineItems)
	if err != nil {
		return err
	}
	_, err = r.t.q.ExecContext(ctx, `
		INSERT INTO sales (tenant_id, id, ts, customer_id, employee_id, shift_id, subtotal, discount, tax, total, refunded_amount, status, payments, line_items)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb, $14::jsonb)
	`, r.t.tenantID, sale.ID, sale.Timestamp.UTC(), nullIfEmpty(sale.CustomerID), sale.EmployeeID, nullIfEmpty(sale.ShiftID),
		sale.Subtotal, sale.Discount, sale.Tax, sale.Total, sale.RefundedAmount, sale.Status, payments, lineItems)
	return mapWriteError(err, "sale")
}

func (r saleRepo) Update(ctx context.Context, sale domain.Sale) error {
	lineItems, err := encodeJSON(sale.LineItems)
	if err != nil {
		return err
	}
	res, err := r.t.q.ExecContext(ctx, `
		UPDATE sales
		SET shift_id = $3, refunded_amount = $4, status = $5, line_items = $6::jsonb
		WHERE tenant_id = $1 AND id = $2
	`, r.t.tenantID, sale.ID, nullIfEmpty(sale.ShiftID), sale.RefundedAmount, sale.Status, lineItems)
	if err != nil {
		return err
	}
	return expectOne(res, "sale", sale.ID)
}

const shiftColumns = `id, employee_id, start_time, end_time, starting_cash_float, ending_cash_float, cash_sales, card_sales, total_sales, discrepancy, notes, status`

type shiftRepo struct{ t *tx }

func scanShift(row rowScanner) (domain.Shift, error) {
	var (
		shift       domain.Shift
		endTime     sql.NullTime
		endingFloat decimal.NullDecimal
		cashSales   decimal.NullDecimal
		cardSales   decimal.NullDecimal
		totalSales  decimal.NullDecimal
		discrepancy decimal.NullDecimal
		notes       sql.NullString
	)
	if err := row.Scan(&shift.ID, &shift.EmployeeID, &shift.StartTime, &endTime, &shift.StartingCashFloat, &endingFloat,
		&cashSales, &cardSales, &totalSales, &discrepancy, &notes, &shift.Status); err != nil {
		return domain.Shift{}, err
	}
	shift.StartTime = shift.StartTime.UTC()
	shift.EndTime = timePtr(endTime)
	shift.EndingCashFloat = decimalPtr(endingFloat)
	shift.CashSales = decimalPtr(cashSales)
	shift.CardSales = decimalPtr(cardSales)
	shift.TotalSales = decimalPtr(totalSales)
	shift.Discrepancy = decimalPtr(discrepancy)
	shift.Notes = notes.String
	return shift, nil
}

func (r shiftRepo) List(ctx context.Context, status string) ([]domain.Shift, error) {
	rows, err := r.t.q.QueryContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE tenant_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY seq
	`, r.t.tenantID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Shift, 0, 16)
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, shift)
	}
	return out, rows.Err()
}

func (r shiftRepo) Get(ctx context.Context, id string) (*domain.Shift, error) {
	row := r.t.q.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE tenant_id = $1 AND id = $2
	`, r.t.tenantID, id)
	shift, err := scanShift(row)
	if err != nil {
		return nil, mapNoRows(err, "shift", id)
	}
	return &shift, nil
}

func (r shiftRepo) FindOpenByEmployee(ctx context.Context, employeeID string) (*domain.Shift, error) {
	row := r.t.q.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE tenant_id = $1 AND employee_id = $2 AND status = 'open'
		ORDER BY seq
		LIMIT 1
	`, r.t.tenantID, employeeID)
	shift, err := scanShift(row)
	if err != nil {
		return nil, mapNoRows(err, "open shift for employee", employeeID)
	}
	return &shift, nil
}

func (r shiftRepo) Create(ctx context.Context, shift domain.Shift) error {
	_, err := r.t.q.ExecContext(ctx, `
		INSERT INTO shifts (tenant_id, id, employee_id, start_time, end_time, starting_cash_float, ending_cash_float,
		                    cash_sales, card_sales, total_sales, discrepancy, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.t.tenantID, shift.ID, shift.EmployeeID, shift.StartTime.UTC(), nullTime(shift.EndTime), shift.StartingCashFloat,
		nullDecimal(shift.EndingCashFloat), nullDecimal(shift.CashSales), nullDecimal(shift.CardSales),
		nullDecimal(shift.TotalSales), nullDecimal(shift.Discrepancy), nullIfEmpty(shift.Notes), shift.Status)
	return mapWriteError(err, "shift")
}

func (r shiftRepo) Update(ctx context.Context, shift domain.Shift) error {
	res, err := r.t.q.ExecContext(ctx, `
		UPDATE shifts
		SET end_time = $3, ending_cash_float = $4, cash_sales = $5, card_sales = $6,
		    total_sales = $7, discrepancy = $8, notes = $9, status = $10
		WHERE tenant_id = $1 AND id = $2
	`, r.t.tenantID, shift.ID, nullTime(shift.EndTime), nullDecimal(shift.EndingCashFloat), nullDecimal(shift.CashSales),
		nullDecimal(shift.CardSales), nullDecimal(shift.TotalSales), nullDecimal(shift.Discrepancy),
		nullIfEmpty(shift.Notes), shift.Status)
	if err != nil {
		return err
	}
	return expectOne(res, "shift", shift.ID)
}
