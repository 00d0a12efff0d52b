package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"stockflow/backend/internal/domain"
)

const purchaseOrderColumns = `id, vendor_id, issue_date, expected_date, line_items, total, status, notes, created_at, updated_at`

type purchaseOrderRepo struct{ t *tx }

func scanPurchaseOrder(row rowScanner) (domain.PurchaseOrder, error) {
	var (
		po           domain.PurchaseOrder
		issueDate    sql.NullTime
		expectedDate sql.NullTime
		lineItems    []byte
		notes        sql.NullString
	)
	if err := row.Scan(&po.ID, &po.VendorID, &issueDate, &expectedDate, &lineItems, &po.Total, &po.Status, &notes, &po.CreatedAt, &po.UpdatedAt); err != nil {
		return domain.PurchaseOrder{}, err
	}
	if err := json.Unmarshal(lineItems, &po.LineItems); err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("decode purchase order %s line items: %w", po.ID, err)
	}
	po.IssueDate = timePtr(issueDate)
	po.ExpectedDate = timePtr(expectedDate)
	po.Notes = notes.String
	po.CreatedAt = po.CreatedAt.UTC()
	po.UpdatedAt = po.UpdatedAt.UTC()
	return po, nil
}

func (r purchaseOrderRepo) List(ctx context.Context, status string) ([]domain.PurchaseOrder, error) {
	rows, err := r.t.q.QueryContext(ctx, `
		SELECT `+purchaseOrderColumns+`
		FROM purchase_orders
		WHERE tenant_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY seq
	`, r.t.tenantID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.PurchaseOrder, 0, 16)
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

func (r purchaseOrderRepo) Get(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	row := r.t.q.QueryRowContext(ctx, `
		SELECT `+purchaseOrderColumns+`
		FROM purchase_orders
		WHERE tenant_id = $1 AND id = $2
	`, r.t.tenantID, id)
	po, err := scanPurchaseOrder(row)
	if err != nil {
		return nil, mapNoRows(err, "purchase order", id)
	}
	return &po, nil
}

func (r purchaseOrderRepo) Create(ctx context.Context, po domain.PurchaseOrder) error {
	lineItems, err := encodeJSON(po.LineItems)
	if err != nil {
		return err
	}
	_, err = r.t.q.ExecContext(ctx, `
		INSERT INTO purchase_orders (tenant_id, id, vendor_id, issue_date, expected_date, line_items, total, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10, $11)
	`, r.t.tenantID, po.ID, po.VendorID, nullTime(po.IssueDate), nullTime(po.ExpectedDate), lineItems, po.Total, po.Status,
		nullIfEmpty(po.Notes), po.CreatedAt.UTC(), po.UpdatedAt.UTC())
	return mapWriteError(err, "purchase order")
}

func (r purchaseOrderRepo) Update(ctx context.Context, po domain.PurchaseOrder) error {
	lineItems, err := encodeJSON(po.LineItems)
	if err != nil {
		return err
	}
	res, err := r.t.q.ExecContext(ctx, `
		UPDATE purchase_orders
		SET vendor_id = $3, issue_date = $4, expected_date = $5, line_items = $6::jsonb,
		    total = $7, status = $8, notes = $9, updated_at = $10
		WHERE tenant_id = $1 AND id = $2
	`, r.t.tenantID, po.ID, po.VendorID, nullTime(po.IssueDate), nullTime(po.ExpectedDate), lineItems, po.Total, po.Status,
		nullIfEmpty(po.Notes), po.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	return expectOne(res, "purchase order", po.ID)
}

const wholesaleOrderColumns = `id, customer_id, order_date, payment_terms, shipping_address, shipping_cost, line_items, total, status, created_at, updated_at`

type wholesaleOrderRepo struct{ t *tx }

func scanWholesaleOrder(row rowScanner) (domain.WholesaleOrder, error) {
	var (
		o               domain.WholesaleOrder
		paymentTerms    sql.NullString
		shippingAddress sql.NullString
		lineItems       []byte
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &paymentTerms, &shippingAddress, &o.ShippingCost, &lineItems, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return domain.WholesaleOrder{}, err
	}
	if err := json.Unmarshal(lineItems, &o.LineItems); err != nil {
		return domain.WholesaleOrder{}, fmt.Errorf("decode wholesale order %s line items: %w", o.ID, err)
	}
	o.PaymentTerms = paymentTerms.String
	o.ShippingAddress = shippingAddress.String
	o.OrderDate = o.OrderDate.UTC()
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}

func (r wholesaleOrderRepo) List(ctx context.Context, status string) ([]domain.WholesaleOrder, error) {
	rows, err := r.t.q.QueryContext(ctx, `
		SELECT `+wholesaleOrderColumns+`
		FROM wholesale_orders
		WHERE tenant_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY seq
	`, r.t.tenantID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.WholesaleOrder, 0, 16)
	for rows.Next() {
		o, err := scanWholesaleOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r wholesaleOrderRepo) Get(ctx context.Context, id string) (*domain.WholesaleOrder, error) {
	row := r.t.q.QueryRowContext(ctx, `
		SELECT `+wholesaleOrderColumns+`
		FROM wholesale_orders
		WHERE tenant_id = $1 AND id = $2
	`, r.t.tenantID, id)
	o, err := scanWholesaleOrder(row)
	if err != nil {
		return nil, mapNoRows(err, "wholesale order", id)
	}
	return &o, nil
}

func (r wholesaleOrderRepo) Create(ctx context.Context, o domain.WholesaleOrder) error {
	lineItems, err := encodeJSON(o.LineItems)
	if err != nil {
		return err
	}
	_, err = r.t.q.ExecContext(ctx, `
		INSERT INTO wholesale_orders (tenant_id, id, customer_id, order_date, payment_terms, shipping_address, shipping_cost, line_items, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11, $12)
	`, r.t.tenantID, o.ID, o.CustomerID, o.OrderDate.UTC(), nullIfEmpty(o.PaymentTerms), nullIfEmpty(o.ShippingAddress),
		o.ShippingCost, lineItems, o.Total, o.Status, o.CreatedAt.UTC(), o.UpdatedAt.UTC())
	return mapWriteError(err, "wholesale order")
}

func (r wholesaleOrderRepo) Update(ctx context.Context, o domain.WholesaleOrder) error {
	lineItems, err := encodeJSON(o.LineItems)
	if err != nil {
		return err
	}
	res, err := r.t.q.ExecContext(ctx, `
		UPDATE wholesale_orders
		SET customer_id = $3, payment_terms = $4, shipping_address = $5, shipping_cost = $6,
		    line_items = $7::jsonb, total = $8, status = $9, updated_at = $10
		WHERE tenant_id = $1 AND id = $2
	`, r.t.tenantID, o.ID, o.CustomerID, nullIfEmpty(o.PaymentTerms), nullIfEmpty(o.ShippingAddress),
		o.ShippingCost, lineItems, o.Total, o.Status, o.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	return expectOne(res, "wholesale order", o.ID)
}
