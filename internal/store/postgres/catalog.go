package postgres

import (
	"context"
	"database/sql"

	"stockflow/backend/internal/domain"
)

const productColumns = `id, name, sku, category, price, cost, stock, version, created_at, updated_at`

type productRepo struct{ t *tx }

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p        domain.Product
		category sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.SKU, &category, &p.Price, &p.Cost, &p.Stock, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Product{}, err
	}
	p.Category = category.String
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	p.RefreshStatus()
	return p, nil
}

func (r productRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.t.q.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE tenant_id = $1
		ORDER BY seq
	`, r.t.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r productRepo) Get(ctx context.Context, id string) (*domain.Product, error) {
	row := r.t.q.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE tenant_id = $1 AND id = $2
	`, r.t.tenantID, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, mapNoRows(err, "product", id)
	}
	return &p, nil
}

func (r productRepo) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	row := r.t.q.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE tenant_id = $1 AND sku = $2
	`, r.t.tenantID, sku)
	p, err := scanProduct(row)
	if err != nil {
		return nil, mapNoRows(err, "product with sku", sku)
	}
	return &p, nil
}

func (r productRepo) Create(ctx context.Context, p domain.Product) error {
	_, err := r.t.q.ExecContext(ctx, `
		INSERT INTO products (tenant_id, id, name, sku, category, price, cost, stock, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.t.tenantID, p.ID, p.Name, p.SKU, nullIfEmpty(p.Category), p.Price, p.Cost, p.Stock,
		domain.DeriveStockStatus(p.Stock), p.Version, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	return mapWriteError(err, "product")
}

func (r productRepo) Update(ctx context.Context, p domain.Product) error {
	res, err := r.t.q.ExecContext(ctx, `
		UPDATE products
		SET name = $3, sku = $4, category = $5, price = $6, cost = $7, stock = $8,
		    status = $9, version = $10, updated_at = $11
		WHERE tenant_id = $1 AND id = $2
	`, r.t.tenantID, p.ID, p.Name, p.SKU, nullIfEmpty(p.Category), p.Price, p.Cost, p.Stock,
		domain.DeriveStockStatus(p.Stock), p.Version, p.UpdatedAt.UTC())
	if err != nil {
		return mapWriteError(err, "product")
	}
	return expectOne(res, "product", p.ID)
}

func (r productRepo) Delete(ctx context.Context, id string) error {
	res, err := r.t.q.ExecContext(ctx, `
		DELETE FROM products
		WHERE tenant_id = $1 AND id = $2
	`, r.t.tenantID, id)
	if err != nil {
		return err
	}
	return expectOne(res, "product", id)
}

type adjustmentRepo struct{ t *tx }

func (r adjustmentRepo) Append(ctx context.Context, a domain.StockAdjustment) error {
	_, err := r.t.q.ExecContext(ctx, `
		INSERT INTO stock_adjustments (tenant_id, id, product_id, ts, type, quantity, notes, employee_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.t.tenantID, a.ID, a.ProductID, a.Timestamp.UTC(), a.Type, a.Quantity, nullIfEmpty(a.Notes), nullIfEmpty(a.EmployeeID))
	return mapWriteError(err, "stock adjustment")
}

func (r adjustmentRepo) List(ctx context.Context, productID string) ([]domain.StockAdjustment, error) {
	rows, err := r.t.q.QueryContext(ctx, `
		SELECT id, product_id, ts, type, quantity, notes, employee_id
		FROM stock_adjustments
		WHERE tenant_id = $1 AND ($2 = '' OR product_id = $2)
		ORDER BY seq
	`, r.t.tenantID, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.StockAdjustment, 0, 32)
	for rows.Next() {
		var (
			a          domain.StockAdjustment
			notes      sql.NullString
			employeeID sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.ProductID, &a.Timestamp, &a.Type, &a.Quantity, &notes, &employeeID); err != nil {
			return nil, err
		}
		a.Timestamp = a.Timestamp.UTC()
		a.Notes = notes.String
		a.EmployeeID = employeeID.String
		out = append(out, a)
	}
	return out, rows.Err()
}

type auditLogRepo struct{ t *tx }

func (r auditLogRepo) Append(ctx context.Context, entry domain.AuditLog) error {
	_, err := r.t.q.ExecContext(ctx, `
		INSERT INTO audit_logs (tenant_id, id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.t.tenantID, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID,
		nullIfEmpty(entry.Detail), entry.CreatedAt.UTC())
	return err
}

func (r auditLogRepo) List(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	// LIMIT NULL means no limit.
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := r.t.q.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE tenant_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`, r.t.tenantID, limitArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.AuditLog, 0, 32)
	for rows.Next() {
		var (
			entry  domain.AuditLog
			detail sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Detail = detail.String
		entry.CreatedAt = entry.CreatedAt.UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}
