package memory

import (
	"context"
	"fmt"
	"slices"

	"stockflow/backend/internal/domain"
	"stockflow/backend/internal/store"
)

type tx struct {
	state    *tenantState
	readOnly bool
}

func (t *tx) Products() store.ProductRepository                 { return productRepo{t} }
func (t *tx) StockAdjustments() store.StockAdjustmentRepository { return adjustmentRepo{t} }
func (t *tx) PurchaseOrders() store.PurchaseOrderRepository     { return purchaseOrderRepo{t} }
func (t *tx) WholesaleOrders() store.WholesaleOrderRepository   { return wholesaleOrderRepo{t} }
func (t *tx) Sales() store.SaleRepository                       { return saleRepo{t} }
func (t *tx) Shifts() store.ShiftRepository                     { return shiftRepo{t} }
func (t *tx) AuditLogs() store.AuditLogRepository               { return auditLogRepo{t} }

func (t *tx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

type productRepo struct{ t *tx }

func (r productRepo) List(_ context.Context) ([]domain.Product, error) {
	return slices.Clone(r.t.state.products.items), nil
}

func (r productRepo) Get(_ context.Context, id string) (*domain.Product, error) {
	p, ok := r.t.state.products.get(id)
	if !ok {
		return nil, domain.NotFoundError("product", id)
	}
	return &p, nil
}

func (r productRepo) GetBySKU(_ context.Context, sku string) (*domain.Product, error) {
	for _, p := range r.t.state.products.items {
		if p.SKU == sku {
			found := p
			return &found, nil
		}
	}
	return nil, domain.NotFoundError("product sku", sku)
}

func (r productRepo) Create(_ context.Context, product domain.Product) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.products.get(product.ID); exists {
		return fmt.Errorf("%w: product %s already exists", domain.ErrValidation, product.ID)
	}
	if err := r.ensureUniqueSKU(product); err != nil {
		return err
	}
	r.t.state.products.put(product.ID, product)
	return nil
}

func (r productRepo) Update(_ context.Context, product domain.Product) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.products.get(product.ID); !exists {
		return domain.NotFoundError("product", product.ID)
	}
	if err := r.ensureUniqueSKU(product); err != nil {
		return err
	}
	r.t.state.products.put(product.ID, product)
	return nil
}

func (r productRepo) Delete(_ context.Context, id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if !r.t.state.products.remove(id, func(p domain.Product) string { return p.ID }) {
		return domain.NotFoundError("product", id)
	}
	return nil
}

func (r productRepo) ensureUniqueSKU(product domain.Product) error {
	for _, p := range r.t.state.products.items {
		if p.SKU == product.SKU && p.ID != product.ID {
			return fmt.Errorf("%w: sku %s already exists", domain.ErrValidation, product.SKU)
		}
	}
	return nil
}

type adjustmentRepo struct{ t *tx }

func (r adjustmentRepo) Append(_ context.Context, adjustment domain.StockAdjustment) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	r.t.state.adjustments = append(r.t.state.adjustments, adjustment)
	return nil
}

func (r adjustmentRepo) List(_ context.Context, productID string) ([]domain.StockAdjustment, error) {
	out := make([]domain.StockAdjustment, 0, len(r.t.state.adjustments))
	for _, a := range r.t.state.adjustments {
		if productID != "" && a.ProductID != productID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

type purchaseOrderRepo struct{ t *tx }

func (r purchaseOrderRepo) List(_ context.Context, status string) ([]domain.PurchaseOrder, error) {
	out := make([]domain.PurchaseOrder, 0, len(r.t.state.purchaseOrders.items))
	for _, po := range r.t.state.purchaseOrders.items {
		if status != "" && po.Status != status {
			continue
		}
		out = append(out, clonePurchaseOrder(po))
	}
	return out, nil
}

func (r purchaseOrderRepo) Get(_ context.Context, id string) (*domain.PurchaseOrder, error) {
	po, ok := r.t.state.purchaseOrders.get(id)
	if !ok {
		return nil, domain.NotFoundError("purchase order", id)
	}
	cloned := clonePurchaseOrder(po)
	return &cloned, nil
}

func (r purchaseOrderRepo) Create(_ context.Context, po domain.PurchaseOrder) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.purchaseOrders.get(po.ID); exists {
		return fmt.Errorf("%w: purchase order %s already exists", domain.ErrValidation, po.ID)
	}
	r.t.state.purchaseOrders.put(po.ID, clonePurchaseOrder(po))
	return nil
}

func (r purchaseOrderRepo) Update(_ context.Context, po domain.PurchaseOrder) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.purchaseOrders.get(po.ID); !exists {
		return domain.NotFoundError("purchase order", po.ID)
	}
	r.t.state.purchaseOrders.put(po.ID, clonePurchaseOrder(po))
	return nil
}

type wholesaleOrderRepo struct{ t *tx }

func (r wholesaleOrderRepo) List(_ context.Context, status string) ([]domain.WholesaleOrder, error) {
	out := make([]domain.WholesaleOrder, 0, len(r.t.state.wholesaleOrders.items))
	for _, o := range r.t.state.wholesaleOrders.items {
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, cloneWholesaleOrder(o))
	}
	return out, nil
}

func (r wholesaleOrderRepo) Get(_ context.Context, id string) (*domain.WholesaleOrder, error) {
	o, ok := r.t.state.wholesaleOrders.get(id)
	if !ok {
		return nil, domain.NotFoundError("wholesale order", id)
	}
	cloned := cloneWholesaleOrder(o)
	return &cloned, nil
}

func (r wholesaleOrderRepo) Create(_ context.Context, order domain.WholesaleOrder) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.wholesaleOrders.get(order.ID); exists {
		return fmt.Errorf("%w: wholesale order %s already exists", domain.ErrValidation, order.ID)
	}
	r.t.state.wholesaleOrders.put(order.ID, cloneWholesaleOrder(order))
	return nil
}

func (r wholesaleOrderRepo) Update(_ context.Context, order domain.WholesaleOrder) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.wholesaleOrders.get(order.ID); !exists {
		return domain.NotFoundError("wholesale order", order.ID)
	}
	r.t.state.wholesaleOrders.put(order.ID, cloneWholesaleOrder(order))
	return nil
}

type saleRepo struct{ t *tx }

func (r saleRepo) List(_ context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	out := make([]domain.Sale, 0, len(r.t.state.sales.items))
	for _, sale := range r.t.state.sales.items {
		if filter.EmployeeID != "" && sale.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.ShiftID != "" && sale.ShiftID != filter.ShiftID {
			continue
		}
		out = append(out, cloneSale(sale))
	}
	return out, nil
}

func (r saleRepo) Get(_ context.Context, id string) (*domain.Sale, error) {
	sale, ok := r.t.state.sales.get(id)
	if !ok {
		return nil, domain.NotFoundError("sale", id)
	}
	cloned := cloneSale(sale)
	return &cloned, nil
}

func (r saleRepo) Create(_ context.Context, sale domain.Sale) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.sales.get(sale.ID); exists {
		return fmt.Errorf("%w: sale %s already exists", domain.ErrValidation, sale.ID)
	}
	r.t.state.sales.put(sale.ID, cloneSale(sale))
	return nil
}

func (r saleRepo) Update(_ context.Context, sale domain.Sale) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.sales.get(sale.ID); !exists {
		return domain.NotFoundError("sale", sale.ID)
	}
	r.t.state.sales.put(sale.ID, cloneSale(sale))
	return nil
}

type shiftRepo struct{ t *tx }

func (r shiftRepo) List(_ context.Context, status string) ([]domain.Shift, error) {
	out := make([]domain.Shift, 0, len(r.t.state.shifts.items))
	for _, shift := range r.t.state.shifts.items {
		if status != "" && shift.Status != status {
			continue
		}
		out = append(out, cloneShift(shift))
	}
	return out, nil
}

func (r shiftRepo) Get(_ context.Context, id string) (*domain.Shift, error) {
	shift, ok := r.t.state.shifts.get(id)
	if !ok {
		return nil, domain.NotFoundError("shift", id)
	}
	cloned := cloneShift(shift)
	return &cloned, nil
}

func (r shiftRepo) FindOpenByEmployee(_ context.Context, employeeID string) (*domain.Shift, error) {
	for _, shift := range r.t.state.shifts.items {
		if shift.EmployeeID == employeeID && shift.Status == domain.ShiftStatusOpen {
			cloned := cloneShift(shift)
			return &cloned, nil
		}
	}
	return nil, domain.NotFoundError("open shift for employee", employeeID)
}

func (r shiftRepo) Create(_ context.Context, shift domain.Shift) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.shifts.get(shift.ID); exists {
		return fmt.Errorf("%w: shift %s already exists", domain.ErrValidation, shift.ID)
	}
	r.t.state.shifts.put(shift.ID, cloneShift(shift))
	return nil
}

func (r shiftRepo) Update(_ context.Context, shift domain.Shift) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, exists := r.t.state.shifts.get(shift.ID); !exists {
		return domain.NotFoundError("shift", shift.ID)
	}
	r.t.state.shifts.put(shift.ID, cloneShift(shift))
	return nil
}

type auditLogRepo struct{ t *tx }

func (r auditLogRepo) Append(_ context.Context, entry domain.AuditLog) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	r.t.state.auditLogs = append(r.t.state.auditLogs, entry)
	return nil
}

func (r auditLogRepo) List(_ context.Context, limit int) ([]domain.AuditLog, error) {
	logs := r.t.state.auditLogs
	out := make([]domain.AuditLog, 0, min(len(logs), max(limit, 0)))
	for i := len(logs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, logs[i])
	}
	return out, nil
}

func clonePurchaseOrder(po domain.PurchaseOrder) domain.PurchaseOrder {
	po.LineItems = slices.Clone(po.LineItems)
	po.IssueDate = clonePtr(po.IssueDate)
	po.ExpectedDate = clonePtr(po.ExpectedDate)
	return po
}

func cloneWholesaleOrder(o domain.WholesaleOrder) domain.WholesaleOrder {
	o.LineItems = slices.Clone(o.LineItems)
	return o
}

func cloneSale(s domain.Sale) domain.Sale {
	s.LineItems = slices.Clone(s.LineItems)
	s.Payments = slices.Clone(s.Payments)
	return s
}

func cloneShift(s domain.Shift) domain.Shift {
	s.EndTime = clonePtr(s.EndTime)
	s.EndingCashFloat = clonePtr(s.EndingCashFloat)
	s.CashSales = clonePtr(s.CashSales)
	s.CardSales = clonePtr(s.CardSales)
	s.TotalSales = clonePtr(s.TotalSales)
	s.Discrepancy = clonePtr(s.Discrepancy)
	return s
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
