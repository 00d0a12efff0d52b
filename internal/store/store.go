package store

import (
	"context"
	"fmt"
	"strings"

	"stockflow/backend/internal/domain"
)

// Store hands out tenant-scoped units of work. Atomic runs fn exclusively
// for the tenant and persists its changes only when fn returns nil.
type Store interface {
	Atomic(ctx context.Context, tenantID string, fn func(tx Tx) error) error
	View(ctx context.Context, tenantID string, fn func(tx Tx) error) error
	Tenants(ctx context.Context) ([]string, error)
}

type Tx interface {
	Products() ProductRepository
	StockAdjustments() StockAdjustmentRepository
	PurchaseOrders() PurchaseOrderRepository
	WholesaleOrders() WholesaleOrderRepository
	Sales() SaleRepository
	Shifts() ShiftRepository
	AuditLogs() AuditLogRepository
}

type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
	Create(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, id string) error
}

type StockAdjustmentRepository interface {
	Append(ctx context.Context, adjustment domain.StockAdjustment) error
	List(ctx context.Context, productID string) ([]domain.StockAdjustment, error)
}

type PurchaseOrderRepository interface {
	List(ctx context.Context, status string) ([]domain.PurchaseOrder, error)
	Get(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	Create(ctx context.Context, po domain.PurchaseOrder) error
	Update(ctx context.Context, po domain.PurchaseOrder) error
}

type WholesaleOrderRepository interface {
	List(ctx context.Context, status string) ([]domain.WholesaleOrder, error)
	Get(ctx context.Context, id string) (*domain.WholesaleOrder, error)
	Create(ctx context.Context, order domain.WholesaleOrder) error
	Update(ctx context.Context, order domain.WholesaleOrder) error
}

type SaleFilter struct {
	EmployeeID string
	ShiftID    string
}

type SaleRepository interface {
	List(ctx context.Context, filter SaleFilter) ([]domain.Sale, error)
	Get(ctx context.Context, id string) (*domain.Sale, error)
	Create(ctx context.Context, sale domain.Sale) error
	Update(ctx context.Context, sale domain.Sale) error
}

type ShiftRepository interface {
	List(ctx context.Context, status string) ([]domain.Shift, error)
	Get(ctx context.Context, id string) (*domain.Shift, error)
	FindOpenByEmployee(ctx context.Context, employeeID string) (*domain.Shift, error)
	Create(ctx context.Context, shift domain.Shift) error
	Update(ctx context.Context, shift domain.Shift) error
}

type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLog) error
	List(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

// UserStore backs login. Users live outside tenant partitions.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

func ValidateTenantID(tenantID string) error {
	trimmed := strings.TrimSpace(tenantID)
	if trimmed == "" {
		return fmt.Errorf("%w: tenant_id is required", domain.ErrValidation)
	}
	if trimmed != tenantID || len(tenantID) > 64 {
		return fmt.Errorf("%w: tenant_id is malformed", domain.ErrValidation)
	}
	return nil
}
