package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const LowStockThreshold = 25

// MoneyScale is the number of decimal places stored for money amounts.
const MoneyScale = 4

// Sale stock policies.
const (
	StockPolicyDecrement = "decrement"
	StockPolicyNone      = "none"
)

const (
	StockStatusInStock    = "in_stock"
	StockStatusLowStock   = "low_stock"
	StockStatusOutOfStock = "out_of_stock"
)

const (
	PurchaseOrderStatusDraft             = "draft"
	PurchaseOrderStatusOrdered           = "ordered"
	PurchaseOrderStatusPartiallyReceived = "partially_received"
	PurchaseOrderStatusReceived          = "received"
	PurchaseOrderStatusCancelled         = "cancelled"
)

const (
	WholesaleStatusDraft               = "draft"
	WholesaleStatusAwaitingPayment     = "awaiting_payment"
	WholesaleStatusAwaitingFulfillment = "awaiting_fulfillment"
	WholesaleStatusShipped             = "shipped"
	WholesaleStatusCompleted           = "completed"
	WholesaleStatusCancelled           = "cancelled"
)

const (
	SaleStatusCompleted         = "completed"
	SaleStatusPartiallyRefunded = "partially_refunded"
	SaleStatusRefunded          = "refunded"
)

const (
	PaymentCash  = "cash"
	PaymentCard  = "card"
	PaymentSplit = "split"
)

const (
	ShiftStatusOpen       = "open"
	ShiftStatusReconciled = "reconciled"
)

const (
	AdjustmentReceived        = "received"
	AdjustmentDamaged         = "damaged"
	AdjustmentLost            = "lost"
	AdjustmentCountCorrection = "count_correction"
	AdjustmentReturned        = "returned"
	AdjustmentOther           = "other"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Stock     int             `json:"stock"`
	Status    string          `json:"status"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DeriveStockStatus is the only source of Product.Status. A transient
// negative stock (oversell) reads as out of stock.
func DeriveStockStatus(stock int) string {
	switch {
	case stock <= 0:
		return StockStatusOutOfStock
	case stock <= LowStockThreshold:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

func (p *Product) RefreshStatus() {
	p.Status = DeriveStockStatus(p.Stock)
}

// ApplyStockDelta never rejects a negative result; callers check availability.
func (p *Product) ApplyStockDelta(delta int, at time.Time) {
	p.Stock += delta
	p.Version++
	p.UpdatedAt = at
	p.RefreshStatus()
}

type StockAdjustment struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
	Quantity   int       `json:"quantity"`
	Notes      string    `json:"notes,omitempty"`
	EmployeeID string    `json:"employee_id,omitempty"`
}

type StockDelta struct {
	ProductID string
	Delta     int
}

type PurchaseOrderLine struct {
	ProductID        string          `json:"product_id"`
	Quantity         int             `json:"quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	QuantityReceived int             `json:"quantity_received"`
}

type PurchaseOrder struct {
	ID           string              `json:"id"`
	VendorID     string              `json:"vendor_id"`
	IssueDate    *time.Time          `json:"issue_date,omitempty"`
	ExpectedDate *time.Time          `json:"expected_date,omitempty"`
	LineItems    []PurchaseOrderLine `json:"line_items"`
	Total        decimal.Decimal     `json:"total"`
	Status       string              `json:"status"`
	Notes        string              `json:"notes,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

type WholesaleOrderLine struct {
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	QuantityShipped int             `json:"quantity_shipped"`
}

type WholesaleOrder struct {
	ID              string               `json:"id"`
	CustomerID      string               `json:"customer_id"`
	OrderDate       time.Time            `json:"order_date"`
	PaymentTerms    string               `json:"payment_terms,omitempty"`
	ShippingAddress string               `json:"shipping_address,omitempty"`
	ShippingCost    decimal.Decimal      `json:"shipping_cost"`
	LineItems       []WholesaleOrderLine `json:"line_items"`
	Total           decimal.Decimal      `json:"total"`
	Status          string               `json:"status"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type Payment struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type SaleLine struct {
	ProductID        string          `json:"product_id"`
	Name             string          `json:"name"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	RefundedQuantity int             `json:"refunded_quantity"`
}

type Sale struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	CustomerID     string          `json:"customer_id,omitempty"`
	EmployeeID     string          `json:"employee_id"`
	ShiftID        string          `json:"shift_id,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	Status         string          `json:"status"`
	Payments       []Payment       `json:"payments"`
	LineItems      []SaleLine      `json:"line_items"`
}

type Shift struct {
	ID                string           `json:"id"`
	EmployeeID        string           `json:"employee_id"`
	StartTime         time.Time        `json:"start_time"`
	EndTime           *time.Time       `json:"end_time,omitempty"`
	StartingCashFloat decimal.Decimal  `json:"starting_cash_float"`
	EndingCashFloat   *decimal.Decimal `json:"ending_cash_float,omitempty"`
	CashSales         *decimal.Decimal `json:"cash_sales,omitempty"`
	CardSales         *decimal.Decimal `json:"card_sales,omitempty"`
	TotalSales        *decimal.Decimal `json:"total_sales,omitempty"`
	Discrepancy       *decimal.Decimal `json:"discrepancy,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	Status            string           `json:"status"`
}

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type ReorderSuggestion struct {
	ProductID      string          `json:"product_id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Stock          int             `json:"stock"`
	Status         string          `json:"status"`
	ReorderPoint   int             `json:"reorder_point"`
	RecommendedQty int             `json:"recommended_qty"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	EstimatedCost  decimal.Decimal `json:"estimated_cost"`
	Reason         string          `json:"reason"`
}

type ReorderSuggestionResponse struct {
	TenantID    string              `json:"tenant_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Suggestions []ReorderSuggestion `json:"suggestions"`
}
