package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductCreateRequest struct {
	Name     string          `json:"name" validate:"required,max=200"`
	SKU      string          `json:"sku" validate:"required,max=64"`
	Category string          `json:"category" validate:"max=100"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
	Cost     decimal.Decimal `json:"cost" validate:"gte=0"`
	Stock    int             `json:"stock" validate:"gte=0"`
}

type ProductUpdateRequest struct {
	ID       string          `json:"id" validate:"required"`
	Name     string          `json:"name" validate:"required,max=200"`
	SKU      string          `json:"sku" validate:"required,max=64"`
	Category string          `json:"category" validate:"max=100"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
	Cost     decimal.Decimal `json:"cost" validate:"gte=0"`
	Stock    int             `json:"stock" validate:"gte=0"`
	Version  int64           `json:"version" validate:"gte=0"`
}

type IDRequest struct {
	ID string `json:"id" validate:"required"`
}

type MutateStockRequest struct {
	ProductID       string `json:"product_id" validate:"required"`
	Delta           int    `json:"delta"`
	ExpectedVersion int64  `json:"expected_version" validate:"gte=0"`
}

type StockAdjustmentRequest struct {
	ProductID  string `json:"product_id" validate:"required"`
	Type       string `json:"type" validate:"required,oneof=received damaged lost count_correction returned other"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes" validate:"max=500"`
	EmployeeID string `json:"employee_id"`
}

type StockAdjustmentListRequest struct {
	ProductID string `json:"product_id"`
}

type StatusListRequest struct {
	Status string `json:"status"`
}

type PurchaseOrderLineInput struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
	UnitCost  decimal.Decimal `json:"unit_cost" validate:"gte=0"`
}

type PurchaseOrderDraftRequest struct {
	VendorID     string                   `json:"vendor_id" validate:"required"`
	IssueDate    *time.Time               `json:"issue_date"`
	ExpectedDate *time.Time               `json:"expected_date"`
	LineItems    []PurchaseOrderLineInput `json:"line_items" validate:"required,min=1,dive"`
	Notes        string                   `json:"notes" validate:"max=1000"`
}

type PurchaseOrderUpdateRequest struct {
	ID string `json:"id" validate:"required"`
	PurchaseOrderDraftRequest
}

type ReceiptLine struct {
	ProductID        string `json:"product_id" validate:"required"`
	QuantityReceived int    `json:"quantity_received"`
}

type PurchaseOrderReceiveRequest struct {
	ID    string        `json:"id" validate:"required"`
	Items []ReceiptLine `json:"items" validate:"required,min=1,dive"`
}

type PurchaseOrderListResponse struct {
	PurchaseOrders []PurchaseOrder `json:"purchase_orders"`
}

type WholesaleLineInput struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0"`
}

type WholesaleDraftRequest struct {
	CustomerID      string               `json:"customer_id" validate:"required"`
	OrderDate       *time.Time           `json:"order_date"`
	PaymentTerms    string               `json:"payment_terms" validate:"max=100"`
	ShippingAddress string               `json:"shipping_address" validate:"max=500"`
	ShippingCost    decimal.Decimal      `json:"shipping_cost" validate:"gte=0"`
	LineItems       []WholesaleLineInput `json:"line_items" validate:"dive"`
}

type WholesaleUpdateRequest struct {
	ID string `json:"id" validate:"required"`
	WholesaleDraftRequest
}

type ShipmentLine struct {
	ProductID       string `json:"product_id" validate:"required"`
	QuantityShipped int    `json:"quantity_shipped"`
}

type WholesaleShipRequest struct {
	ID    string         `json:"id" validate:"required"`
	Items []ShipmentLine `json:"items" validate:"required,min=1,dive"`
}

type WholesaleOrderListResponse struct {
	WholesaleOrders []WholesaleOrder `json:"wholesale_orders"`
}

type SaleLineInput struct {
	ProductID string           `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"gte=1"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type PaymentInput struct {
	Method string          `json:"method" validate:"required,oneof=cash card split"`
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

type SaleRecordRequest struct {
	CustomerID string          `json:"customer_id"`
	EmployeeID string          `json:"employee_id" validate:"required"`
	ShiftID    string          `json:"shift_id"`
	Discount   decimal.Decimal `json:"discount" validate:"gte=0"`
	Tax        decimal.Decimal `json:"tax" validate:"gte=0"`
	Payments   []PaymentInput  `json:"payments" validate:"required,min=1,dive"`
	LineItems  []SaleLineInput `json:"line_items" validate:"required,min=1,dive"`
}

type RefundLine struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type RefundRequest struct {
	SaleID  string       `json:"sale_id" validate:"required"`
	Items   []RefundLine `json:"items" validate:"required,min=1,dive"`
	Restock bool         `json:"restock"`
}

type SaleListRequest struct {
	EmployeeID string `json:"employee_id"`
	ShiftID    string `json:"shift_id"`
}

type SaleListResponse struct {
	Sales []Sale `json:"sales"`
}

type ShiftOpenRequest struct {
	EmployeeID        string          `json:"employee_id" validate:"required"`
	StartingCashFloat decimal.Decimal `json:"starting_cash_float" validate:"gte=0"`
}

type ShiftCloseRequest struct {
	ShiftID           string          `json:"shift_id" validate:"required"`
	ActualCashCounted decimal.Decimal `json:"actual_cash_counted" validate:"gte=0"`
	SaleIDs           []string        `json:"sale_ids"`
	Notes             string          `json:"notes" validate:"max=1000"`
}

type ShiftListResponse struct {
	Shifts []Shift `json:"shifts"`
}

type ProductListResponse struct {
	Products []Product `json:"products"`
}

type StockAdjustmentListResponse struct {
	Adjustments []StockAdjustment `json:"adjustments"`
}

type AuditLogListRequest struct {
	Limit int `json:"limit" validate:"gte=0,lte=1000"`
}

type AuditLogListResponse struct {
	AuditLogs []AuditLog `json:"audit_logs"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserListResponse struct {
	Users []UserAccount `json:"users"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	TenantID    string `json:"tenant_id,omitempty"`
	ExpiresAt   string `json:"expires_at"`
}
