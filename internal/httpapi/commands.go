package httpapi

import (
	"context"
	"encoding/json"

	"stockflow/backend/internal/domain"
	"stockflow/backend/internal/service"
	"stockflow/backend/internal/store"
)

type commandFunc func(ctx context.Context, tenantID string, payload json.RawMessage) (any, error)

type command struct {
	roles []string
	run   commandFunc
}

var (
	adminOnly   = []string{domain.RoleAdmin}
	cashierOrUp = []string{domain.RoleCashier, domain.RoleAdmin}
)

// bind adapts a service method taking a typed request to the command table.
func bind[Req any, Resp any](svc *service.Service, method func(*service.Service, context.Context, string, Req) (Resp, error)) commandFunc {
	return func(ctx context.Context, tenantID string, payload json.RawMessage) (any, error) {
		req, err := decodePayload[Req](payload)
		if err != nil {
			return nil, err
		}
		return method(svc, ctx, tenantID, req)
	}
}

func (a *API) commandTable() map[string]command {
	svc := a.service
	return map[string]command{
		"catalog.add_product":            {adminOnly, bind(svc, (*service.Service).AddProduct)},
		"catalog.update_product":         {adminOnly, bind(svc, (*service.Service).UpdateProduct)},
		"catalog.delete_product":         {adminOnly, a.deleteProduct},
		"catalog.mutate_stock":           {adminOnly, bind(svc, (*service.Service).MutateStock)},
		"catalog.adjust_stock":           {adminOnly, bind(svc, (*service.Service).AdjustStock)},
		"catalog.get_product":            {cashierOrUp, bind(svc, (*service.Service).GetProduct)},
		"catalog.list_products":          {cashierOrUp, a.listProducts},
		"catalog.list_stock_adjustments": {cashierOrUp, bind(svc, (*service.Service).ListStockAdjustments)},

		"purchasing.create_draft": {adminOnly, bind(svc, (*service.Service).CreatePurchaseOrder)},
		"purchasing.update_draft": {adminOnly, bind(svc, (*service.Service).UpdatePurchaseOrderDraft)},
		"purchasing.issue":        {adminOnly, bind(svc, (*service.Service).IssuePurchaseOrder)},
		"purchasing.cancel":       {adminOnly, bind(svc, (*service.Service).CancelPurchaseOrder)},
		"purchasing.receive":      {adminOnly, bind(svc, (*service.Service).ReceivePurchaseOrder)},
		"purchasing.get":          {adminOnly, bind(svc, (*service.Service).GetPurchaseOrder)},
		"purchasing.list":         {adminOnly, bind(svc, (*service.Service).ListPurchaseOrders)},

		"wholesale.create_draft": {adminOnly, bind(svc, (*service.Service).CreateWholesaleOrder)},
		"wholesale.update_draft": {adminOnly, bind(svc, (*service.Service).UpdateWholesaleDraft)},
		"wholesale.confirm":      {adminOnly, bind(svc, (*service.Service).ConfirmWholesaleOrder)},
		"wholesale.mark_paid":    {adminOnly, bind(svc, (*service.Service).MarkWholesaleOrderPaid)},
		"wholesale.ship":         {adminOnly, bind(svc, (*service.Service).ShipWholesaleOrder)},
		"wholesale.complete":     {adminOnly, bind(svc, (*service.Service).CompleteWholesaleOrder)},
		"wholesale.cancel":       {adminOnly, bind(svc, (*service.Service).CancelWholesaleOrder)},
		"wholesale.get":          {adminOnly, bind(svc, (*service.Service).GetWholesaleOrder)},
		"wholesale.list":         {adminOnly, bind(svc, (*service.Service).ListWholesaleOrders)},

		"sales.record": {cashierOrUp, bind(svc, (*service.Service).RecordSale)},
		"sales.refund": {cashierOrUp, bind(svc, (*service.Service).RefundSale)},
		"sales.get":    {cashierOrUp, bind(svc, (*service.Service).GetSale)},
		"sales.list":   {cashierOrUp, bind(svc, (*service.Service).ListSales)},

		"shifts.open":  {cashierOrUp, bind(svc, (*service.Service).OpenShift)},
		"shifts.close": {cashierOrUp, bind(svc, (*service.Service).CloseShift)},
		"shifts.get":   {cashierOrUp, bind(svc, (*service.Service).GetShift)},
		"shifts.list":  {cashierOrUp, bind(svc, (*service.Service).ListShifts)},

		"reorder.suggestions": {adminOnly, a.reorderSuggestions},
		"audit.list":          {adminOnly, bind(svc, (*service.Service).ListAuditLogs)},

		"users.create_cashier": {adminOnly, a.createCashier},
		"users.list_cashiers":  {adminOnly, a.listCashiers},
	}
}

func (a *API) deleteProduct(ctx context.Context, tenantID string, payload json.RawMessage) (any, error) {
	req, err := decodePayload[domain.IDRequest](payload)
	if err != nil {
		return nil, err
	}
	if err := a.service.DeleteProduct(ctx, tenantID, req); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": req.ID}, nil
}

func (a *API) listProducts(ctx context.Context, tenantID string, _ json.RawMessage) (any, error) {
	return a.service.ListProducts(ctx, tenantID)
}

func (a *API) reorderSuggestions(ctx context.Context, tenantID string, _ json.RawMessage) (any, error) {
	return a.service.ReorderSuggestions(ctx, tenantID)
}

func (a *API) createCashier(ctx context.Context, tenantID string, payload json.RawMessage) (any, error) {
	req, err := decodePayload[domain.CashierCreateRequest](payload)
	if err != nil {
		return nil, err
	}
	if err := store.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return a.auth.CreateCashier(ctx, tenantID, req)
}

func (a *API) listCashiers(ctx context.Context, tenantID string, _ json.RawMessage) (any, error) {
	if err := store.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return domain.UserListResponse{Users: a.auth.ListCashiers(ctx, tenantID)}, nil
}
