package service

import (
	"context"
	"fmt"
	"strings"

	"stockflow/backend/internal/domain"
	"stockflow/backend/internal/store"
	"stockflow/backend/internal/xid"
)

func (s *Service) CreatePurchaseOrder(ctx context.Context, tenantID string, req domain.PurchaseOrderDraftRequest) (domain.PurchaseOrder, error) {
	req.VendorID = strings.TrimSpace(req.VendorID)
	if err := s.check(req); err != nil {
		return domain.PurchaseOrder{}, err
	}
	lines, err := domain.NewPurchaseOrderLines(req.LineItems)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	now := s.now()
	po := domain.PurchaseOrder{
		ID:           xid.New("po"),
		VendorID:     req.VendorID,
		IssueDate:    req.IssueDate,
		ExpectedDate: req.ExpectedDate,
		LineItems:    lines,
		Status:       domain.PurchaseOrderStatusDraft,
		Notes:        strings.TrimSpace(req.Notes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	po.RecalculateTotal()

	err = s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		if err := requireProducts(ctx, tx, purchaseLineProducts(lines)...); err != nil {
			return err
		}
		if err := tx.PurchaseOrders().Create(ctx, po); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "purchase_order.create", "purchase_order", po.ID, fmt.Sprintf("vendor=%s total=%s", po.VendorID, po.Total.StringFixed(2)))
		return nil
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	return po, nil
}

func (s *Service) UpdatePurchaseOrderDraft(ctx context.Context, tenantID string, req domain.PurchaseOrderUpdateRequest) (domain.PurchaseOrder, error) {
	req.VendorID = strings.TrimSpace(req.VendorID)
	if err := s.check(req); err != nil {
		return domain.PurchaseOrder{}, err
	}
	lines, err := domain.NewPurchaseOrderLines(req.LineItems)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	var updated domain.PurchaseOrder
	err = s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		po, err := tx.PurchaseOrders().Get(ctx, req.ID)
		if err != nil {
			return err
		}
		if err := requireProducts(ctx, tx, purchaseLineProducts(lines)...); err != nil {
			return err
		}
		if err := po.ReplaceLines(lines); err != nil {
			return err
		}
		po.VendorID = req.VendorID
		po.IssueDate = req.IssueDate
		po.ExpectedDate = req.ExpectedDate
		po.Notes = strings.TrimSpace(req.Notes)
		po.UpdatedAt = s.now()

		if err := tx.PurchaseOrders().Update(ctx, *po); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "purchase_order.update", "purchase_order", po.ID, "total="+po.Total.StringFixed(2))
		updated = *po
		return nil
	})
	return updated, err
}

func (s *Service) IssuePurchaseOrder(ctx context.Context, tenantID string, req domain.IDRequest) (domain.PurchaseOrder, error) {
	return s.transitionPurchaseOrder(ctx, tenantID, req, "purchase_order.issue", (*domain.PurchaseOrder).Issue)
}

// CancelPurchaseOrder keeps whatever stock was already received.
func (s *Service) CancelPurchaseOrder(ctx context.Context, tenantID string, req domain.IDRequest) (domain.PurchaseOrder, error) {
	return s.transitionPurchaseOrder(ctx, tenantID, req, "purchase_order.cancel", (*domain.PurchaseOrder).Cancel)
}

func (s *Service) transitionPurchaseOrder(
	ctx context.Context,
	tenantID string,
	req domain.IDRequest,
	action string,
	transition func(*domain.PurchaseOrder) error,
) (domain.PurchaseOrder, error) {
	if err := s.check(req); err != nil {
		return domain.PurchaseOrder{}, err
	}

	var updated domain.PurchaseOrder
	err := s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		po, err := tx.PurchaseOrders().Get(ctx, req.ID)
		if err != nil {
			return err
		}
		from := po.Status
		if err := transition(po); err != nil {
			return err
		}
		if po.Status == domain.PurchaseOrderStatusOrdered && po.IssueDate == nil {
			issued := s.now()
			po.IssueDate = &issued
		}
		po.UpdatedAt = s.now()
		if err := tx.PurchaseOrders().Update(ctx, *po); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, action, "purchase_order", po.ID, from+" -> "+po.Status)
		updated = *po
		return nil
	})
	return updated, err
}

// ReceivePurchaseOrder books the receipt and raises stock for every received
// line in the same unit of work.
func (s *Service) ReceivePurchaseOrder(ctx context.Context, tenantID string, req domain.PurchaseOrderReceiveRequest) (domain.PurchaseOrder, error) {
	if err := s.check(req); err != nil {
		return domain.PurchaseOrder{}, err
	}

	var updated domain.PurchaseOrder
	err := s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		po, err := tx.PurchaseOrders().Get(ctx, req.ID)
		if err != nil {
			return err
		}
		deltas, err := po.Receive(req.Items)
		if err != nil {
			return err
		}
		if err := s.applyStockDeltas(ctx, tx, deltas); err != nil {
			return err
		}
		po.UpdatedAt = s.now()
		if err := tx.PurchaseOrders().Update(ctx, *po); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "purchase_order.receive", "purchase_order", po.ID, describeDeltas(deltas)+" status="+po.Status)
		updated = *po
		return nil
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	s.stockChanged(ctx, tenantID)
	return updated, nil
}

func (s *Service) GetPurchaseOrder(ctx context.Context, tenantID string, req domain.IDRequest) (domain.PurchaseOrder, error) {
	if err := s.check(req); err != nil {
		return domain.PurchaseOrder{}, err
	}

	var po domain.PurchaseOrder
	err := s.store.View(ctx, tenantID, func(tx store.Tx) error {
		found, err := tx.PurchaseOrders().Get(ctx, req.ID)
		if err != nil {
			return err
		}
		po = *found
		return nil
	})
	return po, err
}

func (s *Service) ListPurchaseOrders(ctx context.Context, tenantID string, req domain.StatusListRequest) (domain.PurchaseOrderListResponse, error) {
	var resp domain.PurchaseOrderListResponse
	err := s.store.View(ctx, tenantID, func(tx store.Tx) error {
		orders, err := tx.PurchaseOrders().List(ctx, strings.TrimSpace(req.Status))
		if err != nil {
			return err
		}
		resp.PurchaseOrders = orders
		return nil
	})
	return resp, err
}

func purchaseLineProducts(lines []domain.PurchaseOrderLine) []string {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}

func describeDeltas(deltas []domain.StockDelta) string {
	parts := make([]string, 0, len(deltas))
	for _, d := range deltas {
		parts = append(parts, fmt.Sprintf("%s%+d", d.ProductID, d.Delta))
	}
	return strings.Join(parts, ",")
}
