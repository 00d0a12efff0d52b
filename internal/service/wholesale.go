package service

import (
	"context"
	"fmt"
	"strings"

	"stockflow/backend/internal/domain"
	"stockflow/backend/internal/store"
	"stockflow/backend/internal/xid"
)

func (s *Service) CreateWholesaleOrder(ctx context.Context, tenantID string, req domain.WholesaleDraftRequest) (domain.WholesaleOrder, error) {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	if err := s.check(req); err != nil {
		return domain.WholesaleOrder{}, err
	}
	lines, err := domain.NewWholesaleOrderLines(req.LineItems)
	if err != nil {
		return domain.WholesaleOrder{}, err
	}

	now := s.now()
	order := domain.WholesaleOrder{
		ID:         xid.New("wo"),
		CustomerID: req.CustomerID,
		OrderDate:  now,
		Status:     domain.WholesaleStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.OrderDate != nil {
		order.OrderDate = req.OrderDate.UTC()
	}
	if err := order.UpdateDraft(lines, req.ShippingCost, strings.TrimSpace(req.PaymentTerms), strings.TrimSpace(req.ShippingAddress)); err != nil {
		return domain.WholesaleOrder{}, err
	}

	err = s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		if err := requireProducts(ctx, tx, wholesaleLineProducts(lines)...); err != nil {
			return err
		}
		if err := tx.WholesaleOrders().Create(ctx, order); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "wholesale_order.create", "wholesale_order", order.ID, fmt.Sprintf("customer=%s total=%s", order.CustomerID, order.Total.StringFixed(2)))
		return nil
	})
	if err != nil {
		return domain.WholesaleOrder{}, err
	}
	return order, nil
}

func (s *Service) UpdateWholesaleDraft(ctx context.Context, tenantID string, req domain.WholesaleUpdateRequest) (domain.WholesaleOrder, error) {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	if err := s.check(req); err != nil {
		return domain.WholesaleOrder{}, err
	}
	lines, err := domain.NewWholesaleOrderLines(req.LineItems)
	if err != nil {
		return domain.WholesaleOrder{}, err
	}

	var updated domain.WholesaleOrder
	err = s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		order, err := tx.WholesaleOrders().Get(ctx, req.ID)
		if err != nil {
			return err
		}
		if err := requireProducts(ctx, tx, wholesaleLineProducts(lines)...); err != nil {
			return err
		}
		if err := order.UpdateDraft(lines, req.ShippingCost, strings.TrimSpace(req.PaymentTerms), strings.TrimSpace(req.ShippingAddress)); err != nil {
			return err
		}
		order.CustomerID = req.CustomerID
		if req.OrderDate != nil {
			order.OrderDate = req.OrderDate.UTC()
		}
		order.UpdatedAt = s.now()

		if err := tx.WholesaleOrders().Update(ctx, *order); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "wholesale_order.update", "wholesale_order", order.ID, "total="+order.Total.StringFixed(2))
		updated = *order
		return nil
	})
	return updated, err
}

func (s *Service) ConfirmWholesaleOrder(ctx context.Context, tenantID string, req domain.IDRequest) (domain.WholesaleOrder, error) {
	return s.transitionWholesaleOrder(ctx, tenantID, req, "wholesale_order.confirm", (*domain.WholesaleOrder).Confirm)
}

func (s *Service) MarkWholesaleOrderPaid(ctx context.Context, tenantID string, req domain.IDRequest) (domain.WholesaleOrder, error) {
	return s.transitionWholesaleOrder(ctx, tenantID, req, "wholesale_order.mark_paid", (*domain.WholesaleOrder).MarkPaid)
}

func (s *Service) CompleteWholesaleOrder(ctx context.Context, tenantID string, req domain.IDRequest) (domain.WholesaleOrder, error) {
	return s.transitionWholesaleOrder(ctx, tenantID, req, "wholesale_order.complete", (*domain.WholesaleOrder).Complete)
}

func (s *Service) CancelWholesaleOrder(ctx context.Context, tenantID string, req domain.IDRequest) (domain.WholesaleOrder, error) {
	return s.transitionWholesaleOrder(ctx, tenantID, req, "wholesale_order.cancel", (*domain.WholesaleOrder).Cancel)
}

func (s *Service) transitionWholesaleOrder(
	ctx context.Context,
	tenantID string,
	req domain.IDRequest,
	action string,
	transition func(*domain.WholesaleOrder) error,
) (domain.WholesaleOrder, error) {
	if err := s.check(req); err != nil {
		return domain.WholesaleOrder{}, err
	}

	var updated domain.WholesaleOrder
	err := s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		order, err := tx.WholesaleOrders().Get(ctx, req.ID)
		if err != nil {
			return err
		}
		from := order.Status
		if err := transition(order); err != nil {
			return err
		}
		order.UpdatedAt = s.now()
		if err := tx.WholesaleOrders().Update(ctx, *order); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, action, "wholesale_order", order.ID, from+" -> "+order.Status)
		updated = *order
		return nil
	})
	return updated, err
}

// ShipWholesaleOrder deducts shipped quantities from stock. Shipping more
// than is on hand is rejected before anything is written.
func (s *Service) ShipWholesaleOrder(ctx context.Context, tenantID string, req domain.WholesaleShipRequest) (domain.WholesaleOrder, error) {
	if err := s.check(req); err != nil {
		return domain.WholesaleOrder{}, err
	}

	var updated domain.WholesaleOrder
	err := s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		order, err := tx.WholesaleOrders().Get(ctx, req.ID)
		if err != nil {
			return err
		}
		deltas, err := order.Ship(req.Items)
		if err != nil {
			return err
		}
		outgoing := make(map[string]int, len(deltas))
		productOrder := make([]string, 0, len(deltas))
		for _, d := range deltas {
			if _, seen := outgoing[d.ProductID]; !seen {
				productOrder = append(productOrder, d.ProductID)
			}
			outgoing[d.ProductID] -= d.Delta
		}
		for _, productID := range productOrder {
			product, err := tx.Products().Get(ctx, productID)
			if err != nil {
				return err
			}
			if product.Stock < outgoing[productID] {
				return fmt.Errorf("%w: shipping %d of product %s exceeds on-hand stock %d", domain.ErrInvalidQuantity, outgoing[productID], productID, product.Stock)
			}
		}
		if err := s.applyStockDeltas(ctx, tx, deltas); err != nil {
			return err
		}
		order.UpdatedAt = s.now()
		if err := tx.WholesaleOrders().Update(ctx, *order); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "wholesale_order.ship", "wholesale_order", order.ID, describeDeltas(deltas)+" status="+order.Status)
		updated = *order
		return nil
	})
	if err != nil {
		return domain.WholesaleOrder{}, err
	}
	s.stockChanged(ctx, tenantID)
	return updated, nil
}

func (s *Service) GetWholesaleOrder(ctx context.Context, tenantID string, req domain.IDRequest) (domain.WholesaleOrder, error) {
	if err := s.check(req); err != nil {
		return domain.WholesaleOrder{}, err
	}

	var order domain.WholesaleOrder
	err := s.store.View(ctx, tenantID, func(tx store.Tx) error {
		found, err := tx.WholesaleOrders().Get(ctx, req.ID)
		if err != nil {
			return err
		}
		order = *found
		return nil
	})
	return order, err
}

func (s *Service) ListWholesaleOrders(ctx context.Context, tenantID string, req domain.StatusListRequest) (domain.WholesaleOrderListResponse, error) {
	var resp domain.WholesaleOrderListResponse
	err := s.store.View(ctx, tenantID, func(tx store.Tx) error {
		orders, err := tx.WholesaleOrders().List(ctx, strings.TrimSpace(req.Status))
		if err != nil {
			return err
		}
		resp.WholesaleOrders = orders
		return nil
	})
	return resp, err
}

func wholesaleLineProducts(lines []domain.WholesaleOrderLine) []string {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}
