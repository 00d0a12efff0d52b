package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stockflow/backend/internal/domain"
	"stockflow/backend/internal/store"
	"stockflow/backend/internal/xid"
)

// RecordSale persists a completed sale. Under the decrement policy every sold
// unit leaves stock in the same unit of work.
func (s *Service) RecordSale(ctx context.Context, tenantID string, req domain.SaleRecordRequest) (domain.Sale, error) {
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.ShiftID = strings.TrimSpace(req.ShiftID)
	if err := s.check(req); err != nil {
		return domain.Sale{}, err
	}

	decrement := s.opts.StockPolicy == domain.StockPolicyDecrement
	var sale domain.Sale
	err := s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		lines := make([]domain.SaleLine, 0, len(req.LineItems))
		needed := make(map[string]int, len(req.LineItems))
		order := make([]string, 0, len(req.LineItems))
		for _, item := range req.LineItems {
			product, err := tx.Products().Get(ctx, item.ProductID)
			if err != nil {
				return err
			}
			unitPrice := product.Price
			if item.UnitPrice != nil {
				if item.UnitPrice.IsNegative() {
					return fmt.Errorf("%w: unit_price for product %s must not be negative", domain.ErrValidation, item.ProductID)
				}
				unitPrice = *item.UnitPrice
			}
			lines = append(lines, domain.SaleLine{
				ProductID: product.ID,
				Name:      product.Name,
				Quantity:  item.Quantity,
				UnitPrice: unitPrice,
			})
			if _, seen := needed[product.ID]; !seen {
				order = append(order, product.ID)
			}
			needed[product.ID] += item.Quantity
		}

		payments := make([]domain.Payment, 0, len(req.Payments))
		paid := decimal.Zero
		for _, p := range req.Payments {
			payments = append(payments, domain.Payment{Method: p.Method, Amount: p.Amount})
			paid = paid.Add(p.Amount)
		}

		sale = domain.Sale{
			ID:             xid.New("sale"),
			Timestamp:      s.now(),
			CustomerID:     req.CustomerID,
			EmployeeID:     req.EmployeeID,
			Discount:       req.Discount,
			Tax:            req.Tax,
			RefundedAmount: decimal.Zero,
			Payments:       payments,
			LineItems:      lines,
		}
		sale.RecalculateTotals()
		sale.RefreshStatus()
		if sale.Discount.GreaterThan(sale.Subtotal) {
			return fmt.Errorf("%w: discount %s exceeds subtotal %s", domain.ErrValidation, sale.Discount.StringFixed(2), sale.Subtotal.StringFixed(2))
		}
		if paid.LessThan(sale.Total) {
			return fmt.Errorf("%w: payments %s do not cover total %s", domain.ErrValidation, paid.StringFixed(2), sale.Total.StringFixed(2))
		}

		shiftID, err := s.resolveSaleShift(ctx, tx, req.ShiftID, req.EmployeeID)
		if err != nil {
			return err
		}
		sale.ShiftID = shiftID

		if decrement {
			deltas := make([]domain.StockDelta, 0, len(order))
			for _, productID := range order {
				if !s.opts.AllowOversell {
					product, err := tx.Products().Get(ctx, productID)
					if err != nil {
						return err
					}
					if product.Stock < needed[productID] {
						return fmt.Errorf("%w: selling %d of product %s exceeds on-hand stock %d", domain.ErrInvalidQuantity, needed[productID], productID, product.Stock)
					}
				}
				deltas = append(deltas, domain.StockDelta{ProductID: productID, Delta: -needed[productID]})
			}
			if err := s.applyStockDeltas(ctx, tx, deltas); err != nil {
				return err
			}
		}

		if err := tx.Sales().Create(ctx, sale); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "sale.record", "sale", sale.ID, fmt.Sprintf("total=%s method=%s", sale.Total.StringFixed(2), sale.PaymentMethod()))
		return nil
	})
	if err != nil {
		return domain.Sale{}, err
	}
	if decrement {
		s.stockChanged(ctx, tenantID)
	}
	return sale, nil
}

// resolveSaleShift validates an explicit shift or falls back to the
// employee's open shift, if any.
func (s *Service) resolveSaleShift(ctx context.Context, tx store.Tx, shiftID string, employeeID string) (string, error) {
	if shiftID != "" {
		shift, err := tx.Shifts().Get(ctx, shiftID)
		if err != nil {
			return "", err
		}
		if shift.Status != domain.ShiftStatusOpen {
			return "", fmt.Errorf("%w: shift %s is %s", domain.ErrInvalidTransition, shift.ID, shift.Status)
		}
		return shift.ID, nil
	}

	shift, err := tx.Shifts().FindOpenByEmployee(ctx, employeeID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return shift.ID, nil
}

// RefundSale caps each requested quantity at what is still refundable. A
// request that caps to nothing returns the sale untouched.
func (s *Service) RefundSale(ctx context.Context, tenantID string, req domain.RefundRequest) (domain.Sale, error) {
	if err := s.check(req); err != nil {
		return domain.Sale{}, err
	}

	restocked := false
	var updated domain.Sale
	err := s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		sale, err := tx.Sales().Get(ctx, req.SaleID)
		if err != nil {
			return err
		}
		result, err := sale.ApplyRefund(req.Items)
		if err != nil {
			return err
		}
		if len(result.Restock) == 0 {
			updated = *sale
			return nil
		}
		if req.Restock {
			if err := s.applyStockDeltas(ctx, tx, result.Restock); err != nil {
				return err
			}
			restocked = true
		}
		if err := tx.Sales().Update(ctx, *sale); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "sale.refund", "sale", sale.ID,
			fmt.Sprintf("refund=%s restock=%t status=%s", result.RefundTotal.StringFixed(2), req.Restock, sale.Status))
		updated = *sale
		return nil
	})
	if err != nil {
		return domain.Sale{}, err
	}
	if restocked {
		s.stockChanged(ctx, tenantID)
	}
	return updated, nil
}

func (s *Service) GetSale(ctx context.Context, tenantID string, req domain.IDRequest) (domain.Sale, error) {
	if err := s.check(req); err != nil {
		return domain.Sale{}, err
	}

	var sale domain.Sale
	err := s.store.View(ctx, tenantID, func(tx store.Tx) error {
		found, err := tx.Sales().Get(ctx, req.ID)
		if err != nil {
			return err
		}
		sale = *found
		return nil
	})
	return sale, err
}

func (s *Service) ListSales(ctx context.Context, tenantID string, req domain.SaleListRequest) (domain.SaleListResponse, error) {
	var resp domain.SaleListResponse
	err := s.store.View(ctx, tenantID, func(tx store.Tx) error {
		sales, err := tx.Sales().List(ctx, store.SaleFilter{
			EmployeeID: strings.TrimSpace(req.EmployeeID),
			ShiftID:    strings.TrimSpace(req.ShiftID),
		})
		if err != nil {
			return err
		}
		resp.Sales = sales
		return nil
	})
	return resp, err
}
