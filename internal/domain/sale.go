package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PaymentMethod classifies the sale for drawer reconciliation: a sale paid
// with several tenders counts as split.
func (s *Sale) PaymentMethod() string {
	switch len(s.Payments) {
	case 0:
		return ""
	case 1:
		return s.Payments[0].Method
	default:
		return PaymentSplit
	}
}

func (s *Sale) RecalculateTotals() {
	subtotal := decimal.Zero
	for i := range s.LineItems {
		line := &s.LineItems[i]
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(line.Subtotal)
	}
	s.Subtotal = subtotal
	s.Total = subtotal.Sub(s.Discount).Add(s.Tax)
}

func (s *Sale) RefreshStatus() {
	refundedLines := 0
	anyRefund := false
	for _, line := range s.LineItems {
		if line.RefundedQuantity > 0 {
			anyRefund = true
		}
		if line.RefundedQuantity >= line.Quantity {
			refundedLines++
		}
	}
	switch {
	case len(s.LineItems) > 0 && refundedLines == len(s.LineItems):
		s.Status = SaleStatusRefunded
	case anyRefund:
		s.Status = SaleStatusPartiallyRefunded
	default:
		s.Status = SaleStatusCompleted
	}
}

// EffectiveTaxRate is tax over the discounted subtotal, zero when that base
// is not positive.
func EffectiveTaxRate(subtotal decimal.Decimal, discount decimal.Decimal, tax decimal.Decimal) decimal.Decimal {
	base := subtotal.Sub(discount)
	if !base.IsPositive() {
		return decimal.Zero
	}
	return tax.Div(base)
}

type RefundResult struct {
	RefundSubtotal decimal.Decimal
	RefundTotal    decimal.Decimal
	Restock        []StockDelta
}

// ApplyRefund caps every requested quantity at what is still refundable on
// the sale and allocates tax proportionally. The sale is only modified when
// the whole request is valid.
func (s *Sale) ApplyRefund(items []RefundLine) (RefundResult, error) {
	lines := make([]SaleLine, len(s.LineItems))
	copy(lines, s.LineItems)

	result := RefundResult{RefundSubtotal: decimal.Zero, RefundTotal: decimal.Zero}
	restocked := make(map[string]int)
	order := make([]string, 0, len(items))

	for _, item := range items {
		if item.Quantity < 0 {
			return RefundResult{}, fmt.Errorf("%w: negative refund quantity %d for product %s", ErrInvalidQuantity, item.Quantity, item.ProductID)
		}
		matched := false
		remaining := item.Quantity
		for i := range lines {
			if lines[i].ProductID != item.ProductID {
				continue
			}
			matched = true
			take := min(remaining, lines[i].Quantity-lines[i].RefundedQuantity)
			if take <= 0 {
				continue
			}
			lines[i].RefundedQuantity += take
			result.RefundSubtotal = result.RefundSubtotal.Add(lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(take))))
			if _, seen := restocked[item.ProductID]; !seen {
				order = append(order, item.ProductID)
			}
			restocked[item.ProductID] += take
			remaining -= take
		}
		if !matched {
			return RefundResult{}, NotFoundError("sale line", item.ProductID)
		}
	}

	if len(order) == 0 {
		return result, nil
	}

	rate := EffectiveTaxRate(s.Subtotal, s.Discount, s.Tax)
	result.RefundTotal = result.RefundSubtotal.Mul(decimal.NewFromInt(1).Add(rate)).Round(2)
	for _, productID := range order {
		result.Restock = append(result.Restock, StockDelta{ProductID: productID, Delta: restocked[productID]})
	}

	s.LineItems = lines
	s.RefundedAmount = s.RefundedAmount.Add(result.RefundTotal)
	s.RefreshStatus()
	return result, nil
}
