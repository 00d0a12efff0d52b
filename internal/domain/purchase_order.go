package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func NewPurchaseOrderLines(items []PurchaseOrderLineInput) ([]PurchaseOrderLine, error) {
	seen := make(map[string]struct{}, len(items))
	lines := make([]PurchaseOrderLine, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.ProductID]; dup {
			return nil, fmt.Errorf("%w: product %s appears on more than one line", ErrValidation, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
		lines = append(lines, PurchaseOrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitCost:  item.UnitCost,
		})
	}
	return lines, nil
}

func (po *PurchaseOrder) RecalculateTotal() {
	total := decimal.Zero
	for _, line := range po.LineItems {
		total = total.Add(line.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	po.Total = total
}

func (po *PurchaseOrder) IsTerminal() bool {
	return po.Status == PurchaseOrderStatusReceived || po.Status == PurchaseOrderStatusCancelled
}

func (po *PurchaseOrder) ReplaceLines(lines []PurchaseOrderLine) error {
	if po.Status != PurchaseOrderStatusDraft {
		return invalidTransition("purchase order", po.ID, po.Status, "update")
	}
	po.LineItems = lines
	po.RecalculateTotal()
	return nil
}

func (po *PurchaseOrder) Issue() error {
	if po.Status != PurchaseOrderStatusDraft {
		return invalidTransition("purchase order", po.ID, po.Status, "issue")
	}
	po.Status = PurchaseOrderStatusOrdered
	return nil
}

func (po *PurchaseOrder) Cancel() error {
	if po.IsTerminal() {
		return invalidTransition("purchase order", po.ID, po.Status, "cancel")
	}
	po.Status = PurchaseOrderStatusCancelled
	return nil
}

// Receive books the receipts against the order lines and returns the stock
// increments to apply. The order is left untouched when any receipt is rejected.
func (po *PurchaseOrder) Receive(receipts []ReceiptLine) ([]StockDelta, error) {
	if po.Status != PurchaseOrderStatusOrdered && po.Status != PurchaseOrderStatusPartiallyReceived {
		return nil, invalidTransition("purchase order", po.ID, po.Status, "receive")
	}

	lines := make([]PurchaseOrderLine, len(po.LineItems))
	copy(lines, po.LineItems)

	deltas := make([]StockDelta, 0, len(receipts))
	for _, receipt := range receipts {
		if receipt.QuantityReceived < 0 {
			return nil, fmt.Errorf("%w: negative quantity %d for product %s", ErrInvalidQuantity, receipt.QuantityReceived, receipt.ProductID)
		}
		idx := purchaseLineIndex(lines, receipt.ProductID)
		if idx < 0 {
			return nil, NotFoundError("purchase order line", receipt.ProductID)
		}
		if receipt.QuantityReceived == 0 {
			continue
		}
		remaining := lines[idx].Quantity - lines[idx].QuantityReceived
		if receipt.QuantityReceived > remaining {
			return nil, fmt.Errorf("%w: receiving %d of product %s exceeds remaining %d", ErrInvalidQuantity, receipt.QuantityReceived, receipt.ProductID, remaining)
		}
		lines[idx].QuantityReceived += receipt.QuantityReceived
		deltas = append(deltas, StockDelta{ProductID: receipt.ProductID, Delta: receipt.QuantityReceived})
	}
	if len(deltas) == 0 {
		return nil, fmt.Errorf("%w: receipt carries no quantity", ErrValidation)
	}

	po.LineItems = lines
	po.Status = PurchaseOrderStatusReceived
	for _, line := range lines {
		if line.QuantityReceived < line.Quantity {
			po.Status = PurchaseOrderStatusPartiallyReceived
			break
		}
	}
	return deltas, nil
}

func (po *PurchaseOrder) References(productID string) bool {
	return purchaseLineIndex(po.LineItems, productID) >= 0
}

func purchaseLineIndex(lines []PurchaseOrderLine, productID string) int {
	for i := range lines {
		if lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
