package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func NewWholesaleOrderLines(items []WholesaleLineInput) ([]WholesaleOrderLine, error) {
	seen := make(map[string]struct{}, len(items))
	lines := make([]WholesaleOrderLine, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.ProductID]; dup {
			return nil, fmt.Errorf("%w: product %s appears on more than one line", ErrValidation, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
		lines = append(lines, WholesaleOrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return lines, nil
}

func (o *WholesaleOrder) RecalculateTotal() {
	total := o.ShippingCost
	for _, line := range o.LineItems {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	o.Total = total
}

func (o *WholesaleOrder) IsOpen() bool {
	switch o.Status {
	case WholesaleStatusDraft, WholesaleStatusAwaitingPayment, WholesaleStatusAwaitingFulfillment:
		return true
	}
	return false
}

func (o *WholesaleOrder) UpdateDraft(lines []WholesaleOrderLine, shippingCost decimal.Decimal, paymentTerms string, shippingAddress string) error {
	if o.Status != WholesaleStatusDraft {
		return invalidTransition("wholesale order", o.ID, o.Status, "update")
	}
	o.LineItems = lines
	o.ShippingCost = shippingCost
	o.PaymentTerms = paymentTerms
	o.ShippingAddress = shippingAddress
	o.RecalculateTotal()
	return nil
}

func (o *WholesaleOrder) Confirm() error {
	if o.Status != WholesaleStatusDraft {
		return invalidTransition("wholesale order", o.ID, o.Status, "confirm")
	}
	if len(o.LineItems) == 0 {
		return fmt.Errorf("%w: wholesale order %s has no line items", ErrValidation, o.ID)
	}
	o.Status = WholesaleStatusAwaitingPayment
	return nil
}

func (o *WholesaleOrder) MarkPaid() error {
	if o.Status != WholesaleStatusAwaitingPayment {
		return invalidTransition("wholesale order", o.ID, o.Status, "mark paid")
	}
	o.Status = WholesaleStatusAwaitingFulfillment
	return nil
}

func (o *WholesaleOrder) Complete() error {
	if o.Status != WholesaleStatusShipped {
		return invalidTransition("wholesale order", o.ID, o.Status, "complete")
	}
	o.Status = WholesaleStatusCompleted
	return nil
}

func (o *WholesaleOrder) Cancel() error {
	if o.Status != WholesaleStatusDraft && o.Status != WholesaleStatusAwaitingPayment {
		return invalidTransition("wholesale order", o.ID, o.Status, "cancel")
	}
	o.Status = WholesaleStatusCancelled
	return nil
}

// Ship books the shipment and returns the stock decrements to apply. A
// partial shipment keeps the order awaiting fulfillment.
func (o *WholesaleOrder) Ship(shipments []ShipmentLine) ([]StockDelta, error) {
	if o.Status != WholesaleStatusAwaitingFulfillment {
		return nil, invalidTransition("wholesale order", o.ID, o.Status, "ship")
	}

	lines := make([]WholesaleOrderLine, len(o.LineItems))
	copy(lines, o.LineItems)

	deltas := make([]StockDelta, 0, len(shipments))
	for _, shipment := range shipments {
		if shipment.QuantityShipped < 0 {
			return nil, fmt.Errorf("%w: negative quantity %d for product %s", ErrInvalidQuantity, shipment.QuantityShipped, shipment.ProductID)
		}
		idx := wholesaleLineIndex(lines, shipment.ProductID)
		if idx < 0 {
			return nil, NotFoundError("wholesale order line", shipment.ProductID)
		}
		if shipment.QuantityShipped == 0 {
			continue
		}
		remaining := lines[idx].Quantity - lines[idx].QuantityShipped
		if shipment.QuantityShipped > remaining {
			return nil, fmt.Errorf("%w: shipping %d of product %s exceeds remaining %d", ErrInvalidQuantity, shipment.QuantityShipped, shipment.ProductID, remaining)
		}
		lines[idx].QuantityShipped += shipment.QuantityShipped
		deltas = append(deltas, StockDelta{ProductID: shipment.ProductID, Delta: -shipment.QuantityShipped})
	}
	if len(deltas) == 0 {
		return nil, fmt.Errorf("%w: shipment carries no quantity", ErrValidation)
	}

	o.LineItems = lines
	fullyShipped := true
	for _, line := range lines {
		if line.QuantityShipped < line.Quantity {
			fullyShipped = false
			break
		}
	}
	if fullyShipped {
		o.Status = WholesaleStatusShipped
	}
	return deltas, nil
}

func (o *WholesaleOrder) References(productID string) bool {
	return wholesaleLineIndex(o.LineItems, productID) >= 0
}

func wholesaleLineIndex(lines []WholesaleOrderLine, productID string) int {
	for i := range lines {
		if lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
