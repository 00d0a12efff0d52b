package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDeriveStockStatusBoundaries(t *testing.T) {
	cases := map[int]string{
		-3: StockStatusOutOfStock,
		0:  StockStatusOutOfStock,
		1:  StockStatusLowStock,
		25: StockStatusLowStock,
		26: StockStatusInStock,
	}
	for stock, want := range cases {
		assert.Equal(t, want, DeriveStockStatus(stock), "stock=%d", stock)
		assert.Equal(t, DeriveStockStatus(stock), DeriveStockStatus(stock))
	}
}

func TestApplyStockDeltaRecomputesStatusAndVersion(t *testing.T) {
	p := Product{Stock: 30}
	p.RefreshStatus()
	require.Equal(t, StockStatusInStock, p.Status)

	p.ApplyStockDelta(-10, time.Now())
	assert.Equal(t, 20, p.Stock)
	assert.Equal(t, StockStatusLowStock, p.Status)
	assert.Equal(t, int64(1), p.Version)

	p.ApplyStockDelta(-25, time.Now())
	assert.Equal(t, -5, p.Stock)
	assert.Equal(t, StockStatusOutOfStock, p.Status)
}

func TestPurchaseOrderPartialReceive(t *testing.T) {
	po := PurchaseOrder{ID: "po-1", Status: PurchaseOrderStatusOrdered, LineItems: []PurchaseOrderLine{
		{ProductID: "p1", Quantity: 10, UnitCost: dec("5")},
	}}

	deltas, err := po.Receive([]ReceiptLine{{ProductID: "p1", QuantityReceived: 4}})
	require.NoError(t, err)
	assert.Equal(t, []StockDelta{{ProductID: "p1", Delta: 4}}, deltas)
	assert.Equal(t, 4, po.LineItems[0].QuantityReceived)
	assert.Equal(t, PurchaseOrderStatusPartiallyReceived, po.Status)

	_, err = po.Receive([]ReceiptLine{{ProductID: "p1", QuantityReceived: 6}})
	require.NoError(t, err)
	assert.Equal(t, 10, po.LineItems[0].QuantityReceived)
	assert.Equal(t, PurchaseOrderStatusReceived, po.Status)
}

func TestPurchaseOrderReceiveRejectsBadQuantitiesWithoutSideEffects(t *testing.T) {
	po := PurchaseOrder{ID: "po-1", Status: PurchaseOrderStatusOrdered, LineItems: []PurchaseOrderLine{
		{ProductID: "p1", Quantity: 10},
		{ProductID: "p2", Quantity: 2},
	}}

	_, err := po.Receive([]ReceiptLine{{ProductID: "p1", QuantityReceived: 3}, {ProductID: "p2", QuantityReceived: 5}})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 0, po.LineItems[0].QuantityReceived)
	assert.Equal(t, PurchaseOrderStatusOrdered, po.Status)

	_, err = po.Receive([]ReceiptLine{{ProductID: "p1", QuantityReceived: -1}})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = po.Receive([]ReceiptLine{{ProductID: "nope", QuantityReceived: 1}})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPurchaseOrderTransitions(t *testing.T) {
	po := PurchaseOrder{ID: "po-1", Status: PurchaseOrderStatusDraft, LineItems: []PurchaseOrderLine{
		{ProductID: "p1", Quantity: 3, UnitCost: dec("2.50")},
		{ProductID: "p2", Quantity: 2, UnitCost: dec("1.25")},
	}}
	po.RecalculateTotal()
	assert.True(t, dec("10").Equal(po.Total))

	_, err := po.Receive([]ReceiptLine{{ProductID: "p1", QuantityReceived: 1}})
	require.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, po.Issue())
	require.ErrorIs(t, po.Issue(), ErrInvalidTransition)
	require.ErrorIs(t, po.ReplaceLines(nil), ErrInvalidTransition)

	require.NoError(t, po.Cancel())
	require.ErrorIs(t, po.Cancel(), ErrInvalidTransition)
}

func TestWholesaleCancelAfterShipmentLeavesOrderUnchanged(t *testing.T) {
	o := WholesaleOrder{ID: "wo-1", Status: WholesaleStatusDraft, ShippingCost: dec("7.5"), LineItems: []WholesaleOrderLine{
		{ProductID: "p1", Quantity: 2, UnitPrice: dec("10")},
	}}
	o.RecalculateTotal()
	assert.True(t, dec("27.5").Equal(o.Total))

	require.NoError(t, o.Confirm())
	require.NoError(t, o.MarkPaid())
	deltas, err := o.Ship([]ShipmentLine{{ProductID: "p1", QuantityShipped: 2}})
	require.NoError(t, err)
	assert.Equal(t, []StockDelta{{ProductID: "p1", Delta: -2}}, deltas)
	require.Equal(t, WholesaleStatusShipped, o.Status)

	before := o
	err = o.Cancel()
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, before.Status, o.Status)
	assert.Equal(t, before.LineItems, o.LineItems)

	require.NoError(t, o.Complete())
	assert.Equal(t, WholesaleStatusCompleted, o.Status)
}

func TestWholesalePartialShipmentKeepsAwaitingFulfillment(t *testing.T) {
	o := WholesaleOrder{ID: "wo-1", Status: WholesaleStatusAwaitingFulfillment, LineItems: []WholesaleOrderLine{
		{ProductID: "p1", Quantity: 5},
	}}
	_, err := o.Ship([]ShipmentLine{{ProductID: "p1", QuantityShipped: 2}})
	require.NoError(t, err)
	assert.Equal(t, WholesaleStatusAwaitingFulfillment, o.Status)
	assert.Equal(t, 2, o.LineItems[0].QuantityShipped)

	_, err = o.Ship([]ShipmentLine{{ProductID: "p1", QuantityShipped: 4}})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestRefundAllocatesTaxProportionally(t *testing.T) {
	sale := Sale{
		Subtotal: dec("100"),
		Discount: dec("10"),
		Tax:      dec("9"),
		LineItems: []SaleLine{
			{ProductID: "p1", Quantity: 2, UnitPrice: dec("20")},
			{ProductID: "p2", Quantity: 3, UnitPrice: dec("20")},
		},
		RefundedAmount: decimal.Zero,
		Status:         SaleStatusCompleted,
	}

	result, err := sale.ApplyRefund([]RefundLine{{ProductID: "p1", Quantity: 1}})
	require.NoError(t, err)
	assert.True(t, dec("22.00").Equal(result.RefundTotal), "got %s", result.RefundTotal)
	assert.True(t, dec("22").Equal(sale.RefundedAmount))
	assert.Equal(t, SaleStatusPartiallyRefunded, sale.Status)
}

func TestRefundClampsToRemainingQuantity(t *testing.T) {
	sale := Sale{
		Subtotal: dec("30"),
		Discount: decimal.Zero,
		Tax:      decimal.Zero,
		LineItems: []SaleLine{
			{ProductID: "p1", Quantity: 3, RefundedQuantity: 2, UnitPrice: dec("10")},
		},
		RefundedAmount: dec("20"),
		Status:         SaleStatusPartiallyRefunded,
	}

	result, err := sale.ApplyRefund([]RefundLine{{ProductID: "p1", Quantity: 5}})
	require.NoError(t, err)
	assert.Equal(t, []StockDelta{{ProductID: "p1", Delta: 1}}, result.Restock)
	assert.Equal(t, 3, sale.LineItems[0].RefundedQuantity)
	assert.True(t, dec("10").Equal(result.RefundTotal))
	assert.True(t, dec("30").Equal(sale.RefundedAmount))
	assert.Equal(t, SaleStatusRefunded, sale.Status)

	again, err := sale.ApplyRefund([]RefundLine{{ProductID: "p1", Quantity: 1}})
	require.NoError(t, err)
	assert.Empty(t, again.Restock)
	assert.True(t, again.RefundTotal.IsZero())
	assert.True(t, dec("30").Equal(sale.RefundedAmount))
}

func TestRefundRejectsInvalidLinesAtomically(t *testing.T) {
	sale := Sale{
		Subtotal:  dec("10"),
		LineItems: []SaleLine{{ProductID: "p1", Quantity: 1, UnitPrice: dec("10")}},
		Status:    SaleStatusCompleted,
	}

	_, err := sale.ApplyRefund([]RefundLine{{ProductID: "p1", Quantity: 1}, {ProductID: "ghost", Quantity: 1}})
	require.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 0, sale.LineItems[0].RefundedQuantity)
	assert.Equal(t, SaleStatusCompleted, sale.Status)

	_, err = sale.ApplyRefund([]RefundLine{{ProductID: "p1", Quantity: -1}})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestEffectiveTaxRateWithNonPositiveBase(t *testing.T) {
	assert.True(t, EffectiveTaxRate(dec("10"), dec("10"), dec("1")).IsZero())
	assert.True(t, EffectiveTaxRate(dec("10"), dec("12"), dec("1")).IsZero())
	assert.True(t, dec("0.1").Equal(EffectiveTaxRate(dec("100"), dec("10"), dec("9"))))
}

func TestShiftReconcileRecordsDiscrepancy(t *testing.T) {
	shift := Shift{ID: "shift-1", Status: ShiftStatusOpen, StartingCashFloat: dec("150")}
	sales := []Sale{
		{Total: dec("200"), Payments: []Payment{{Method: PaymentCash, Amount: dec("200")}}},
		{Total: dec("120"), Payments: []Payment{{Method: PaymentCash, Amount: dec("120")}}},
		{Total: dec("80"), Payments: []Payment{{Method: PaymentCard, Amount: dec("80")}}},
		{Total: dec("50"), Payments: []Payment{{Method: PaymentCash, Amount: dec("20")}, {Method: PaymentCard, Amount: dec("30")}}},
	}

	totals, err := shift.Reconcile(dec("465"), sales, "short", time.Now())
	require.NoError(t, err)
	assert.True(t, dec("470").Equal(totals.ExpectedDrawer))
	assert.True(t, dec("-5.00").Equal(*shift.Discrepancy))
	assert.True(t, dec("320").Equal(*shift.CashSales))
	assert.True(t, dec("130").Equal(*shift.CardSales))
	assert.True(t, dec("450").Equal(*shift.TotalSales))
	assert.Equal(t, ShiftStatusReconciled, shift.Status)
	require.NotNil(t, shift.EndTime)

	_, err = shift.Reconcile(dec("465"), nil, "", time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFoundError("product", "x")))
	assert.Equal(t, KindInvalidTransition, KindOf(invalidTransition("shift", "s", "open", "close")))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "", KindOf(nil))
}
