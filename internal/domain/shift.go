package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShiftTotals struct {
	CashSales      decimal.Decimal
	CardSales      decimal.Decimal
	TotalSales     decimal.Decimal
	ExpectedDrawer decimal.Decimal
	Discrepancy    decimal.Decimal
}

// ComputeShiftTotals splits sales by tender. Split tenders count on the
// card side, so only pure cash sales are expected in the drawer.
func ComputeShiftTotals(startingCashFloat decimal.Decimal, actualCashCounted decimal.Decimal, sales []Sale) ShiftTotals {
	cash := decimal.Zero
	card := decimal.Zero
	for i := range sales {
		switch sales[i].PaymentMethod() {
		case PaymentCash:
			cash = cash.Add(sales[i].Total)
		case PaymentCard, PaymentSplit:
			card = card.Add(sales[i].Total)
		}
	}
	expected := startingCashFloat.Add(cash)
	return ShiftTotals{
		CashSales:      cash,
		CardSales:      card,
		TotalSales:     cash.Add(card),
		ExpectedDrawer: expected,
		Discrepancy:    actualCashCounted.Sub(expected),
	}
}

// Reconcile closes the shift. A non-zero discrepancy is recorded, never rejected.
func (s *Shift) Reconcile(actualCashCounted decimal.Decimal, sales []Sale, notes string, at time.Time) (ShiftTotals, error) {
	if s.Status != ShiftStatusOpen {
		return ShiftTotals{}, invalidTransition("shift", s.ID, s.Status, "close")
	}
	totals := ComputeShiftTotals(s.StartingCashFloat, actualCashCounted, sales)

	end := at
	counted := actualCashCounted
	s.EndTime = &end
	s.EndingCashFloat = &counted
	s.CashSales = &totals.CashSales
	s.CardSales = &totals.CardSales
	s.TotalSales = &totals.TotalSales
	s.Discrepancy = &totals.Discrepancy
	s.Notes = notes
	s.Status = ShiftStatusReconciled
	return totals, nil
}
