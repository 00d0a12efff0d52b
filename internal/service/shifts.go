package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stockflow/backend/internal/domain"
	"stockflow/backend/internal/store"
	"stockflow/backend/internal/xid"
)

func (s *Service) OpenShift(ctx context.Context, tenantID string, req domain.ShiftOpenRequest) (domain.Shift, error) {
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	if err := s.check(req); err != nil {
		return domain.Shift{}, err
	}

	shift := domain.Shift{
		ID:                xid.New("shift"),
		EmployeeID:        req.EmployeeID,
		StartTime:         s.now(),
		StartingCashFloat: req.StartingCashFloat,
		Status:            domain.ShiftStatusOpen,
	}
	err := s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		existing, err := tx.Shifts().FindOpenByEmployee(ctx, req.EmployeeID)
		if err == nil {
			return fmt.Errorf("%w: employee %s already has open shift %s", domain.ErrInvalidTransition, req.EmployeeID, existing.ID)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := tx.Shifts().Create(ctx, shift); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "shift.open", "shift", shift.ID, "float="+shift.StartingCashFloat.StringFixed(2))
		return nil
	})
	if err != nil {
		return domain.Shift{}, err
	}
	return shift, nil
}

// CloseShift reconciles the drawer against the listed sales, or against every
// sale attached to the shift when none are listed.
func (s *Service) CloseShift(ctx context.Context, tenantID string, req domain.ShiftCloseRequest) (domain.Shift, error) {
	if err := s.check(req); err != nil {
		return domain.Shift{}, err
	}

	var closed domain.Shift
	err := s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		shift, err := tx.Shifts().Get(ctx, req.ShiftID)
		if err != nil {
			return err
		}
		if shift.Status != domain.ShiftStatusOpen {
			return fmt.Errorf("%w: shift %s is already %s", domain.ErrInvalidTransition, shift.ID, shift.Status)
		}

		sales, err := shiftSales(ctx, tx, shift.ID, req.SaleIDs)
		if err != nil {
			return err
		}
		totals, err := shift.Reconcile(req.ActualCashCounted, sales, strings.TrimSpace(req.Notes), s.now())
		if err != nil {
			return err
		}
		if err := tx.Shifts().Update(ctx, *shift); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "shift.close", "shift", shift.ID,
			fmt.Sprintf("expected=%s counted=%s discrepancy=%s", totals.ExpectedDrawer.StringFixed(2), req.ActualCashCounted.StringFixed(2), totals.Discrepancy.StringFixed(2)))
		closed = *shift
		return nil
	})
	return closed, err
}

func shiftSales(ctx context.Context, tx store.Tx, shiftID string, saleIDs []string) ([]domain.Sale, error) {
	if len(saleIDs) == 0 {
		return tx.Sales().List(ctx, store.SaleFilter{ShiftID: shiftID})
	}

	seen := make(map[string]struct{}, len(saleIDs))
	sales := make([]domain.Sale, 0, len(saleIDs))
	for _, id := range saleIDs {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sale, err := tx.Sales().Get(ctx, id)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	return sales, nil
}

func (s *Service) GetShift(ctx context.Context, tenantID string, req domain.IDRequest) (domain.Shift, error) {
	if err := s.check(req); err != nil {
		return domain.Shift{}, err
	}

	var shift domain.Shift
	err := s.store.View(ctx, tenantID, func(tx store.Tx) error {
		found, err := tx.Shifts().Get(ctx, req.ID)
		if err != nil {
			return err
		}
		shift = *found
		return nil
	})
	return shift, err
}

func (s *Service) ListShifts(ctx context.Context, tenantID string, req domain.StatusListRequest) (domain.ShiftListResponse, error) {
	var resp domain.ShiftListResponse
	err := s.store.View(ctx, tenantID, func(tx store.Tx) error {
		shifts, err := tx.Shifts().List(ctx, strings.TrimSpace(req.Status))
		if err != nil {
			return err
		}
		resp.Shifts = shifts
		return nil
	})
	return resp, err
}
