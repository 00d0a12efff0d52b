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

func (s *Service) ListProducts(ctx context.Context, tenantID string) (domain.ProductListResponse, error) {
	var resp domain.ProductListResponse
	err := s.store.View(ctx, tenantID, func(tx store.Tx) error {
		products, err := tx.Products().List(ctx)
		if err != nil {
			return err
		}
		resp.Products = products
		return nil
	})
	return resp, err
}

func (s *Service) GetProduct(ctx context.Context, tenantID string, req domain.IDRequest) (domain.Product, error) {
	if err := s.check(req); err != nil {
		return domain.Product{}, err
	}

	var product domain.Product
	err := s.store.View(ctx, tenantID, func(tx store.Tx) error {
		p, err := tx.Products().Get(ctx, req.ID)
		if err != nil {
			return err
		}
		product = *p
		return nil
	})
	return product, err
}

func (s *Service) AddProduct(ctx context.Context, tenantID string, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Category = strings.TrimSpace(req.Category)
	if err := s.check(req); err != nil {
		return domain.Product{}, err
	}

	now := s.now()
	product := domain.Product{
		ID:        xid.New("prod"),
		Name:      req.Name,
		SKU:       req.SKU,
		Category:  req.Category,
		Price:     req.Price,
		Cost:      req.Cost,
		Stock:     req.Stock,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	product.RefreshStatus()

	err := s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		if err := ensureSKUFree(ctx, tx, product.SKU, product.ID); err != nil {
			return err
		}
		if err := tx.Products().Create(ctx, product); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "product.create", "product", product.ID, fmt.Sprintf("sku=%s stock=%d", product.SKU, product.Stock))
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.stockChanged(ctx, tenantID)
	return product, nil
}

func ensureSKUFree(ctx context.Context, tx store.Tx, sku string, productID string) error {
	existing, err := tx.Products().GetBySKU(ctx, sku)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != productID {
		return fmt.Errorf("%w: sku %s is already used by product %s", domain.ErrValidation, sku, existing.ID)
	}
	return nil
}

// UpdateProduct overwrites the editable fields, stock included. A non-zero request version
// must match the stored one.
func (s *Service) UpdateProduct(ctx context.Context, tenantID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Category = strings.TrimSpace(req.Category)
	if err := s.check(req); err != nil {
		return domain.Product{}, err
	}

	var updated domain.Product
	err := s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		product, err := tx.Products().Get(ctx, req.ID)
		if err != nil {
			return err
		}
		if req.Version != 0 && req.Version != product.Version {
			return fmt.Errorf("%w: product %s is at version %d, request carries %d", domain.ErrConflict, product.ID, product.Version, req.Version)
		}
		if req.SKU != product.SKU {
			if err := ensureSKUFree(ctx, tx, req.SKU, product.ID); err != nil {
				return err
			}
		}

		previousStock := product.Stock
		product.Name = req.Name
		product.SKU = req.SKU
		product.Category = req.Category
		product.Price = req.Price
		product.Cost = req.Cost
		product.Stock = req.Stock
		product.Version++
		product.UpdatedAt = s.now()
		product.RefreshStatus()

		if err := tx.Products().Update(ctx, *product); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "product.update", "product", product.ID, fmt.Sprintf("stock %d -> %d", previousStock, product.Stock))
		updated = *product
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.stockChanged(ctx, tenantID)
	return updated, nil
}

// DeleteProduct refuses while an open purchase or wholesale order still
// lists the product.
func (s *Service) DeleteProduct(ctx context.Context, tenantID string, req domain.IDRequest) error {
	if err := s.check(req); err != nil {
		return err
	}

	err := s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		product, err := tx.Products().Get(ctx, req.ID)
		if err != nil {
			return err
		}

		purchaseOrders, err := tx.PurchaseOrders().List(ctx, "")
		if err != nil {
			return err
		}
		for i := range purchaseOrders {
			if !purchaseOrders[i].IsTerminal() && purchaseOrders[i].References(product.ID) {
				return fmt.Errorf("%w: product %s is on open purchase order %s", domain.ErrInvalidTransition, product.ID, purchaseOrders[i].ID)
			}
		}
		wholesaleOrders, err := tx.WholesaleOrders().List(ctx, "")
		if err != nil {
			return err
		}
		for i := range wholesaleOrders {
			if wholesaleOrders[i].IsOpen() && wholesaleOrders[i].References(product.ID) {
				return fmt.Errorf("%w: product %s is on open wholesale order %s", domain.ErrInvalidTransition, product.ID, wholesaleOrders[i].ID)
			}
		}

		if err := tx.Products().Delete(ctx, product.ID); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "product.delete", "product", product.ID, "sku="+product.SKU)
		return nil
	})
	if err != nil {
		return err
	}
	s.stockChanged(ctx, tenantID)
	return nil
}

// MutateStock applies a signed delta. The result may go negative; callers
// that care about availability check before calling.
func (s *Service) MutateStock(ctx context.Context, tenantID string, req domain.MutateStockRequest) (domain.Product, error) {
	if err := s.check(req); err != nil {
		return domain.Product{}, err
	}
	if req.Delta == 0 {
		return domain.Product{}, fmt.Errorf("%w: delta must not be zero", domain.ErrInvalidQuantity)
	}

	var product domain.Product
	err := s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		p, err := s.applyStockDelta(ctx, tx, req.ProductID, req.Delta, req.ExpectedVersion)
		if err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "product.stock_mutate", "product", p.ID, fmt.Sprintf("delta=%d stock=%d", req.Delta, p.Stock))
		product = *p
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.stockChanged(ctx, tenantID)
	return product, nil
}

// AdjustStock records a manual adjustment and applies it in one unit of work.
func (s *Service) AdjustStock(ctx context.Context, tenantID string, req domain.StockAdjustmentRequest) (domain.StockAdjustment, error) {
	req.Notes = strings.TrimSpace(req.Notes)
	if err := s.check(req); err != nil {
		return domain.StockAdjustment{}, err
	}
	if req.Quantity == 0 {
		return domain.StockAdjustment{}, fmt.Errorf("%w: adjustment quantity must not be zero", domain.ErrInvalidQuantity)
	}

	adjustment := domain.StockAdjustment{
		ID:         xid.New("adj"),
		ProductID:  req.ProductID,
		Timestamp:  s.now(),
		Type:       req.Type,
		Quantity:   req.Quantity,
		Notes:      req.Notes,
		EmployeeID: req.EmployeeID,
	}
	err := s.store.Atomic(ctx, tenantID, func(tx store.Tx) error {
		p, err := s.applyStockDelta(ctx, tx, req.ProductID, req.Quantity, 0)
		if err != nil {
			return err
		}
		if err := tx.StockAdjustments().Append(ctx, adjustment); err != nil {
			return err
		}
		s.logAudit(ctx, tx, tenantID, "product.stock_adjust", "product", p.ID, fmt.Sprintf("type=%s quantity=%d stock=%d", req.Type, req.Quantity, p.Stock))
		return nil
	})
	if err != nil {
		return domain.StockAdjustment{}, err
	}
	s.stockChanged(ctx, tenantID)
	return adjustment, nil
}

func (s *Service) ListStockAdjustments(ctx context.Context, tenantID string, req domain.StockAdjustmentListRequest) (domain.StockAdjustmentListResponse, error) {
	var resp domain.StockAdjustmentListResponse
	err := s.store.View(ctx, tenantID, func(tx store.Tx) error {
		adjustments, err := tx.StockAdjustments().List(ctx, req.ProductID)
		if err != nil {
			return err
		}
		resp.Adjustments = adjustments
		return nil
	})
	return resp, err
}
