package reorder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"stockflow/backend/internal/cache"
	"stockflow/backend/internal/domain"
)

type Engine struct {
	cache    cache.ReorderCache
	cacheTTL time.Duration
	now      func() time.Time

	// generations counts invalidations per tenant so a refresh that loaded
	// before an invalidation does not repopulate the cache.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewEngine(cacheStore cache.ReorderCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopReorderCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL:    cacheTTL,
		now:         func() time.Time { return time.Now().UTC() },
		generations: make(map[string]uint64),
	}
}

// Suggest serves the cached suggestions for the tenant, loading the catalog
// and recomputing only on a miss. Cache failures degrade to recomputation.
func (e *Engine) Suggest(
	ctx context.Context,
	tenantID string,
	load func(ctx context.Context) ([]domain.Product, error),
) (domain.ReorderSuggestionResponse, error) {
	cached, ok, err := e.cache.Get(ctx, tenantID)
	if err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID).Msg("reorder cache read failed")
	}
	if err == nil && ok && cached != nil {
		return *cached, nil
	}
	return e.Refresh(ctx, tenantID, load)
}

// Refresh recomputes and stores the suggestions regardless of the cache. The
// result is not cached when the tenant was invalidated while loading; across
// processes sharing one cache that window is bounded by the TTL.
func (e *Engine) Refresh(
	ctx context.Context,
	tenantID string,
	load func(ctx context.Context) ([]domain.Product, error),
) (domain.ReorderSuggestionResponse, error) {
	started := e.generation(tenantID)
	products, err := load(ctx)
	if err != nil {
		return domain.ReorderSuggestionResponse{}, err
	}

	resp := Compute(tenantID, products, e.now())

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generations[tenantID] != started {
		return resp, nil
	}
	if err := e.cache.Set(ctx, tenantID, &resp, e.cacheTTL); err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID).Msg("reorder cache write failed")
	}
	return resp, nil
}

func (e *Engine) generation(tenantID string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generations[tenantID]
}

func (e *Engine) Invalidate(ctx context.Context, tenantID string) {
	e.mu.Lock()
	e.generations[tenantID]++
	e.mu.Unlock()

	if err := e.cache.Invalidate(ctx, tenantID); err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID).Msg("reorder cache invalidate failed")
	}
}

// Compute suggests every product at or below the low-stock threshold, topped
// up to twice the threshold. Out of stock first, then lowest stock.
func Compute(tenantID string, products []domain.Product, at time.Time) domain.ReorderSuggestionResponse {
	target := 2 * domain.LowStockThreshold
	suggestions := make([]domain.ReorderSuggestion, 0, len(products))

	for _, p := range products {
		if p.Stock > domain.LowStockThreshold {
			continue
		}
		qty := target - max(p.Stock, 0)
		reason := fmt.Sprintf("stock %d at or below reorder point %d", p.Stock, domain.LowStockThreshold)
		if p.Stock <= 0 {
			reason = "out of stock"
		}

		suggestions = append(suggestions, domain.ReorderSuggestion{
			ProductID:      p.ID,
			SKU:            p.SKU,
			Name:           p.Name,
			Category:       p.Category,
			Stock:          p.Stock,
			Status:         domain.DeriveStockStatus(p.Stock),
			ReorderPoint:   domain.LowStockThreshold,
			RecommendedQty: qty,
			UnitCost:       p.Cost,
			EstimatedCost:  p.Cost.Mul(decimal.NewFromInt(int64(qty))),
			Reason:         reason,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Stock != suggestions[j].Stock {
			return suggestions[i].Stock < suggestions[j].Stock
		}
		return suggestions[i].SKU < suggestions[j].SKU
	})

	return domain.ReorderSuggestionResponse{
		TenantID:    tenantID,
		GeneratedAt: at,
		Suggestions: suggestions,
	}
}
