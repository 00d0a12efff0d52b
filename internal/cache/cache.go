package cache

import (
	"context"
	"time"

	"stockflow/backend/internal/domain"
)

// ReorderCache holds the last computed reorder suggestions per tenant.
type ReorderCache interface {
	Get(ctx context.Context, tenantID string) (*domain.ReorderSuggestionResponse, bool, error)
	Set(ctx context.Context, tenantID string, value *domain.ReorderSuggestionResponse, ttl time.Duration) error
	Invalidate(ctx context.Context, tenantID string) error
}

type NoopReorderCache struct{}

func (NoopReorderCache) Get(_ context.Context, _ string) (*domain.ReorderSuggestionResponse, bool, error) {
	return nil, false, nil
}

func (NoopReorderCache) Set(_ context.Context, _ string, _ *domain.ReorderSuggestionResponse, _ time.Duration) error {
	return nil
}

func (NoopReorderCache) Invalidate(_ context.Context, _ string) error {
	return nil
}

func reorderKey(tenantID string) string {
	return "stockflow:reorder:" + tenantID
}
