package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"stockflow/backend/internal/domain"
	"stockflow/backend/internal/reorder"
	"stockflow/backend/internal/store"
	"stockflow/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	// StockPolicy decides whether recording a sale takes units off the shelf.
	StockPolicy   string
	AllowOversell bool
}

type Service struct {
	store    store.Store
	reorder  *reorder.Engine
	opts     Options
	validate *validator.Validate
	now      func() time.Time
}

func New(st store.Store, advisor *reorder.Engine, opts Options) *Service {
	if advisor == nil {
		advisor = reorder.NewEngine(nil, 0)
	}
	if opts.StockPolicy == "" {
		opts.StockPolicy = domain.StockPolicyDecrement
	}

	return &Service{
		store:    st,
		reorder:  advisor,
		opts:     opts,
		validate: newValidator(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// check runs struct validation and reports the first violation by its json path.
func (s *Service) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return checkMoneyScale(reflect.ValueOf(req), "")
	}

	var violations validator.ValidationErrors
	if errors.As(err, &violations) && len(violations) > 0 {
		first := violations[0]
		field := first.Namespace()
		if idx := strings.Index(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		if first.Param() != "" {
			return fmt.Errorf("%w: %s must satisfy %s=%s", domain.ErrValidation, field, first.Tag(), first.Param())
		}
		return fmt.Errorf("%w: %s is %s", domain.ErrValidation, field, first.Tag())
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// checkMoneyScale rejects amounts with more places than the store keeps.
func checkMoneyScale(v reflect.Value, path string) error {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return checkMoneyScale(v.Elem(), path)
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			if err := checkMoneyScale(v.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case reflect.Struct:
		if v.Type() == decimalType {
			d := v.Interface().(decimal.Decimal)
			if !d.Equal(d.Round(domain.MoneyScale)) {
				return fmt.Errorf("%w: %s must have at most %d decimal places", domain.ErrValidation, path, domain.MoneyScale)
			}
			return nil
		}
		for i := 0; i < v.NumField(); i++ {
			field := v.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				name = field.Name
			}
			if path != "" {
				name = path + "." + name
			}
			if err := checkMoneyScale(v.Field(i), name); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyStockDelta moves on-hand quantity by delta for stock commands, receipts,
// shipments, sales and refunds. A zero expectedVersion skips the optimistic check.
func (s *Service) applyStockDelta(ctx context.Context, tx store.Tx, productID string, delta int, expectedVersion int64) (*domain.Product, error) {
	product, err := tx.Products().Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if expectedVersion > 0 && product.Version != expectedVersion {
		return nil, fmt.Errorf("%w: product %s is at version %d, expected %d", domain.ErrConflict, productID, product.Version, expectedVersion)
	}
	product.ApplyStockDelta(delta, s.now())
	if err := tx.Products().Update(ctx, *product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *Service) applyStockDeltas(ctx context.Context, tx store.Tx, deltas []domain.StockDelta) error {
	for _, d := range deltas {
		if _, err := s.applyStockDelta(ctx, tx, d.ProductID, d.Delta, 0); err != nil {
			return err
		}
	}
	return nil
}

// stockChanged drops cached reorder suggestions once a stock write committed.
func (s *Service) stockChanged(ctx context.Context, tenantID string) {
	s.reorder.Invalidate(ctx, tenantID)
}

// logAudit writes inside the caller's unit of work. A failed write is logged
// and does not fail the command.
func (s *Service) logAudit(ctx context.Context, tx store.Tx, tenantID string, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := tx.AuditLogs().Append(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		log.Warn().
			Err(err).
			Str("tenant_id", tenantID).
			Str("action", action).
			Str("entity", entityType+"/"+entityID).
			Msg("audit log write failed")
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, tenantID string, req domain.AuditLogListRequest) (domain.AuditLogListResponse, error) {
	if err := s.check(req); err != nil {
		return domain.AuditLogListResponse{}, err
	}
	limit := req.Limit
	if limit == 0 {
		limit = 100
	}

	var resp domain.AuditLogListResponse
	err := s.store.View(ctx, tenantID, func(tx store.Tx) error {
		logs, err := tx.AuditLogs().List(ctx, limit)
		if err != nil {
			return err
		}
		resp.AuditLogs = logs
		return nil
	})
	return resp, err
}

func (s *Service) ReorderSuggestions(ctx context.Context, tenantID string) (domain.ReorderSuggestionResponse, error) {
	if err := store.ValidateTenantID(tenantID); err != nil {
		return domain.ReorderSuggestionResponse{}, err
	}
	return s.reorder.Suggest(ctx, tenantID, s.productLoader(tenantID))
}

// RefreshReorderSuggestions rebuilds the cached suggestions for one tenant.
func (s *Service) RefreshReorderSuggestions(ctx context.Context, tenantID string) error {
	_, err := s.reorder.Refresh(ctx, tenantID, s.productLoader(tenantID))
	return err
}

func (s *Service) Tenants(ctx context.Context) ([]string, error) {
	return s.store.Tenants(ctx)
}

func (s *Service) productLoader(tenantID string) func(ctx context.Context) ([]domain.Product, error) {
	return func(ctx context.Context) ([]domain.Product, error) {
		var products []domain.Product
		err := s.store.View(ctx, tenantID, func(tx store.Tx) error {
			var err error
			products, err = tx.Products().List(ctx)
			return err
		})
		return products, err
	}
}

func requireProducts(ctx context.Context, tx store.Tx, productIDs ...string) error {
	for _, id := range productIDs {
		if _, err := tx.Products().Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
