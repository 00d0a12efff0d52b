package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"stockflow/backend/internal/domain"
	"stockflow/backend/internal/store"
	"stockflow/backend/internal/xid"
)

var errReadOnly = errors.New("memory store: write attempted in read-only view")

// Store keeps every tenant partition in process memory. Each tenant has its
// own lock, so commands for different tenants never wait on each other.
type Store struct {
	mu      sync.Mutex
	tenants map[string]*tenantSlot

	usersMu sync.RWMutex
	users   map[string]domain.UserAccount
}

type tenantSlot struct {
	mu    sync.RWMutex
	state *tenantState
}

type Seed struct {
	TenantID        string
	AdminPassword   string
	CashierPassword string
}

func New() *Store {
	return &Store{
		tenants: make(map[string]*tenantSlot),
		users:   make(map[string]domain.UserAccount),
	}
}

// NewSeeded builds a store with one demo tenant catalog and two accounts
// bound to it. Intended for local development only.
func NewSeeded(seed Seed) *Store {
	s := New()
	if seed.TenantID == "" {
		seed.TenantID = "demo"
	}
	if seed.AdminPassword == "" || seed.CashierPassword == "" {
		log.Warn().Msg("memory store: seed passwords not set, using development defaults")
	}
	if seed.AdminPassword == "" {
		seed.AdminPassword = "admin123"
	}
	if seed.CashierPassword == "" {
		seed.CashierPassword = "cashier123"
	}

	now := time.Now().UTC()
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", seed.AdminPassword, domain.RoleAdmin},
		{"cashier", seed.CashierPassword, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("memory store: hash seed password")
		}
		s.users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			TenantID:  seed.TenantID,
			Active:    true,
			CreatedAt: now,
		}
	}

	catalog := []struct {
		sku, name, category, price, cost string
		stock                            int
	}{
		{"SKU-COFFEE-250", "Ground Coffee 250g", "grocery", "8.90", "5.10", 42},
		{"SKU-TEA-20", "Black Tea 20 bags", "grocery", "3.40", "1.70", 18},
		{"SKU-MILK-1L", "Whole Milk 1L", "dairy", "1.80", "1.05", 60},
		{"SKU-BREAD-WW", "Wholewheat Bread", "bakery", "2.60", "1.20", 12},
		{"SKU-SOAP-100", "Bar Soap 100g", "household", "1.50", "0.60", 0},
	}
	state := newTenantState()
	for _, item := range catalog {
		p := domain.Product{
			ID:        xid.New("prod"),
			SKU:       item.sku,
			Name:      item.name,
			Category:  item.category,
			Price:     decimal.RequireFromString(item.price),
			Cost:      decimal.RequireFromString(item.cost),
			Stock:     item.stock,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		p.RefreshStatus()
		state.products.put(p.ID, p)
	}
	s.tenants[seed.TenantID] = &tenantSlot{state: state}
	return s
}

func (s *Store) slot(tenantID string) *tenantSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.tenants[tenantID]
	if !ok {
		slot = &tenantSlot{state: newTenantState()}
		s.tenants[tenantID] = slot
	}
	return slot
}

func (s *Store) Atomic(ctx context.Context, tenantID string, fn func(tx store.Tx) error) error {
	if err := store.ValidateTenantID(tenantID); err != nil {
		return err
	}
	slot := s.slot(tenantID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	working := slot.state.snapshot()
	if err := fn(&tx{state: working}); err != nil {
		return err
	}
	slot.state = working
	return nil
}

func (s *Store) View(ctx context.Context, tenantID string, fn func(tx store.Tx) error) error {
	if err := store.ValidateTenantID(tenantID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	slot, ok := s.tenants[tenantID]
	s.mu.Unlock()
	if !ok {
		return fn(&tx{state: newTenantState(), readOnly: true})
	}
	slot.mu.RLock()
	defer slot.mu.RUnlock()
	return fn(&tx{state: slot.state, readOnly: true})
}

func (s *Store) Tenants(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	if _, exists := s.users[user.Username]; exists {
		return fmt.Errorf("%w: username already exists", domain.ErrValidation)
	}
	s.users[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b domain.UserAccount) int { return strings.Compare(a.Username, b.Username) })
	return out, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return domain.NotFoundError("user", username)
	}
	user.Password = password
	s.users[username] = user
	return nil
}

// collection keeps insertion order. Stored values are never mutated in
// place, so a snapshot only needs fresh backing arrays.
type collection[T any] struct {
	items []T
	index map[string]int
}

func newCollection[T any]() collection[T] {
	return collection[T]{index: make(map[string]int)}
}

func (c collection[T]) clone() collection[T] {
	index := make(map[string]int, len(c.index))
	for k, v := range c.index {
		index[k] = v
	}
	return collection[T]{items: slices.Clone(c.items), index: index}
}

func (c *collection[T]) get(id string) (T, bool) {
	idx, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[idx], true
}

func (c *collection[T]) put(id string, value T) {
	if idx, ok := c.index[id]; ok {
		c.items[idx] = value
		return
	}
	c.index[id] = len(c.items)
	c.items = append(c.items, value)
}

func (c *collection[T]) remove(id string, idOf func(T) string) bool {
	idx, ok := c.index[id]
	if !ok {
		return false
	}
	c.items = slices.Delete(c.items, idx, idx+1)
	delete(c.index, id)
	for i := idx; i < len(c.items); i++ {
		c.index[idOf(c.items[i])] = i
	}
	return true
}

type tenantState struct {
	products        collection[domain.Product]
	adjustments     []domain.StockAdjustment
	purchaseOrders  collection[domain.PurchaseOrder]
	wholesaleOrders collection[domain.WholesaleOrder]
	sales           collection[domain.Sale]
	shifts          collection[domain.Shift]
	auditLogs       []domain.AuditLog
}

func newTenantState() *tenantState {
	return &tenantState{
		products:        newCollection[domain.Product](),
		purchaseOrders:  newCollection[domain.PurchaseOrder](),
		wholesaleOrders: newCollection[domain.WholesaleOrder](),
		sales:           newCollection[domain.Sale](),
		shifts:          newCollection[domain.Shift](),
	}
}

func (s *tenantState) snapshot() *tenantState {
	return &tenantState{
		products:        s.products.clone(),
		adjustments:     slices.Clone(s.adjustments),
		purchaseOrders:  s.purchaseOrders.clone(),
		wholesaleOrders: s.wholesaleOrders.clone(),
		sales:           s.sales.clone(),
		shifts:          s.shifts.clone(),
		auditLogs:       slices.Clone(s.auditLogs),
	}
}
