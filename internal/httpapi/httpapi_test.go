package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/backend/internal/domain"
	"stockflow/backend/internal/service"
	"stockflow/backend/internal/store/memory"
)

const demoTenant = "demo"

type responseBody struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	st := memory.NewSeeded(memory.Seed{TenantID: demoTenant, AdminPassword: "admin-pass", CashierPassword: "cashier-pass"})
	svc := service.New(st, nil, service.Options{})
	auth := NewAuthManager(context.Background(), testSecret, time.Hour, st)
	return New(svc, auth, "http://localhost:5173").App()
}

func doJSON(t *testing.T, app *fiber.App, path string, token string, body any) (*http.Response, responseBody) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded responseBody
	require.NoError(t, json.Unmarshal(data, &decoded), string(data))
	return resp, decoded
}

func runCommand(t *testing.T, app *fiber.App, token string, name string, tenantID string, payload any) (*http.Response, responseBody) {
	t.Helper()
	return doJSON(t, app, "/api/v1/commands/"+name, token, map[string]any{"tenant_id": tenantID, "payload": payload})
}

func TestHealthzSetsSecurityHeaders(t *testing.T) {
	app := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestLoginReturnsTenantBoundToken(t *testing.T) {
	app := newTestApp(t)
	raw, _ := json.Marshal(domain.LoginRequest{Username: "admin", Password: "admin-pass"})
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(raw)), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out domain.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, domain.RoleAdmin, out.Role)
	assert.Equal(t, demoTenant, out.TenantID)
	assert.NotEmpty(t, out.AccessToken)

	wrong, body := doJSON(t, app, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, wrong.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, domain.KindUnauthorized, body.Error.Kind)
}

func TestLoginRateLimitReturns429(t *testing.T) {
	app := newTestApp(t)
	for i := 0; i < 6; i++ {
		resp, body := doJSON(t, app, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrong-pass"})
		if i < 5 {
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d", i+1)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		require.NotNil(t, body.Error)
		assert.Equal(t, kindTooManyRequests, body.Error.Kind)
	}
}

func TestCommandsRequireBearerToken(t *testing.T) {
	app := newTestApp(t)
	resp, body := runCommand(t, app, "", "catalog.list_products", demoTenant, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, domain.KindUnauthorized, body.Error.Kind)

	resp, _ = runCommand(t, app, "not-a-jwt", "catalog.list_products", demoTenant, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCashierRoleAndTenantBoundaries(t *testing.T) {
	app := newTestApp(t)
	token := tokenFor(t, app, "cashier", "cashier-pass")

	resp, body := runCommand(t, app, token, "catalog.list_products", demoTenant, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var products domain.ProductListResponse
	require.NoError(t, json.Unmarshal(body.Result, &products))
	assert.Len(t, products.Products, 5)

	resp, body = runCommand(t, app, token, "catalog.add_product", demoTenant, domain.ProductCreateRequest{Name: "X", SKU: "X"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, domain.KindForbidden, body.Error.Kind)

	resp, _ = runCommand(t, app, token, "catalog.list_products", "other-tenant", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = runCommand(t, app, token, "catalog.unknown", demoTenant, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, domain.KindNotFound, body.Error.Kind)
}

func TestCommandErrorKindsMapToStatus(t *testing.T) {
	app := newTestApp(t)
	admin := tokenFor(t, app, "admin", "admin-pass")
	cashier := tokenFor(t, app, "cashier", "cashier-pass")

	resp, body := runCommand(t, app, admin, "catalog.add_product", demoTenant, map[string]any{
		"name": "Rice 5kg", "sku": "rice-5", "price": "12.50", "cost": "9.00", "stock": 3,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body.Result))
	var product domain.Product
	require.NoError(t, json.Unmarshal(body.Result, &product))
	assert.Equal(t, "RICE-5", product.SKU)
	assert.Equal(t, domain.StockStatusLowStock, product.Status)

	resp, body = runCommand(t, app, admin, "catalog.add_product", demoTenant, map[string]any{"name": "", "sku": "Y"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, domain.KindValidation, body.Error.Kind)
	assert.Contains(t, body.Error.Message, "name")

	resp, body = runCommand(t, app, cashier, "sales.record", demoTenant, map[string]any{
		"employee_id": "cashier",
		"payments":    []map[string]any{{"method": "cash", "amount": "100"}},
		"line_items":  []map[string]any{{"product_id": product.ID, "quantity": 4}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, domain.KindInvalidQuantity, body.Error.Kind)

	resp, body = runCommand(t, app, cashier, "sales.record", demoTenant, map[string]any{
		"employee_id": "cashier",
		"payments":    []map[string]any{{"method": "cash", "amount": "25"}},
		"line_items":  []map[string]any{{"product_id": product.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sale domain.Sale
	require.NoError(t, json.Unmarshal(body.Result, &sale))
	assert.Equal(t, "25.00", sale.Total.StringFixed(2))

	resp, body = runCommand(t, app, admin, "purchasing.create_draft", demoTenant, map[string]any{
		"vendor_id":  "vendor-1",
		"line_items": []map[string]any{{"product_id": product.ID, "quantity": 10, "unit_cost": "9"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var po domain.PurchaseOrder
	require.NoError(t, json.Unmarshal(body.Result, &po))

	resp, body = runCommand(t, app, admin, "purchasing.receive", demoTenant, map[string]any{
		"id": po.ID, "items": []map[string]any{{"product_id": product.ID, "quantity_received": 4}},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, domain.KindInvalidTransition, body.Error.Kind)

	resp, body = runCommand(t, app, admin, "catalog.mutate_stock", demoTenant, map[string]any{
		"product_id": product.ID, "delta": 1, "expected_version": 1,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, domain.KindConflict, body.Error.Kind)

	resp, body = runCommand(t, app, admin, "audit.list", demoTenant, map[string]any{"limit": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var logs domain.AuditLogListResponse
	require.NoError(t, json.Unmarshal(body.Result, &logs))
	require.Len(t, logs.AuditLogs, 2)
	assert.Equal(t, "purchase_order.create", logs.AuditLogs[0].Action)
}

func TestCommandRejectsUnknownPayloadFields(t *testing.T) {
	app := newTestApp(t)
	admin := tokenFor(t, app, "admin", "admin-pass")

	resp, body := runCommand(t, app, admin, "catalog.get_product", demoTenant, map[string]any{"id": "x", "bogus": true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, domain.KindValidation, body.Error.Kind)
}

func TestAdminCreatesCashierForOwnTenant(t *testing.T) {
	app := newTestApp(t)
	admin := tokenFor(t, app, "admin", "admin-pass")

	resp, _ := runCommand(t, app, admin, "users.create_cashier", demoTenant, domain.CashierCreateRequest{Username: "kasir02", Password: "kasir-pass"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token := tokenFor(t, app, "kasir02", "kasir-pass")
	resp, _ = runCommand(t, app, token, "shifts.list", demoTenant, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestErrorEnvelopeKindsFollowStatus(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, "/api/v1/no-such-route", "", map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, domain.KindNotFound, body.Error.Kind)

	resp, body = doJSON(t, app, "/api/v1/auth/login", "", map[string]any{"username": "admin", "pin": "1234"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, domain.KindValidation, body.Error.Kind)

	assert.Equal(t, domain.KindConflict, kindFor(http.StatusConflict, domain.ErrConflict))
	assert.Equal(t, domain.KindForbidden, kindFor(http.StatusForbidden, errors.New("forbidden role")))
	assert.Equal(t, kindTooManyRequests, kindFor(http.StatusTooManyRequests, errors.New("slow down")))
	assert.Equal(t, domain.KindInternal, kindFor(http.StatusInternalServerError, errors.New("db down")))
}

func tokenFor(t *testing.T, app *fiber.App, username string, password string) string {
	t.Helper()
	raw, err := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	require.NoError(t, err)
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(raw)), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out domain.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.AccessToken
}
