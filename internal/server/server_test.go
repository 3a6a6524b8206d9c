package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"restoran-pos/internal/auth"
	"restoran-pos/internal/domain"
	"restoran-pos/internal/inventory"
	"restoran-pos/internal/models"
	"restoran-pos/internal/orders"
	"restoran-pos/internal/report"
	"restoran-pos/internal/store"
	"restoran-pos/internal/store/memory"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "server-test-secret-server-test-secret"

type testEnv struct {
	app     *fiber.App
	st      *memory.Store
	locA    string
	burger  string
	patty   string
	waiter  string
	manager string
	admin   string
}

func token(t *testing.T, user *models.User) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, user, time.Hour, time.Now())
	require.NoError(t, err)
	return tok
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := memory.New()
	env := &testEnv{st: st, locA: "loc-a", burger: "burger", patty: "patty"}

	err := st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateLocation(ctx, &models.Location{ID: env.locA, Name: "Merkez", Active: true}); err != nil {
			return err
		}
		if err := tx.CreateStockItem(ctx, &models.StockItem{ID: env.patty, Name: "Köfte", Quantity: 4, Unit: "pcs", LocationID: &env.locA, TrackStock: true}); err != nil {
			return err
		}
		return tx.CreateProduct(ctx, &models.Product{
			ID:          env.burger,
			Name:        "Hamburger",
			Price:       900,
			Ingredients: []models.Ingredient{{StockItemID: env.patty, QtyPerUnit: 2}},
			LocationID:  &env.locA,
			Active:      true,
		})
	})
	require.NoError(t, err)

	env.waiter = token(t, &models.User{ID: "w1", Name: "Garson", Role: models.RoleWaiter, LocationID: &env.locA})
	env.manager = token(t, &models.User{ID: "m1", Name: "Müdür", Role: models.RoleManager, LocationID: &env.locA})
	env.admin = token(t, &models.User{ID: "a1", Name: "Admin", Role: models.RoleAdmin})

	env.app = New(Deps{
		Store:     st,
		Auth:      auth.NewService(st, auth.Settings{JWTSecret: testSecret, AccessTokenTTL: time.Hour, RefreshTokenTTL: time.Hour}, nil),
		Inventory: inventory.NewService(st, nil, nil),
		Orders:    orders.NewService(st),
		Reports:   report.NewService(st, nil),
		JWTSecret: testSecret,
		Cookie:    auth.CookieSettings{Name: "refresh_token"},
		ReportTZ:  time.UTC,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, tok string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			r = strings.NewReader(string(raw))
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func errorMessage(t *testing.T, data []byte) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	return body.Error
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, data := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/orders", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/locations", env.waiter, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOrderFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, http.MethodPost, "/api/orders", env.waiter, fiber.Map{
		"table": "5",
		"items": []fiber.Map{{"productId": env.burger, "qty": 1, "priceAtOrder": 900}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var order models.Order
	require.NoError(t, json.Unmarshal(data, &order))
	assert.Equal(t, int64(1), order.Number)
	assert.Equal(t, models.OrderStatusOpen, order.Status)
	require.NotNil(t, order.LocationID)
	assert.Equal(t, env.locA, *order.LocationID)

	resp, data = env.do(t, http.MethodGet, "/api/orders/"+order.ID, env.waiter, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = env.do(t, http.MethodPatch, "/api/orders/"+order.ID+"/status", env.waiter, fiber.Map{"status": "in_kitchen"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	require.NoError(t, json.Unmarshal(data, &order))
	assert.Equal(t, models.OrderStatusPreparing, order.Status)

	resp, data = env.do(t, http.MethodPatch, "/api/orders/"+order.ID+"/status", env.waiter, fiber.Map{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(data))

	resp, data = env.do(t, http.MethodPatch, "/api/orders/"+order.ID+"/status", env.waiter, fiber.Map{"status": "cancelled"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = env.do(t, http.MethodPatch, "/api/orders/"+order.ID+"/status", env.waiter, fiber.Map{"status": "open"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(data))

	resp, data = env.do(t, http.MethodGet, "/api/orders/"+order.ID+"/adjustments", env.manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var adjs []models.StockAdjustment
	require.NoError(t, json.Unmarshal(data, &adjs))
	require.Len(t, adjs, 2)

	resp, data = env.do(t, http.MethodGet, "/api/stock/"+env.patty, env.manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var item models.StockItem
	require.NoError(t, json.Unmarshal(data, &item))
	assert.Equal(t, int64(4), item.Quantity)
}

func TestCreateOrderErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"broken json", `{"items": [`, http.StatusBadRequest},
		{"no items", fiber.Map{"items": []fiber.Map{}}, http.StatusBadRequest},
		{"unknown product", fiber.Map{"items": []fiber.Map{{"productId": "ghost", "qty": 1}}}, http.StatusBadRequest},
		{"insufficient stock", fiber.Map{"items": []fiber.Map{{"productId": env.burger, "qty": 3, "priceAtOrder": 900}}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.do(t, http.MethodPost, "/api/orders", env.waiter, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(data))
			assert.NotEmpty(t, errorMessage(t, data))
		})
	}

	resp, data := env.do(t, http.MethodPost, "/api/orders", env.waiter, fiber.Map{
		"items": []fiber.Map{{"productId": env.burger, "qty": 3, "priceAtOrder": 900}},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorMessage(t, data), "insufficient stock for Köfte")
}

func TestUnknownOrder(t *testing.T) {
	env := newTestEnv(t)
	resp, data := env.do(t, http.MethodGet, "/api/orders/ghost", env.waiter, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, errorMessage(t, data), "order not found")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err   error
		code  int
		known bool
	}{
		{domain.Invalidf("x"), http.StatusBadRequest, true},
		{&domain.InsufficientStockError{ItemName: "x"}, http.StatusBadRequest, true},
		{fmt.Errorf("wrap: %w", domain.ErrInvalidStatus), http.StatusBadRequest, true},
		{domain.ErrForbidden, http.StatusForbidden, true},
		{store.ErrNotFound, http.StatusNotFound, true},
		{domain.ErrOrderNotFound, http.StatusNotFound, true},
		{domain.ErrInvalidTransition, http.StatusConflict, true},
		{domain.ErrTransactionAborted, http.StatusConflict, true},
		{store.ErrDuplicate, http.StatusConflict, true},
		{fiber.NewError(http.StatusUnauthorized, "x"), http.StatusUnauthorized, true},
		{errors.New("boom"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			code, known := statusFor(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestAuthRoutes(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, http.MethodPost, "/api/auth/bootstrap-admin", "", fiber.Map{
		"name": "Admin", "email": "admin@example.com", "password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	resp, data = env.do(t, http.MethodPost, "/api/auth/bootstrap-admin", "", fiber.Map{
		"name": "Again", "email": "again@example.com", "password": "supersecret",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, string(data))

	resp, _ = env.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "admin@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, data = env.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "admin@example.com", "password": "supersecret"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var session struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(data, &session))
	assert.NotEmpty(t, session.AccessToken)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "refresh_token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/api/auth", cookie.Path)

	resp, data = env.do(t, http.MethodGet, "/api/auth/me", session.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, _ = env.do(t, http.MethodPost, "/api/auth/refresh-token", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuditUndoRoute(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, http.MethodPut, "/api/products/"+env.burger, env.manager, fiber.Map{"price": 1200})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = env.do(t, http.MethodGet, "/api/audit-logs?entityId="+env.burger, env.manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var logs []struct {
		ID     string `json:"id"`
		Action string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(data, &logs))
	require.Len(t, logs, 1)
	require.Equal(t, "update", logs[0].Action)
	undoPath := "/api/audit-logs/" + logs[0].ID + "/undo"

	resp, _ = env.do(t, http.MethodPost, undoPath, env.waiter, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, data = env.do(t, http.MethodPost, undoPath, env.manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var undone struct {
		Log struct {
			Action string `json:"action"`
		} `json:"log"`
	}
	require.NoError(t, json.Unmarshal(data, &undone))
	assert.Equal(t, "undo", undone.Log.Action)

	resp, data = env.do(t, http.MethodGet, "/api/products/"+env.burger, env.manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var p models.Product
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, int64(900), p.Price)

	resp, _ = env.do(t, http.MethodPost, undoPath, env.manager, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/audit-logs/ghost/undo", env.admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
