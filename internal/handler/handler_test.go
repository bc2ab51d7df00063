package handler

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

	"go-inventory-pos/internal/middleware"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/service"
	"go-inventory-pos/internal/testutil"
	"go-inventory-pos/internal/ws"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopPublisher struct{}

func (nopPublisher) Publish(ws.Event) {}

type testApp struct {
	app      *fiber.App
	products repository.ProductRepository
}

func setupApp(t *testing.T, ping Pinger) *testApp {
	t.Helper()
	db := testutil.NewDB(t)
	log := zap.NewNop()

	productRepo := repository.NewProductRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	userRepo := repository.NewUserRepo(db)

	stock := service.NewStockService(productRepo, txRepo, db, nopPublisher{}, log, 5*time.Second)
	inv := service.NewInventoryService(productRepo, txRepo, stock, nopPublisher{}, log)

	if ping == nil {
		ping = func(context.Context) error { return nil }
	}

	app := fiber.New()
	SetupRoutes(app, Handlers{
		Inventory: NewInventoryHandler(inv, stock),
		Dashboard: NewDashboardHandler(service.NewDashboardService(txRepo, 10)),
		User:      NewUserHandler(service.NewUserService(userRepo, log)),
		Health:    NewHealthHandler(ping),
	}, middleware.RateLimit(middleware.RateLimitConfig{}))

	return &testApp{app: app, products: productRepo}
}

func (a *testApp) seed(t *testing.T, name string, quantity int) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Price: decimal.NewFromInt(3), Quantity: quantity}
	require.NoError(t, a.products.Create(context.Background(), p))
	return p
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode(t *testing.T, raw []byte, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v), string(raw))
}

func TestProducts_CreateListGet(t *testing.T) {
	a := setupApp(t, nil)

	status, body := a.do(t, http.MethodPost, "/api/products", map[string]interface{}{
		"name": "Green Tea", "price": 12.5, "quantity": 10, "category": "drinks",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created model.Product
	decode(t, body, &created)
	assert.NotZero(t, created.ID)
	assert.True(t, decimal.NewFromFloat(12.5).Equal(created.Price))

	status, _ = a.do(t, http.MethodPost, "/api/products", map[string]interface{}{"name": "Green Tea", "price": 1})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = a.do(t, http.MethodPost, "/api/products", map[string]interface{}{"name": "Bad", "price": -1})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(t, http.MethodPost, "/api/products", map[string]interface{}{"price": 2})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = a.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, status)
	var list []model.Product
	decode(t, body, &list)
	assert.Len(t, list, 1)

	status, body = a.do(t, http.MethodGet, "/api/products/Green%20Tea", nil)
	require.Equal(t, http.StatusOK, status)
	var got model.Product
	decode(t, body, &got)
	assert.Equal(t, "Green Tea", got.Name)

	status, _ = a.do(t, http.MethodGet, "/api/products/Unknown", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProducts_InvalidJSON(t *testing.T) {
	a := setupApp(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProducts_PaddedNameIsTrimmed(t *testing.T) {
	a := setupApp(t, nil)

	status, body := a.do(t, http.MethodPost, "/api/products", map[string]interface{}{"name": "Tea ", "price": 2, "quantity": 5})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created model.Product
	decode(t, body, &created)
	assert.Equal(t, "Tea", created.Name)

	status, _ = a.do(t, http.MethodPost, "/api/products", map[string]interface{}{"name": "Tea", "price": 2})
	assert.Equal(t, http.StatusConflict, status)

	status, body = a.do(t, http.MethodPost, "/api/sell", map[string]interface{}{"name": "Tea", "quantity": 1})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = a.do(t, http.MethodPut, "/api/products/Tea", map[string]interface{}{"quantity": 9})
	require.Equal(t, http.StatusOK, status, string(body))

	status, _ = a.do(t, http.MethodDelete, "/api/products?name=Tea", nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestProducts_PriceMustFitColumn(t *testing.T) {
	a := setupApp(t, nil)
	a.seed(t, "Tea", 1)

	status, _ := a.do(t, http.MethodPost, "/api/products", map[string]interface{}{"name": "Coffee", "price": 1.005})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(t, http.MethodPost, "/api/products", map[string]interface{}{"name": "Coffee", "price": 1e10})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(t, http.MethodPut, "/api/products/Tea", map[string]interface{}{"price": 0.001})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := a.do(t, http.MethodPost, "/api/products", map[string]interface{}{"name": "Coffee", "price": 9999999999.99})
	assert.Equal(t, http.StatusCreated, status, string(body))
}

func TestProducts_UpdateQuantity(t *testing.T) {
	a := setupApp(t, nil)
	a.seed(t, "Tea", 10)

	status, body := a.do(t, http.MethodPut, "/api/products/Tea", map[string]interface{}{"quantity": 4})
	require.Equal(t, http.StatusOK, status, string(body))

	var resp struct {
		Data        model.Product     `json:"data"`
		Transaction model.Transaction `json:"transaction"`
		Products    []model.Product   `json:"products"`
	}
	decode(t, body, &resp)
	assert.Equal(t, 4, resp.Data.Quantity)
	assert.Equal(t, model.TxDeduct, resp.Transaction.Action)
	assert.Equal(t, 6, resp.Transaction.Quantity)
	assert.Len(t, resp.Products, 1)

	status, _ = a.do(t, http.MethodPut, "/api/products/Tea", map[string]interface{}{"quantity": -1})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(t, http.MethodPut, "/api/products/Nope", map[string]interface{}{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProducts_Delete(t *testing.T) {
	a := setupApp(t, nil)
	a.seed(t, "Tea", 10)

	status, _ := a.do(t, http.MethodDelete, "/api/products?name=Tea", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = a.do(t, http.MethodDelete, "/api/products?name=Tea", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(t, http.MethodDelete, "/api/products", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSell(t *testing.T) {
	a := setupApp(t, nil)
	a.seed(t, "Tea", 15)

	status, body := a.do(t, http.MethodPost, "/api/sell", map[string]interface{}{"name": "Tea", "quantity": 5})
	require.Equal(t, http.StatusOK, status, string(body))
	var resp struct {
		Data        model.Product     `json:"data"`
		Transaction model.Transaction `json:"transaction"`
	}
	decode(t, body, &resp)
	assert.Equal(t, 10, resp.Data.Quantity)
	assert.Equal(t, model.NoteSale, resp.Transaction.Note)

	status, body = a.do(t, http.MethodPost, "/api/sell", map[string]interface{}{"name": "Tea", "quantity": 20})
	assert.Equal(t, http.StatusBadRequest, status)
	var errResp map[string]string
	decode(t, body, &errResp)
	assert.Contains(t, errResp["error"], "insufficient stock")

	status, _ = a.do(t, http.MethodPost, "/api/sell", map[string]interface{}{"name": "Unknown", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(t, http.MethodPost, "/api/sell", map[string]interface{}{"name": "Tea", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, status)

	// history reflects only the committed sale
	status, body = a.do(t, http.MethodGet, "/api/products/Tea/transactions", nil)
	require.Equal(t, http.StatusOK, status)
	var history []model.Transaction
	decode(t, body, &history)
	require.Len(t, history, 1)
	assert.Equal(t, 10, history[0].RemainingQuantity)
}

func TestTransactions_CreateAndQuery(t *testing.T) {
	a := setupApp(t, nil)
	tea := a.seed(t, "Tea", 10)

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{"snake case id", map[string]interface{}{"product_id": tea.ID, "action": "add", "quantity": 5}, http.StatusCreated},
		{"camel case id", map[string]interface{}{"productId": tea.ID, "action": "deduct", "quantity": 2}, http.StatusCreated},
		{"name fallback", map[string]interface{}{"product_name": "Tea", "action": "sell", "quantity": 1}, http.StatusCreated},
		{"unknown product", map[string]interface{}{"product_id": 999, "action": "add", "quantity": 1}, http.StatusNotFound},
		{"bad action", map[string]interface{}{"product_id": tea.ID, "action": "steal", "quantity": 1}, http.StatusBadRequest},
		{"too much", map[string]interface{}{"product_id": tea.ID, "action": "deduct", "quantity": 100}, http.StatusBadRequest},
		{"no product", map[string]interface{}{"action": "add", "quantity": 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := a.do(t, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, tt.status, status, string(body))
		})
	}

	status, body := a.do(t, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, status)
	var all []model.Transaction
	decode(t, body, &all)
	require.Len(t, all, 3)
	assert.Equal(t, 12, all[0].RemainingQuantity) // newest first

	status, body = a.do(t, http.MethodGet, "/api/transactions?product_id=1", nil)
	require.Equal(t, http.StatusOK, status)
	var byProduct []model.Transaction
	decode(t, body, &byProduct)
	assert.Len(t, byProduct, 3)

	status, _ = a.do(t, http.MethodGet, "/api/transactions?product_id=999", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(t, http.MethodGet, "/api/transactions?product_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = a.do(t, http.MethodGet, "/api/transactions/1", nil)
	require.Equal(t, http.StatusOK, status)
	var first model.Transaction
	decode(t, body, &first)
	assert.Equal(t, 15, first.RemainingQuantity)

	status, _ = a.do(t, http.MethodGet, "/api/transactions/999", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(t, http.MethodGet, "/api/transactions/x", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUsers(t *testing.T) {
	a := setupApp(t, nil)

	status, body := a.do(t, http.MethodPost, "/api/users", map[string]interface{}{
		"username": "kasir1", "password": "secret1", "idNumber": "3201", "phoneNumber": "0812", "position": "cashier",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.NotContains(t, string(body), "secret1")
	assert.Contains(t, string(body), `"idNumber":"3201"`)

	status, _ = a.do(t, http.MethodPost, "/api/users", map[string]interface{}{"username": "kasir1", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = a.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, status)
	var users []model.UserResponse
	decode(t, body, &users)
	assert.Len(t, users, 1)

	status, _ = a.do(t, http.MethodPut, "/api/users/kasir1", map[string]interface{}{"username": "kasir2", "position": "lead"})
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.do(t, http.MethodGet, "/api/users/kasir1", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = a.do(t, http.MethodGet, "/api/users/kasir2", nil)
	require.Equal(t, http.StatusOK, status)
	var user model.UserResponse
	decode(t, body, &user)
	assert.Equal(t, "lead", user.Position)

	status, _ = a.do(t, http.MethodDelete, "/api/users/kasir2", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.do(t, http.MethodDelete, "/api/users/kasir2", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDashboard(t *testing.T) {
	a := setupApp(t, nil)
	a.seed(t, "Tea", 4)

	status, _ := a.do(t, http.MethodPost, "/api/sell", map[string]interface{}{"name": "Tea", "quantity": 1})
	require.Equal(t, http.StatusOK, status)

	status, body := a.do(t, http.MethodGet, "/api/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, status)
	var stats repository.DashboardStats
	decode(t, body, &stats)
	assert.EqualValues(t, 1, stats.TotalProducts)
	assert.EqualValues(t, 1, stats.LowStockCount)
	assert.True(t, decimal.NewFromInt(9).Equal(stats.TotalValuation))

	status, body = a.do(t, http.MethodGet, "/api/dashboard/stock-movement?days=7", nil)
	require.Equal(t, http.StatusOK, status)
	var movement struct {
		Period int                            `json:"period"`
		Data   []repository.StockMovementData `json:"data"`
	}
	decode(t, body, &movement)
	assert.Equal(t, 7, movement.Period)
	require.Len(t, movement.Data, 1)
	assert.Equal(t, 1, movement.Data[0].Outbound)

	tests := []struct {
		query  string
		status int
		period int
	}{
		{"", http.StatusOK, 7},
		{"?days=abc", http.StatusOK, 7},
		{"?days=0", http.StatusOK, 7},
		{"?days=365", http.StatusOK, 365},
		{"?days=366", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		status, body = a.do(t, http.MethodGet, "/api/dashboard/stock-movement"+tt.query, nil)
		require.Equal(t, tt.status, status, tt.query)
		if tt.status == http.StatusOK {
			decode(t, body, &movement)
			assert.Equal(t, tt.period, movement.Period, tt.query)
		}
	}
}

func TestHealth(t *testing.T) {
	a := setupApp(t, nil)
	status, _ := a.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)

	down := setupApp(t, func(context.Context) error { return errors.New("connection refused") })
	status, _ = down.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestRespondError_HidesStorageDetail(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return respondError(c, errors.Join(service.ErrStorage, errors.New("pq: password authentication failed")))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "password")
}
