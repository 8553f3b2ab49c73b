package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cartservice/internal/auth"
	"cartservice/internal/cart"
	"cartservice/internal/domain"
	"cartservice/internal/events"
	"cartservice/internal/inventory"
	"cartservice/internal/store"
)

func newTestMux(t *testing.T) (*http.ServeMux, *store.MemoryStore) {
	t.Helper()

	st := store.NewMemoryStore()
	require.NoError(t, st.SaveProduct(&domain.Product{
		ID: 1, Name: "Laptop", Price: decimal.NewFromFloat(999.99), Stock: 10,
	}))
	require.NoError(t, st.SaveProduct(&domain.Product{
		ID: 2, Name: "Headphone", Price: decimal.NewFromFloat(99.99), Stock: 15,
	}))

	hash, err := bcrypt.GenerateFromPassword([]byte("test123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, st.SaveUser(&domain.User{ID: 2, Username: "testuser", Password: string(hash)}))

	logger := zap.NewNop()
	tracer := noop.NewTracerProvider().Tracer("test")
	ledger := inventory.NewLedger(st, logger)
	carts := cart.NewService(st, ledger, events.NopPublisher{}, logger, tracer)
	authService := auth.NewService(st, "test-secret", "cart-service-test", time.Hour)

	mux := http.NewServeMux()
	NewHandler(carts, st, authService, logger).RegisterRoutes(mux)
	return mux, st
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	rec := doJSON(t, mux, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "testuser",
		"password": "test123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["token"])
	return body["token"]
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "testuser",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListProductsIsPublic(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var products []productResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 2)
	assert.Equal(t, "Laptop", products[0].Name)
	assert.Equal(t, 10, products[0].Available)
}

func TestCartRequiresAuth(t *testing.T) {
	mux, _ := newTestMux(t)

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, mux, http.MethodGet, "/api/cart", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, mux, http.MethodPost, "/api/cart", "garbage", map[string]int{"product_id": 1, "quantity": 1}).Code)
}

func TestAddListAndRemoveFlow(t *testing.T) {
	mux, st := newTestMux(t)
	token := login(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/cart", token, map[string]int{"product_id": 1, "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)

	product, err := st.GetProduct(1)
	require.NoError(t, err)
	assert.Equal(t, 3, product.ReservedQuantity)

	rec = doJSON(t, mux, http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []cart.ItemView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Laptop", items[0].ProductName)
	assert.Equal(t, 3, items[0].Quantity)

	rec = doJSON(t, mux, http.MethodDelete, "/api/cart/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var removal map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &removal))
	assert.True(t, removal["removed"])

	product, err = st.GetProduct(1)
	require.NoError(t, err)
	assert.Equal(t, 0, product.ReservedQuantity)

	// Removing again reports nothing removed.
	rec = doJSON(t, mux, http.MethodDelete, "/api/cart/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &removal))
	assert.False(t, removal["removed"])
}

func TestAddItemStatusMapping(t *testing.T) {
	mux, _ := newTestMux(t)
	token := login(t, mux)

	tests := []struct {
		name string
		body map[string]int
		want int
	}{
		{"insufficient stock", map[string]int{"product_id": 1, "quantity": 11}, http.StatusConflict},
		{"unknown product", map[string]int{"product_id": 42, "quantity": 1}, http.StatusNotFound},
		{"zero quantity", map[string]int{"product_id": 1, "quantity": 0}, http.StatusBadRequest},
		{"missing product id", map[string]int{"quantity": 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodPost, "/api/cart", token, tt.body)
			assert.Equal(t, tt.want, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestUpdateItemQuantity(t *testing.T) {
	mux, st := newTestMux(t)
	token := login(t, mux)

	rec := doJSON(t, mux, http.MethodPut, "/api/cart", token, map[string]int{"product_id": 1, "quantity": 2})
	assert.Equal(t, http.StatusNotFound, rec.Code, "update requires an existing line")

	require.Equal(t, http.StatusOK, doJSON(t, mux, http.MethodPost, "/api/cart", token, map[string]int{"product_id": 1, "quantity": 5}).Code)

	rec = doJSON(t, mux, http.MethodPut, "/api/cart", token, map[string]int{"product_id": 1, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	product, err := st.GetProduct(1)
	require.NoError(t, err)
	assert.Equal(t, 2, product.ReservedQuantity)

	// Quantity zero empties the line entirely.
	rec = doJSON(t, mux, http.MethodPut, "/api/cart", token, map[string]int{"product_id": 1, "quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)

	product, err = st.GetProduct(1)
	require.NoError(t, err)
	assert.Equal(t, 0, product.ReservedQuantity)
}

func TestRemoveItemValidatesProductID(t *testing.T) {
	mux, _ := newTestMux(t)
	token := login(t, mux)

	for _, path := range []string{"/api/cart/abc", "/api/cart/0", "/api/cart/-3"} {
		rec := doJSON(t, mux, http.MethodDelete, path, token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, fmt.Sprintf("path %s", path))
	}
}
