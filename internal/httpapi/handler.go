package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cartservice/internal/auth"
	"cartservice/internal/cart"
	"cartservice/internal/domain"
	"cartservice/internal/store"
)

// ErrorResponse represents a unified error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler holds the HTTP layer's dependencies: the reservation engine,
// the catalog store, and the auth service.
type Handler struct {
	carts  *cart.Service
	store  store.Store
	auth   *auth.Service
	logger *zap.Logger
}

func NewHandler(carts *cart.Service, st store.Store, authService *auth.Service, logger *zap.Logger) *Handler {
	return &Handler{
		carts:  carts,
		store:  st,
		auth:   authService,
		logger: logger,
	}
}

// RegisterRoutes maps the HTTP endpoints to handler functions.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("GET /api/products", h.handleListProducts)
	mux.HandleFunc("GET /api/cart", h.requireAuth(h.handleListCart))
	mux.HandleFunc("POST /api/cart", h.requireAuth(h.handleAddItem))
	mux.HandleFunc("PUT /api/cart", h.requireAuth(h.handleUpdateItem))
	mux.HandleFunc("DELETE /api/cart/{productID}", h.requireAuth(h.handleRemoveItem))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid JSON payload")
		return
	}
	if payload.Username == "" || payload.Password == "" {
		h.writeError(w, http.StatusBadRequest, "INVALID_INPUT", "username and password are required")
		return
	}

	token, err := h.auth.Authenticate(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type productResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available int             `json:"available"`
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts()
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list products")
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, productResponse{
			ID:        p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Available: p.Available(),
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListCart(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	items, err := h.carts.ListForUser(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

type cartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	var payload cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid JSON payload")
		return
	}
	if payload.ProductID < 1 {
		h.writeError(w, http.StatusBadRequest, "INVALID_INPUT", "product_id must be a positive integer")
		return
	}
	if payload.Quantity < 1 {
		h.writeError(w, http.StatusBadRequest, "INVALID_INPUT", "quantity must be a positive integer")
		return
	}

	if err := h.carts.AddOrUpdate(r.Context(), userID, payload.ProductID, payload.Quantity); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Item added to cart."})
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	var payload cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid JSON payload")
		return
	}
	if payload.ProductID < 1 {
		h.writeError(w, http.StatusBadRequest, "INVALID_INPUT", "product_id must be a positive integer")
		return
	}

	if err := h.carts.SetQuantity(r.Context(), userID, payload.ProductID, payload.Quantity); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Cart item quantity updated."})
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil || productID < 1 {
		h.writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid product ID")
		return
	}

	removed, err := h.carts.Remove(r.Context(), userID, productID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

// writeDomainError maps engine errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError
	var persistErr *domain.PersistenceError

	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		h.writeError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
	case errors.Is(err, domain.ErrCartLineNotFound):
		h.writeError(w, http.StatusNotFound, "CART_ITEM_NOT_FOUND", "Cart item does not exist")
	case errors.As(err, &stockErr):
		h.writeError(w, http.StatusConflict, "INSUFFICIENT_STOCK", stockErr.Error())
	case errors.As(err, &persistErr):
		h.logger.Error("persistence failure", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Storage failure")
	default:
		h.logger.Error("unexpected error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
