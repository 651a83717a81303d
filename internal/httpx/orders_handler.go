package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/soleshop/checkout/internal/catalog"
	"github.com/soleshop/checkout/internal/checkout"
	"github.com/soleshop/checkout/internal/inventory"
	"github.com/soleshop/checkout/internal/orders"
	"github.com/soleshop/checkout/internal/redisx"
)

type OrdersHandler struct {
	Checkout *checkout.Service
	Redis    *redis.Client // optional status cache
	Log      *zap.Logger
}

type CreateOrderReq struct {
	Items []checkout.LineInput `json:"items"`
}

type CreateOrderResp struct {
	OrderID int64 `json:"order_id"`
	Total   int64 `json:"total"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/api/orders", h.createOrder)
	r.Get("/api/orders/my", h.myOrders)
	r.Get("/api/orders/{id}", h.orderStatus)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// userIDFromHeader resolves the optional authenticated user set by the edge
// (identity boundary). Absence is valid: anonymous orders are allowed.
func userIDFromHeader(r *http.Request) *int64 {
	v := r.Header.Get("X-User-ID")
	if v == "" {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ord, err := h.Checkout.PlaceOrder(ctx, userIDFromHeader(r), req.Items)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, ord.ID)
		_ = h.Redis.Set(ctx, key, `{"status":"pending"}`, redisx.TTLStatusCache).Err()
	}

	writeJSON(w, http.StatusCreated, CreateOrderResp{OrderID: ord.ID, Total: ord.TotalAmount})
}

func (h *OrdersHandler) writeOrderError(w http.ResponseWriter, err error) {
	var itemErr *checkout.ItemError
	if errors.As(err, &itemErr) {
		var stockErr *inventory.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"detail":    "Not enough stock.",
				"sku":       stockErr.SKU,
				"available": stockErr.Available,
				"requested": stockErr.Requested,
			})
		case errors.Is(err, catalog.ErrVariantNotFound):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"detail": fmt.Sprintf("Variant %d not found/active.", itemErr.VariantID),
			})
		case errors.Is(err, inventory.ErrNotFound):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"detail": fmt.Sprintf("Inventory for variant %d not found.", itemErr.VariantID),
			})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
		}
		return
	}

	switch {
	case errors.Is(err, orders.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Cart is empty."})
	case errors.Is(err, orders.ErrInvalidItem):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"detail": "Invalid items format. Each item needs variantId(int) and qty(int>=1).",
		})
	default:
		h.Log.Error("place order failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
	}
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication required."})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Checkout.MyOrders(ctx, *userID)
	if err != nil {
		h.Log.Error("list orders failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) orderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || orderID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	status, err := h.Checkout.OrderStatus(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Order not found."})
		return
	}
	if err != nil {
		h.Log.Error("order status failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
		return
	}

	body, _ := json.Marshal(map[string]any{"status": status})
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
