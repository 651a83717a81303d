package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/soleshop/checkout/internal/checkout"
	"github.com/soleshop/checkout/internal/orders"
	"github.com/soleshop/checkout/internal/payments"
	"github.com/soleshop/checkout/internal/redisx"
)

type PaymentsHandler struct {
	Checkout *checkout.Service
	Redis    *redis.Client // optional status cache
	Log      *zap.Logger
}

type InitiatePaymentReq struct {
	OrderID int64 `json:"order_id"`
}

type InitiatePaymentResp struct {
	TransactionID int64  `json:"transaction_id"`
	Authority     string `json:"authority"`
	PaymentURL    string `json:"payment_url"`
}

func (h *PaymentsHandler) Register(r *chi.Mux) {
	r.Post("/api/payments/initiate", h.initiate)
	r.Get("/api/payments/mock-return", h.mockReturn)
}

func (h *PaymentsHandler) initiate(w http.ResponseWriter, r *http.Request) {
	var req InitiatePaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	txn, paymentURL, err := h.Checkout.InitiatePayment(ctx, req.OrderID)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Order not found."})
		return
	case errors.Is(err, payments.ErrOrderNotPending):
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Order is not pending."})
		return
	case err != nil:
		h.Log.Error("initiate payment failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, InitiatePaymentResp{
		TransactionID: txn.ID,
		Authority:     txn.Authority,
		PaymentURL:    paymentURL,
	})
}

// mockReturn simulates the gateway callback/verify leg:
// GET /api/payments/mock-return?authority=...&status=ok|fail
func (h *PaymentsHandler) mockReturn(w http.ResponseWriter, r *http.Request) {
	authority := r.URL.Query().Get("authority")
	outcome := r.URL.Query().Get("status")
	if outcome == "" {
		outcome = "ok"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Checkout.SettleCallback(ctx, authority, outcome == "ok")
	switch {
	case errors.Is(err, payments.ErrTransactionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Transaction not found."})
		return
	case err != nil:
		h.Log.Error("settle callback failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
		return
	}

	if !res.Settled {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok":       false,
			"detail":   "Payment failed",
			"order_id": res.OrderID,
		})
		return
	}

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, res.OrderID)
		_ = h.Redis.Set(ctx, key, `{"status":"paid"}`, redisx.TTLStatusCache).Err()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"order_id": res.OrderID,
		"ref_id":   res.RefID,
	})
}
