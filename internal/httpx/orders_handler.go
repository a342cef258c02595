package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
	"github.com/ariefcatur/go-venue-pos/internal/orders"
	"github.com/ariefcatur/go-venue-pos/internal/redisx"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

// ClientStore creates clients; both stores implement it.
type ClientStore interface {
	CreateClient(ctx context.Context, name, contactInfo string) (orders.Client, error)
}

type OrdersHandler struct {
	Engine  *orders.Engine
	Clients ClientStore
	Cache   *redisx.Cache
	Log     *slog.Logger
}

type CreateOrderReq struct {
	ClientID string             `json:"clientId"`
	Items    []orders.ItemInput `json:"items"`
}

type PayOrderReq struct {
	PaymentMethod treasury.Method `json:"paymentMethod"`
}

type CreateClientReq struct {
	Name        string `json:"name"`
	ContactInfo string `json:"contactInfo"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Delete("/orders/{id}", h.deleteOrder)
	r.Post("/orders/{id}/pay", h.payOrder)
	r.Post("/orders/{id}/items", h.addItem)
	r.Post("/orders/{id}/ready", h.markReady)
	r.Delete("/order-items/{id}", h.removeItem)
	r.Get("/order-items/preparing", h.listPreparing)
	r.Post("/clients", h.createClient)
	r.Get("/clients/{id}/orders", h.listClientOrders)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var req CreateOrderReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	idemKey := ""
	if k := strings.TrimSpace(r.Header.Get("Idempotency-Key")); k != "" {
		idemKey = fmt.Sprintf(redisx.KeyIdemOrderCreate, k)
		if !h.claim(ctx, w, http.StatusCreated, &idemKey) {
			return
		}
	}

	o, err := h.Engine.CreateOrder(ctx, req.ClientID, req.Items, user)
	if err != nil {
		h.release(ctx, idemKey)
		writeError(w, h.Log, err)
		return
	}
	h.respondOrder(ctx, w, http.StatusCreated, o, idemKey)
}

func (h *OrdersHandler) payOrder(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var req PayOrderReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	idemKey := ""
	if k := strings.TrimSpace(r.Header.Get("Idempotency-Key")); k != "" {
		idemKey = fmt.Sprintf(redisx.KeyIdemOrderPay, orderID, k)
		if !h.claim(ctx, w, http.StatusOK, &idemKey) {
			return
		}
	}

	o, err := h.Engine.PayOrder(ctx, orderID, req.PaymentMethod, user)
	if err != nil {
		h.release(ctx, idemKey)
		writeError(w, h.Log, err)
		return
	}
	h.respondOrder(ctx, w, http.StatusOK, o, idemKey)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache
	if body, ok := h.Cache.OrderStatus(ctx, orderID); ok {
		writeRaw(w, http.StatusOK, body)
		return
	}

	// 2) store, then fill the cache; mutations only ever invalidate it
	o, err := h.Engine.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	body, err := encodeData(o)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if err := h.Cache.SetOrderStatus(ctx, o.ID, body); err != nil {
		h.Log.Warn("order cache write failed", "error", err, "order_id", o.ID)
	}
	writeRaw(w, http.StatusOK, body)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	size, err := queryInt(r, "size", 10)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	q := r.URL.Query()
	res, err := h.Engine.ListOrders(r.Context(), orders.ListFilter{
		ClientID: q.Get("clientId"),
		Status:   orders.Status(strings.ToUpper(q.Get("status"))),
		Page:     page,
		Size:     size,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	orderID := chi.URLParam(r, "id")
	if err := h.Engine.DeleteOrder(r.Context(), orderID, user); err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.invalidate(r.Context(), orderID)
	writeData(w, http.StatusOK, map[string]string{"id": orderID})
}

func (h *OrdersHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var in orders.ItemInput
	if err := decode(r, &in); err != nil {
		writeError(w, h.Log, err)
		return
	}
	o, err := h.Engine.AddOrderItem(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.respondOrder(r.Context(), w, http.StatusCreated, o, "")
}

func (h *OrdersHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	o, err := h.Engine.RemoveOrderItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.respondOrder(r.Context(), w, http.StatusOK, o, "")
}

func (h *OrdersHandler) markReady(w http.ResponseWriter, r *http.Request) {
	o, err := h.Engine.MarkOrderReady(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.respondOrder(r.Context(), w, http.StatusOK, o, "")
}

func (h *OrdersHandler) listPreparing(w http.ResponseWriter, r *http.Request) {
	items, err := h.Engine.ListPreparingItems(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *OrdersHandler) createClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	c, err := h.Clients.CreateClient(r.Context(), req.Name, req.ContactInfo)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}

func (h *OrdersHandler) listClientOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Engine.ListClientOrders(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeData(w, http.StatusOK, list)
}

// claim reserves the idempotency key for this request. It returns false
// when the response was already written: a replay of the stored body, or a
// conflict while another request holds the key. If redis fails the request
// runs without idempotency and *key is cleared.
func (h *OrdersHandler) claim(ctx context.Context, w http.ResponseWriter, replayCode int, key *string) bool {
	body, state, err := h.Cache.Claim(ctx, *key)
	if err != nil {
		h.Log.Warn("idempotency claim failed", "error", err, "key", *key)
		*key = ""
		return true
	}
	switch state {
	case redisx.ClaimDone:
		w.Header().Set("Idempotent-Replay", "true")
		writeRaw(w, replayCode, body)
		return false
	case redisx.ClaimPending:
		writeError(w, h.Log, apperr.InProgress("a request with this Idempotency-Key is still in progress"))
		return false
	}
	return true
}

func (h *OrdersHandler) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	// the request context may be what just expired
	if err := h.Cache.Release(context.WithoutCancel(ctx), key); err != nil {
		h.Log.Warn("idempotency release failed", "error", err, "key", key)
	}
}

// respondOrder writes o after a mutation. The cached snapshot is dropped
// rather than rewritten so a slow response cannot overwrite a newer state.
// A non-empty idemKey stores the body for replays.
func (h *OrdersHandler) respondOrder(ctx context.Context, w http.ResponseWriter, code int, o orders.Order, idemKey string) {
	body, err := encodeData(o)
	if err != nil {
		h.release(ctx, idemKey)
		writeError(w, h.Log, err)
		return
	}
	h.invalidate(ctx, o.ID)
	if idemKey != "" {
		if err := h.Cache.Complete(context.WithoutCancel(ctx), idemKey, body); err != nil {
			h.Log.Warn("idempotency write failed", "error", err, "key", idemKey)
		}
	}
	writeRaw(w, code, body)
}

func (h *OrdersHandler) invalidate(ctx context.Context, orderID string) {
	if err := h.Cache.InvalidateOrder(ctx, orderID); err != nil {
		h.Log.Warn("order cache invalidation failed", "error", err, "order_id", orderID)
	}
}
