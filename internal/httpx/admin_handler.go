package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
	"github.com/ariefcatur/go-venue-pos/internal/history"
	"github.com/ariefcatur/go-venue-pos/internal/inventory"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

// AdminHandler serves the back office: inventory, treasury and history.
type AdminHandler struct {
	Inventory *inventory.Service
	Treasury  *treasury.Service
	History   history.Reader
	Log       *slog.Logger
}

type CreateItemReq struct {
	Name          string          `json:"name"`
	StockQuantity int             `json:"stockQuantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
}

type RestockReq struct {
	Quantity int `json:"quantity"`
}

type SetPriceReq struct {
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type AppendTransactionReq struct {
	Amount        decimal.Decimal       `json:"amount"`
	Type          treasury.Type         `json:"transactionType"`
	SpecificType  treasury.SpecificType `json:"specificType"`
	PaymentMethod treasury.Method       `json:"paymentMethod"`
	Description   string                `json:"description"`
}

type ReconcileReq struct {
	Date string `json:"date"`
}

type CloseReq struct {
	Until string `json:"until"`
	Date  string `json:"date"`
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Get("/inventory", h.listItems)
	r.Post("/inventory", h.createItem)
	r.Get("/inventory/{id}", h.getItem)
	r.Post("/inventory/{id}/restock", h.restock)
	r.Put("/inventory/{id}/price", h.setPrice)

	r.Get("/treasury/transactions", h.listTransactions)
	r.Post("/treasury/transactions", h.appendTransaction)
	r.Post("/treasury/transactions/{id}/reconcile", h.reconcile)
	r.Get("/treasury/balance", h.balance)
	r.Post("/treasury/close", h.close)
	r.Get("/treasury/verify", h.verify)

	r.Get("/history", h.listHistory)
}

func (h *AdminHandler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.List(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *AdminHandler) createItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	it, err := h.Inventory.Create(r.Context(), req.Name, req.StockQuantity, req.UnitPrice)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusCreated, it)
}

func (h *AdminHandler) getItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.Inventory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, it)
}

func (h *AdminHandler) restock(w http.ResponseWriter, r *http.Request) {
	var req RestockReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	it, err := h.Inventory.Restock(r.Context(), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, it)
}

func (h *AdminHandler) setPrice(w http.ResponseWriter, r *http.Request) {
	var req SetPriceReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	it, err := h.Inventory.SetPrice(r.Context(), chi.URLParam(r, "id"), req.UnitPrice)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, it)
}

func (h *AdminHandler) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f treasury.Filter
	var err error
	if f.From, err = optDate(q.Get("from"), "from"); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if f.To, err = optDate(q.Get("to"), "to"); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if s := q.Get("unreconciled"); s != "" {
		if f.UnreconciledOnly, err = strconv.ParseBool(s); err != nil {
			writeError(w, h.Log, apperr.Validation("unreconciled must be a boolean"))
			return
		}
	}
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, h.Log, err)
		return
	}
	txs, err := h.Treasury.List(r.Context(), f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, txs)
}

func (h *AdminHandler) appendTransaction(w http.ResponseWriter, r *http.Request) {
	var req AppendTransactionReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	t, err := h.Treasury.Append(r.Context(), treasury.Entry{
		Amount:        req.Amount,
		Type:          req.Type,
		SpecificType:  req.SpecificType,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusCreated, t)
}

func (h *AdminHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileReq
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, h.Log, err)
			return
		}
	}
	date, err := dateOr(req.Date, "date", time.Now())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	t, err := h.Treasury.Reconcile(r.Context(), chi.URLParam(r, "id"), date)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

func (h *AdminHandler) close(w http.ResponseWriter, r *http.Request) {
	var req CloseReq
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, h.Log, err)
			return
		}
	}
	now := time.Now()
	until, err := dateOr(req.Until, "until", now)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	date, err := dateOr(req.Date, "date", now)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	n, err := h.Treasury.Close(r.Context(), until, date)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int64{"reconciled": n})
}

func (h *AdminHandler) balance(w http.ResponseWriter, r *http.Request) {
	b, err := h.Treasury.Balance(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, b)
}

func (h *AdminHandler) verify(w http.ResponseWriter, r *http.Request) {
	n, err := h.Treasury.Verify(r.Context())
	if err != nil && !errors.Is(err, treasury.ErrBrokenChain) {
		writeError(w, h.Log, err)
		return
	}
	res := map[string]any{"transactions": n, "valid": err == nil}
	if err != nil {
		res["problem"] = err.Error()
	}
	writeData(w, http.StatusOK, res)
}

func (h *AdminHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	q := r.URL.Query()
	f := history.Filter{UserID: q.Get("userId"), Action: history.Action(q.Get("action")), Limit: limit}
	if f.Action != "" && !f.Action.Valid() {
		writeError(w, h.Log, apperr.Validation("unknown history action %q", f.Action))
		return
	}
	entries, err := h.History.ListHistory(r.Context(), f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, entries)
}

func optDate(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, apperr.Validation("%s must be a YYYY-MM-DD date", field)
	}
	return &t, nil
}

func dateOr(s, field string, def time.Time) (time.Time, error) {
	t, err := optDate(s, field)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return def, nil
	}
	return *t, nil
}
