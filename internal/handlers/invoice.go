package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/invoice-api/internal/auth"
	"github.com/diewo77/invoice-api/internal/httpx"
	"github.com/diewo77/invoice-api/internal/services"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceHandler struct {
	DB  *gorm.DB
	Svc *services.InvoiceService
}

func NewInvoiceHandler(db *gorm.DB, svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Svc: svc}
}

type itemReq struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (it itemReq) toInput() services.ItemInput {
	return services.ItemInput{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
}

func (it itemReq) invalid() bool {
	return it.Description == "" || it.Quantity < 1 || it.UnitPrice.IsNegative()
}

// List: GET /invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	invs, total, err := h.Svc.List(uid, limit, offset)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invs, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var req struct {
		ClientID  uint      `json:"client_id"`
		IssueDate string    `json:"issue_date"`
		DueDate   string    `json:"due_date"`
		Items     []itemReq `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.ClientID == 0 || req.DueDate == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"client_id": "required", "due_date": "required"})
		return
	}
	for _, it := range req.Items {
		if it.invalid() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"items": "invalid_description_quantity_or_price"})
			return
		}
	}
	dueDate, err := services.ParseDueDate(req.DueDate)
	if err != nil {
		httpx.CoreError(w, err)
		return
	}
	var issueDate time.Time
	if req.IssueDate != "" {
		if issueDate, err = services.ParseDueDate(req.IssueDate); err != nil {
			httpx.CoreError(w, err)
			return
		}
	}
	items := make([]services.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, it.toInput())
	}
	inv, err := h.Svc.CreateInvoice(uid, req.ClientID, issueDate, dueDate, items)
	if err != nil {
		httpx.CoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Get: GET /invoices/get?id=...
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.Svc.Get(uid, id)
	if err != nil {
		httpx.CoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Delete: POST /invoices/delete?id=...
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Svc.Delete(uid, id); err != nil {
		httpx.CoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddItem: POST /invoices/items/add?id=...
func (h *InvoiceHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	var req itemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.invalid() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"items": "invalid_description_quantity_or_price"})
		return
	}
	inv, err := h.Svc.AddItem(uid, id, req.toInput())
	if err != nil {
		httpx.CoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// UpdateItem: POST /invoices/items/update?id=...&item_id=...
func (h *InvoiceHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := queryID(w, r, "item_id")
	if !ok {
		return
	}
	var req itemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.invalid() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"items": "invalid_description_quantity_or_price"})
		return
	}
	inv, err := h.Svc.UpdateItem(uid, id, itemID, req.toInput())
	if err != nil {
		httpx.CoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// RemoveItem: POST /invoices/items/delete?id=...&item_id=...
func (h *InvoiceHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := queryID(w, r, "item_id")
	if !ok {
		return
	}
	inv, err := h.Svc.RemoveItem(uid, id, itemID)
	if err != nil {
		httpx.CoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Status: POST /invoices/status?id=... with {"action": "mark_sent"}
func (h *InvoiceHandler) Status(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	action, ok := services.ParseStatusAction(req.Action)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "unknown_action", map[string]string{"action": req.Action})
		return
	}
	inv, err := h.Svc.TransitionStatus(uid, id, action)
	if err != nil {
		httpx.CoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Extend: POST /invoices/extend?id=... with optional {"days": 14}
func (h *InvoiceHandler) Extend(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Days int `json:"days"`
	}
	// empty body means the default extension
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Days < 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"days": "must_not_be_negative"})
		return
	}
	inv, err := h.Svc.ExtendDueDate(uid, id, req.Days)
	if err != nil {
		httpx.CoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_"+name, nil)
		return 0, false
	}
	return uint(id), true
}
