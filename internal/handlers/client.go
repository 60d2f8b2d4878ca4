package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/invoice-api/internal/auth"
	"github.com/diewo77/invoice-api/internal/httpx"
	"github.com/diewo77/invoice-api/internal/models"

	"gorm.io/gorm"
)

type ClientHandler struct{ DB *gorm.DB }

func NewClientHandler(db *gorm.DB) *ClientHandler { return &ClientHandler{DB: db} }

type clientReq struct {
	Name         string `json:"name"`
	Company      string `json:"company_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
}

// List: GET /clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var clients []models.Client
	if err := h.DB.Where("user_id = ?", uid).Order("id").Find(&clients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_clients", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": clients, "total": len(clients)})
}

// Create: POST /clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var req clientReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"name": "required", "email": "required"})
		return
	}
	client := models.Client{
		UserID: uid, Name: req.Name, Company: req.Company, Email: req.Email, Phone: req.Phone,
		AddressLine1: req.AddressLine1, AddressLine2: req.AddressLine2,
		City: req.City, State: req.State, PostalCode: req.PostalCode,
	}
	if err := h.DB.Create(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			httpx.JSONError(w, http.StatusConflict, "email_already_registered", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_client", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

// Get: GET /clients/get?id=...
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	client, ok := h.load(w, r, uid)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Update: POST /clients/update?id=...
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	client, ok := h.load(w, r, uid)
	if !ok {
		return
	}
	var req clientReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Name != "" {
		client.Name = req.Name
	}
	if req.Email != "" {
		client.Email = strings.TrimSpace(req.Email)
	}
	client.Company = req.Company
	client.Phone = req.Phone
	client.AddressLine1 = req.AddressLine1
	client.AddressLine2 = req.AddressLine2
	client.City = req.City
	client.State = req.State
	client.PostalCode = req.PostalCode
	if err := h.DB.Save(client).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			httpx.JSONError(w, http.StatusConflict, "email_already_registered", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_client", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Delete: POST /clients/delete?id=...
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	client, ok := h.load(w, r, uid)
	if !ok {
		return
	}
	if err := h.DB.Delete(client).Error; err != nil {
		// clients with invoices cannot be removed (FK without cascade)
		httpx.JSONError(w, http.StatusConflict, "client_has_invoices", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *ClientHandler) load(w http.ResponseWriter, r *http.Request, uid uint) (*models.Client, bool) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return nil, false
	}
	var client models.Client
	if err := h.DB.Where("id = ? AND user_id = ?", id, uid).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return nil, false
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_client", nil)
		return nil, false
	}
	return &client, true
}
