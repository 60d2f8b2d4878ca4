package server

import (
	"net/http"

	"github.com/diewo77/invoice-api/internal/auth"
	"github.com/diewo77/invoice-api/internal/handlers"
	"github.com/diewo77/invoice-api/internal/httpx"
	"github.com/diewo77/invoice-api/internal/services"

	"gorm.io/gorm"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints (signup/login are public)
	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	protected := func(fn http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(fn))
	}

	// Client endpoints
	ch := handlers.NewClientHandler(db)
	mux.Handle("/clients", protected(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ch.List(w, r)
		case http.MethodPost:
			ch.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}))
	mux.Handle("/clients/get", protected(ch.Get))
	mux.Handle("/clients/update", protected(ch.Update))
	mux.Handle("/clients/delete", protected(ch.Delete))

	// Invoice endpoints
	invSvc := services.NewInvoiceService(db)
	ih := handlers.NewInvoiceHandler(db, invSvc)
	mux.Handle("/invoices", protected(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ih.List(w, r)
		case http.MethodPost:
			ih.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}))
	mux.Handle("/invoices/get", protected(ih.Get))
	mux.Handle("/invoices/delete", protected(ih.Delete))
	mux.Handle("/invoices/items/add", protected(ih.AddItem))
	mux.Handle("/invoices/items/update", protected(ih.UpdateItem))
	mux.Handle("/invoices/items/delete", protected(ih.RemoveItem))
	mux.Handle("/invoices/status", protected(ih.Status))
	mux.Handle("/invoices/extend", protected(ih.Extend))

	return mux
}
