package main

import (
	"net/http"
	"time"

	"github.com/diewo77/go-stock/auth"
	"github.com/diewo77/go-stock/gate"
	"github.com/diewo77/go-stock/internal/config"
	"github.com/diewo77/go-stock/internal/handlers"
	"github.com/diewo77/go-stock/internal/middleware"
	"github.com/diewo77/go-stock/internal/policy"
	"github.com/diewo77/go-stock/internal/services"
	"github.com/diewo77/go-stock/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const profileCacheTTL = 5 * time.Minute

// App wires the store, services and handlers behind one ServeMux.
type App struct {
	mux      *http.ServeMux
	handler  http.Handler
	sessions *auth.Sessions
	gate     *policy.AuthGate

	health  *handlers.HealthHandler
	auth    *handlers.AuthHandler
	admin   *handlers.AdminHandler
	clients *handlers.ClientHandler
	prods   *handlers.ProductHandler
	orders  *handlers.OrderHandler
	docs    *handlers.DocumentHandler
}

// NewApp creates the application with every route configured.
func NewApp(conn *gorm.DB, cfg *config.Config, log *zap.Logger) *App {
	st := store.New(conn)
	docSvc := services.NewDocumentService(st, cfg.App.TaxRate, cfg.App.Currency, log)
	orderSvc := services.NewOrderService(st, log)
	validator := services.NewOrderValidator(st, log)

	ag := policy.NewAuthGate(conn, profileCacheTTL)
	sessions := auth.NewSessions(cfg.App.SessionSecret, auth.DefaultTTL, !cfg.App.Dev)
	sessions.SetVerifier(ag.Users.UserExists)

	a := &App{
		mux:      http.NewServeMux(),
		sessions: sessions,
		gate:     ag,
		health:   handlers.NewHealthHandler(conn),
		auth:     handlers.NewAuthHandler(conn, sessions),
		admin:    handlers.NewAdminHandler(conn),
		clients:  handlers.NewClientHandler(st),
		prods:    handlers.NewProductHandler(st),
		orders:   handlers.NewOrderHandler(st, orderSvc, validator, docSvc, ag),
		docs:     handlers.NewDocumentHandler(docSvc),
	}
	a.setupRoutes()
	a.handler = middleware.Chain(a.mux,
		middleware.Logging(log),
		middleware.Recover,
		middleware.Prefs,
		sessions.Middleware,
	)
	return a
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	// Public
	a.mux.HandleFunc("GET /health", a.health.Health)
	a.mux.HandleFunc("GET /healthz", a.health.Ready)
	a.mux.Handle("GET /metrics", promhttp.Handler())
	a.mux.HandleFunc("POST /login", a.auth.Login)
	a.mux.HandleFunc("POST /logout", a.auth.Logout)

	a.mux.Handle("GET /me", a.requireAuth(http.HandlerFunc(a.auth.Me)))
	a.mux.Handle("PUT /me/password", a.requireAuth(http.HandlerFunc(a.auth.ChangePassword)))

	// Clients
	a.protect("GET /clients", gate.ResourceClient, gate.ActionList, a.clients.List)
	a.protect("POST /clients", gate.ResourceClient, gate.ActionCreate, a.clients.Create)
	a.protect("GET /clients/{id}", gate.ResourceClient, gate.ActionView, a.clients.View)
	a.protect("PUT /clients/{id}", gate.ResourceClient, gate.ActionUpdate, a.clients.Update)
	a.protect("DELETE /clients/{id}", gate.ResourceClient, gate.ActionDelete, a.clients.Delete)

	// Products
	a.protect("GET /products", gate.ResourceProduct, gate.ActionList, a.prods.List)
	a.protect("POST /products", gate.ResourceProduct, gate.ActionCreate, a.prods.Create)
	a.protect("GET /products/{id}", gate.ResourceProduct, gate.ActionView, a.prods.View)
	a.protect("PUT /products/{id}", gate.ResourceProduct, gate.ActionUpdate, a.prods.Update)
	a.protect("DELETE /products/{id}", gate.ResourceProduct, gate.ActionDelete, a.prods.Delete)
	a.protect("PUT /products/{id}/stock", gate.ResourceProduct, gate.ActionUpdate, a.prods.UpdateStock)

	// Orders
	a.protect("GET /orders", gate.ResourceOrder, gate.ActionList, a.orders.List)
	a.protect("GET /orders/new", gate.ResourceOrder, gate.ActionCreate, a.orders.New)
	a.protect("POST /orders", gate.ResourceOrder, gate.ActionCreate, a.orders.Create)
	a.protect("POST /orders/validate", gate.ResourceOrder, gate.ActionValidate, a.orders.Validate)
	a.protect("GET /orders/{id}", gate.ResourceOrder, gate.ActionView, a.orders.View)
	a.protect("PUT /orders/{id}", gate.ResourceOrder, gate.ActionUpdate, a.orders.Update)
	a.protect("DELETE /orders/{id}", gate.ResourceOrder, gate.ActionDelete, a.orders.Delete)

	// Documents
	a.protect("POST /orders/{id}/invoice", gate.ResourceInvoice, gate.ActionCreate, a.docs.CreateInvoice)
	a.protect("GET /orders/{id}/invoice.pdf", gate.ResourceInvoice, gate.ActionView, a.docs.InvoicePDF)
	a.protect("POST /invoices/{id}/paid", gate.ResourceInvoice, gate.ActionUpdate, a.docs.MarkInvoicePaid)
	a.protect("POST /orders/{id}/delivery-note", gate.ResourceDeliveryNote, gate.ActionCreate, a.docs.CreateDeliveryNote)
	a.protect("GET /orders/{id}/delivery-note.pdf", gate.ResourceDeliveryNote, gate.ActionView, a.docs.DeliveryNotePDF)

	// Admin
	a.adminOnly("GET /admin/profiles", a.admin.ListProfiles)
	a.adminOnly("GET /admin/users", a.admin.ListUsers)
	a.adminOnly("POST /admin/users", a.admin.CreateUser)
	a.adminOnly("PUT /admin/users/{id}/profile", a.admin.AssignProfile)
}

// protect registers h behind a session and the resourceType:action permission.
func (a *App) protect(pattern, resourceType string, action gate.Action, h http.HandlerFunc) {
	a.mux.Handle(pattern, a.requireAuth(a.requirePermission(resourceType, action)(h)))
}

func (a *App) adminOnly(pattern string, h http.HandlerFunc) {
	a.mux.Handle(pattern, a.requireAuth(a.gate.RequireAdmin()(h)))
}

func (a *App) requireAuth(next http.Handler) http.Handler {
	return a.sessions.RequireAuth(next)
}

func (a *App) requirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return a.gate.RequirePermission(resourceType, action)
}
