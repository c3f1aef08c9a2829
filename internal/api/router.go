package api

import (
	"net/http"

	"github.com/dom/foodorder-backend/internal/api/handlers"
	"github.com/dom/foodorder-backend/internal/api/middleware"
	"github.com/dom/foodorder-backend/internal/config"
	"github.com/dom/foodorder-backend/internal/service"
	"github.com/dom/foodorder-backend/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(services *service.Services, hub *websocket.Hub, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handlers.NewAuthHandler(services.Auth, cfg.FrontendURL, cfg.CookieSecure)
	productHandler := handlers.NewProductHandler(services.Catalog)
	paymentHandler := handlers.NewPaymentHandler(services.Payment)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Payment, cfg.AllowedOrigins)

	// Auth routes
	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)
	r.Post("/refresh", authHandler.Refresh)
	r.Post("/logout", authHandler.Logout)
	r.With(middleware.Cookie(services.Auth)).Get("/me", authHandler.Me)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/google", authHandler.GoogleAuth)
		r.Get("/google/callback", authHandler.GoogleCallback)
		r.Post("/set-cookie", authHandler.SetCookie)
	})

	// Catalog routes
	r.Route("/products", func(r chi.Router) {
		r.Get("/", productHandler.List)
		r.Get("/categories", productHandler.Categories)
		r.Get("/category/{category}", productHandler.ByCategory)
		r.Get("/{barcode}", productHandler.ByBarcode)
	})

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.Bearer(services.Auth)).Get("/me", authHandler.Me)

		// Payment routes
		r.Post("/create-payment", paymentHandler.Create)
		r.Post("/webpay/commit", paymentHandler.Commit)
		r.Get("/transactions/{token}", paymentHandler.Get)

		// WebSocket endpoint
		r.Get("/transactions/{token}/ws", wsHandler.TransactionStatus)
	})

	return r
}
