package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/exxpenses/exxpenses/internal/auth"
	"github.com/exxpenses/exxpenses/internal/billing"
	"github.com/exxpenses/exxpenses/internal/category"
	"github.com/exxpenses/exxpenses/internal/config"
	"github.com/exxpenses/exxpenses/internal/expense"
	"github.com/exxpenses/exxpenses/internal/httputil"
	"github.com/exxpenses/exxpenses/internal/logging"
	"github.com/exxpenses/exxpenses/internal/user"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	User    *user.Handler
	Categ   *category.Handler
	Expense *expense.Handler
	Billing *billing.Handler
	Webhook *billing.WebhookHandler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, authMiddleware *auth.Middleware, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))        // Compress responses

	// Public routes
	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	// Production builds will not have this route at all
	if cfg.Server.IsDevelopment() {
		log.Println("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	// User routes (public)
	r.Route("/users", func(r chi.Router) {
		r.Post("/register", h.User.Register)
		r.Post("/login", h.User.Login)
		r.Post("/logout", h.User.Logout)
		r.Post("/verify-email", h.User.VerifyEmail)
		r.Post("/forgot-password", h.User.ForgotPassword)
		r.Get("/recovery-token", h.User.ValidateRecoveryToken)
		r.Post("/reset-password", h.User.ResetPassword)

		// Account routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/me", h.User.Me)
			r.Delete("/me", h.User.DeleteAccount)
			r.Post("/send-verification", h.User.SendVerificationEmail)
			r.Post("/change-password", h.User.ChangePassword)
			r.Post("/preferred-currency", h.User.SetPreferredCurrency)
		})
	})

	// Category and expense routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", h.Categ.Add)
			r.Get("/", h.Categ.List)
			r.Patch("/", h.Categ.Edit)
			r.Get("/{name}", h.Categ.Get)
			r.Delete("/{name}", h.Categ.Delete)

			r.Route("/{name}/expenses", func(r chi.Router) {
				r.Post("/", h.Expense.Add)
				r.Get("/", h.Expense.List)
				r.Get("/total", h.Expense.TotalCost)
				r.Patch("/{id}", h.Expense.Edit)
				r.Delete("/{id}", h.Expense.Delete)
			})
		})

		r.Post("/expenses/total", h.Expense.TotalCostMultiple)
	})

	// Billing routes
	r.Route("/billing", func(r chi.Router) {
		r.Get("/pricing", h.Billing.Pricing)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Post("/subscribe", h.Billing.Subscribe)
			r.Post("/unsubscribe", h.Billing.Unsubscribe)
			r.Get("/subscription", h.Billing.Info)
		})
	})

	// Provider webhooks authenticate with a signature, not a session
	r.Post("/webhooks/stripe", h.Webhook.Handle)

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
