package http

import (
	"net/http"

	"tutorinminutes-backend/internal/delivery/http/handler"
	"tutorinminutes-backend/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router            *mux.Router
	authHandler       *handler.AuthHandler
	tutorHandler      *handler.TutorHandler
	bookingHandler    *handler.BookingHandler
	paymentHandler    *handler.PaymentHandler
	chatHandler       *handler.ChatHandler
	auditLogHandler   *handler.AuditLogHandler
	authMiddleware    *middleware.AuthMiddleware
	corsMiddleware    *middleware.CORSMiddleware
	rateLimiter       *middleware.RateLimitMiddleware
	metricsMiddleware *middleware.MetricsMiddleware
	requestLogger     func(http.Handler) http.Handler
	metricsHandler    http.Handler
}

type RouterConfig struct {
	AuthHandler       *handler.AuthHandler
	TutorHandler      *handler.TutorHandler
	BookingHandler    *handler.BookingHandler
	PaymentHandler    *handler.PaymentHandler
	ChatHandler       *handler.ChatHandler
	AuditLogHandler   *handler.AuditLogHandler
	AuthMiddleware    *middleware.AuthMiddleware
	CORSMiddleware    *middleware.CORSMiddleware
	RateLimiter       *middleware.RateLimitMiddleware
	MetricsMiddleware *middleware.MetricsMiddleware
	RequestLogger     func(http.Handler) http.Handler
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		router:            mux.NewRouter(),
		authHandler:       cfg.AuthHandler,
		tutorHandler:      cfg.TutorHandler,
		bookingHandler:    cfg.BookingHandler,
		paymentHandler:    cfg.PaymentHandler,
		chatHandler:       cfg.ChatHandler,
		auditLogHandler:   cfg.AuditLogHandler,
		authMiddleware:    cfg.AuthMiddleware,
		corsMiddleware:    cfg.CORSMiddleware,
		rateLimiter:       cfg.RateLimiter,
		metricsMiddleware: cfg.MetricsMiddleware,
		requestLogger:     cfg.RequestLogger,
		metricsHandler:    cfg.MetricsHandler,
	}
}

func (r *Router) Setup() *mux.Router {
	if r.metricsHandler != nil {
		r.router.Handle("/metrics", r.metricsHandler).Methods(http.MethodGet)
	}

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Tutor discovery (public)
	api.HandleFunc("/tutors", r.tutorHandler.ListTutors).Methods(http.MethodGet)
	api.HandleFunc("/tutors/search", r.tutorHandler.SearchTutors).Methods(http.MethodGet)
	api.HandleFunc("/tutors/nearby", r.tutorHandler.GetNearbyTutors).Methods(http.MethodGet)
	api.HandleFunc("/tutors/{id}", r.tutorHandler.GetTutor).Methods(http.MethodGet)
	api.HandleFunc("/tutors/{id}/availability", r.tutorHandler.GetAvailability).Methods(http.MethodGet)
	api.HandleFunc("/check-service", r.tutorHandler.CheckService).Methods(http.MethodPost)

	// Support chat (public)
	api.HandleFunc("/chat", r.chatHandler.Reply).Methods(http.MethodPost)

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", r.authHandler.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", r.authHandler.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh-token", r.authHandler.RefreshToken).Methods(http.MethodPost)

	// Auth routes (protected)
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/logout", r.authHandler.Logout).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", r.authHandler.GetCurrentUser).Methods(http.MethodGet)

	// Booking routes (protected)
	bookings := api.PathPrefix("/bookings").Subrouter()
	bookings.Use(r.authMiddleware.Authenticate)
	bookings.Handle("", middleware.RequireStudent(http.HandlerFunc(r.bookingHandler.CreateBooking))).Methods(http.MethodPost)
	bookings.HandleFunc("/user", r.bookingHandler.GetMyBookings).Methods(http.MethodGet)
	bookings.HandleFunc("/{id}", r.bookingHandler.CancelBooking).Methods(http.MethodDelete)

	// Payment routes (protected)
	payments := api.PathPrefix("/payments").Subrouter()
	payments.Use(r.authMiddleware.Authenticate)
	payments.HandleFunc("/create-intent", r.paymentHandler.CreatePaymentIntent).Methods(http.MethodPost)
	payments.HandleFunc("/confirm", r.paymentHandler.ConfirmPayment).Methods(http.MethodPost)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	// Tutor management (admin)
	admin.HandleFunc("/tutors", r.tutorHandler.CreateTutor).Methods(http.MethodPost)
	admin.HandleFunc("/tutors/{id}", r.tutorHandler.UpdateTutor).Methods(http.MethodPut)
	admin.HandleFunc("/tutors/{id}", r.tutorHandler.DeleteTutor).Methods(http.MethodDelete)

	// Audit trail (admin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// CORS runs first so preflight requests never hit the limiter.
	r.router.Use(r.corsMiddleware.Handle)
	if r.requestLogger != nil {
		r.router.Use(r.requestLogger)
	}
	if r.metricsMiddleware != nil {
		r.router.Use(r.metricsMiddleware.Handle)
	}
	if r.rateLimiter != nil {
		r.router.Use(r.rateLimiter.Handle)
	}

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
