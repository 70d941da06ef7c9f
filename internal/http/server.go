// Package http serves the hostel dashboard page and its JSON API.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	applog "hostel/internal/log"
	"hostel/internal/middleware/ratelimit"
	"hostel/internal/middleware/security"
	"hostel/internal/middleware/trace"
	"hostel/internal/services"
	appweb "hostel/web"
)

// Services are the application services the handlers call.
type Services struct {
	Bookings  *services.BookingService
	Expenses  *services.ExpenseService
	Dashboard *services.DashboardService
}

type Server struct {
	http.Server
	svc       Services
	templates *template.Template
	limiter   *ratelimit.Limiter
	logger    *applog.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, svc Services, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		svc:     svc,
		limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		logger:  logger,
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", applog.FieldError, err.Error())
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err.Error())
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /reservations", s.handleSaveReservationForm)
	mux.HandleFunc("POST /reservations/{id}/delete", s.handleDeleteReservationForm)
	mux.HandleFunc("POST /expenses", s.handleSaveExpenseForm)
	mux.HandleFunc("POST /expenses/{id}/delete", s.handleDeleteExpenseForm)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/agenda", s.handleAgenda)
	mux.HandleFunc("GET /api/reservations", s.handleListReservations)
	mux.HandleFunc("POST /api/reservations", s.handleCreateReservation)
	mux.HandleFunc("PUT /api/reservations/{id}", s.handleUpdateReservation)
	mux.HandleFunc("DELETE /api/reservations/{id}", s.handleDeleteReservation)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	detector := security.NewDetector()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(logger, detector.ExtractClientIP)

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimited)(h)
	h = detector.Middleware(h)
	h = headers.Middleware(h)
	h = tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded", applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{
		Error:     "rate limit exceeded, try again later",
		RequestID: trace.GetRequestID(r.Context()),
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready only when the record store answers a read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.svc.Dashboard.Ping(ctx); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
		http.Error(w, "record store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
