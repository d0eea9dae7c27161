// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"escrow-service/internal/auth"
	"escrow-service/internal/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func SetupRoutes(
	escrowHandler *handler.EscrowHandler,
	eventsHandler *handler.EventsHandler,
	verifier *auth.Verifier,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/api/v1/escrow/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Event stream (token passed during the websocket handshake is not
	// required; subscribers only observe)
	r.Get("/ws/escrow/{serviceID}/events", eventsHandler.HandleEvents)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(verifier.Middleware)

		r.Route("/escrow/{serviceID}", func(r chi.Router) {
			// Mutations
			r.Post("/deposit", escrowHandler.HandleDeposit)
			r.Post("/fulfillments", escrowHandler.HandleRegisterFulfillment)
			r.Post("/refunds/{payer}/withdraw", escrowHandler.HandleWithdrawRefund)
			r.Post("/pool/withdraw", escrowHandler.HandleBeneficiaryWithdraw)
			r.Put("/fee", escrowHandler.HandleSetFee)

			// Reads
			r.Get("/records/{recordID}", escrowHandler.HandleGetRecord)
			r.Get("/payers/{payer}", escrowHandler.HandleGetPayer)
			r.Get("/summary", escrowHandler.HandleGetSummary)
		})
	})

	return r
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()))
		})
	}
}
