package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/arena/internal/api/handlers"
	"github.com/wonny/arena/pkg/logger"
)

// Handlers bundles the route handlers. WebsocketHandler is optional.
type Handlers struct {
	Capital    *handlers.CapitalHandler
	Gate       *handlers.GateHandler
	Tournament *handlers.TournamentHandler
	Status     *handlers.StatusHandler
	Websocket  http.HandlerFunc
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Capital (read-only)
	api.HandleFunc("/capital/pools", h.Capital.GetPools).Methods("GET")
	api.HandleFunc("/capital/pools/{id}", h.Capital.GetPool).Methods("GET")
	api.HandleFunc("/capital/allocations", h.Capital.GetAllocations).Methods("GET")
	api.HandleFunc("/capital/transactions", h.Capital.GetTransactions).Methods("GET")

	// Gate
	api.HandleFunc("/gate/rejections", h.Gate.GetRejections).Methods("GET")
	api.HandleFunc("/gate/stats", h.Gate.GetStats).Methods("GET")
	api.HandleFunc("/gate/validate", h.Gate.Validate).Methods("POST")
	api.HandleFunc("/gate/signal", h.Gate.ValidateSignal).Methods("POST")

	// Tournament
	api.HandleFunc("/tournament/stats", h.Tournament.GetStats).Methods("GET")
	api.HandleFunc("/tournament/allocation", h.Tournament.GetAllocation).Methods("GET")
	api.HandleFunc("/tournament/cycle", h.Tournament.RunCycle).Methods("POST")

	// Operational status
	api.HandleFunc("/status", h.Status.GetStatus).Methods("GET")

	if h.Websocket != nil {
		r.HandleFunc("/ws", h.Websocket)
	}

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "arena-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
