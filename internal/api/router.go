package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"arithmetic-calculator/internal/auth"
	"arithmetic-calculator/internal/httputil"
	"arithmetic-calculator/internal/metrics"
)

// Deps - зависимости HTTP слоя
type Deps struct {
	Auth    *auth.Handler
	Settler Settler
	Records RecordStore
	Limiter *RateLimiter
	// Health проверяет готовность хранилища; nil - всегда готов
	Health func(ctx context.Context) error
}

// NewRouter собирает маршруты API
func NewRouter(deps Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, metrics.Middleware)

	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/healthz", healthHandler(deps.Health)).Methods("GET")

	// Публичные эндпоинты для аутентификации
	public := r.PathPrefix("/api/v1").Subrouter()
	public.HandleFunc("/auth/register", deps.Auth.Register).Methods("POST")
	public.HandleFunc("/auth/token", deps.Auth.Login).Methods("POST")

	// Защищенные маршруты
	ops := &operationsHandler{settler: deps.Settler, records: deps.Records}
	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(auth.AuthMiddleware)
	if deps.Limiter != nil {
		protected.Use(deps.Limiter.Handler)
	}
	protected.HandleFunc("/users/me", deps.Auth.Me).Methods("GET")
	protected.HandleFunc("/operations", ops.Perform).Methods("POST")
	protected.HandleFunc("/operations", ops.List).Methods("GET")
	protected.HandleFunc("/operations/costs", ops.Costs).Methods("GET")
	protected.HandleFunc("/operations/search/{term:.+}", ops.Search).Methods("GET")
	protected.HandleFunc("/operations/{id:[0-9]+}", ops.Delete).Methods("DELETE")

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				httputil.WriteError(w, http.StatusServiceUnavailable, "База данных недоступна")
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
