package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saransh1220/notification-service/internal/gateway/middleware"
	notification_http "github.com/saransh1220/notification-service/internal/modules/notification/interfaces/http"
)

// RouterConfig holds all the handlers and middleware needed for routing
type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleware
	NotificationHandler *notification_http.NotificationHandler
	AllowedOrigins      string
}

// SetupRoutes builds the mux. Reads are open, writes need a publisher token.
func SetupRoutes(config RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	auth := config.AuthMiddleware
	h := config.NotificationHandler
	publisher := func(fn http.HandlerFunc) http.Handler {
		return auth.RequireRole(middleware.RolePublisher, fn)
	}

	mux.Handle("POST /notifications", publisher(h.Create))
	mux.HandleFunc("GET /notifications/recent", h.Recent)
	mux.HandleFunc("GET /notifications/{id}", h.Get)
	mux.Handle("PUT /notifications/{id}", publisher(h.Update))
	mux.Handle("DELETE /notifications/{id}", publisher(h.Delete))
	mux.Handle("GET /ws", auth.RequireAuth(http.HandlerFunc(h.Subscribe)))

	return middleware.CORSMiddleware(middleware.PrometheusMiddleware(mux), config.AllowedOrigins)
}
