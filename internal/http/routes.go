package httpx

import (
	"log/slog"
	"net/http"

	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/service"
)

// RouterServices groups the services the HTTP API exposes.
type RouterServices struct {
	Sessions    *service.SessionService
	Descriptors core.DescriptorStore
	Logger      *slog.Logger
}

// NewRouter builds the API router. Middleware is applied by the caller.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	registerSessionRoutes(mux, NewSessionHandlers(services.Sessions))
	if services.Descriptors != nil {
		registerRecordingRoutes(mux, NewRecordingHandlers(services.Descriptors, services.Logger))
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}
