package handler

import (
	"github.com/deppfellow/nginx-log-sink/internal/server"
	"github.com/deppfellow/nginx-log-sink/internal/service"
)

// Handlers groups every HTTP handler. AccessLogs is nil when the listing
// API is not available.
type Handlers struct {
	Health     *HealthHandler
	Ingest     *IngestHandler
	AccessLogs *AccessLogHandler
	OpenAPI    *OpenAPIHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	handlers := &Handlers{
		Health:  NewHealthHandler(s),
		Ingest:  NewIngestHandler(s, services.Ingest),
		OpenAPI: NewOpenAPIHandler(s),
	}

	if services.AccessLogs != nil {
		handlers.AccessLogs = NewAccessLogHandler(s, services.AccessLogs)
	}

	return handlers
}
