package handler

import (
	"net/http"

	"github.com/deppfellow/nginx-log-sink/internal/model"
	"github.com/deppfellow/nginx-log-sink/internal/server"
	"github.com/deppfellow/nginx-log-sink/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AccessLogHandler serves the read API over stored records.
type AccessLogHandler struct {
	Handler
	service *service.AccessLogService
}

func NewAccessLogHandler(s *server.Server, svc *service.AccessLogService) *AccessLogHandler {
	return &AccessLogHandler{
		Handler: NewHandler(s),
		service: svc,
	}
}

func (h *AccessLogHandler) List() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, q *model.AccessLogQuery) (*model.AccessLogList, error) {
		return h.service.List(c.Request().Context(), *q)
	}, http.StatusOK, func() *model.AccessLogQuery { return &model.AccessLogQuery{} })
}

func (h *AccessLogHandler) Get() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.GetAccessLogRequest) (*model.LogRecord, error) {
		// already validated as a uuid
		id := uuid.MustParse(req.ID)
		return h.service.Get(c.Request().Context(), id)
	}, http.StatusOK, func() *model.GetAccessLogRequest { return &model.GetAccessLogRequest{} })
}
