// Package gateconfig реализует HTTP-обработчик просмотра настроек шлюза доступа.
package gateconfig

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/copcca/entitlement-service/internal/config"
	"github.com/copcca/entitlement-service/internal/http/response"
)

// Handler отдаёт действующие настройки шлюза доступа.
type Handler struct {
	log *slog.Logger
	cfg config.Gate
}

// New создает новый Handler с переданными логгером и настройками шлюза.
func New(log *slog.Logger, cfg config.Gate) *Handler {
	return &Handler{log: log, cfg: cfg}
}

// ServeHTTP godoc
// @Summary Настройки шлюза доступа
// @Description Возвращает действующие настройки шлюза: флаг включения и бюджеты времени.
// @Tags Admin
// @Produce  json
// @Success 200 {object} response.Response "Настройки шлюза"
// @Router /admin/gate [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.gateconfig"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	log.Debug("gate config requested")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"enabled":           h.cfg.Enabled,
		"evaluation_budget": h.cfg.EvaluationBudget.String(),
		"status_timeout":    h.cfg.StatusTimeout.String(),
		"team_size_timeout": h.cfg.TeamSizeTimeout.String(),
		"outcome_cache_ttl": h.cfg.OutcomeCacheTTL.String(),
	}))
}
