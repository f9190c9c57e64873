// Package expire реализует HTTP-обработчик ручного запуска истечения
// пробных периодов. Тот же проход выполняет планировщик по расписанию;
// повторный запуск безопасен.
package expire

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/copcca/entitlement-service/internal/http/response"
	"github.com/copcca/entitlement-service/internal/lib/sl"
	"github.com/copcca/entitlement-service/internal/storage"
)

// Handler управляет HTTP-запросами ручного истечения пробных периодов.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис жизненного цикла подписки
	gate    GateRefresher
}

// Service описывает интерфейс истечения пробных периодов.
type Service interface {
	ProcessTrialExpirations(ctx context.Context) ([]*storage.ExpiredTrial, error)
}

// GateRefresher сбрасывает закэшированное решение шлюза доступа арендатора.
type GateRefresher interface {
	Refresh(tenantID string)
}

// New создает новый Handler с переданными логгером, сервисом и шлюзом.
func New(log *slog.Logger, service Service, gate GateRefresher) *Handler {
	return &Handler{
		log:     log,
		service: service,
		gate:    gate,
	}
}

// ServeHTTP godoc
// @Summary Истечь просроченные пробные периоды
// @Description Переводит все подписки со статусом trial и истёкшим trial_end в expired. Идемпотентно.
// @Tags Admin
// @Produce  json
// @Success 200 {object} response.Response "Затронутые арендаторы"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/trials/expire [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.expire"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	expired, err := h.service.ProcessTrialExpirations(r.Context())
	if err != nil {
		log.Error("failed to expire overdue trials", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not expire trials"))
		return
	}

	for _, trial := range expired {
		h.gate.Refresh(trial.TenantID)
	}

	log.Info("trial expiration pass finished", slog.Int("count", len(expired)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"expired": expired,
		"count":   len(expired),
	}))
}
