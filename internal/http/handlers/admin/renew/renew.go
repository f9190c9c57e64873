// Package renew реализует HTTP-обработчик ручного продления подписки оператором.
//
// Продление активирует подписку на 30 дней без обращения к процессингу.
package renew

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/copcca/entitlement-service/internal/http/response"
	"github.com/copcca/entitlement-service/internal/lib/sl"
	"github.com/copcca/entitlement-service/internal/models"
	"github.com/copcca/entitlement-service/internal/services/lifecycle"
	"github.com/copcca/entitlement-service/internal/storage"
)

// Handler управляет HTTP-запросами ручного продления подписки.
type Handler struct {
	log     *slog.Logger  // Логгер для записи информации и ошибок
	service Service       // Сервис жизненного цикла подписки
	gate    GateRefresher // Сброс кэша шлюза после мутации
}

// Service описывает интерфейс продления подписки.
type Service interface {
	Renew(ctx context.Context, tenantID string) error
	Read(ctx context.Context, tenantID string) (*models.Subscription, error)
}

// GateRefresher сбрасывает закэшированное решение шлюза доступа арендатора.
type GateRefresher interface {
	Refresh(tenantID string)
}

// New создает новый Handler с переданными логгером, сервисом и шлюзом.
func New(log *slog.Logger, service Service, gate GateRefresher) *Handler {
	return &Handler{log: log, service: service, gate: gate}
}

// ServeHTTP godoc
// @Summary Продлить подписку арендатора вручную
// @Description Активирует подписку на 30 дней без платежа через процессинг.
// @Tags Admin
// @Produce  json
// @Param tenantID path string true "UUID арендатора"
// @Success 200 {object} response.Response "Продлённая подписка"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/subscriptions/{tenantID}/renew [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.renew"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	tenantID := chi.URLParam(r, "tenantID")

	err := h.service.Renew(r.Context(), tenantID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		log.Info("subscription not found", slog.String("tenant_id", tenantID))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("subscription not found"))
		return
	case errors.Is(err, lifecycle.ErrIllegalTransition):
		log.Error("illegal status transition", sl.Err(err))
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error(err.Error()))
		return
	case err != nil:
		log.Error("failed to renew subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not renew subscription"))
		return
	}

	h.gate.Refresh(tenantID)
	log.Info("subscription renewed", slog.String("tenant_id", tenantID))

	// Оператору возвращается перечитанная строка, а не эхо запроса
	sub, err := h.service.Read(r.Context(), tenantID)
	if err != nil {
		log.Error("failed to reload subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not reload subscription"))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(sub))
}
