// Package suspend реализует HTTP-обработчики ручной блокировки арендатора.
//
// Блокировка обратима и не затрагивает биллинговые даты подписки.
package suspend

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

// Handler управляет HTTP-запросами блокировки и разблокировки.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис жизненного цикла подписки
	gate    GateRefresher
	unset   bool // true — обработчик снимает блокировку
}

// Service описывает интерфейс блокировки подписки.
type Service interface {
	Suspend(ctx context.Context, tenantID string) error
	Unsuspend(ctx context.Context, tenantID string) error
	Read(ctx context.Context, tenantID string) (*models.Subscription, error)
}

// GateRefresher сбрасывает закэшированное решение шлюза доступа арендатора.
type GateRefresher interface {
	Refresh(tenantID string)
}

// New создает Handler блокировки арендатора.
func New(log *slog.Logger, service Service, gate GateRefresher) *Handler {
	return &Handler{log: log, service: service, gate: gate}
}

// NewUnsuspend создает Handler снятия блокировки.
func NewUnsuspend(log *slog.Logger, service Service, gate GateRefresher) *Handler {
	return &Handler{log: log, service: service, gate: gate, unset: true}
}

// ServeHTTP godoc
// @Summary Заблокировать или разблокировать арендатора
// @Description Переводит подписку в suspended либо возвращает в active. Биллинговые даты не меняются.
// @Tags Admin
// @Produce  json
// @Param tenantID path string true "UUID арендатора"
// @Success 200 {object} response.Response "Блокировка изменена"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/subscriptions/{tenantID}/suspend [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.suspend"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Bool("unsuspend", h.unset),
	)

	tenantID := chi.URLParam(r, "tenantID")

	var err error
	if h.unset {
		err = h.service.Unsuspend(r.Context(), tenantID)
	} else {
		err = h.service.Suspend(r.Context(), tenantID)
	}

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
		log.Error("failed to change suspension", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not change suspension"))
		return
	}

	h.gate.Refresh(tenantID)
	log.Info("suspension changed", slog.String("tenant_id", tenantID))

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
