// Package status реализует HTTP-обработчик смены статуса подписки оператором.
//
// Переход проверяется по таблице допустимых переходов; флаг force обходит
// проверку и фиксируется в логе.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/copcca/entitlement-service/internal/http/response"
	"github.com/copcca/entitlement-service/internal/lib/sl"
	"github.com/copcca/entitlement-service/internal/models"
	"github.com/copcca/entitlement-service/internal/services/lifecycle"
	"github.com/copcca/entitlement-service/internal/storage"
)

// Handler управляет HTTP-запросами смены статуса подписки.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис жизненного цикла подписки
	gate     GateRefresher       // Сброс кэша шлюза после мутации
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс смены статуса подписки.
type Service interface {
	OverrideStatus(ctx context.Context, tenantID string, target models.SubscriptionStatus, force bool) error
	Read(ctx context.Context, tenantID string) (*models.Subscription, error)
}

// GateRefresher сбрасывает закэшированное решение шлюза доступа арендатора.
type GateRefresher interface {
	Refresh(tenantID string)
}

// New создает новый Handler с переданными логгером, сервисом и шлюзом.
func New(log *slog.Logger, service Service, gate GateRefresher) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		gate:     gate,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Сменить статус подписки арендатора
// @Description Переводит подписку в указанный статус. Недопустимый переход отклоняется, если не указан force.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param tenantID path string true "UUID арендатора"
// @Param request body models.DummyStatusChange true "Целевой статус"
// @Success 200 {object} response.Response "Статус изменён"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/subscriptions/{tenantID}/status [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	tenantID := chi.URLParam(r, "tenantID")

	var req models.DummyStatusChange
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	err := h.service.OverrideStatus(r.Context(), tenantID, models.SubscriptionStatus(req.Status), req.Force)
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
		log.Error("failed to change subscription status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not change subscription status"))
		return
	}

	h.gate.Refresh(tenantID)
	log.Info("subscription status changed",
		slog.String("tenant_id", tenantID), slog.String("status", req.Status))

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
