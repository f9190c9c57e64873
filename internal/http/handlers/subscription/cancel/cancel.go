// Package cancel реализует HTTP-обработчик отмены подписки по окончании периода.
//
// Отмена отложенная: доступ сохраняется до конца оплаченного периода,
// повторный вызов с cancel=false снимает флаг.
package cancel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/copcca/entitlement-service/internal/http/middlewarectx"
	"github.com/copcca/entitlement-service/internal/http/response"
	"github.com/copcca/entitlement-service/internal/lib/sl"
	"github.com/copcca/entitlement-service/internal/models"
	"github.com/copcca/entitlement-service/internal/storage"
)

// Request описывает тело запроса переключения отложенной отмены.
type Request struct {
	Cancel bool `json:"cancel"` // true — отменить по окончании периода, false — снять флаг
}

// Handler управляет HTTP-запросами отложенной отмены подписки.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис жизненного цикла подписки
}

// Service описывает интерфейс отложенной отмены подписки.
type Service interface {
	CancelAtPeriodEnd(ctx context.Context, tenantID string, cancel bool) error
	Read(ctx context.Context, tenantID string) (*models.Subscription, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отменить подписку по окончании периода
// @Description Ставит или снимает флаг отложенной отмены. Доступ сохраняется до конца оплаченного периода.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body Request true "Флаг отмены"
// @Success 200 {object} response.Response "Обновлённая подписка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscription/cancel [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	tenantID, ok := r.Context().Value(middlewarectx.TenantID).(string)
	if !ok || tenantID == "" {
		log.Error("tenant not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	err := h.service.CancelAtPeriodEnd(r.Context(), tenantID, req.Cancel)
	if errors.Is(err, storage.ErrNotFound) {
		log.Info("subscription not found", slog.String("tenant_id", tenantID))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("subscription not found"))
		return
	}
	if err != nil {
		log.Error("failed to toggle cancellation", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update subscription"))
		return
	}

	sub, err := h.service.Read(r.Context(), tenantID)
	if err != nil {
		log.Error("failed to reload subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not reload subscription"))
		return
	}

	log.Info("cancellation flag updated",
		slog.String("tenant_id", tenantID), slog.Bool("cancel", req.Cancel))
	render.JSON(w, r, response.StatusOKWithData(sub))
}
