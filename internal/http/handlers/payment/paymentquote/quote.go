// Package paymentquote реализует HTTP-обработчик расчёта стоимости подписки.
//
// Расчёт выполняется до инициации платежа, чтобы интерфейс показал точную
// сумму за выбранное число пользователей.
package paymentquote

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/copcca/entitlement-service/internal/http/middlewarectx"
	"github.com/copcca/entitlement-service/internal/http/response"
	"github.com/copcca/entitlement-service/internal/lib/pricing"
	"github.com/copcca/entitlement-service/internal/lib/sl"
	"github.com/copcca/entitlement-service/internal/storage"
)

// Handler управляет HTTP-запросами расчёта стоимости.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Платёжный сервис
}

// Service описывает интерфейс расчёта стоимости подписки.
type Service interface {
	Quote(ctx context.Context, tenantID string, totalUsers int) (pricing.Quote, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Рассчитать стоимость подписки
// @Description Возвращает месячную и годовую стоимость плана арендатора за указанное число пользователей.
// @Tags Payments
// @Produce  json
// @Param total_users query int true "Число пользователей"
// @Success 200 {object} response.Response "Расчёт стоимости"
// @Failure 400 {object} response.ErrorResponse "Некорректный параметр"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments/quote [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.quote"
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

	totalUsers, err := strconv.Atoi(r.URL.Query().Get("total_users"))
	if err != nil || totalUsers < 1 {
		log.Error("invalid total_users parameter")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("total_users must be a positive integer"))
		return
	}

	quote, err := h.service.Quote(r.Context(), tenantID, totalUsers)
	if errors.Is(err, storage.ErrNotFound) {
		log.Info("subscription not found", slog.String("tenant_id", tenantID))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("subscription not found"))
		return
	}
	if err != nil {
		log.Error("failed to calculate quote", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not calculate quote"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(quote))
}
