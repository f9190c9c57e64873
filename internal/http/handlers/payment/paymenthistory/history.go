// Package paymenthistory реализует HTTP-обработчик платёжной истории арендатора.
package paymenthistory

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/copcca/entitlement-service/internal/http/middlewarectx"
	"github.com/copcca/entitlement-service/internal/http/response"
	"github.com/copcca/entitlement-service/internal/lib/sl"
	"github.com/copcca/entitlement-service/internal/models"
)

// Handler управляет HTTP-запросами платёжной истории.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Платёжный сервис
}

// Service описывает интерфейс чтения платёжной истории.
type Service interface {
	History(ctx context.Context, tenantID string) ([]*models.PaymentIntent, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Платёжная история арендатора
// @Description Возвращает платёжные намерения текущего арендатора, новые первыми.
// @Tags Payments
// @Produce  json
// @Success 200 {object} response.Response "Список платёжных намерений"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.history"
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

	intents, err := h.service.History(r.Context(), tenantID)
	if err != nil {
		log.Error("failed to list payment intents", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list payments"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"payments": intents,
		"count":    len(intents),
	}))
}
