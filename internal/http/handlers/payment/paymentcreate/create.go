// Package paymentcreate реализует HTTP-обработчик инициации платежа за подписку.
//
// Handler принимает JSON-запрос с данными платежа, валидирует их по правилам
// выбранного способа оплаты до любого сетевого вызова, создает платёжное
// намерение и возвращает его в JSON-формате. Намерение остаётся pending
// до подтверждения по webhook от процессинга.
package paymentcreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/copcca/entitlement-service/internal/entitlementapi"
	"github.com/copcca/entitlement-service/internal/http/middlewarectx"
	"github.com/copcca/entitlement-service/internal/http/response"
	"github.com/copcca/entitlement-service/internal/lib/sl"
	"github.com/copcca/entitlement-service/internal/models"
	"github.com/copcca/entitlement-service/internal/services/payment"
)

// Handler управляет HTTP-запросами на инициацию платежа.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Платёжный сервис
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс платёжного сервиса.
type Service interface {
	Initiate(ctx context.Context, tenantID string, req models.DummyPaymentRequest) (*models.PaymentIntent, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Инициировать платёж за подписку
// @Description Валидирует платёжный запрос, считает годовую стоимость по размеру команды и создает платёжное намерение в статусе pending.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body models.DummyPaymentRequest true "Данные платежа"
// @Success 200 {object} response.Response "Созданное платёжное намерение"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 402 {object} response.ErrorResponse "Платёж отклонён процессингом"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyPaymentRequest
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

	tenantID, ok := r.Context().Value(middlewarectx.TenantID).(string)
	if !ok || tenantID == "" {
		log.Error("tenant not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	intent, err := h.service.Initiate(r.Context(), tenantID, req)
	if err != nil {
		var validationErr *payment.ValidationError
		var rejection *entitlementapi.BackendRejection
		switch {
		case errors.As(err, &validationErr):
			log.Error("payment request rejected", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(validationErr.Message))
		case errors.As(err, &rejection):
			log.Error("payment declined by backend", sl.Err(err))
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.Error(rejection.Message))
		default:
			log.Error("failed to initiate payment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not initiate payment"))
		}
		return
	}

	log.Info("payment initiated", slog.String("intent_id", intent.ID))
	render.JSON(w, r, response.StatusOKWithData(intent))
}
