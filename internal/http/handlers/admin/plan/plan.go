// Package plan реализует HTTP-обработчик смены тарифного плана оператором.
package plan

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
	"github.com/copcca/entitlement-service/internal/storage"
)

// Handler управляет HTTP-запросами смены плана подписки.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис жизненного цикла подписки
	gate     GateRefresher       // Сброс кэша шлюза после мутации
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс смены плана подписки.
type Service interface {
	ChangePlan(ctx context.Context, tenantID, planID string) error
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
// @Summary Сменить тарифный план арендатора
// @Description Переводит подписку на указанный план. Текущее потребление против лимитов нового плана не проверяется.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param tenantID path string true "UUID арендатора"
// @Param request body models.DummyPlanChange true "Новый план"
// @Success 200 {object} response.Response "План изменён"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Подписка или план не найдены"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/subscriptions/{tenantID}/plan [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.plan"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	tenantID := chi.URLParam(r, "tenantID")

	var req models.DummyPlanChange
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

	err := h.service.ChangePlan(r.Context(), tenantID, req.PlanID)
	if errors.Is(err, storage.ErrNotFound) {
		log.Info("subscription or plan not found", slog.String("tenant_id", tenantID))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("subscription or plan not found"))
		return
	}
	if err != nil {
		log.Error("failed to change subscription plan", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not change subscription plan"))
		return
	}

	h.gate.Refresh(tenantID)
	log.Info("subscription plan changed",
		slog.String("tenant_id", tenantID), slog.String("plan_id", req.PlanID))

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
