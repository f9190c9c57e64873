// Package read реализует HTTP-обработчик чтения подписки арендатора оператором.
package read

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
	"github.com/copcca/entitlement-service/internal/storage"
)

// Handler управляет HTTP-запросами чтения подписки оператором.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис жизненного цикла подписки
	usage   UsageService // Сервис учёта потребления
}

// Service описывает интерфейс чтения подписки и плана.
type Service interface {
	Read(ctx context.Context, tenantID string) (*models.Subscription, error)
	Plan(ctx context.Context, planID string) (*models.Plan, error)
}

// UsageService описывает интерфейс сбора среза потребления.
type UsageService interface {
	Snapshot(ctx context.Context, tenantID string) (*models.UsageSnapshot, error)
}

// New создает новый Handler с переданными логгером и сервисами.
func New(log *slog.Logger, service Service, usage UsageService) *Handler {
	return &Handler{
		log:     log,
		service: service,
		usage:   usage,
	}
}

// ServeHTTP godoc
// @Summary Получить подписку арендатора с потреблением
// @Description Возвращает подписку указанного арендатора, её план и срез потребления.
// @Tags Admin
// @Produce  json
// @Param tenantID path string true "UUID арендатора"
// @Success 200 {object} response.Response "Подписка, план и потребление"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/subscriptions/{tenantID} [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.read"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	tenantID := chi.URLParam(r, "tenantID")

	sub, err := h.service.Read(r.Context(), tenantID)
	if errors.Is(err, storage.ErrNotFound) {
		log.Info("subscription not found", slog.String("tenant_id", tenantID))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("subscription not found"))
		return
	}
	if err != nil {
		log.Error("failed to read subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read subscription"))
		return
	}

	plan, err := h.service.Plan(r.Context(), sub.PlanID)
	if err != nil {
		log.Error("failed to read plan", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read subscription"))
		return
	}

	usage, err := h.usage.Snapshot(r.Context(), tenantID)
	if err != nil {
		log.Error("failed to collect usage snapshot", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not collect usage"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription": sub,
		"plan":         plan,
		"usage":        usage,
	}))
}
