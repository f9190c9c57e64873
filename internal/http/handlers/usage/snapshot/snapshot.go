// Package snapshot реализует HTTP-обработчик среза потребления арендатора.
//
// Срез информативный: лимиты планов носят рекомендательный характер,
// обработчик ничего не блокирует.
package snapshot

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

// Handler управляет HTTP-запросами среза потребления.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис учёта потребления
}

// Service описывает интерфейс сбора среза потребления.
type Service interface {
	Snapshot(ctx context.Context, tenantID string) (*models.UsageSnapshot, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Срез потребления арендатора
// @Description Возвращает текущее потребление по всем учитываемым ресурсам против лимитов плана.
// @Tags Usage
// @Produce  json
// @Success 200 {object} response.Response "Срез потребления"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /usage [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.usage.snapshot"
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

	usage, err := h.service.Snapshot(r.Context(), tenantID)
	if err != nil {
		log.Error("failed to collect usage snapshot", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not collect usage"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(usage))
}
