// Package evaluate реализует HTTP-обработчик оценки шлюза доступа.
//
// Handler принимает JSON-запрос с данными сессии, извлекает арендатора и роль
// из контекста, вызывает оценку шлюза и возвращает решение: allow, banner
// либо blocked. Сбой проверки никогда не приводит к ошибке ответа —
// шлюз деградирует в allow.
package evaluate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/copcca/entitlement-service/internal/gate"
	"github.com/copcca/entitlement-service/internal/http/middlewarectx"
	"github.com/copcca/entitlement-service/internal/http/response"
	"github.com/copcca/entitlement-service/internal/lib/sl"
)

// Handler управляет HTTP-запросами на оценку шлюза доступа.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Оценщик шлюза доступа
}

// Service описывает интерфейс оценки шлюза.
type Service interface {
	Evaluate(ctx context.Context, sess gate.Session) gate.Decision
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// Request — данные сессии, дополняющие claims токена.
type Request struct {
	AdminEmail string `json:"admin_email,omitempty"`
	AdminName  string `json:"admin_name,omitempty"`
	TeamID     string `json:"team_id,omitempty"`
}

// ServeHTTP godoc
// @Summary Оценить доступ сессии
// @Description Возвращает решение шлюза доступа для текущей сессии: allow, banner или blocked.
// @Tags Gate
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные сессии"
// @Success 200 {object} response.Response "Решение шлюза"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /gate/evaluate [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.gate.evaluate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("failed to decode request", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return
		}
	}

	tenantID, ok := r.Context().Value(middlewarectx.TenantID).(string)
	if !ok || tenantID == "" {
		log.Error("tenant not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	email, _ := r.Context().Value(middlewarectx.Email).(string)
	role, _ := r.Context().Value(middlewarectx.Role).(string)

	adminEmail := req.AdminEmail
	if adminEmail == "" {
		adminEmail = email
	}

	decision := h.service.Evaluate(r.Context(), gate.Session{
		TenantID:   tenantID,
		AdminEmail: adminEmail,
		AdminName:  req.AdminName,
		TeamID:     req.TeamID,
		IsAdmin:    role == middlewarectx.RoleAdmin,
	})

	log.Info("gate decision made",
		slog.String("mode", string(decision.Mode)),
		slog.Bool("degraded", decision.Degraded))
	render.JSON(w, r, response.StatusOKWithData(decision))
}
