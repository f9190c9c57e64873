// Package entitlement предоставляет маршруты для основного приложения.
package entitlement

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/copcca/entitlement-service/internal/config"
	"github.com/copcca/entitlement-service/internal/gate"
	adminexpire "github.com/copcca/entitlement-service/internal/http/handlers/admin/expire"
	"github.com/copcca/entitlement-service/internal/http/handlers/admin/gateconfig"
	adminlist "github.com/copcca/entitlement-service/internal/http/handlers/admin/list"
	adminplan "github.com/copcca/entitlement-service/internal/http/handlers/admin/plan"
	adminread "github.com/copcca/entitlement-service/internal/http/handlers/admin/read"
	adminrenew "github.com/copcca/entitlement-service/internal/http/handlers/admin/renew"
	adminstatus "github.com/copcca/entitlement-service/internal/http/handlers/admin/status"
	adminsuspend "github.com/copcca/entitlement-service/internal/http/handlers/admin/suspend"
	gateevaluate "github.com/copcca/entitlement-service/internal/http/handlers/gate/evaluate"
	"github.com/copcca/entitlement-service/internal/http/handlers/health"
	"github.com/copcca/entitlement-service/internal/http/handlers/payment/paymentcreate"
	"github.com/copcca/entitlement-service/internal/http/handlers/payment/paymenthistory"
	"github.com/copcca/entitlement-service/internal/http/handlers/payment/paymentquote"
	"github.com/copcca/entitlement-service/internal/http/handlers/payment/paymentwebhook"
	subscriptioncancel "github.com/copcca/entitlement-service/internal/http/handlers/subscription/cancel"
	subscriptioncreate "github.com/copcca/entitlement-service/internal/http/handlers/subscription/create"
	subscriptionread "github.com/copcca/entitlement-service/internal/http/handlers/subscription/read"
	usagesnapshot "github.com/copcca/entitlement-service/internal/http/handlers/usage/snapshot"
	"github.com/copcca/entitlement-service/internal/http/middlewarectx"
	"github.com/copcca/entitlement-service/internal/lib/jwt"
	"github.com/copcca/entitlement-service/internal/services/lifecycle"
	"github.com/copcca/entitlement-service/internal/services/payment"
	"github.com/copcca/entitlement-service/internal/services/usage"
	"github.com/copcca/entitlement-service/internal/storage"
)

// Services объединяет зависимости маршрутов приложения.
type Services struct {
	Gate       *gate.Evaluator
	GateConfig config.Gate
	Lifecycle  *lifecycle.Service
	Usage      *usage.Service
	Payment    *payment.Service
	DB         *storage.Storage
	JWT        jwt.Maker
	Secret     string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s *Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger, s.DB).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.JWT, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/gate/evaluate", gateevaluate.New(logger, s.Gate).ServeHTTP)
			r.Post("/subscription", subscriptioncreate.New(logger, s.Lifecycle).ServeHTTP)
			r.Get("/subscription", subscriptionread.New(logger, s.Lifecycle).ServeHTTP)
			r.Post("/subscription/cancel", subscriptioncancel.New(logger, s.Lifecycle).ServeHTTP)
			r.Get("/usage", usagesnapshot.New(logger, s.Usage).ServeHTTP)
			r.Post("/payments", paymentcreate.New(logger, s.Payment).ServeHTTP)
			r.Get("/payments", paymenthistory.New(logger, s.Payment).ServeHTTP)
			r.Get("/payments/quote", paymentquote.New(logger, s.Payment).ServeHTTP)

			// Панель оператора
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireAdmin(logger))
				r.Get("/admin/subscriptions", adminlist.New(logger, s.Lifecycle).ServeHTTP)
				r.Get("/admin/subscriptions/{tenantID}", adminread.New(logger, s.Lifecycle, s.Usage).ServeHTTP)
				r.Post("/admin/subscriptions/{tenantID}/status", adminstatus.New(logger, s.Lifecycle, s.Gate).ServeHTTP)
				r.Post("/admin/subscriptions/{tenantID}/plan", adminplan.New(logger, s.Lifecycle, s.Gate).ServeHTTP)
				r.Post("/admin/subscriptions/{tenantID}/suspend", adminsuspend.New(logger, s.Lifecycle, s.Gate).ServeHTTP)
				r.Post("/admin/subscriptions/{tenantID}/unsuspend", adminsuspend.NewUnsuspend(logger, s.Lifecycle, s.Gate).ServeHTTP)
				r.Post("/admin/subscriptions/{tenantID}/renew", adminrenew.New(logger, s.Lifecycle, s.Gate).ServeHTTP)
				r.Post("/admin/trials/expire", adminexpire.New(logger, s.Lifecycle, s.Gate).ServeHTTP)
				r.Get("/admin/gate", gateconfig.New(logger, s.GateConfig).ServeHTTP)
			})
		})

		// Webhook endpoint (без аутентификации, подпись HMAC)
		r.Post("/payments/webhook", paymentwebhook.New(logger, s.Payment, s.Secret).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
