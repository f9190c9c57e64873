// Package entitlement собирает основное приложение: хранилище, кэш,
// клиента биллингового бэкенда, шлюз доступа, сервисы и HTTP-сервер.
package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/copcca/entitlement-service/internal/cache"
	"github.com/copcca/entitlement-service/internal/config"
	"github.com/copcca/entitlement-service/internal/entitlementapi"
	"github.com/copcca/entitlement-service/internal/gate"
	"github.com/copcca/entitlement-service/internal/lib/jwt"
	"github.com/copcca/entitlement-service/internal/lib/sl"
	"github.com/copcca/entitlement-service/internal/migrations"
	"github.com/copcca/entitlement-service/internal/rabbitmq"
	lifecycleservice "github.com/copcca/entitlement-service/internal/services/lifecycle"
	paymentservice "github.com/copcca/entitlement-service/internal/services/payment"
	usageservice "github.com/copcca/entitlement-service/internal/services/usage"
	"github.com/copcca/entitlement-service/internal/storage"
)

// App представляет основное приложение сервиса.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New создает приложение: подключает зависимости и регистрирует маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	backend := entitlementapi.NewClient(
		cfg.EntitlementBackend.BaseURL,
		cfg.EntitlementBackend.BearerToken,
		cfg.Gate.StatusTimeout,
		cfg.Gate.TeamSizeTimeout,
	)

	evaluator := gate.NewEvaluator(backend, cacheRedis, logger,
		cfg.Gate.Enabled, cfg.Gate.EvaluationBudget, cfg.Gate.OutcomeCacheTTL)

	// Подтверждённые платежи публикуются в очередь уведомлений. Недоступный
	// брокер не мешает старту: сервис работает без уведомлений.
	var notifier paymentservice.Notifier
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	var ch *amqp.Channel
	if err != nil {
		logger.Warn("rabbitmq unavailable, notifications disabled", sl.Err(err))
		conn = nil
	} else {
		ch, err = rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			logger.Warn("failed to setup rabbitmq channel, notifications disabled", sl.Err(err))
		} else {
			notifier = rabbitmq.NewPublisher(ch)
		}
	}

	lifecycleService := lifecycleservice.New(db, logger)
	usageService := usageservice.New(db, db, logger)
	paymentService := paymentservice.New(backend, db, db, lifecycleService, evaluator, notifier, logger)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &Services{
		Gate:       evaluator,
		GateConfig: cfg.Gate,
		Lifecycle:  lifecycleService,
		Usage:      usageService,
		Payment:    paymentService,
		DB:         db,
		JWT:        jwtMaker,
		Secret:     cfg.WebhookSecret,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.ch != nil {
			_ = a.ch.Close()
		}
		if a.conn != nil {
			_ = a.conn.Close()
		}
		_ = a.db.DB.Close()
		return err
	}
}
