// Package scheduler содержит фоновый процесс истечения пробных периодов.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/copcca/entitlement-service/internal/lib/sl"
	"github.com/copcca/entitlement-service/internal/rabbitmq"
	"github.com/copcca/entitlement-service/internal/storage"
	"github.com/streadway/amqp"
)

// TrialExpirer переводит просроченные пробные подписки в expired.
type TrialExpirer interface {
	ProcessTrialExpirations(ctx context.Context) ([]*storage.ExpiredTrial, error)
}

// GateRefresher сбрасывает закэшированное решение шлюза доступа арендатора.
type GateRefresher interface {
	Refresh(tenantID string)
}

// SchedulerService периодически истекает просроченные пробные периоды
// и публикует уведомления затронутым арендаторам.
type SchedulerService struct {
	expirer  TrialExpirer
	gate     GateRefresher
	interval time.Duration
	log      *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(expirer TrialExpirer, gate GateRefresher, interval time.Duration, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		expirer:  expirer,
		gate:     gate,
		interval: interval,
		log:      log,
	}
}

// ExpireOverdueTrials запускает цикл истечения пробных периодов: первый
// проход сразу, далее по тикеру. Завершается при отмене контекста.
func (s *SchedulerService) ExpireOverdueTrials(ctx context.Context, channel *amqp.Channel) {
	s.runExpireOverdueTrials(ctx, channel)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runExpireOverdueTrials(ctx, channel)
		}
	}
}

func (s *SchedulerService) runExpireOverdueTrials(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting trial expiration pass")
	expired, err := s.expirer.ProcessTrialExpirations(ctx)
	if err != nil {
		s.log.Error("failed to expire overdue trials", sl.Err(err))
		return
	}
	if len(expired) == 0 {
		s.log.Info("no overdue trials found")
		return
	}
	s.log.Info("expired overdue trials", "count", len(expired))
	for _, trial := range expired {
		s.gate.Refresh(trial.TenantID)
		err = rabbitmq.PublishMessage(channel, rabbitmq.NotificationExchange, "trial_expired", trial)
		if err != nil {
			s.log.Error("failed to publish message", sl.Err(err))
		}
	}
}
