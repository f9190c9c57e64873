// Package lifecycle реализует машину состояний подписки арендатора
// и операции административной панели управления.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/copcca/entitlement-service/internal/metrics"
	"github.com/copcca/entitlement-service/internal/models"
	"github.com/copcca/entitlement-service/internal/storage"
)

// ErrIllegalTransition возвращается при запрещённом переходе статуса.
var ErrIllegalTransition = errors.New("illegal subscription status transition")

// transitions — таблица допустимых переходов статуса.
// Приостановка не меняет биллинговые даты и обратима только в active
// или cancelled; из терминальных cancelled/expired возможна реактивация.
var transitions = map[models.SubscriptionStatus][]models.SubscriptionStatus{
	models.StatusTrial:     {models.StatusActive, models.StatusExpired, models.StatusCancelled, models.StatusSuspended},
	models.StatusActive:    {models.StatusPastDue, models.StatusCancelled, models.StatusSuspended, models.StatusExpired},
	models.StatusPastDue:   {models.StatusActive, models.StatusCancelled, models.StatusSuspended, models.StatusExpired},
	models.StatusSuspended: {models.StatusActive, models.StatusCancelled},
	models.StatusCancelled: {models.StatusActive},
	models.StatusExpired:   {models.StatusActive},
}

// CanTransition сообщает, допустим ли переход из from в to.
// Переход в тот же статус трактуется как no-op и разрешён.
func CanTransition(from, to models.SubscriptionStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// SubscriptionRepository определяет методы хранилища, нужные жизненному циклу.
type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, sub models.Subscription) (string, error)
	GetSubscriptionByTenant(ctx context.Context, tenantID string) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, limit, offset int) ([]*models.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, tenantID string, status models.SubscriptionStatus) (int, error)
	ActivateSubscription(ctx context.Context, tenantID string, periodStart, periodEnd time.Time, paymentMethod string, amount int64) (int, error)
	UpdateSubscriptionPlan(ctx context.Context, tenantID, planID string) (int, error)
	SetCancelAtPeriodEnd(ctx context.Context, tenantID string, cancel bool) (int, error)
	ExpireOverdueTrials(ctx context.Context) ([]*storage.ExpiredTrial, error)
	GetPlan(ctx context.Context, planID string) (*models.Plan, error)
}

// Service реализует операции жизненного цикла подписки.
type Service struct {
	repo SubscriptionRepository
	log  *slog.Logger
}

// New создает новый Service.
func New(repo SubscriptionRepository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// CreateTrial создаёт подписку арендатора в статусе trial.
// trial_end вычисляется из trial_days выбранного плана.
func (s *Service) CreateTrial(ctx context.Context, tenantID, adminEmail, planID string) (string, error) {
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return "", err
	}

	now := time.Now()
	trialEnd := now.AddDate(0, 0, plan.TrialDays)
	id, err := s.repo.CreateSubscription(ctx, models.Subscription{
		TenantID:   tenantID,
		AdminEmail: adminEmail,
		PlanID:     plan.ID,
		Status:     models.StatusTrial,
		TrialStart: &now,
		TrialEnd:   &trialEnd,
		Currency:   plan.Currency,
	})
	if err != nil {
		return "", err
	}

	s.log.Info("created trial subscription",
		slog.String("tenant_id", tenantID), slog.String("plan_id", plan.ID))
	return id, nil
}

// Read возвращает подписку арендатора.
func (s *Service) Read(ctx context.Context, tenantID string) (*models.Subscription, error) {
	return s.repo.GetSubscriptionByTenant(ctx, tenantID)
}

// Plan возвращает тарифный план по идентификатору.
func (s *Service) Plan(ctx context.Context, planID string) (*models.Plan, error) {
	return s.repo.GetPlan(ctx, planID)
}

// List возвращает все подписки с пагинацией.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.Subscription, error) {
	return s.repo.ListSubscriptions(ctx, limit, offset)
}

// Activate переводит подписку в active на periodDays дней, заполняя
// периодные и платёжные поля. Вызывается при подтверждённом платеже
// (годовой период) и при ручном продлении оператором (месячный период).
func (s *Service) Activate(ctx context.Context, tenantID, paymentMethod string, amount int64, periodDays int) error {
	sub, err := s.repo.GetSubscriptionByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if !CanTransition(sub.Status, models.StatusActive) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, sub.Status, models.StatusActive)
	}

	now := time.Now()
	_, err = s.repo.ActivateSubscription(ctx, tenantID, now, now.AddDate(0, 0, periodDays), paymentMethod, amount)
	if err != nil {
		return err
	}
	s.log.Info("activated subscription",
		slog.String("tenant_id", tenantID), slog.Int("period_days", periodDays))
	return nil
}

// Renew продлевает подписку оператором на 30 дней без платежа через
// процессинг. Сумма берётся из последнего платежа подписки.
func (s *Service) Renew(ctx context.Context, tenantID string) error {
	sub, err := s.repo.GetSubscriptionByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	return s.Activate(ctx, tenantID, "manual", sub.Amount, 30)
}

// Suspend блокирует доступ арендатора вручную. Биллинговые даты не меняются.
func (s *Service) Suspend(ctx context.Context, tenantID string) error {
	return s.transition(ctx, tenantID, models.StatusSuspended, false)
}

// Unsuspend снимает ручную блокировку, возвращая подписку в active.
func (s *Service) Unsuspend(ctx context.Context, tenantID string) error {
	return s.transition(ctx, tenantID, models.StatusActive, false)
}

// OverrideStatus устанавливает статус подписки по запросу оператора.
// Переход проверяется по таблице; force обходит проверку, сохраняя
// разрешительное поведение исходной системы, и фиксируется в логе.
func (s *Service) OverrideStatus(ctx context.Context, tenantID string, target models.SubscriptionStatus, force bool) error {
	if !target.Valid() {
		return fmt.Errorf("unknown subscription status: %s", target)
	}
	return s.transition(ctx, tenantID, target, force)
}

func (s *Service) transition(ctx context.Context, tenantID string, target models.SubscriptionStatus, force bool) error {
	sub, err := s.repo.GetSubscriptionByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if !CanTransition(sub.Status, target) {
		if !force {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, sub.Status, target)
		}
		s.log.Warn("forcing illegal status transition",
			slog.String("tenant_id", tenantID),
			slog.String("from", string(sub.Status)), slog.String("to", string(target)))
	}

	if _, err := s.repo.UpdateSubscriptionStatus(ctx, tenantID, target); err != nil {
		return err
	}
	s.log.Info("subscription status changed",
		slog.String("tenant_id", tenantID),
		slog.String("from", string(sub.Status)), slog.String("to", string(target)))
	return nil
}

// ChangePlan меняет тарифный план подписки. Текущее потребление против
// лимитов нового плана намеренно не перепроверяется: квоты рекомендательные.
func (s *Service) ChangePlan(ctx context.Context, tenantID, planID string) error {
	if _, err := s.repo.GetPlan(ctx, planID); err != nil {
		return err
	}
	affected, err := s.repo.UpdateSubscriptionPlan(ctx, tenantID, planID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	s.log.Info("subscription plan changed",
		slog.String("tenant_id", tenantID), slog.String("plan_id", planID))
	return nil
}

// CancelAtPeriodEnd помечает подписку к отмене по окончании оплаченного периода.
func (s *Service) CancelAtPeriodEnd(ctx context.Context, tenantID string, cancel bool) error {
	affected, err := s.repo.SetCancelAtPeriodEnd(ctx, tenantID, cancel)
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ProcessTrialExpirations переводит просроченные пробные подписки в expired
// и возвращает затронутых арендаторов. Повторный запуск идемпотентен.
func (s *Service) ProcessTrialExpirations(ctx context.Context) ([]*storage.ExpiredTrial, error) {
	expired, err := s.repo.ExpireOverdueTrials(ctx)
	if err != nil {
		return nil, err
	}
	if len(expired) > 0 {
		s.log.Info("expired trial subscriptions", slog.Int("count", len(expired)))
		metrics.TrialExpirations.Add(float64(len(expired)))
	}
	return expired, nil
}
