// Package usage собирает сводку потребления арендатора против лимитов
// его тарифного плана. Квоты рекомендательные: сервис лишь сообщает
// текущее и предельное значение, ничего не блокируя.
package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/copcca/entitlement-service/internal/models"
	"github.com/copcca/entitlement-service/internal/storage"
)

// nearLimitThreshold — доля лимита, после которой ресурс считается
// близким к исчерпанию.
const nearLimitThreshold = 0.8

// Provider отдаёт текущее количество сущностей ресурса у арендатора.
type Provider interface {
	Count(ctx context.Context, tenantID string, resource models.Resource) (int, error)
}

// PlanResolver находит план действующей подписки арендатора.
type PlanResolver interface {
	GetSubscriptionByTenant(ctx context.Context, tenantID string) (*models.Subscription, error)
	GetPlan(ctx context.Context, planID string) (*models.Plan, error)
}

// Service считает сводку потребления.
type Service struct {
	provider Provider
	plans    PlanResolver
	log      *slog.Logger
}

// New создает новый Service.
func New(provider Provider, plans PlanResolver, log *slog.Logger) *Service {
	return &Service{
		provider: provider,
		plans:    plans,
		log:      log,
	}
}

// Snapshot возвращает потребление по всем учитываемым ресурсам.
// Счётчики снимаются конкурентно; лимит -1 означает безлимит и
// не участвует в расчёте NearLimit. Для арендатора без подписки
// лимиты отдаются нулевыми.
func (s *Service) Snapshot(ctx context.Context, tenantID string) (*models.UsageSnapshot, error) {
	var plan *models.Plan
	sub, err := s.plans.GetSubscriptionByTenant(ctx, tenantID)
	switch {
	case err == nil:
		plan, err = s.plans.GetPlan(ctx, sub.PlanID)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, storage.ErrNotFound):
		// без подписки сводка остаётся информативной, лимиты нулевые
	default:
		return nil, err
	}

	counts := make(map[models.Resource]int, len(models.MeteredResources))
	countErrs := make(map[models.Resource]error, len(models.MeteredResources))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, resource := range models.MeteredResources {
		wg.Add(1)
		go func(resource models.Resource) {
			defer wg.Done()
			n, err := s.provider.Count(ctx, tenantID, resource)
			mu.Lock()
			counts[resource] = n
			countErrs[resource] = err
			mu.Unlock()
		}(resource)
	}
	wg.Wait()

	for _, resource := range models.MeteredResources {
		if err := countErrs[resource]; err != nil {
			return nil, fmt.Errorf("count %s: %w", resource, err)
		}
	}

	snapshot := &models.UsageSnapshot{
		Users:             s.resourceUsage(plan, models.ResourceUsers, counts),
		Products:          s.resourceUsage(plan, models.ResourceProducts, counts),
		InvoicesThisMonth: s.resourceUsage(plan, models.ResourceInvoices, counts),
		POSLocations:      s.resourceUsage(plan, models.ResourcePOSLocations, counts),
	}
	snapshot.NearLimit = nearLimit(snapshot)
	return snapshot, nil
}

func (s *Service) resourceUsage(plan *models.Plan, resource models.Resource, counts map[models.Resource]int) models.ResourceUsage {
	usage := models.ResourceUsage{Current: counts[resource]}
	if plan != nil {
		usage.Limit = plan.LimitFor(resource)
	}
	return usage
}

func nearLimit(snapshot *models.UsageSnapshot) bool {
	for _, usage := range []models.ResourceUsage{
		snapshot.Users,
		snapshot.Products,
		snapshot.InvoicesThisMonth,
		snapshot.POSLocations,
	} {
		if usage.Limit == models.UnlimitedQuota || usage.Limit <= 0 {
			continue
		}
		if float64(usage.Current) >= nearLimitThreshold*float64(usage.Limit) {
			return true
		}
	}
	return false
}
