package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/copcca/entitlement-service/internal/entitlementapi"
	"github.com/copcca/entitlement-service/internal/lib/sl"
	"github.com/copcca/entitlement-service/internal/metrics"
)

// StatusFetcher описывает удалённые вызовы, нужные шлюзу.
type StatusFetcher interface {
	// FetchStatus возвращает состояние подписки арендатора в пределах бюджета времени.
	FetchStatus(ctx context.Context, adminEmail string) (*entitlementapi.StatusPayload, error)
	// FetchTeamSize возвращает размер команды, деградируя в 1 при любом сбое.
	FetchTeamSize(ctx context.Context, teamID string) int
	// Initialize регистрирует подписку в бэкенде, вызывается fire-and-forget.
	Initialize(ctx context.Context, req entitlementapi.InitializeRequest) error
}

// OutcomeCache кэширует исход последней админской проверки по арендатору,
// чтобы сессии участников показывали предупреждение без собственного запроса.
type OutcomeCache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Session описывает сессию арендатора, для которой оценивается доступ.
type Session struct {
	TenantID   string
	AdminEmail string
	AdminName  string
	TeamID     string
	IsAdmin    bool
}

// cachedOutcome — сохранённый для участников исход админской проверки.
type cachedOutcome struct {
	RequiresPayment bool `json:"requires_payment"`
}

// tenantGate хранит состояние оценок по одному арендатору.
type tenantGate struct {
	gen  uint64    // Номер последней начатой проверки
	last *Decision // Последнее применённое решение
}

// Evaluator управляет оценкой шлюза: бюджет времени, порядок проверок
// и кэширование исхода для сессий участников.
//
// Гарантия порядка: авторитетна только последняя начатая проверка арендатора.
// Проверка, начатая раньше, но завершившаяся позже, не может затереть более
// свежее решение — её результат отбрасывается по номеру поколения.
type Evaluator struct {
	fetcher StatusFetcher
	cache   OutcomeCache
	log     *slog.Logger

	enabled  bool
	budget   time.Duration // Общий бюджет оценки
	cacheTTL time.Duration

	mu      sync.Mutex
	tenants map[string]*tenantGate
}

// NewEvaluator создаёт Evaluator. enabled=false полностью отключает проверку:
// любая оценка даёт allow без единого сетевого вызова.
func NewEvaluator(fetcher StatusFetcher, cache OutcomeCache, log *slog.Logger,
	enabled bool, budget, cacheTTL time.Duration) *Evaluator {
	return &Evaluator{
		fetcher:  fetcher,
		cache:    cache,
		log:      log,
		enabled:  enabled,
		budget:   budget,
		cacheTTL: cacheTTL,
		tenants:  map[string]*tenantGate{},
	}
}

func outcomeCacheKey(tenantID string) string {
	return fmt.Sprintf("gate:outcome:%s", tenantID)
}

// Evaluate оценивает доступ для сессии.
//
// Сессии участников не выполняют запрос статуса: условие предупреждения берётся
// из кэшированного исхода последней админской проверки арендатора. Админская
// оценка выполняет проверку с общим бюджетом времени; по его истечении исход
// трактуется как таймаут, при этом сам запрос не прерывается принудительно —
// внешний таймер лишь меняет то, что сообщается интерфейсу.
func (e *Evaluator) Evaluate(ctx context.Context, sess Session) Decision {
	const op = "gate.Evaluate"
	log := e.log.With(slog.String("op", op), slog.String("tenant_id", sess.TenantID))

	if !e.enabled {
		return e.count(Decide(sess.IsAdmin, Outcome{Kind: OutcomeDisabled}))
	}

	if !sess.IsAdmin {
		return e.count(e.evaluateMember(sess))
	}

	gen := e.begin(sess.TenantID)

	type fetchResult struct {
		status *entitlementapi.StatusPayload
		err    error
	}
	resultCh := make(chan fetchResult, 1)
	go func() {
		status, err := e.fetcher.FetchStatus(ctx, sess.AdminEmail)
		resultCh <- fetchResult{status: status, err: err}
	}()

	timer := time.NewTimer(e.budget)
	defer timer.Stop()

	var outcome Outcome
	select {
	case res := <-resultCh:
		outcome = e.classify(log, res.status, res.err)
	case <-timer.C:
		log.Warn("gate evaluation budget exceeded, allowing access")
		outcome = Outcome{Kind: OutcomeTimeout}
	case <-ctx.Done():
		log.Warn("gate evaluation cancelled", sl.Err(ctx.Err()))
		outcome = Outcome{Kind: OutcomeError}
	}

	decision := Decide(true, outcome)
	if outcome.Kind == OutcomeSuccess {
		decision.TeamSize = e.fetcher.FetchTeamSize(ctx, sess.TeamID)
		e.rememberOutcome(log, sess.TenantID, outcome.Status)
		if !outcome.Status.HasSubscription {
			e.initialize(sess, decision.TeamSize)
		}
	}

	return e.publish(log, sess.TenantID, gen, decision)
}

// Refresh сбрасывает кэшированный исход арендатора, следующая оценка
// выполнит свежую проверку. Вызывается после подтверждения платежа
// и админских мутаций.
func (e *Evaluator) Refresh(tenantID string) {
	if err := e.cache.Invalidate(outcomeCacheKey(tenantID)); err != nil {
		e.log.Warn("failed to invalidate gate outcome cache",
			slog.String("tenant_id", tenantID), sl.Err(err))
	}
}

func (e *Evaluator) evaluateMember(sess Session) Decision {
	var cached cachedOutcome
	found, err := e.cache.Get(outcomeCacheKey(sess.TenantID), &cached)
	if err != nil || !found {
		return Decision{Mode: ModeAllow, Reason: "no subscription check on record"}
	}
	if cached.RequiresPayment {
		return Decide(false, Outcome{Kind: OutcomeSuccess,
			Status: &entitlementapi.StatusPayload{HasSubscription: false}})
	}
	return Decision{Mode: ModeAllow, Reason: "subscription in good standing"}
}

func (e *Evaluator) classify(log *slog.Logger, status *entitlementapi.StatusPayload, err error) Outcome {
	switch {
	case err == nil:
		return Outcome{Kind: OutcomeSuccess, Status: status}
	case errors.Is(err, entitlementapi.ErrTimeout):
		log.Warn("subscription status check timed out, allowing access", sl.Err(err))
		return Outcome{Kind: OutcomeTimeout}
	default:
		log.Warn("subscription status check failed, allowing access", sl.Err(err))
		return Outcome{Kind: OutcomeError}
	}
}

// begin регистрирует начало новой проверки и возвращает её номер поколения.
func (e *Evaluator) begin(tenantID string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.tenants[tenantID]
	if !ok {
		st = &tenantGate{}
		e.tenants[tenantID] = st
	}
	st.gen++
	return st.gen
}

// publish применяет решение, если проверка всё ещё последняя по счёту.
// Устаревшая проверка отбрасывает свой результат и возвращает решение
// более свежей — запоздавшая запись не затирает актуальное состояние.
func (e *Evaluator) publish(log *slog.Logger, tenantID string, gen uint64, d Decision) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.tenants[tenantID]
	if st.gen != gen {
		if st.last != nil {
			log.Info("discarding stale gate decision",
				slog.Uint64("gen", gen), slog.Uint64("current", st.gen))
			return *st.last
		}
		return d
	}
	st.last = &d
	return e.count(d)
}

func (e *Evaluator) count(d Decision) Decision {
	metrics.GateDecisions.WithLabelValues(string(d.Mode)).Inc()
	if d.Degraded {
		metrics.GateDegradedAllows.Inc()
	}
	return d
}

// rememberOutcome кэширует условие предупреждения для сессий участников.
func (e *Evaluator) rememberOutcome(log *slog.Logger, tenantID string, status *entitlementapi.StatusPayload) {
	err := e.cache.Set(outcomeCacheKey(tenantID),
		cachedOutcome{RequiresPayment: RequiresPayment(status)}, e.cacheTTL)
	if err != nil {
		log.Warn("failed to cache gate outcome", sl.Err(err))
	}
}

// initialize выполняет fire-and-forget регистрацию подписки.
// Решение шлюза не ждёт завершения, ошибки только логируются.
func (e *Evaluator) initialize(sess Session, teamSize int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := e.fetcher.Initialize(ctx, entitlementapi.InitializeRequest{
			AdminEmail: sess.AdminEmail,
			AdminName:  sess.AdminName,
			TotalUsers: teamSize,
		})
		if err != nil {
			e.log.Warn("failed to initialize subscription",
				slog.String("tenant_id", sess.TenantID), sl.Err(err))
		}
	}()
}
