// Package gate реализует шлюз доступа: решение о том, доступно ли приложение
// для сессии арендатора — полностью, с предупреждением или через пейволл.
//
// Решение принимается по принципу fail-open: при таймауте или ошибке проверки
// доступ разрешается, деградация фиксируется в логах и метриках, но никогда
// не показывается пользователю как ошибка.
package gate

import "github.com/copcca/entitlement-service/internal/entitlementapi"

// Mode — трёхзначный исход шлюза, видимый интерфейсу.
type Mode string

const (
	// ModeAllow — доступ без вмешательства.
	ModeAllow Mode = "allow"
	// ModeBanner — контент полностью доступен, показывается постоянное предупреждение.
	ModeBanner Mode = "banner"
	// ModeBlocked — полноэкранный пейволл; контент остаётся смонтированным,
	// но перекрыт и неинтерактивен, данные при снятии блокировки не теряются.
	ModeBlocked Mode = "blocked"
)

// OutcomeKind классифицирует исход удалённой проверки статуса.
type OutcomeKind string

const (
	// OutcomeSuccess — статус получен.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeError — транспортная ошибка или не-2xx ответ.
	OutcomeError OutcomeKind = "error"
	// OutcomeTimeout — бюджет времени исчерпан.
	OutcomeTimeout OutcomeKind = "timeout"
	// OutcomeDisabled — проверка отключена конфигурацией.
	OutcomeDisabled OutcomeKind = "disabled"
)

// Outcome — исход удалённой проверки, вход чистой функции решения.
type Outcome struct {
	Kind   OutcomeKind
	Status *entitlementapi.StatusPayload // Заполнен только при OutcomeSuccess
}

// Decision — эфемерный результат шлюза. Никогда не сохраняется, пересчитывается
// при каждом изменении статуса, роли или исхода проверки.
type Decision struct {
	Mode     Mode   `json:"mode"`
	Reason   string `json:"reason"`
	Degraded bool   `json:"degraded"`  // Различает fail-open allow и чистый allow
	TeamSize int    `json:"team_size"` // Размер команды для расчёта стоимости
}

// RequiresPayment сообщает, требует ли полученный статус оплаты.
func RequiresPayment(status *entitlementapi.StatusPayload) bool {
	if status == nil {
		return true
	}
	return !status.HasSubscription ||
		status.PaymentStatus == "unpaid" ||
		status.SubscriptionStatus == "expired" ||
		status.SubscriptionStatus == "pending"
}

// Decide — чистая функция решения шлюза.
//
// Отключённый шлюз и любой неуспех проверки дают allow; при требуемой оплате
// администратор получает пейволл, остальные роли — предупреждение.
func Decide(roleIsAdmin bool, outcome Outcome) Decision {
	switch outcome.Kind {
	case OutcomeDisabled:
		return Decision{Mode: ModeAllow, Reason: "subscription check disabled"}
	case OutcomeError:
		return Decision{Mode: ModeAllow, Reason: "subscription check failed, allowing access", Degraded: true}
	case OutcomeTimeout:
		return Decision{Mode: ModeAllow, Reason: "subscription check timed out, allowing access", Degraded: true}
	}

	if !RequiresPayment(outcome.Status) {
		return Decision{Mode: ModeAllow, Reason: "subscription in good standing"}
	}
	if roleIsAdmin {
		return Decision{Mode: ModeBlocked, Reason: "payment required"}
	}
	return Decision{Mode: ModeBanner, Reason: "subscription pending, contact your admin"}
}
