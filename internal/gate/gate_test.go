package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/copcca/entitlement-service/internal/entitlementapi"
)

func TestRequiresPayment(t *testing.T) {
	tests := []struct {
		name   string
		status *entitlementapi.StatusPayload
		want   bool
	}{
		{
			name:   "nil статус требует оплаты",
			status: nil,
			want:   true,
		},
		{
			name:   "нет подписки",
			status: &entitlementapi.StatusPayload{HasSubscription: false, PaymentStatus: "paid", SubscriptionStatus: "active"},
			want:   true,
		},
		{
			name:   "подписка не оплачена",
			status: &entitlementapi.StatusPayload{HasSubscription: true, PaymentStatus: "unpaid", SubscriptionStatus: "active"},
			want:   true,
		},
		{
			name:   "подписка истекла",
			status: &entitlementapi.StatusPayload{HasSubscription: true, PaymentStatus: "paid", SubscriptionStatus: "expired"},
			want:   true,
		},
		{
			name:   "подписка в ожидании",
			status: &entitlementapi.StatusPayload{HasSubscription: true, PaymentStatus: "paid", SubscriptionStatus: "pending"},
			want:   true,
		},
		{
			name:   "оплаченная активная подписка",
			status: &entitlementapi.StatusPayload{HasSubscription: true, PaymentStatus: "paid", SubscriptionStatus: "active"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresPayment(tt.status))
		})
	}
}

func TestDecide(t *testing.T) {
	unpaid := &entitlementapi.StatusPayload{HasSubscription: false}
	paid := &entitlementapi.StatusPayload{HasSubscription: true, PaymentStatus: "paid", SubscriptionStatus: "active"}

	tests := []struct {
		name         string
		isAdmin      bool
		outcome      Outcome
		wantMode     Mode
		wantDegraded bool
	}{
		{
			name:     "шлюз отключен - доступ открыт",
			isAdmin:  true,
			outcome:  Outcome{Kind: OutcomeDisabled},
			wantMode: ModeAllow,
		},
		{
			name:         "ошибка проверки - fail-open",
			isAdmin:      true,
			outcome:      Outcome{Kind: OutcomeError},
			wantMode:     ModeAllow,
			wantDegraded: true,
		},
		{
			name:         "таймаут проверки - fail-open",
			isAdmin:      true,
			outcome:      Outcome{Kind: OutcomeTimeout},
			wantMode:     ModeAllow,
			wantDegraded: true,
		},
		{
			name:         "таймаут для участника - fail-open",
			isAdmin:      false,
			outcome:      Outcome{Kind: OutcomeTimeout},
			wantMode:     ModeAllow,
			wantDegraded: true,
		},
		{
			name:     "оплата требуется - админ получает пейволл",
			isAdmin:  true,
			outcome:  Outcome{Kind: OutcomeSuccess, Status: unpaid},
			wantMode: ModeBlocked,
		},
		{
			name:     "оплата требуется - участник видит предупреждение",
			isAdmin:  false,
			outcome:  Outcome{Kind: OutcomeSuccess, Status: unpaid},
			wantMode: ModeBanner,
		},
		{
			name:     "подписка в порядке - доступ открыт",
			isAdmin:  true,
			outcome:  Outcome{Kind: OutcomeSuccess, Status: paid},
			wantMode: ModeAllow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.isAdmin, tt.outcome)
			assert.Equal(t, tt.wantMode, got.Mode)
			assert.Equal(t, tt.wantDegraded, got.Degraded)
			assert.NotEmpty(t, got.Reason)
		})
	}
}
