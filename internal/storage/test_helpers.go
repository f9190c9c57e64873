package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/copcca/entitlement-service/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreatePlan создает тестовый тарифный план
func (f *TestDataFactory) CreatePlan(t *testing.T, id string, priceMonthly int64, maxUsers int, features []string) {
	if features == nil {
		features = []string{}
	}
	_, err := f.storage.DB.Exec(`INSERT INTO subscription_plans
		(id, display_name, price_monthly, price_yearly, max_users, features)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, id, priceMonthly, priceMonthly*12, maxUsers, features)
	require.NoError(t, err)
}

// CreateTrialSubscription создает пробную подписку арендатора и возвращает её ID
func (f *TestDataFactory) CreateTrialSubscription(t *testing.T, tenantID, adminEmail, planID string, trialEnd time.Time) string {
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO tenant_subscriptions
		(tenant_id, admin_email, plan_id, status, trial_start, trial_end)
		VALUES ($1, $2, $3, 'trial', NOW(), $4) RETURNING id`,
		tenantID, adminEmail, planID, trialEnd).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreatePendingIntent создает платёжное намерение в статусе pending
func (f *TestDataFactory) CreatePendingIntent(t *testing.T, tenantID string, amount int64) string {
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO payment_intents
		(tenant_id, amount, method, status)
		VALUES ($1, $2, 'mobile_money', 'pending') RETURNING id`,
		tenantID, amount).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateDomainRows наполняет таблицы смежных доменов CRM для подсчёта потребления
func (f *TestDataFactory) CreateDomainRows(t *testing.T, tenantID string, users, products, invoices, posLocations int) {
	insert := func(table string, n int) {
		for range n {
			_, err := f.storage.DB.Exec(
				`INSERT INTO `+table+` (tenant_id) VALUES ($1)`, tenantID)
			require.NoError(t, err)
		}
	}
	insert("users", users)
	insert("products", products)
	insert("invoices", invoices)
	insert("pos_locations", posLocations)
}

// GetTestSubscriptionData возвращает стандартные тестовые данные подписки
func GetTestSubscriptionData(planID string) models.Subscription {
	return models.Subscription{
		TenantID:   uuid.New().String(),
		AdminEmail: "admin@example.com",
		PlanID:     planID,
		Status:     models.StatusTrial,
		Currency:   "TZS",
	}
}
