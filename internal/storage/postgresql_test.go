package storage

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/copcca/entitlement-service/internal/models"
)

func setupTestDb(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort(nat.Port("5432/tcp")),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(3*time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	var storage *Storage
	for i := 0; i < 10; i++ {
		storage, err = New(connStr)
		if err == nil && storage.Ping() == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	_, err = storage.DB.Exec(`
		CREATE EXTENSION IF NOT EXISTS "pgcrypto";

		CREATE TABLE subscription_plans (
			id                   TEXT PRIMARY KEY,
			display_name         TEXT NOT NULL,
			price_monthly        BIGINT NOT NULL,
			price_yearly         BIGINT NOT NULL,
			currency             TEXT NOT NULL DEFAULT 'TZS',
			max_users            INT NOT NULL DEFAULT -1,
			max_products         INT NOT NULL DEFAULT -1,
			max_invoices_monthly INT NOT NULL DEFAULT -1,
			max_pos_locations    INT NOT NULL DEFAULT -1,
			features             TEXT[] NOT NULL DEFAULT '{}',
			trial_days           INT NOT NULL DEFAULT 14,
			is_active            BOOLEAN NOT NULL DEFAULT TRUE
		);

		CREATE TABLE tenant_subscriptions (
			id                   UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id            UUID NOT NULL UNIQUE,
			admin_email          TEXT NOT NULL,
			plan_id              TEXT NOT NULL REFERENCES subscription_plans (id),
			status               TEXT NOT NULL DEFAULT 'trial',
			trial_start          TIMESTAMPTZ,
			trial_end            TIMESTAMPTZ,
			current_period_start TIMESTAMPTZ,
			current_period_end   TIMESTAMPTZ,
			cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
			cancelled_at         TIMESTAMPTZ,
			payment_method       TEXT,
			last_payment_date    TIMESTAMPTZ,
			next_payment_date    TIMESTAMPTZ,
			amount               BIGINT NOT NULL DEFAULT 0,
			currency             TEXT NOT NULL DEFAULT 'TZS',
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE payment_intents (
			id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id      UUID NOT NULL,
			amount         BIGINT NOT NULL,
			currency       TEXT NOT NULL DEFAULT 'TZS',
			method         TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'pending',
			transaction_id TEXT,
			message        TEXT,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE users (id SERIAL PRIMARY KEY, tenant_id UUID NOT NULL);
		CREATE TABLE products (id SERIAL PRIMARY KEY, tenant_id UUID NOT NULL);
		CREATE TABLE invoices (id SERIAL PRIMARY KEY, tenant_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW());
		CREATE TABLE pos_locations (id SERIAL PRIMARY KEY, tenant_id UUID NOT NULL);
	`)
	require.NoError(t, err, "failed to create schema")

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		_ = pgContainer.Terminate(ctx)
	}

	return storage, cleanup
}

func TestStorage_SubscriptionRoundtrip(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	factory.CreatePlan(t, "starter", 30000, 5, []string{"invoices"})

	sub := GetTestSubscriptionData("starter")
	trialEnd := time.Now().AddDate(0, 0, 14)
	sub.TrialEnd = &trialEnd

	ctx := context.Background()
	id, err := storage.CreateSubscription(ctx, sub)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := storage.GetSubscriptionByTenant(ctx, sub.TenantID)
	require.NoError(t, err)
	assert.Equal(t, sub.TenantID, got.TenantID)
	assert.Equal(t, models.StatusTrial, got.Status)
	require.NotNil(t, got.TrialEnd)
	assert.WithinDuration(t, trialEnd, *got.TrialEnd, time.Second)

	_, err = storage.GetSubscriptionByTenant(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)

	// у арендатора ровно одна запись подписки
	_, err = storage.CreateSubscription(ctx, sub)
	assert.ErrorIs(t, err, ErrExists)
}

func TestStorage_UpdateSubscriptionStatus(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	factory.CreatePlan(t, "starter", 30000, 5, nil)
	tenantID := uuid.New().String()
	factory.CreateTrialSubscription(t, tenantID, "admin@example.com", "starter", time.Now().AddDate(0, 0, 14))

	ctx := context.Background()
	affected, err := storage.UpdateSubscriptionStatus(ctx, tenantID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	got, err := storage.GetSubscriptionByTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.NotNil(t, got.CancelledAt, "cancellation must record its timestamp")

	affected, err = storage.UpdateSubscriptionStatus(ctx, uuid.New().String(), models.StatusActive)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestStorage_ActivateSubscription(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	factory.CreatePlan(t, "starter", 30000, 5, nil)
	tenantID := uuid.New().String()
	factory.CreateTrialSubscription(t, tenantID, "admin@example.com", "starter", time.Now().AddDate(0, 0, 14))

	ctx := context.Background()
	periodStart := time.Now()
	periodEnd := periodStart.AddDate(0, 0, 365)
	affected, err := storage.ActivateSubscription(ctx, tenantID, periodStart, periodEnd, "mobile_money", 1800000)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	got, err := storage.GetSubscriptionByTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Equal(t, int64(1800000), got.Amount)
	assert.Equal(t, "mobile_money", got.PaymentMethod)
	require.NotNil(t, got.CurrentPeriodEnd)
	assert.WithinDuration(t, periodEnd, *got.CurrentPeriodEnd, time.Second)
	require.NotNil(t, got.NextPaymentDate)
	assert.WithinDuration(t, periodEnd, *got.NextPaymentDate, time.Second)
}

func TestStorage_ExpireOverdueTrials(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	factory.CreatePlan(t, "starter", 30000, 5, nil)

	overdueA := uuid.New().String()
	overdueB := uuid.New().String()
	current := uuid.New().String()
	factory.CreateTrialSubscription(t, overdueA, "a@example.com", "starter", time.Now().AddDate(0, 0, -1))
	factory.CreateTrialSubscription(t, overdueB, "b@example.com", "starter", time.Now().Add(-time.Hour))
	factory.CreateTrialSubscription(t, current, "c@example.com", "starter", time.Now().AddDate(0, 0, 7))

	ctx := context.Background()
	expired, err := storage.ExpireOverdueTrials(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 2)

	tenants := []string{expired[0].TenantID, expired[1].TenantID}
	assert.Contains(t, tenants, overdueA)
	assert.Contains(t, tenants, overdueB)

	got, err := storage.GetSubscriptionByTenant(ctx, overdueA)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)

	got, err = storage.GetSubscriptionByTenant(ctx, current)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrial, got.Status)

	// повторный проход идемпотентен
	expired, err = storage.ExpireOverdueTrials(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestStorage_ResolvePaymentIntent(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	tenantID := uuid.New().String()
	intentID := factory.CreatePendingIntent(t, tenantID, 1800000)

	ctx := context.Background()
	affected, err := storage.ResolvePaymentIntent(ctx, intentID, models.IntentConfirmed, "tx-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	got, err := storage.GetPaymentIntent(ctx, intentID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentConfirmed, got.Status)
	assert.Equal(t, "tx-1", got.TransactionID)

	// запоздавший webhook не перетирает разрешённое намерение
	affected, err = storage.ResolvePaymentIntent(ctx, intentID, models.IntentFailed, "tx-2", "late event")
	require.NoError(t, err)
	assert.Zero(t, affected)

	got, err = storage.GetPaymentIntent(ctx, intentID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentConfirmed, got.Status)
	assert.Equal(t, "tx-1", got.TransactionID)
}

func TestStorage_GetPlan(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	factory.CreatePlan(t, "pro", 30000, -1, []string{"all_features"})

	ctx := context.Background()
	plan, err := storage.GetPlan(ctx, "pro")
	require.NoError(t, err)
	assert.Equal(t, []string{"all_features"}, plan.Features)
	assert.Equal(t, models.UnlimitedQuota, plan.MaxUsers)
	assert.True(t, plan.HasFeature("kpi_dashboard"))

	_, err = storage.GetPlan(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_Count(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	tenantID := uuid.New().String()
	otherTenant := uuid.New().String()
	factory.CreateDomainRows(t, tenantID, 3, 7, 2, 1)
	factory.CreateDomainRows(t, otherTenant, 5, 5, 5, 5)

	// счёт прошлого месяца не попадает в текущий период
	_, err := storage.DB.Exec(`INSERT INTO invoices (tenant_id, created_at)
		VALUES ($1, date_trunc('month', NOW()) - INTERVAL '1 day')`, tenantID)
	require.NoError(t, err)

	ctx := context.Background()
	tests := []struct {
		resource models.Resource
		want     int
	}{
		{models.ResourceUsers, 3},
		{models.ResourceProducts, 7},
		{models.ResourceInvoices, 2},
		{models.ResourcePOSLocations, 1},
	}
	for _, tt := range tests {
		got, err := storage.Count(ctx, tenantID, tt.resource)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "resource %s", tt.resource)
	}

	_, err = storage.Count(ctx, tenantID, "warehouses")
	assert.Error(t, err)
}
