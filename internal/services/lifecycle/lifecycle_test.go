package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/copcca/entitlement-service/internal/models"
	"github.com/copcca/entitlement-service/internal/storage"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateSubscription(ctx context.Context, sub models.Subscription) (string, error) {
	args := m.Called(ctx, sub)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) GetSubscriptionByTenant(ctx context.Context, tenantID string) (*models.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockRepository) ListSubscriptions(ctx context.Context, limit, offset int) ([]*models.Subscription, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *MockRepository) UpdateSubscriptionStatus(ctx context.Context, tenantID string, status models.SubscriptionStatus) (int, error) {
	args := m.Called(ctx, tenantID, status)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) ActivateSubscription(ctx context.Context, tenantID string, periodStart, periodEnd time.Time, paymentMethod string, amount int64) (int, error) {
	args := m.Called(ctx, tenantID, periodStart, periodEnd, paymentMethod, amount)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) UpdateSubscriptionPlan(ctx context.Context, tenantID, planID string) (int, error) {
	args := m.Called(ctx, tenantID, planID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) SetCancelAtPeriodEnd(ctx context.Context, tenantID string, cancel bool) (int, error) {
	args := m.Called(ctx, tenantID, cancel)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) ExpireOverdueTrials(ctx context.Context) ([]*storage.ExpiredTrial, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.ExpiredTrial), args.Error(1)
}

func (m *MockRepository) GetPlan(ctx context.Context, planID string) (*models.Plan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from models.SubscriptionStatus
		to   models.SubscriptionStatus
		want bool
	}{
		{models.StatusTrial, models.StatusActive, true},
		{models.StatusTrial, models.StatusExpired, true},
		{models.StatusTrial, models.StatusPastDue, false},
		{models.StatusActive, models.StatusPastDue, true},
		{models.StatusActive, models.StatusSuspended, true},
		{models.StatusSuspended, models.StatusActive, true},
		{models.StatusSuspended, models.StatusPastDue, false},
		{models.StatusExpired, models.StatusActive, true},
		{models.StatusExpired, models.StatusTrial, false},
		{models.StatusCancelled, models.StatusActive, true},
		{models.StatusCancelled, models.StatusSuspended, false},
		{models.StatusActive, models.StatusActive, true}, // no-op
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+" -> "+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestOverrideStatus(t *testing.T) {
	tests := []struct {
		name       string
		current    models.SubscriptionStatus
		target     models.SubscriptionStatus
		force      bool
		setupMock  func(*MockRepository)
		wantErr    error
		wantUpdate bool
	}{
		{
			name:       "допустимый переход выполняется",
			current:    models.StatusActive,
			target:     models.StatusSuspended,
			wantUpdate: true,
		},
		{
			name:    "недопустимый переход отклоняется",
			current: models.StatusCancelled,
			target:  models.StatusSuspended,
			wantErr: ErrIllegalTransition,
		},
		{
			name:       "force обходит таблицу переходов",
			current:    models.StatusCancelled,
			target:     models.StatusSuspended,
			force:      true,
			wantUpdate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			repo.On("GetSubscriptionByTenant", mock.Anything, "tenant-1").
				Return(&models.Subscription{TenantID: "tenant-1", Status: tt.current}, nil)
			if tt.wantUpdate {
				repo.On("UpdateSubscriptionStatus", mock.Anything, "tenant-1", tt.target).Return(1, nil)
			}

			service := New(repo, newNoopLogger())
			err := service.OverrideStatus(context.Background(), "tenant-1", tt.target, tt.force)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestOverrideStatus_UnknownStatus(t *testing.T) {
	service := New(new(MockRepository), newNoopLogger())
	err := service.OverrideStatus(context.Background(), "tenant-1", "frozen", false)
	assert.Error(t, err)
}

func TestCreateTrial(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetPlan", mock.Anything, "starter").
		Return(&models.Plan{ID: "starter", TrialDays: 14, Currency: "TZS"}, nil)
	repo.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
		if sub.Status != models.StatusTrial || sub.TrialEnd == nil {
			return false
		}
		wantEnd := time.Now().AddDate(0, 0, 14)
		return sub.TrialEnd.Sub(wantEnd).Abs() < time.Minute
	})).Return("sub-1", nil)

	service := New(repo, newNoopLogger())
	id, err := service.CreateTrial(context.Background(), "tenant-1", "admin@example.com", "starter")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", id)
	repo.AssertExpectations(t)
}

func TestActivate_IllegalFromTrialForce(t *testing.T) {
	// активация из trial допустима по таблице
	repo := new(MockRepository)
	repo.On("GetSubscriptionByTenant", mock.Anything, "tenant-1").
		Return(&models.Subscription{TenantID: "tenant-1", Status: models.StatusTrial}, nil)
	repo.On("ActivateSubscription", mock.Anything, "tenant-1",
		mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time"), "mobile_money", int64(1800000)).
		Return(1, nil)

	service := New(repo, newNoopLogger())
	err := service.Activate(context.Background(), "tenant-1", "mobile_money", 1800000, 365)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRenew(t *testing.T) {
	// ручное продление берёт сумму последнего платежа и даёт 30 дней
	repo := new(MockRepository)
	repo.On("GetSubscriptionByTenant", mock.Anything, "tenant-1").
		Return(&models.Subscription{TenantID: "tenant-1", Status: models.StatusExpired, Amount: 150000}, nil)
	repo.On("ActivateSubscription", mock.Anything, "tenant-1",
		mock.AnythingOfType("time.Time"),
		mock.MatchedBy(func(end time.Time) bool {
			want := time.Now().AddDate(0, 0, 30)
			return end.Sub(want).Abs() < time.Minute
		}),
		"manual", int64(150000)).
		Return(1, nil)

	service := New(repo, newNoopLogger())
	err := service.Renew(context.Background(), "tenant-1")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessTrialExpirations(t *testing.T) {
	repo := new(MockRepository)
	expired := []*storage.ExpiredTrial{
		{TenantID: "tenant-1", AdminEmail: "a@example.com", PlanID: "starter"},
		{TenantID: "tenant-2", AdminEmail: "b@example.com", PlanID: "growth"},
	}
	repo.On("ExpireOverdueTrials", mock.Anything).Return(expired, nil).Once()
	// повторный проход ничего не находит
	repo.On("ExpireOverdueTrials", mock.Anything).Return([]*storage.ExpiredTrial{}, nil).Once()

	service := New(repo, newNoopLogger())

	got, err := service.ProcessTrialExpirations(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = service.ProcessTrialExpirations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	repo.AssertExpectations(t)
}
