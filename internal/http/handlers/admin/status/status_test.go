package status

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/copcca/entitlement-service/internal/models"
	"github.com/copcca/entitlement-service/internal/services/lifecycle"
	"github.com/copcca/entitlement-service/internal/storage"
)

// MockService реализует интерфейс status.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) OverrideStatus(ctx context.Context, tenantID string, target models.SubscriptionStatus, force bool) error {
	args := m.Called(ctx, tenantID, target, force)
	return args.Error(0)
}

func (m *MockService) Read(ctx context.Context, tenantID string) (*models.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

type MockGate struct {
	mock.Mock
}

func (m *MockGate) Refresh(tenantID string) {
	m.Called(tenantID)
}

func TestStatusHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService, *MockGate)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная смена статуса",
			body: `{"status":"suspended"}`,
			setupMock: func(m *MockService, g *MockGate) {
				m.On("OverrideStatus", mock.Anything, "tenant-1", models.StatusSuspended, false).Return(nil)
				g.On("Refresh", "tenant-1").Return()
				m.On("Read", mock.Anything, "tenant-1").
					Return(&models.Subscription{TenantID: "tenant-1", Status: models.StatusSuspended}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"suspended"`,
		},
		{
			name: "force проставляется из запроса",
			body: `{"status":"active","force":true}`,
			setupMock: func(m *MockService, g *MockGate) {
				m.On("OverrideStatus", mock.Anything, "tenant-1", models.StatusActive, true).Return(nil)
				g.On("Refresh", "tenant-1").Return()
				m.On("Read", mock.Anything, "tenant-1").
					Return(&models.Subscription{TenantID: "tenant-1", Status: models.StatusActive}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"active"`,
		},
		{
			name: "недопустимый переход",
			body: `{"status":"past_due"}`,
			setupMock: func(m *MockService, _ *MockGate) {
				m.On("OverrideStatus", mock.Anything, "tenant-1", models.StatusPastDue, false).
					Return(fmt.Errorf("%w: cancelled -> past_due", lifecycle.ErrIllegalTransition))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `illegal subscription status transition`,
		},
		{
			name: "подписка не найдена",
			body: `{"status":"active"}`,
			setupMock: func(m *MockService, _ *MockGate) {
				m.On("OverrideStatus", mock.Anything, "tenant-1", models.StatusActive, false).
					Return(fmt.Errorf("storage.UpdateSubscriptionStatus: %w", storage.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"subscription not found"`,
		},
		{
			name:           "отсутствует статус в теле",
			body:           `{"force":true}`,
			setupMock:      func(_ *MockService, _ *MockGate) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `required field`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			mockGate := new(MockGate)
			tt.setupMock(mockService, mockGate)

			handler := New(logger, mockService, mockGate)

			req := httptest.NewRequest(http.MethodPost, "/admin/subscriptions/tenant-1/status", strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("tenantID", "tenant-1")
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
			mockGate.AssertExpectations(t)
		})
	}
}
