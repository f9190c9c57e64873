package create

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/copcca/entitlement-service/internal/http/middlewarectx"
	"github.com/copcca/entitlement-service/internal/models"
	"github.com/copcca/entitlement-service/internal/storage"
)

// MockService реализует интерфейс create.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateTrial(ctx context.Context, tenantID, adminEmail, planID string) (string, error) {
	args := m.Called(ctx, tenantID, adminEmail, planID)
	return args.String(0), args.Error(1)
}

func (m *MockService) Read(ctx context.Context, tenantID string) (*models.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func TestCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		withTenant     bool
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:       "успешное создание пробной подписки",
			body:       `{"plan_id":"starter"}`,
			withTenant: true,
			setupMock: func(m *MockService) {
				m.On("CreateTrial", mock.Anything, "tenant-1", "admin@example.com", "starter").
					Return("sub-1", nil)
				m.On("Read", mock.Anything, "tenant-1").
					Return(&models.Subscription{TenantID: "tenant-1", PlanID: "starter", Status: models.StatusTrial}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"status":"trial"`,
		},
		{
			name:       "подписка уже существует",
			body:       `{"plan_id":"starter"}`,
			withTenant: true,
			setupMock: func(m *MockService) {
				m.On("CreateTrial", mock.Anything, "tenant-1", "admin@example.com", "starter").
					Return("", fmt.Errorf("storage.CreateSubscription: %w", storage.ErrExists))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"error":"subscription already exists"`,
		},
		{
			name:       "план не найден",
			body:       `{"plan_id":"missing"}`,
			withTenant: true,
			setupMock: func(m *MockService) {
				m.On("CreateTrial", mock.Anything, "tenant-1", "admin@example.com", "missing").
					Return("", fmt.Errorf("storage.GetPlan: %w", storage.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"plan not found"`,
		},
		{
			name:           "отсутствует план в теле",
			body:           `{}`,
			withTenant:     true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `required field`,
		},
		{
			name:           "арендатор не авторизован",
			body:           `{"plan_id":"starter"}`,
			withTenant:     false,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/subscription", strings.NewReader(tt.body))
			if tt.withTenant {
				ctx := context.WithValue(req.Context(), middlewarectx.TenantID, "tenant-1")
				ctx = context.WithValue(ctx, middlewarectx.Email, "admin@example.com")
				req = req.WithContext(ctx)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
