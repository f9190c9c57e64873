// Package payment реализует инициацию платежей за подписку и обработку
// webhook-подтверждений от внешнего процессинга.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/copcca/entitlement-service/internal/entitlementapi"
	"github.com/copcca/entitlement-service/internal/lib/pricing"
	"github.com/copcca/entitlement-service/internal/lib/sl"
	"github.com/copcca/entitlement-service/internal/models"
)

// annualPeriodDays — длительность оплаченного периода: платёж всегда годовой.
const annualPeriodDays = 365

// ValidationError означает некорректный платёжный запрос, отклонённый
// до любого сетевого вызова.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payment request: %s: %s", e.Field, e.Message)
}

// Backend отправляет платёж во внешний процессинг.
type Backend interface {
	SubmitPayment(ctx context.Context, req entitlementapi.PaymentRequest) (*entitlementapi.PaymentAck, error)
}

// IntentRepository хранит платёжные намерения.
type IntentRepository interface {
	CreatePaymentIntent(ctx context.Context, intent models.PaymentIntent) (string, error)
	GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error)
	ResolvePaymentIntent(ctx context.Context, id string, status models.PaymentIntentStatus, transactionID, message string) (int, error)
	ListPaymentIntents(ctx context.Context, tenantID string) ([]*models.PaymentIntent, error)
}

// PlanResolver находит план подписки арендатора для расчёта цены.
type PlanResolver interface {
	GetSubscriptionByTenant(ctx context.Context, tenantID string) (*models.Subscription, error)
	GetPlan(ctx context.Context, planID string) (*models.Plan, error)
}

// Activator активирует подписку после подтверждённого платежа.
type Activator interface {
	Activate(ctx context.Context, tenantID, paymentMethod string, amount int64, periodDays int) error
}

// GateRefresher сбрасывает закэшированное решение шлюза доступа арендатора.
type GateRefresher interface {
	Refresh(tenantID string)
}

// Notifier публикует уведомления о событиях подписки.
type Notifier interface {
	Notify(routingKey string, message any) error
}

// Service реализует платёжные операции.
type Service struct {
	backend   Backend
	intents   IntentRepository
	plans     PlanResolver
	lifecycle Activator
	gate      GateRefresher
	notifier  Notifier
	log       *slog.Logger
}

// New создает новый Service.
func New(backend Backend, intents IntentRepository, plans PlanResolver,
	lifecycle Activator, gate GateRefresher, notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		backend:   backend,
		intents:   intents,
		plans:     plans,
		lifecycle: lifecycle,
		gate:      gate,
		notifier:  notifier,
		log:       log,
	}
}

// validate проверяет платёжный запрос по правилам выбранного способа оплаты.
// mobile_money требует номер телефона, card — полные реквизиты карты,
// bank_transfer дополнительных полей не требует.
func validate(req models.DummyPaymentRequest) error {
	if req.TotalUsers < 1 {
		return &ValidationError{Field: "total_users", Message: "must be at least 1"}
	}

	switch models.PaymentMethod(req.Method) {
	case models.MethodMobileMoney:
		if strings.TrimSpace(req.PhoneNumber) == "" {
			return &ValidationError{Field: "phone_number", Message: "required for mobile money payments"}
		}
	case models.MethodCard:
		if req.Card == nil {
			return &ValidationError{Field: "card_details", Message: "required for card payments"}
		}
		if strings.TrimSpace(req.Card.Number) == "" ||
			strings.TrimSpace(req.Card.Expiry) == "" ||
			strings.TrimSpace(req.Card.CVV) == "" {
			return &ValidationError{Field: "card_details", Message: "card number, expiry date and cvv are required"}
		}
	case models.MethodBankTransfer:
		// дополнительных реквизитов нет
	default:
		return &ValidationError{Field: "payment_method", Message: "unsupported payment method"}
	}
	return nil
}

// Quote возвращает расчёт годовой стоимости для команды арендатора
// по цене его текущего плана.
func (s *Service) Quote(ctx context.Context, tenantID string, totalUsers int) (pricing.Quote, error) {
	sub, err := s.plans.GetSubscriptionByTenant(ctx, tenantID)
	if err != nil {
		return pricing.Quote{}, err
	}
	plan, err := s.plans.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return pricing.Quote{}, err
	}
	return pricing.Calculate(plan.PriceMonthly, totalUsers), nil
}

// Initiate валидирует запрос, считает годовую стоимость, создаёт намерение
// в статусе pending и отправляет платёж в процессинг. Намерение остаётся
// pending до прихода webhook: успешный ответ процессинга подтверждает
// только приём платежа в обработку, не его исход.
func (s *Service) Initiate(ctx context.Context, tenantID string, req models.DummyPaymentRequest) (*models.PaymentIntent, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	sub, err := s.plans.GetSubscriptionByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	quote := pricing.Calculate(plan.PriceMonthly, req.TotalUsers)

	intent := models.PaymentIntent{
		TenantID: tenantID,
		Amount:   quote.AnnualTotal,
		Currency: plan.Currency,
		Method:   models.PaymentMethod(req.Method),
		Status:   models.IntentPending,
	}

	backendReq := entitlementapi.PaymentRequest{
		AdminEmail:    sub.AdminEmail,
		TotalUsers:    quote.TotalUsers,
		Amount:        quote.AnnualTotal,
		PaymentMethod: req.Method,
		PhoneNumber:   req.PhoneNumber,
	}
	if req.Card != nil {
		backendReq.CardDetails = &entitlementapi.CardPayload{
			CardNumber: req.Card.Number,
			ExpiryDate: req.Card.Expiry,
			CVV:        req.Card.CVV,
		}
	}

	ack, err := s.backend.SubmitPayment(ctx, backendReq)
	if err != nil {
		return nil, err
	}
	intent.TransactionID = ack.TransactionID
	intent.Message = ack.Message

	id, err := s.intents.CreatePaymentIntent(ctx, intent)
	if err != nil {
		return nil, err
	}
	intent.ID = id

	s.log.Info("payment initiated",
		slog.String("tenant_id", tenantID),
		slog.String("intent_id", id),
		slog.String("method", req.Method),
		slog.Int64("amount", intent.Amount))
	return &intent, nil
}

// WebhookEvent — событие от процессинга об исходе платежа.
type WebhookEvent struct {
	IntentID      string `json:"intent_id" validate:"required,uuid"`
	Status        string `json:"status" validate:"required,oneof=confirmed failed"`
	TransactionID string `json:"transaction_id,omitempty"`
	Message       string `json:"message,omitempty"`
}

// paymentConfirmedNotification — сообщение в очередь уведомлений.
type paymentConfirmedNotification struct {
	TenantID   string `json:"tenant_id"`
	AdminEmail string `json:"admin_email"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
}

// HandleWebhook разрешает намерение по событию процессинга. Подтверждение
// активирует подписку на годовой период и сбрасывает кэш шлюза; отказ
// фиксируется в намерении, статус подписки не меняется. Повторное событие
// по уже разрешённому намерению игнорируется.
func (s *Service) HandleWebhook(ctx context.Context, event WebhookEvent) error {
	const op = "payment.HandleWebhook"

	intent, err := s.intents.GetPaymentIntent(ctx, event.IntentID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	status := models.PaymentIntentStatus(event.Status)
	affected, err := s.intents.ResolvePaymentIntent(ctx, event.IntentID, status, event.TransactionID, event.Message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		s.log.Warn("webhook for already resolved intent ignored",
			slog.String("intent_id", event.IntentID), slog.String("status", event.Status))
		return nil
	}

	if status != models.IntentConfirmed {
		s.log.Info("payment failed",
			slog.String("tenant_id", intent.TenantID),
			slog.String("intent_id", intent.ID),
			slog.String("reason", event.Message))
		return nil
	}

	if err := s.lifecycle.Activate(ctx, intent.TenantID, string(intent.Method), intent.Amount, annualPeriodDays); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.gate.Refresh(intent.TenantID)

	sub, err := s.plans.GetSubscriptionByTenant(ctx, intent.TenantID)
	if err != nil {
		s.log.Error("failed to load subscription for notification", sl.Err(err))
		return nil
	}
	if s.notifier != nil {
		err := s.notifier.Notify("payment_confirmed", paymentConfirmedNotification{
			TenantID:   intent.TenantID,
			AdminEmail: sub.AdminEmail,
			Amount:     intent.Amount,
			Currency:   intent.Currency,
		})
		if err != nil {
			s.log.Error("failed to publish payment notification", sl.Err(err))
		}
	}

	s.log.Info("payment confirmed, subscription activated",
		slog.String("tenant_id", intent.TenantID), slog.String("intent_id", intent.ID))
	return nil
}

// History возвращает платёжную историю арендатора, новые платежи первыми.
func (s *Service) History(ctx context.Context, tenantID string) ([]*models.PaymentIntent, error) {
	return s.intents.ListPaymentIntents(ctx, tenantID)
}
