// Package entitlementapi реализует клиента внешнего биллингового бэкенда.
//
// Все вызовы ограничены по времени и отменяемы через context. Просрочка
// бюджета классифицируется отдельно от сетевых ошибок и неуспешных статусов,
// чтобы шлюз доступа мог различать деградацию по таймауту и по ошибке.
package entitlementapi

import (
	"errors"
	"fmt"
)

// Сигнальные ошибки клиента.
var (
	// ErrTimeout — запрос прерван по истечении бюджета времени.
	ErrTimeout = errors.New("entitlement backend request timed out")
	// ErrBackend — транспортная ошибка или не-2xx ответ без тела отказа.
	ErrBackend = errors.New("entitlement backend request failed")
)

// BackendRejection — явный отказ бэкенда с сообщением для пользователя.
// Отказ платежа не меняет статус подписки.
type BackendRejection struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

func (e *BackendRejection) Error() string {
	return fmt.Sprintf("backend rejected request (%d): %s", e.StatusCode, e.Message)
}

// StatusPayload — ответ бэкенда о состоянии подписки арендатора.
type StatusPayload struct {
	HasSubscription    bool   `json:"hasSubscription"`
	PaymentStatus      string `json:"paymentStatus"`      // "paid" | "unpaid"
	SubscriptionStatus string `json:"subscriptionStatus"` // "active" | "expired" | "pending" | ...
	AdminEmail         string `json:"adminEmail,omitempty"`
	SubscriptionEnd    string `json:"subscriptionEnd,omitempty"`
}

// TeamMember — запись участника команды; используется только для подсчёта
// размера команды при расчёте стоимости.
type TeamMember struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// InitializeRequest — тело запроса инициализации подписки.
type InitializeRequest struct {
	AdminEmail string `json:"adminEmail"`
	AdminName  string `json:"adminName"`
	TotalUsers int    `json:"totalUsers"`
}

// PaymentRequest — тело запроса на проведение платежа.
type PaymentRequest struct {
	AdminEmail    string       `json:"adminEmail"`
	TotalUsers    int          `json:"totalUsers"`
	Amount        int64        `json:"amount"`
	PaymentMethod string       `json:"paymentMethod"`
	PhoneNumber   string       `json:"phoneNumber,omitempty"`
	CardDetails   *CardPayload `json:"cardDetails,omitempty"`
}

// CardPayload — реквизиты карты в формате бэкенда.
type CardPayload struct {
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

// PaymentAck — подтверждение принятия платежа в обработку.
type PaymentAck struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId"`
}
