package models

import "time"

// SubscriptionStatus описывает состояние жизненного цикла подписки арендатора.
type SubscriptionStatus string

// Допустимые статусы подписки.
const (
	StatusTrial     SubscriptionStatus = "trial"     // Пробный период
	StatusActive    SubscriptionStatus = "active"    // Оплаченная подписка
	StatusPastDue   SubscriptionStatus = "past_due"  // Просрочен платёж, нужна оплата
	StatusCancelled SubscriptionStatus = "cancelled" // Отменена оператором или арендатором
	StatusExpired   SubscriptionStatus = "expired"   // Истёк пробный период или оплаченный период
	StatusSuspended SubscriptionStatus = "suspended" // Доступ заблокирован вручную, биллинг не меняется
)

// Valid сообщает, является ли значение известным статусом подписки.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusTrial, StatusActive, StatusPastDue, StatusCancelled, StatusExpired, StatusSuspended:
		return true
	}
	return false
}

// Subscription представляет запись подписки арендатора, ровно одну на арендатора.
// Записи никогда не удаляются физически: вместо удаления статус переводится
// в cancelled или expired.
//
// Инварианты дат: у подписки в статусе trial заполнено TrialEnd, периодные поля
// пустые; у подписки в active/past_due заполнены CurrentPeriodStart/End.
type Subscription struct {
	ID                 string             `json:"id"`                             // UUID записи
	TenantID           string             `json:"tenant_id"`                      // UUID арендатора, уникален в таблице
	AdminEmail         string             `json:"admin_email"`                    // Email администратора арендатора, ключ для внешнего биллинга
	PlanID             string             `json:"plan_id"`                        // Ссылка на тарифный план
	Status             SubscriptionStatus `json:"status"`                         // Текущий статус жизненного цикла
	TrialStart         *time.Time         `json:"trial_start,omitempty"`          // Начало пробного периода
	TrialEnd           *time.Time         `json:"trial_end,omitempty"`            // Окончание пробного периода
	CurrentPeriodStart *time.Time         `json:"current_period_start,omitempty"` // Начало оплаченного периода
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`   // Окончание оплаченного периода
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`           // Отменить по окончании текущего периода
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`         // Момент отмены
	PaymentMethod      string             `json:"payment_method,omitempty"`       // Последний способ оплаты
	LastPaymentDate    *time.Time         `json:"last_payment_date,omitempty"`    // Дата последнего платежа
	NextPaymentDate    *time.Time         `json:"next_payment_date,omitempty"`    // Дата следующего платежа
	Amount             int64              `json:"amount"`                         // Сумма последнего платежа
	Currency           string             `json:"currency"`                       // Валюта платежей
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// DummyStatusChange используется для приёма запроса оператора на смену статуса.
type DummyStatusChange struct {
	Status string `json:"status" validate:"required"` // Целевой статус
	Force  bool   `json:"force"`                      // Обойти таблицу переходов (поведение исходной системы)
}

// DummyPlanChange используется для приёма запроса оператора на смену плана.
type DummyPlanChange struct {
	PlanID string `json:"plan_id" validate:"required"` // Идентификатор нового плана
}

// DummyTrialSignup используется для приёма запроса на создание пробной подписки.
type DummyTrialSignup struct {
	PlanID string `json:"plan_id" validate:"required"` // Тарифный план пробного периода
}
