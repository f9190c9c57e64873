package models

import "time"

// PaymentMethod — способ оплаты, поддерживаемый внешним процессингом.
type PaymentMethod string

// Поддерживаемые способы оплаты.
const (
	MethodMobileMoney  PaymentMethod = "mobile_money"
	MethodCard         PaymentMethod = "card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

// PaymentIntentStatus — состояние платёжного намерения.
type PaymentIntentStatus string

// Жизненный цикл платёжного намерения: pending -> confirmed | failed.
// Переход выполняется только по webhook от внешнего процессинга,
// никакой имитации подтверждения на стороне клиента.
const (
	IntentPending   PaymentIntentStatus = "pending"
	IntentConfirmed PaymentIntentStatus = "confirmed"
	IntentFailed    PaymentIntentStatus = "failed"
)

// PaymentIntent представляет платёжное намерение арендатора.
type PaymentIntent struct {
	ID            string              `json:"id"`                       // UUID намерения
	TenantID      string              `json:"tenant_id"`                // Арендатор-плательщик
	Amount        int64               `json:"amount"`                   // Сумма в минимальных единицах валюты
	Currency      string              `json:"currency"`                 // Валюта платежа
	Method        PaymentMethod       `json:"method"`                   // Выбранный способ оплаты
	Status        PaymentIntentStatus `json:"status"`                   // Текущее состояние
	TransactionID string              `json:"transaction_id,omitempty"` // Идентификатор транзакции процессинга
	Message       string              `json:"message,omitempty"`        // Сообщение процессинга (причина отказа и т.п.)
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// CardDetails содержит реквизиты карты для оплаты методом card.
// Реквизиты передаются во внешний процессинг и не сохраняются.
type CardDetails struct {
	Number string `json:"card_number" validate:"required,numeric"`
	Expiry string `json:"expiry_date" validate:"required"`
	CVV    string `json:"cvv" validate:"required,numeric"`
}

// DummyPaymentRequest используется для приёма запроса на инициацию платежа.
// Обязательность полей зависит от способа оплаты и проверяется сервисом
// до любого сетевого вызова: mobile_money требует номер телефона,
// card — реквизиты карты, bank_transfer не требует ничего.
type DummyPaymentRequest struct {
	Method      string       `json:"payment_method" validate:"required"`
	TotalUsers  int          `json:"total_users" validate:"required,gt=0"`
	PhoneNumber string       `json:"phone_number,omitempty"`
	Card        *CardDetails `json:"card_details,omitempty"`
}
