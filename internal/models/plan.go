// Package models содержит доменные структуры сервиса: тарифные планы,
// подписки арендаторов, платежи и вспомогательные типы для приёма данных
// из JSON-запросов.
package models

// UnlimitedQuota обозначает отсутствие лимита на ресурс в тарифном плане.
const UnlimitedQuota = -1

// Plan представляет версию тарифного плана из каталога.
// Записи каталога неизменяемы: действия арендаторов никогда не модифицируют план,
// изменения тарифа оформляются новой версией через миграцию.
type Plan struct {
	ID                 string   `json:"id"`                   // Уникальный идентификатор плана, например "starter"
	DisplayName        string   `json:"display_name"`         // Отображаемое название плана
	PriceMonthly       int64    `json:"price_monthly"`        // Цена за пользователя в месяц, в минимальных единицах валюты
	PriceYearly        int64    `json:"price_yearly"`         // Цена за пользователя в год
	Currency           string   `json:"currency"`             // Валюта плана, например "TZS"
	MaxUsers           int      `json:"max_users"`            // Лимит пользователей, -1 — без лимита
	MaxProducts        int      `json:"max_products"`         // Лимит товаров
	MaxInvoicesMonthly int      `json:"max_invoices_monthly"` // Лимит счетов за календарный месяц
	MaxPOSLocations    int      `json:"max_pos_locations"`    // Лимит дополнительных точек продаж
	Features           []string `json:"features"`             // Набор фич плана; "all_features" открывает всё
	TrialDays          int      `json:"trial_days"`           // Длительность пробного периода в днях
	IsActive           bool     `json:"is_active"`            // Доступен ли план для новых подписок
}

// LimitFor возвращает лимит плана для указанного ресурса.
// Для неизвестного ресурса возвращает UnlimitedQuota.
func (p *Plan) LimitFor(resource Resource) int {
	switch resource {
	case ResourceUsers:
		return p.MaxUsers
	case ResourceProducts:
		return p.MaxProducts
	case ResourceInvoices:
		return p.MaxInvoicesMonthly
	case ResourcePOSLocations:
		return p.MaxPOSLocations
	}
	return UnlimitedQuota
}

// HasFeature проверяет, входит ли фича в план.
func (p *Plan) HasFeature(feature string) bool {
	for _, f := range p.Features {
		if f == "all_features" || f == feature {
			return true
		}
	}
	return false
}
