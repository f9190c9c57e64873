// Package pricing реализует расчёт стоимости подписки по количеству пользователей.
//
// Все расчёты ведутся в целых минимальных единицах валюты, без плавающей точки:
// annualTotal = pricePerUser * totalUsers * 12 должен выполняться точно.
package pricing

// AnnualMultiplier — количество оплачиваемых месяцев в годовой подписке.
const AnnualMultiplier = 12

// Quote содержит результат расчёта стоимости подписки.
type Quote struct {
	PricePerUser int64 `json:"price_per_user"` // Цена за пользователя в месяц
	TotalUsers   int   `json:"total_users"`    // Количество пользователей команды
	MonthlyCost  int64 `json:"monthly_cost"`   // Месячная стоимость команды
	AnnualTotal  int64 `json:"annual_total"`   // Годовая стоимость, monthly * 12
}

// Calculate возвращает расчёт стоимости для команды из totalUsers пользователей.
// Команда меньше одного пользователя считается командой из одного.
func Calculate(pricePerUser int64, totalUsers int) Quote {
	if totalUsers < 1 {
		totalUsers = 1
	}
	monthly := pricePerUser * int64(totalUsers)
	return Quote{
		PricePerUser: pricePerUser,
		TotalUsers:   totalUsers,
		MonthlyCost:  monthly,
		AnnualTotal:  monthly * AnnualMultiplier,
	}
}
