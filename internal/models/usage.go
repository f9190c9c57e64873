package models

// Resource идентифицирует измеряемый ресурс арендатора.
type Resource string

// Измеряемые ресурсы. Учёт ведётся по живым записям смежных доменов CRM.
const (
	ResourceUsers        Resource = "users"
	ResourceProducts     Resource = "products"
	ResourceInvoices     Resource = "invoices"
	ResourcePOSLocations Resource = "pos_locations"
)

// MeteredResources перечисляет все ресурсы, попадающие в срез потребления.
var MeteredResources = []Resource{
	ResourceUsers,
	ResourceProducts,
	ResourceInvoices,
	ResourcePOSLocations,
}

// ResourceUsage содержит счётчик потребления одного ресурса против лимита плана.
type ResourceUsage struct {
	Current int `json:"current"` // Текущее количество записей
	Limit   int `json:"limit"`   // Лимит плана, -1 — без лимита
}

// UsageSnapshot — моментальный срез потребления арендатора по всем ресурсам.
// Срез не персистентен и не транзакционен: четыре счётчика читаются независимо,
// при параллельных записях в доменах значения приблизительны. Этого достаточно,
// так как квоты носят рекомендательный характер и ничего не блокируют.
type UsageSnapshot struct {
	Users             ResourceUsage `json:"users"`
	Products          ResourceUsage `json:"products"`
	InvoicesThisMonth ResourceUsage `json:"invoices_this_month"`
	POSLocations      ResourceUsage `json:"pos_locations"`
	NearLimit         bool          `json:"near_limit"` // Потребление любого ресурса >= 80% лимита
}
