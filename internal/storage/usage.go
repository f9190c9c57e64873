package storage

import (
	"context"
	"fmt"

	"github.com/copcca/entitlement-service/internal/models"
)

// Count возвращает количество живых записей ресурса, принадлежащих арендатору.
// Реализует usage.Provider: счётчики читаются напрямую из таблиц смежных
// доменов CRM, без транзакции между собой.
func (s *Storage) Count(ctx context.Context, tenantID string, resource models.Resource) (int, error) {
	const op = "storage.Count"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var query string
	switch resource {
	case models.ResourceUsers:
		query = `SELECT COUNT(*) FROM users WHERE tenant_id = $1`
	case models.ResourceProducts:
		query = `SELECT COUNT(*) FROM products WHERE tenant_id = $1`
	case models.ResourceInvoices:
		// Счета учитываются за текущий календарный месяц.
		query = `SELECT COUNT(*) FROM invoices
				 WHERE tenant_id = $1
				   AND created_at >= date_trunc('month', NOW())`
	case models.ResourcePOSLocations:
		query = `SELECT COUNT(*) FROM pos_locations WHERE tenant_id = $1`
	default:
		return 0, fmt.Errorf("%s: unknown resource %q", op, resource)
	}

	var count int
	if err := s.DB.QueryRowContext(ctx, query, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
