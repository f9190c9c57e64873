package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/copcca/entitlement-service/internal/models"
)

const planColumns = `id, display_name, price_monthly, price_yearly, currency,
	max_users, max_products, max_invoices_monthly, max_pos_locations,
	features, trial_days, is_active`

func scanPlan(row interface{ Scan(...any) error }) (*models.Plan, error) {
	var p models.Plan
	var features pgtype.FlatArray[string]
	m := pgtype.NewMap()
	err := row.Scan(&p.ID, &p.DisplayName, &p.PriceMonthly, &p.PriceYearly,
		&p.Currency, &p.MaxUsers, &p.MaxProducts, &p.MaxInvoicesMonthly,
		&p.MaxPOSLocations, m.SQLScanner(&features), &p.TrialDays, &p.IsActive)
	if err != nil {
		return nil, err
	}
	p.Features = features
	return &p, nil
}

// GetPlan возвращает тарифный план по его идентификатору.
func (s *Storage) GetPlan(ctx context.Context, planID string) (*models.Plan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`
	result, err := scanPlan(s.DB.QueryRowContext(ctx, query, planID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListActivePlans возвращает планы, доступные для новых подписок.
func (s *Storage) ListActivePlans(ctx context.Context) ([]*models.Plan, error) {
	const op = "storage.ListActivePlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + planColumns + `
			  FROM subscription_plans
			  WHERE is_active = true
			  ORDER BY price_monthly`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Plan
	for rows.Next() {
		item, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
