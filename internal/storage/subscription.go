package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/copcca/entitlement-service/internal/models"
)

const subscriptionColumns = `id, tenant_id, admin_email, plan_id, status,
	trial_start, trial_end, current_period_start, current_period_end,
	cancel_at_period_end, cancelled_at, payment_method, last_payment_date,
	next_payment_date, amount, currency, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	var s models.Subscription
	var trialStart, trialEnd, periodStart, periodEnd sql.NullTime
	var cancelledAt, lastPayment, nextPayment sql.NullTime
	var paymentMethod sql.NullString

	err := row.Scan(&s.ID, &s.TenantID, &s.AdminEmail, &s.PlanID, &s.Status,
		&trialStart, &trialEnd, &periodStart, &periodEnd,
		&s.CancelAtPeriodEnd, &cancelledAt, &paymentMethod, &lastPayment,
		&nextPayment, &s.Amount, &s.Currency, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	assign := func(dst **time.Time, src sql.NullTime) {
		if src.Valid {
			t := src.Time
			*dst = &t
		}
	}
	assign(&s.TrialStart, trialStart)
	assign(&s.TrialEnd, trialEnd)
	assign(&s.CurrentPeriodStart, periodStart)
	assign(&s.CurrentPeriodEnd, periodEnd)
	assign(&s.CancelledAt, cancelledAt)
	assign(&s.LastPaymentDate, lastPayment)
	assign(&s.NextPaymentDate, nextPayment)
	if paymentMethod.Valid {
		s.PaymentMethod = paymentMethod.String
	}
	return &s, nil
}

// CreateSubscription вставляет запись подписки арендатора и возвращает её ID.
// Подписка создаётся при регистрации арендатора в статусе trial.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (string, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO tenant_subscriptions (tenant_id, admin_email, plan_id, status,
			      trial_start, trial_end, currency)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`
	var newID string
	err := s.DB.QueryRowContext(ctx, query,
		sub.TenantID, sub.AdminEmail, sub.PlanID, sub.Status,
		sub.TrialStart, sub.TrialEnd, sub.Currency).Scan(&newID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return "", fmt.Errorf("%s: %w", op, ErrExists)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscriptionByTenant возвращает подписку арендатора.
func (s *Storage) GetSubscriptionByTenant(ctx context.Context, tenantID string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByTenant"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM tenant_subscriptions WHERE tenant_id = $1`
	result, err := scanSubscription(s.DB.QueryRowContext(ctx, query, tenantID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListSubscriptions возвращает список всех подписок с пагинацией,
// новые записи первыми.
func (s *Storage) ListSubscriptions(ctx context.Context, limit, offset int) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM tenant_subscriptions
			  ORDER BY created_at DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		item, err := scanSubscription(rows)
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

// UpdateSubscriptionStatus устанавливает статус подписки арендатора
// и возвращает количество изменённых строк.
func (s *Storage) UpdateSubscriptionStatus(ctx context.Context, tenantID string, status models.SubscriptionStatus) (int, error) {
	const op = "storage.UpdateSubscriptionStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE tenant_subscriptions
			  SET status = $1,
			      cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END,
			      updated_at = NOW()
			  WHERE tenant_id = $2`
	result, err := s.DB.ExecContext(ctx, query, status, tenantID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ActivateSubscription переводит подписку в active и заполняет периодные
// и платёжные поля. Используется при подтверждённом платеже и ручном продлении.
func (s *Storage) ActivateSubscription(ctx context.Context, tenantID string,
	periodStart, periodEnd time.Time, paymentMethod string, amount int64) (int, error) {
	const op = "storage.ActivateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE tenant_subscriptions
			  SET status = 'active',
			      current_period_start = $1,
			      current_period_end = $2,
			      payment_method = NULLIF($3, ''),
			      last_payment_date = NOW(),
			      next_payment_date = $2,
			      amount = $4,
			      updated_at = NOW()
			  WHERE tenant_id = $5`
	result, err := s.DB.ExecContext(ctx, query, periodStart, periodEnd, paymentMethod, amount, tenantID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// UpdateSubscriptionPlan меняет тарифный план подписки.
// Текущее потребление против лимитов нового плана не перепроверяется.
func (s *Storage) UpdateSubscriptionPlan(ctx context.Context, tenantID, planID string) (int, error) {
	const op = "storage.UpdateSubscriptionPlan"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE tenant_subscriptions
			  SET plan_id = $1, updated_at = NOW()
			  WHERE tenant_id = $2`
	result, err := s.DB.ExecContext(ctx, query, planID, tenantID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SetCancelAtPeriodEnd помечает подписку к отмене по окончании периода.
func (s *Storage) SetCancelAtPeriodEnd(ctx context.Context, tenantID string, cancel bool) (int, error) {
	const op = "storage.SetCancelAtPeriodEnd"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE tenant_subscriptions
			  SET cancel_at_period_end = $1, updated_at = NOW()
			  WHERE tenant_id = $2`
	result, err := s.DB.ExecContext(ctx, query, cancel, tenantID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ExpiredTrial — минимальные сведения о подписке, переведённой в expired.
type ExpiredTrial struct {
	TenantID   string `json:"tenant_id"`
	AdminEmail string `json:"admin_email"`
	PlanID     string `json:"plan_id"`
}

// ExpireOverdueTrials переводит в expired все пробные подписки,
// у которых trial_end в прошлом, и возвращает затронутых арендаторов.
//
// Операция идемпотентна: условие WHERE status = 'trial' гарантирует,
// что повторный запуск не тронет уже переведённые записи и не изменит
// их updated_at второй раз, а подписки с trial_end в будущем не затронет
// даже при запоздалом запуске задачи.
func (s *Storage) ExpireOverdueTrials(ctx context.Context) ([]*ExpiredTrial, error) {
	const op = "storage.ExpireOverdueTrials"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE tenant_subscriptions
			  SET status = 'expired', updated_at = NOW()
			  WHERE status = 'trial' AND trial_end < NOW()
			  RETURNING tenant_id, admin_email, plan_id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*ExpiredTrial
	for rows.Next() {
		var item ExpiredTrial
		if err := rows.Scan(&item.TenantID, &item.AdminEmail, &item.PlanID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
