package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/copcca/entitlement-service/internal/models"
)

const intentColumns = `id, tenant_id, amount, currency, method, status,
	COALESCE(transaction_id, ''), COALESCE(message, ''), created_at, updated_at`

func scanIntent(row interface{ Scan(...any) error }) (*models.PaymentIntent, error) {
	var pi models.PaymentIntent
	err := row.Scan(&pi.ID, &pi.TenantID, &pi.Amount, &pi.Currency, &pi.Method,
		&pi.Status, &pi.TransactionID, &pi.Message, &pi.CreatedAt, &pi.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &pi, nil
}

// CreatePaymentIntent сохраняет платёжное намерение в статусе pending
// и возвращает его ID.
func (s *Storage) CreatePaymentIntent(ctx context.Context, intent models.PaymentIntent) (string, error) {
	const op = "storage.CreatePaymentIntent"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payment_intents (tenant_id, amount, currency, method, status, transaction_id)
			  VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
			  RETURNING id`
	var newID string
	err := s.DB.QueryRowContext(ctx, query,
		intent.TenantID, intent.Amount, intent.Currency, intent.Method,
		intent.Status, intent.TransactionID).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetPaymentIntent возвращает платёжное намерение по ID.
func (s *Storage) GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error) {
	const op = "storage.GetPaymentIntent"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + intentColumns + ` FROM payment_intents WHERE id = $1`
	result, err := scanIntent(s.DB.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ResolvePaymentIntent переводит намерение из pending в confirmed либо failed.
// Переход выполняется только из pending: запоздавший или повторный webhook
// не перетирает уже разрешённое намерение.
func (s *Storage) ResolvePaymentIntent(ctx context.Context, id string,
	status models.PaymentIntentStatus, transactionID, message string) (int, error) {
	const op = "storage.ResolvePaymentIntent"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payment_intents
			  SET status = $1,
			      transaction_id = COALESCE(NULLIF($2, ''), transaction_id),
			      message = NULLIF($3, ''),
			      updated_at = NOW()
			  WHERE id = $4 AND status = 'pending'`
	result, err := s.DB.ExecContext(ctx, query, status, transactionID, message, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListPaymentIntents возвращает платёжную историю арендатора, новые первыми.
func (s *Storage) ListPaymentIntents(ctx context.Context, tenantID string) ([]*models.PaymentIntent, error) {
	const op = "storage.ListPaymentIntents"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + intentColumns + `
			  FROM payment_intents
			  WHERE tenant_id = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PaymentIntent
	for rows.Next() {
		item, err := scanIntent(rows)
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
