package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firmdesk/collections-backend/internal/domain/fee"
)

// PaymentRepository handles the append-only actual_payments table.
type PaymentRepository struct {
	db *pgxpool.Pool
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment event. Events are immutable; there is no update.
func (r *PaymentRepository) Create(ctx context.Context, p *fee.PaymentEvent) error {
	query := `
		INSERT INTO actual_payments (
			id, tenant_id, fee_id,
			amount_paid, amount_before_vat, vat_amount,
			payment_method, payment_date, payment_reference, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.TenantID, p.FeeID,
		p.AmountPaid, p.AmountBeforeVAT, p.VATAmount,
		string(p.PaymentMethod), p.PaymentDate, p.PaymentReference, p.Notes, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment event: %w", err)
	}
	return nil
}

// ListByFee retrieves all payment events for one fee, newest first.
func (r *PaymentRepository) ListByFee(ctx context.Context, tenantID, feeID uuid.UUID) ([]*fee.PaymentEvent, error) {
	query := `
		SELECT id, tenant_id, fee_id,
			amount_paid, amount_before_vat, vat_amount,
			payment_method, payment_date, payment_reference, notes, created_at
		FROM actual_payments
		WHERE tenant_id = $1 AND fee_id = $2
		ORDER BY payment_date DESC`

	rows, err := r.db.Query(ctx, query, tenantID, feeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*fee.PaymentEvent
	for rows.Next() {
		p := &fee.PaymentEvent{}
		var method string
		err := rows.Scan(
			&p.ID, &p.TenantID, &p.FeeID,
			&p.AmountPaid, &p.AmountBeforeVAT, &p.VATAmount,
			&method, &p.PaymentDate, &p.PaymentReference, &p.Notes, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.PaymentMethod = fee.PaymentMethod(method)
		payments = append(payments, p)
	}

	return payments, rows.Err()
}
