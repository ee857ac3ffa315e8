package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firmdesk/collections-backend/internal/domain/fee"
)

// GroupFeeRepository handles group_fee_calculations persistence, including
// the pay-the-group member cascade.
type GroupFeeRepository struct {
	db *pgxpool.Pool
}

// NewGroupFeeRepository creates a new group fee repository
func NewGroupFeeRepository(db *pgxpool.Pool) *GroupFeeRepository {
	return &GroupFeeRepository{db: db}
}

// GetByID retrieves a group fee calculation scoped to one tenant.
func (r *GroupFeeRepository) GetByID(ctx context.Context, tenantID, groupCalcID uuid.UUID) (*fee.GroupFeeRecord, error) {
	query := `
		SELECT id, tenant_id, group_id, tax_year,
			audit_amount, bookkeeping_amount, total_amount,
			status, created_at, updated_at
		FROM group_fee_calculations
		WHERE id = $1 AND tenant_id = $2`

	var g fee.GroupFeeRecord
	var statusStr string
	err := r.db.QueryRow(ctx, query, groupCalcID, tenantID).Scan(
		&g.ID, &g.TenantID, &g.GroupID, &g.TaxYear,
		&g.AuditAmount, &g.BookkeepingAmount, &g.TotalAmount,
		&statusStr, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get group fee calculation: %w", err)
	}

	g.Status, err = fee.ParsePaymentStatus(statusStr)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// SettleGroup applies a group payment in a single transaction: the group row
// transitions to paid, every member fee record is settled, and the completing
// payment event is written. Any failure rolls the whole cascade back, so no
// partial cascade is ever observable.
func (r *GroupFeeRepository) SettleGroup(ctx context.Context, g *fee.GroupFeeRecord, payment *fee.PaymentEvent) (memberIDs []uuid.UUID, err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin group settlement: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	now := time.Now()

	tag, err := tx.Exec(ctx, `
		UPDATE group_fee_calculations
		SET status = 'paid', updated_at = $3
		WHERE id = $1 AND tenant_id = $2 AND status <> 'paid'`,
		g.ID, g.TenantID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to settle group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	rows, err := tx.Query(ctx, `
		UPDATE fee_calculations
		SET status = 'paid', paid_amount = final_amount, updated_at = $3, version = version + 1
		WHERE group_id = $1 AND tenant_id = $2 AND status <> 'cancelled'
		RETURNING id`,
		g.GroupID, g.TenantID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to cascade group payment: %w", err)
	}

	for rows.Next() {
		var id uuid.UUID
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			err = fmt.Errorf("failed to scan member fee id: %w", scanErr)
			return nil, err
		}
		memberIDs = append(memberIDs, id)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to cascade group payment: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO actual_payments (
			id, tenant_id, fee_id,
			amount_paid, amount_before_vat, vat_amount,
			payment_method, payment_date, payment_reference, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		payment.ID, payment.TenantID, payment.FeeID,
		payment.AmountPaid, payment.AmountBeforeVAT, payment.VATAmount,
		string(payment.PaymentMethod), payment.PaymentDate, payment.PaymentReference,
		payment.Notes, payment.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record group payment: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit group settlement: %w", err)
	}
	return memberIDs, nil
}
