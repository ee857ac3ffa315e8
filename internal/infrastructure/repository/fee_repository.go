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

// FeeRepository handles fee_calculations persistence.
type FeeRepository struct {
	db *pgxpool.Pool
}

// NewFeeRepository creates a new fee repository
func NewFeeRepository(db *pgxpool.Pool) *FeeRepository {
	return &FeeRepository{db: db}
}

const feeColumns = `
	id, tenant_id, client_id, group_id, tax_year,
	base_amount, discount_percent, final_amount, vat_amount,
	status, paid_amount, payment_method_selected,
	promised_payment_date, letter_sent_date, reminder_count, notes,
	created_at, updated_at, version`

// Create inserts a new fee calculation.
func (r *FeeRepository) Create(ctx context.Context, f *fee.FeeRecord) error {
	query := `
		INSERT INTO fee_calculations (` + feeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.db.Exec(ctx, query,
		f.ID, f.TenantID, f.ClientID, f.GroupID, f.TaxYear,
		f.BaseAmount, f.DiscountPercent, f.FinalAmount, f.VATAmount,
		f.Status.String(), f.PaidAmount, methodValue(f.PaymentMethodSelected),
		f.PromisedPaymentDate, f.LetterSentDate, f.ReminderCount, f.Notes,
		f.CreatedAt, f.UpdatedAt, f.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create fee calculation: %w", err)
	}
	return nil
}

// GetByID retrieves a fee calculation scoped to one tenant.
func (r *FeeRepository) GetByID(ctx context.Context, tenantID, feeID uuid.UUID) (*fee.FeeRecord, error) {
	query := `SELECT ` + feeColumns + ` FROM fee_calculations WHERE id = $1 AND tenant_id = $2`

	f, err := scanFee(r.db.QueryRow(ctx, query, feeID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get fee calculation: %w", err)
	}
	return f, nil
}

// UpdatePayment persists the payment-accumulation fields with an optimistic
// concurrency check: the write only lands if the stored version still equals
// expectedVersion. On success the in-memory version is bumped.
func (r *FeeRepository) UpdatePayment(ctx context.Context, f *fee.FeeRecord, expectedVersion int64) error {
	query := `
		UPDATE fee_calculations
		SET status = $3,
			paid_amount = $4,
			payment_method_selected = $5,
			notes = $6,
			updated_at = $7,
			version = version + 1
		WHERE id = $1 AND tenant_id = $2 AND version = $8`

	tag, err := r.db.Exec(ctx, query,
		f.ID, f.TenantID, f.Status.String(), f.PaidAmount,
		methodValue(f.PaymentMethodSelected), f.Notes, f.UpdatedAt, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update fee payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	f.Version = expectedVersion + 1
	return nil
}

// UpdateStatus performs a direct status-only write, bypassing the version
// guard. Used by the dispute-resolution degraded path.
func (r *FeeRepository) UpdateStatus(ctx context.Context, tenantID, feeID uuid.UUID, status fee.PaymentStatus) error {
	query := `
		UPDATE fee_calculations
		SET status = $3, updated_at = $4, version = version + 1
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.db.Exec(ctx, query, feeID, tenantID, status.String(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update fee status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementReminder bumps the reminder counter after another letter goes out.
func (r *FeeRepository) IncrementReminder(ctx context.Context, tenantID, feeID uuid.UUID) error {
	query := `
		UPDATE fee_calculations
		SET reminder_count = reminder_count + 1, updated_at = $3
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.db.Exec(ctx, query, feeID, tenantID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to increment reminder count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendNote appends a collections note to the fee record.
func (r *FeeRepository) AppendNote(ctx context.Context, tenantID, feeID uuid.UUID, note string) error {
	query := `
		UPDATE fee_calculations
		SET notes = CASE WHEN notes = '' THEN $3 ELSE notes || E'\n' || $3 END,
			updated_at = $4
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.db.Exec(ctx, query, feeID, tenantID, note, time.Now())
	if err != nil {
		return fmt.Errorf("failed to append note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFee(row pgx.Row) (*fee.FeeRecord, error) {
	var f fee.FeeRecord
	var statusStr string
	var method *string

	err := row.Scan(
		&f.ID, &f.TenantID, &f.ClientID, &f.GroupID, &f.TaxYear,
		&f.BaseAmount, &f.DiscountPercent, &f.FinalAmount, &f.VATAmount,
		&statusStr, &f.PaidAmount, &method,
		&f.PromisedPaymentDate, &f.LetterSentDate, &f.ReminderCount, &f.Notes,
		&f.CreatedAt, &f.UpdatedAt, &f.Version,
	)
	if err != nil {
		return nil, err
	}

	f.Status, err = fee.ParsePaymentStatus(statusStr)
	if err != nil {
		return nil, err
	}
	if method != nil {
		m := fee.PaymentMethod(*method)
		f.PaymentMethodSelected = &m
	}
	return &f, nil
}

func methodValue(m *fee.PaymentMethod) *string {
	if m == nil {
		return nil
	}
	s := string(*m)
	return &s
}
