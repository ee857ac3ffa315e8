package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firmdesk/collections-backend/internal/domain/fee"
)

// DisputeRepository handles payment_disputes persistence.
type DisputeRepository struct {
	db *pgxpool.Pool
}

// NewDisputeRepository creates a new dispute repository
func NewDisputeRepository(db *pgxpool.Pool) *DisputeRepository {
	return &DisputeRepository{db: db}
}

const disputeColumns = `
	id, tenant_id, fee_id,
	claimed_date, claimed_amount, claimed_reference,
	status, resolution_notes, resolved_by, resolved_at, created_at`

// GetByID retrieves a dispute scoped to one tenant.
func (r *DisputeRepository) GetByID(ctx context.Context, tenantID, disputeID uuid.UUID) (*fee.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM payment_disputes WHERE id = $1 AND tenant_id = $2`

	d, err := scanDispute(r.db.QueryRow(ctx, query, disputeID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	return d, nil
}

// ListPending returns all unresolved disputes for a tenant, oldest first.
func (r *DisputeRepository) ListPending(ctx context.Context, tenantID uuid.UUID) ([]*fee.Dispute, error) {
	query := `SELECT ` + disputeColumns + `
		FROM payment_disputes
		WHERE tenant_id = $1 AND status = 'pending'
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending disputes: %w", err)
	}
	defer rows.Close()

	var disputes []*fee.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dispute: %w", err)
		}
		disputes = append(disputes, d)
	}

	return disputes, rows.Err()
}

// OpenDisputeIndex returns the set of fee ids with a pending dispute, fetched
// once per dashboard read so row transformation never goes back to the store.
func (r *DisputeRepository) OpenDisputeIndex(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]bool, error) {
	query := `SELECT fee_id FROM payment_disputes WHERE tenant_id = $1 AND status = 'pending'`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to build dispute index: %w", err)
	}
	defer rows.Close()

	index := make(map[uuid.UUID]bool)
	for rows.Next() {
		var feeID uuid.UUID
		if err := rows.Scan(&feeID); err != nil {
			return nil, fmt.Errorf("failed to scan dispute fee id: %w", err)
		}
		index[feeID] = true
	}

	return index, rows.Err()
}

// Update persists a resolution.
func (r *DisputeRepository) Update(ctx context.Context, d *fee.Dispute) error {
	query := `
		UPDATE payment_disputes
		SET status = $3, resolution_notes = $4, resolved_by = $5, resolved_at = $6
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.db.Exec(ctx, query,
		d.ID, d.TenantID, string(d.Status), d.ResolutionNotes, d.ResolvedBy, d.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update dispute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDispute(row pgx.Row) (*fee.Dispute, error) {
	var d fee.Dispute
	var status string

	err := row.Scan(
		&d.ID, &d.TenantID, &d.FeeID,
		&d.ClaimedDate, &d.ClaimedAmount, &d.ClaimedReference,
		&status, &d.ResolutionNotes, &d.ResolvedBy, &d.ResolvedAt, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Status = fee.DisputeStatus(status)
	return &d, nil
}
