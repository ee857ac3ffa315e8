package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firmdesk/collections-backend/internal/domain/collection"
)

// TrackingRepository reads fee_tracking_enhanced_view, the per-tax-year
// flattening used by the fee tracking screen.
type TrackingRepository struct {
	db *pgxpool.Pool
}

// NewTrackingRepository creates a new tracking repository
func NewTrackingRepository(db *pgxpool.Pool) *TrackingRepository {
	return &TrackingRepository{db: db}
}

// ListByYear returns every tracked client fee for one tax year.
func (r *TrackingRepository) ListByYear(ctx context.Context, tenantID uuid.UUID, taxYear int) ([]collection.ViewRow, error) {
	query := `
		SELECT fee_id, client_id, tax_year,
			company_name_he, company_name_en,
			original_amount, paid_amount, status,
			payment_method_selected, letter_sent_date, last_opened_at,
			promised_payment_date, reminder_count, has_completed_payment, source_type
		FROM fee_tracking_enhanced_view
		WHERE tenant_id = $1 AND tax_year = $2
		ORDER BY company_name_he`

	rows, err := r.db.Query(ctx, query, tenantID, taxYear)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracking rows: %w", err)
	}
	defer rows.Close()

	var out []collection.ViewRow
	for rows.Next() {
		row, err := scanViewRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracking row: %w", err)
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

// GroupMembers returns the fee ids linked to a client group for one tax year;
// used to report the cascade scope back to callers.
func (r *TrackingRepository) GroupMembers(ctx context.Context, tenantID, groupID uuid.UUID, taxYear int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM fee_calculations
		WHERE tenant_id = $1 AND group_id = $2 AND tax_year = $3`

	rows, err := r.db.Query(ctx, query, tenantID, groupID, taxYear)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
