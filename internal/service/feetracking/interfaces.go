package feetracking

import (
	"context"

	"github.com/google/uuid"

	"github.com/firmdesk/collections-backend/internal/domain/collection"
)

// Service serves the per-tax-year fee tracking screen.
type Service interface {
	// GetTrackingData returns every tracked client fee for one tax year,
	// transformed and summarized.
	GetTrackingData(ctx context.Context, tenantID uuid.UUID, taxYear int) (*TrackingData, error)
}

// TrackingRepository defines the interface for tracking view reads
type TrackingRepository interface {
	ListByYear(ctx context.Context, tenantID uuid.UUID, taxYear int) ([]collection.ViewRow, error)
}

// DisputeIndexer supplies the tenant-wide open-dispute index.
type DisputeIndexer interface {
	OpenDisputeIndex(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]bool, error)
}

// TrackingData is the full tracking screen payload: all rows for the year
// plus the summary block computed from the same rows.
type TrackingData struct {
	TaxYear int                       `json:"tax_year"`
	Rows    []collection.DashboardRow `json:"rows"`
	KPIs    collection.KPIs           `json:"kpis"`
}
