package feetracking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/firmdesk/collections-backend/internal/domain/collection"
	"github.com/firmdesk/collections-backend/internal/domain/errors"
)

// service implements the Service interface
type service struct {
	trackingRepo TrackingRepository
	disputes     DisputeIndexer
	logger       *zap.Logger
}

// NewService creates a new fee tracking service
func NewService(trackingRepo TrackingRepository, disputes DisputeIndexer, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		trackingRepo: trackingRepo,
		disputes:     disputes,
		logger:       logger,
	}
}

// GetTrackingData loads the year's rows once, annotates them with the
// open-dispute index and computes the summary from the same transformed rows,
// so the table and its totals can never disagree.
func (s *service) GetTrackingData(ctx context.Context, tenantID uuid.UUID, taxYear int) (*TrackingData, error) {
	if tenantID == uuid.Nil {
		return nil, errors.ErrNoTenant
	}
	if taxYear < 2000 || taxYear > 2100 {
		return nil, errors.NewValidationError("INVALID_TAX_YEAR",
			fmt.Sprintf("tax year out of range: %d", taxYear))
	}

	openDisputes, err := s.disputes.OpenDisputeIndex(ctx, tenantID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load dispute index").WithCause(err)
	}

	rows, err := s.trackingRepo.ListByYear(ctx, tenantID, taxYear)
	if err != nil {
		return nil, errors.NewInternalError("failed to load tracking rows").WithCause(err)
	}

	transformed := collection.TransformRows(rows, openDisputes, time.Now())
	return &TrackingData{
		TaxYear: taxYear,
		Rows:    transformed,
		KPIs:    collection.ComputeKPIs(transformed),
	}, nil
}
