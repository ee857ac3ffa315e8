package collection

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/firmdesk/collections-backend/internal/domain/collection"
	"github.com/firmdesk/collections-backend/internal/domain/errors"
	"github.com/firmdesk/collections-backend/internal/domain/fee"
	"github.com/firmdesk/collections-backend/internal/domain/values"
	"github.com/firmdesk/collections-backend/internal/infrastructure/repository"
)

// maxPaymentRetries bounds the optimistic-concurrency retry loop for partial
// payments. Conflicts are rare (two staff members on the same fee), so a
// handful of fresh re-reads is enough before surfacing the conflict.
const maxPaymentRetries = 3

// service implements the Service interface
type service struct {
	feeRepo     FeeRepository
	paymentRepo PaymentRepository
	disputeRepo DisputeRepository
	dashRepo    DashboardRepository
	cache       KPICache
	metrics     MetricsCollector
	logger      *zap.Logger
}

// NewService creates a new collection dashboard service. cache and metrics
// may be nil; reads then always recompute and nothing is recorded.
func NewService(
	feeRepo FeeRepository,
	paymentRepo PaymentRepository,
	disputeRepo DisputeRepository,
	dashRepo DashboardRepository,
	cache KPICache,
	metrics MetricsCollector,
	logger *zap.Logger,
) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		feeRepo:     feeRepo,
		paymentRepo: paymentRepo,
		disputeRepo: disputeRepo,
		dashRepo:    dashRepo,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}
}

// GetDashboardData returns one page of transformed dashboard rows.
func (s *service) GetDashboardData(ctx context.Context, tenantID uuid.UUID, filter collection.Filter, sort collection.Sort, page collection.Page) (*DashboardPage, error) {
	if tenantID == uuid.Nil {
		return nil, errors.ErrNoTenant
	}
	start := time.Now()
	now := start
	page = page.Normalize()

	openDisputes, err := s.disputeRepo.OpenDisputeIndex(ctx, tenantID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load dispute index").WithCause(err)
	}

	rows, total, err := s.dashRepo.ListRows(ctx, tenantID, filter, sort, page, now)
	if err != nil {
		return nil, errors.NewInternalError("failed to load dashboard rows").WithCause(err)
	}

	if s.metrics != nil {
		s.metrics.RecordDashboardLatency(ctx, time.Since(start))
	}

	return &DashboardPage{
		Rows:       collection.TransformRows(rows, openDisputes, now),
		TotalCount: total,
		Page:       page.Number,
		PageSize:   page.Size,
	}, nil
}

// GetKPIs computes the dashboard summary, serving from cache when possible.
func (s *service) GetKPIs(ctx context.Context, tenantID uuid.UUID, dateRange *collection.DateRange) (*collection.KPIs, error) {
	if tenantID == uuid.Nil {
		return nil, errors.ErrNoTenant
	}

	key := kpiCacheKey(tenantID, dateRange)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn("kpi cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	now := time.Now()
	openDisputes, err := s.disputeRepo.OpenDisputeIndex(ctx, tenantID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load dispute index").WithCause(err)
	}

	rows, err := s.dashRepo.ListAll(ctx, tenantID, dateRange)
	if err != nil {
		return nil, errors.NewInternalError("failed to load dashboard rows").WithCause(err)
	}

	kpis := collection.ComputeKPIs(collection.TransformRows(rows, openDisputes, now))

	if s.metrics != nil {
		rate, _ := kpis.CollectionRate.Float64()
		s.metrics.RecordCollectionRate(ctx, rate)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, &kpis); err != nil {
			s.logger.Warn("kpi cache write failed", zap.Error(err))
		}
	}

	return &kpis, nil
}

// MarkAsPaid settles the entire outstanding balance of a fee and writes the
// completing payment event.
func (s *service) MarkAsPaid(ctx context.Context, tenantID, feeID uuid.UUID, input PaymentInput) (*fee.FeeRecord, error) {
	if tenantID == uuid.Nil {
		return nil, errors.ErrNoTenant
	}

	f, err := s.getFee(ctx, tenantID, feeID)
	if err != nil {
		return nil, err
	}

	expectedVersion := f.Version
	if _, err := f.MarkPaid(); err != nil {
		return nil, err
	}
	if input.Method != "" {
		if err := f.SelectPaymentMethod(input.Method); err != nil {
			return nil, err
		}
	}

	if err := s.feeRepo.UpdatePayment(ctx, f, expectedVersion); err != nil {
		return nil, s.mapWriteError(err)
	}

	if err := s.recordCompletingPayment(ctx, f, f.FinalAmount, input); err != nil {
		return nil, err
	}

	s.invalidateKPIs(ctx, tenantID)
	s.logger.Info("fee marked paid",
		zap.String("fee_id", feeID.String()),
		zap.String("amount", f.FinalAmount.String()),
	)
	return f, nil
}

// MarkPartialPayment accumulates a partial payment. The read-modify-write is
// guarded by the fee version; on conflict the fee is re-read and the payment
// reapplied so two concurrent partials both land without overshooting.
func (s *service) MarkPartialPayment(ctx context.Context, tenantID, feeID uuid.UUID, amount values.Money, input PaymentInput) (*fee.FeeRecord, error) {
	if tenantID == uuid.Nil {
		return nil, errors.ErrNoTenant
	}

	var lastErr error
	for attempt := 0; attempt < maxPaymentRetries; attempt++ {
		f, err := s.getFee(ctx, tenantID, feeID)
		if err != nil {
			return nil, err
		}

		expectedVersion := f.Version
		completed, err := f.ApplyPayment(amount)
		if err != nil {
			return nil, err
		}
		if input.Method != "" {
			if err := f.SelectPaymentMethod(input.Method); err != nil {
				return nil, err
			}
		}

		if err := s.feeRepo.UpdatePayment(ctx, f, expectedVersion); err != nil {
			if stderrors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				s.logger.Debug("partial payment version conflict, retrying",
					zap.String("fee_id", feeID.String()),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			return nil, s.mapWriteError(err)
		}

		if completed {
			if err := s.recordCompletingPayment(ctx, f, f.FinalAmount, input); err != nil {
				return nil, err
			}
		}

		if s.metrics != nil {
			s.metrics.RecordPayment(ctx, input.Method, amount)
		}
		s.invalidateKPIs(ctx, tenantID)
		s.logger.Info("partial payment recorded",
			zap.String("fee_id", feeID.String()),
			zap.String("amount", amount.String()),
			zap.Bool("completed", completed),
		)
		return f, nil
	}

	return nil, errors.NewConflictError("fee record was modified concurrently").WithCause(lastErr)
}

// GetDisputedPayments returns all unresolved disputes, oldest first.
func (s *service) GetDisputedPayments(ctx context.Context, tenantID uuid.UUID) ([]*fee.Dispute, error) {
	if tenantID == uuid.Nil {
		return nil, errors.ErrNoTenant
	}

	disputes, err := s.disputeRepo.ListPending(ctx, tenantID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list disputes").WithCause(err)
	}
	return disputes, nil
}

// ResolveDispute applies a staff decision. A resolved_paid decision settles
// the disputed fee and writes the payment event from the claimed details; if
// that settlement fails, resolution still proceeds with a direct status write
// so the dispute never stays open over a bookkeeping failure.
func (s *service) ResolveDispute(ctx context.Context, tenantID, disputeID uuid.UUID, resolution fee.DisputeStatus, notes string, resolvedBy uuid.UUID) (*fee.Dispute, error) {
	if tenantID == uuid.Nil {
		return nil, errors.ErrNoTenant
	}

	d, err := s.disputeRepo.GetByID(ctx, tenantID, disputeID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.ErrDisputeNotFound
		}
		return nil, errors.NewInternalError("failed to load dispute").WithCause(err)
	}

	if err := d.Resolve(resolution, notes, resolvedBy); err != nil {
		return nil, err
	}

	if resolution == fee.DisputeResolvedPaid {
		if err := s.settleDisputedFee(ctx, tenantID, d); err != nil {
			s.logger.Warn("dispute settlement degraded to direct status update",
				zap.String("dispute_id", disputeID.String()),
				zap.String("fee_id", d.FeeID.String()),
				zap.Error(err),
			)
			if err := s.feeRepo.UpdateStatus(ctx, tenantID, d.FeeID, fee.StatusPaid); err != nil {
				return nil, errors.NewInternalError("failed to settle disputed fee").WithCause(err)
			}
		}
		s.invalidateKPIs(ctx, tenantID)
	}

	if err := s.disputeRepo.Update(ctx, d); err != nil {
		return nil, errors.NewInternalError("failed to update dispute").WithCause(err)
	}

	s.logger.Info("dispute resolved",
		zap.String("dispute_id", disputeID.String()),
		zap.String("resolution", string(resolution)),
	)
	return d, nil
}

// BulkMarkPaid settles many fees independently.
func (s *service) BulkMarkPaid(ctx context.Context, tenantID uuid.UUID, feeIDs []uuid.UUID, input PaymentInput) *BulkResult {
	result := newBulkResult()
	for _, id := range feeIDs {
		if _, err := s.MarkAsPaid(ctx, tenantID, id, input); err != nil {
			result.fail(id, err)
			continue
		}
		result.ok(id)
	}
	return result
}

// BulkAddNote appends the same note to many fees independently.
func (s *service) BulkAddNote(ctx context.Context, tenantID uuid.UUID, feeIDs []uuid.UUID, note string) *BulkResult {
	result := newBulkResult()
	for _, id := range feeIDs {
		if err := s.feeRepo.AppendNote(ctx, tenantID, id, note); err != nil {
			result.fail(id, s.mapWriteError(err))
			continue
		}
		result.ok(id)
	}
	return result
}

// BulkSendReminder bumps the reminder counter on many fees independently.
func (s *service) BulkSendReminder(ctx context.Context, tenantID uuid.UUID, feeIDs []uuid.UUID) *BulkResult {
	result := newBulkResult()
	for _, id := range feeIDs {
		if err := s.feeRepo.IncrementReminder(ctx, tenantID, id); err != nil {
			result.fail(id, s.mapWriteError(err))
			continue
		}
		result.ok(id)
	}
	return result
}

func (s *service) getFee(ctx context.Context, tenantID, feeID uuid.UUID) (*fee.FeeRecord, error) {
	f, err := s.feeRepo.GetByID(ctx, tenantID, feeID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.ErrFeeNotFound
		}
		return nil, errors.NewInternalError("failed to load fee").WithCause(err)
	}
	return f, nil
}

// settleDisputedFee closes the disputed fee and writes the payment event from
// the dispute's claimed details.
func (s *service) settleDisputedFee(ctx context.Context, tenantID uuid.UUID, d *fee.Dispute) error {
	f, err := s.getFee(ctx, tenantID, d.FeeID)
	if err != nil {
		return err
	}

	expectedVersion := f.Version
	if _, err := f.MarkPaid(); err != nil {
		return err
	}
	if err := s.feeRepo.UpdatePayment(ctx, f, expectedVersion); err != nil {
		return s.mapWriteError(err)
	}

	method := fee.MethodBankTransfer
	if f.PaymentMethodSelected != nil {
		method = *f.PaymentMethodSelected
	}
	payment, err := fee.NewCompletingPayment(tenantID, d.FeeID, f.FinalAmount, method,
		d.PaymentDate(), d.ClaimedReference, d.ResolutionNotes)
	if err != nil {
		return err
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return fmt.Errorf("failed to record dispute payment: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordPayment(ctx, method, f.FinalAmount)
	}
	return nil
}

func (s *service) recordCompletingPayment(ctx context.Context, f *fee.FeeRecord, amount values.Money, input PaymentInput) error {
	method := input.Method
	if method == "" && f.PaymentMethodSelected != nil {
		method = *f.PaymentMethodSelected
	}

	payment, err := fee.NewCompletingPayment(f.TenantID, f.ID, amount, method, input.Date, input.Reference, input.Notes)
	if err != nil {
		return err
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return errors.NewInternalError("failed to record payment").WithCause(err)
	}

	if s.metrics != nil {
		s.metrics.RecordPayment(ctx, payment.PaymentMethod, amount)
	}
	return nil
}

func (s *service) invalidateKPIs(ctx context.Context, tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.logger.Warn("kpi cache invalidation failed", zap.Error(err))
	}
}

func (s *service) mapWriteError(err error) error {
	switch {
	case stderrors.Is(err, repository.ErrNotFound):
		return errors.ErrFeeNotFound
	case stderrors.Is(err, repository.ErrVersionConflict):
		return errors.NewConflictError("fee record was modified concurrently").WithCause(err)
	default:
		return errors.NewInternalError("fee write failed").WithCause(err)
	}
}

func kpiCacheKey(tenantID uuid.UUID, dateRange *collection.DateRange) string {
	if dateRange == nil {
		return fmt.Sprintf("kpi:%s:all", tenantID)
	}
	return fmt.Sprintf("kpi:%s:%d:%d", tenantID, dateRange.From.Unix(), dateRange.To.Unix())
}
