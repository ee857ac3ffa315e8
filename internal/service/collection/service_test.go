package collection

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/firmdesk/collections-backend/internal/domain/collection"
	"github.com/firmdesk/collections-backend/internal/domain/errors"
	"github.com/firmdesk/collections-backend/internal/domain/fee"
	"github.com/firmdesk/collections-backend/internal/domain/values"
	"github.com/firmdesk/collections-backend/internal/infrastructure/repository"
	"github.com/firmdesk/collections-backend/internal/testutil/mocks"
)

type serviceMocks struct {
	fees      *mocks.FeeRepository
	payments  *mocks.PaymentRepository
	disputes  *mocks.DisputeRepository
	dashboard *mocks.DashboardRepository
	cache     *mocks.KPICache
}

func newTestService(t *testing.T) (Service, *serviceMocks) {
	t.Helper()
	m := &serviceMocks{
		fees:      new(mocks.FeeRepository),
		payments:  new(mocks.PaymentRepository),
		disputes:  new(mocks.DisputeRepository),
		dashboard: new(mocks.DashboardRepository),
		cache:     new(mocks.KPICache),
	}
	svc := NewService(m.fees, m.payments, m.disputes, m.dashboard, m.cache, nil, zap.NewNop())
	return svc, m
}

func pendingFee(t *testing.T, tenantID uuid.UUID, amount int64) *fee.FeeRecord {
	t.Helper()
	f, err := fee.NewFeeRecord(tenantID, uuid.New(), 2025, values.MustNewMoney(decimal.NewFromInt(amount), values.ILS), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, f.MarkLetterSent(time.Now().Add(-72*time.Hour)))
	return f
}

func TestService_GetDashboardData(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("transforms rows and attaches dispute flags", func(t *testing.T) {
		svc, m := newTestService(t)

		sent := time.Now().Add(-10 * 24 * time.Hour)
		disputedID := uuid.New()
		rows := []collection.ViewRow{
			{
				FeeID:          disputedID,
				ClientID:       uuid.New(),
				CompanyNameHe:  "חברת הבדיקה",
				OriginalAmount: values.NewILS("1180"),
				PaidAmount:     values.ZeroILS(),
				Status:         fee.StatusPending,
				LetterSentDate: &sent,
				SourceType:     collection.SourceFee,
			},
			{
				FeeID:          uuid.New(),
				ClientID:       uuid.New(),
				CompanyNameEn:  "Acme Ltd",
				OriginalAmount: values.NewILS("500"),
				PaidAmount:     values.NewILS("500"),
				Status:         fee.StatusPaid,
				LetterSentDate: &sent,
				SourceType:     collection.SourceFee,
			},
		}

		m.disputes.On("OpenDisputeIndex", ctx, tenantID).Return(map[uuid.UUID]bool{disputedID: true}, nil)
		m.dashboard.On("ListRows", ctx, tenantID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(rows, 42, nil)

		page, err := svc.GetDashboardData(ctx, tenantID, collection.Filter{
			Status:        collection.FilterAllStatuses(),
			PaymentMethod: collection.FilterAllMethods(),
		}, collection.Sort{}, collection.Page{Number: 1, Size: 50})

		require.NoError(t, err)
		assert.Equal(t, 42, page.TotalCount)
		require.Len(t, page.Rows, 2)
		assert.True(t, page.Rows[0].HasOpenDispute)
		assert.False(t, page.Rows[1].HasOpenDispute)
		require.NotNil(t, page.Rows[0].DaysSinceSent)
		assert.Equal(t, 10, *page.Rows[0].DaysSinceSent)
	})

	t.Run("rejects nil tenant", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.GetDashboardData(ctx, uuid.Nil, collection.Filter{}, collection.Sort{}, collection.Page{})
		assert.ErrorIs(t, err, errors.ErrNoTenant)
	})
}

func TestService_GetKPIs(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("serves from cache on hit", func(t *testing.T) {
		svc, m := newTestService(t)

		cached := &collection.KPIs{PaidCount: 7}
		m.cache.On("Get", ctx, mock.Anything).Return(cached, nil)

		kpis, err := svc.GetKPIs(ctx, tenantID, nil)
		require.NoError(t, err)
		assert.Equal(t, 7, kpis.PaidCount)
		m.dashboard.AssertNotCalled(t, "ListAll", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("computes and caches on miss", func(t *testing.T) {
		svc, m := newTestService(t)

		rows := []collection.ViewRow{
			{
				FeeID:          uuid.New(),
				OriginalAmount: values.NewILS("1000"),
				PaidAmount:     values.NewILS("1000"),
				Status:         fee.StatusPaid,
				SourceType:     collection.SourceFee,
			},
			{
				FeeID:          uuid.New(),
				OriginalAmount: values.NewILS("3000"),
				PaidAmount:     values.ZeroILS(),
				Status:         fee.StatusPending,
				SourceType:     collection.SourceFee,
			},
		}

		m.cache.On("Get", ctx, mock.Anything).Return(nil, nil)
		m.disputes.On("OpenDisputeIndex", ctx, tenantID).Return(map[uuid.UUID]bool{}, nil)
		m.dashboard.On("ListAll", ctx, tenantID, (*collection.DateRange)(nil)).Return(rows, nil)
		m.cache.On("Set", ctx, mock.Anything, mock.Anything).Return(nil)

		kpis, err := svc.GetKPIs(ctx, tenantID, nil)
		require.NoError(t, err)
		assert.Equal(t, "4000", kpis.TotalExpected.Amount().String())
		assert.Equal(t, "25", kpis.CollectionRate.String())
		m.cache.AssertCalled(t, "Set", ctx, mock.Anything, mock.Anything)
	})

	t.Run("cache failure degrades to recompute", func(t *testing.T) {
		svc, m := newTestService(t)

		m.cache.On("Get", ctx, mock.Anything).Return(nil, assert.AnError)
		m.disputes.On("OpenDisputeIndex", ctx, tenantID).Return(map[uuid.UUID]bool{}, nil)
		m.dashboard.On("ListAll", ctx, tenantID, (*collection.DateRange)(nil)).Return([]collection.ViewRow{}, nil)
		m.cache.On("Set", ctx, mock.Anything, mock.Anything).Return(nil)

		kpis, err := svc.GetKPIs(ctx, tenantID, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, kpis.PaidCount)
	})
}

func TestService_MarkAsPaid(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("settles balance and writes completing payment", func(t *testing.T) {
		svc, m := newTestService(t)
		f := pendingFee(t, tenantID, 1180)

		m.fees.On("GetByID", ctx, tenantID, f.ID).Return(f, nil)
		m.fees.On("UpdatePayment", ctx, f, int64(1)).Return(nil)
		m.payments.On("Create", ctx, mock.MatchedBy(func(p *fee.PaymentEvent) bool {
			return p.FeeID == f.ID && p.AmountPaid.Amount().Equal(decimal.NewFromInt(1180))
		})).Return(nil)
		m.cache.On("Invalidate", ctx, tenantID).Return(nil)

		updated, err := svc.MarkAsPaid(ctx, tenantID, f.ID, PaymentInput{Method: fee.MethodBankTransfer})
		require.NoError(t, err)
		assert.Equal(t, fee.StatusPaid, updated.Status)
		assert.True(t, updated.PaidAmount.Amount().Equal(decimal.NewFromInt(1180)))
		m.payments.AssertExpectations(t)
	})

	t.Run("unknown fee maps to not found", func(t *testing.T) {
		svc, m := newTestService(t)
		feeID := uuid.New()

		m.fees.On("GetByID", ctx, tenantID, feeID).Return(nil, repository.ErrNotFound)

		_, err := svc.MarkAsPaid(ctx, tenantID, feeID, PaymentInput{})
		assert.ErrorIs(t, err, errors.ErrFeeNotFound)
	})

	t.Run("already paid fee is rejected", func(t *testing.T) {
		svc, m := newTestService(t)
		f := pendingFee(t, tenantID, 500)
		_, err := f.MarkPaid()
		require.NoError(t, err)

		m.fees.On("GetByID", ctx, tenantID, f.ID).Return(f, nil)

		_, err = svc.MarkAsPaid(ctx, tenantID, f.ID, PaymentInput{})
		assert.ErrorIs(t, err, errors.ErrFeeAlreadyPaid)
	})
}

func TestService_MarkPartialPayment(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	amount := values.NewILS("400")

	t.Run("accumulates without emitting a payment event", func(t *testing.T) {
		svc, m := newTestService(t)
		f := pendingFee(t, tenantID, 1000)

		m.fees.On("GetByID", ctx, tenantID, f.ID).Return(f, nil)
		m.fees.On("UpdatePayment", ctx, f, int64(1)).Return(nil)
		m.cache.On("Invalidate", ctx, tenantID).Return(nil)

		updated, err := svc.MarkPartialPayment(ctx, tenantID, f.ID, amount, PaymentInput{})
		require.NoError(t, err)
		assert.Equal(t, fee.StatusPartialPaid, updated.Status)
		assert.True(t, updated.PaidAmount.Amount().Equal(decimal.NewFromInt(400)))
		m.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("completing partial emits the accumulated payment", func(t *testing.T) {
		svc, m := newTestService(t)
		f := pendingFee(t, tenantID, 1000)
		_, err := f.ApplyPayment(values.NewILS("600"))
		require.NoError(t, err)
		expectedVersion := f.Version

		m.fees.On("GetByID", ctx, tenantID, f.ID).Return(f, nil)
		m.fees.On("UpdatePayment", ctx, f, expectedVersion).Return(nil)
		m.payments.On("Create", ctx, mock.MatchedBy(func(p *fee.PaymentEvent) bool {
			return p.AmountPaid.Amount().Equal(decimal.NewFromInt(1000))
		})).Return(nil)
		m.cache.On("Invalidate", ctx, tenantID).Return(nil)

		updated, err := svc.MarkPartialPayment(ctx, tenantID, f.ID, amount, PaymentInput{})
		require.NoError(t, err)
		assert.Equal(t, fee.StatusPaid, updated.Status)
		m.payments.AssertExpectations(t)
	})

	t.Run("version conflict re-reads and reapplies", func(t *testing.T) {
		svc, m := newTestService(t)
		first := pendingFee(t, tenantID, 1000)
		second := pendingFee(t, tenantID, 1000)
		second.ID = first.ID
		second.Version = 2

		m.fees.On("GetByID", ctx, tenantID, first.ID).Return(first, nil).Once()
		m.fees.On("UpdatePayment", ctx, first, int64(1)).Return(repository.ErrVersionConflict).Once()
		m.fees.On("GetByID", ctx, tenantID, first.ID).Return(second, nil).Once()
		m.fees.On("UpdatePayment", ctx, second, int64(2)).Return(nil).Once()
		m.cache.On("Invalidate", ctx, tenantID).Return(nil)

		updated, err := svc.MarkPartialPayment(ctx, tenantID, first.ID, amount, PaymentInput{})
		require.NoError(t, err)
		assert.Equal(t, fee.StatusPartialPaid, updated.Status)
		m.fees.AssertExpectations(t)
	})

	t.Run("persistent conflict surfaces as retryable conflict", func(t *testing.T) {
		svc, m := newTestService(t)

		f := pendingFee(t, tenantID, 1000)
		m.fees.On("GetByID", ctx, tenantID, f.ID).Return(f, nil)
		m.fees.On("UpdatePayment", ctx, f, mock.Anything).Return(repository.ErrVersionConflict)

		small := values.NewILS("100")
		_, err := svc.MarkPartialPayment(ctx, tenantID, f.ID, small, PaymentInput{})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
		assert.True(t, errors.IsRetryable(err))
	})

	t.Run("overpayment is rejected without writes", func(t *testing.T) {
		svc, m := newTestService(t)
		f := pendingFee(t, tenantID, 300)

		m.fees.On("GetByID", ctx, tenantID, f.ID).Return(f, nil)

		_, err := svc.MarkPartialPayment(ctx, tenantID, f.ID, amount, PaymentInput{})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		m.fees.AssertNotCalled(t, "UpdatePayment", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_ResolveDispute(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	staffID := uuid.New()

	newDispute := func(feeID uuid.UUID) *fee.Dispute {
		claimed := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
		return &fee.Dispute{
			ID:          uuid.New(),
			TenantID:    tenantID,
			FeeID:       feeID,
			ClaimedDate: &claimed,
			Status:      fee.DisputePending,
			CreatedAt:   time.Now(),
		}
	}

	t.Run("resolved unpaid updates only the dispute", func(t *testing.T) {
		svc, m := newTestService(t)
		d := newDispute(uuid.New())

		m.disputes.On("GetByID", ctx, tenantID, d.ID).Return(d, nil)
		m.disputes.On("Update", ctx, d).Return(nil)

		resolved, err := svc.ResolveDispute(ctx, tenantID, d.ID, fee.DisputeResolvedUnpaid, "no payment found", staffID)
		require.NoError(t, err)
		assert.Equal(t, fee.DisputeResolvedUnpaid, resolved.Status)
		assert.NotNil(t, resolved.ResolvedAt)
		m.fees.AssertNotCalled(t, "UpdatePayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("resolved paid settles the fee with the claimed date", func(t *testing.T) {
		svc, m := newTestService(t)
		f := pendingFee(t, tenantID, 2360)
		d := newDispute(f.ID)

		m.disputes.On("GetByID", ctx, tenantID, d.ID).Return(d, nil)
		m.fees.On("GetByID", ctx, tenantID, f.ID).Return(f, nil)
		m.fees.On("UpdatePayment", ctx, f, int64(1)).Return(nil)
		m.payments.On("Create", ctx, mock.MatchedBy(func(p *fee.PaymentEvent) bool {
			return p.FeeID == f.ID && p.PaymentDate.Equal(*d.ClaimedDate)
		})).Return(nil)
		m.cache.On("Invalidate", ctx, tenantID).Return(nil)
		m.disputes.On("Update", ctx, d).Return(nil)

		resolved, err := svc.ResolveDispute(ctx, tenantID, d.ID, fee.DisputeResolvedPaid, "found the transfer", staffID)
		require.NoError(t, err)
		assert.Equal(t, fee.DisputeResolvedPaid, resolved.Status)
		assert.Equal(t, fee.StatusPaid, f.Status)
		m.payments.AssertExpectations(t)
	})

	t.Run("settlement failure degrades to direct status write", func(t *testing.T) {
		svc, m := newTestService(t)
		f := pendingFee(t, tenantID, 1000)
		d := newDispute(f.ID)

		m.disputes.On("GetByID", ctx, tenantID, d.ID).Return(d, nil)
		m.fees.On("GetByID", ctx, tenantID, f.ID).Return(f, nil)
		m.fees.On("UpdatePayment", ctx, f, int64(1)).Return(assert.AnError)
		m.fees.On("UpdateStatus", ctx, tenantID, f.ID, fee.StatusPaid).Return(nil)
		m.cache.On("Invalidate", ctx, tenantID).Return(nil)
		m.disputes.On("Update", ctx, d).Return(nil)

		resolved, err := svc.ResolveDispute(ctx, tenantID, d.ID, fee.DisputeResolvedPaid, "", staffID)
		require.NoError(t, err)
		assert.Equal(t, fee.DisputeResolvedPaid, resolved.Status)
		m.fees.AssertCalled(t, "UpdateStatus", ctx, tenantID, f.ID, fee.StatusPaid)
	})

	t.Run("already resolved dispute is rejected", func(t *testing.T) {
		svc, m := newTestService(t)
		d := newDispute(uuid.New())
		d.Status = fee.DisputeResolvedUnpaid

		m.disputes.On("GetByID", ctx, tenantID, d.ID).Return(d, nil)

		_, err := svc.ResolveDispute(ctx, tenantID, d.ID, fee.DisputeResolvedPaid, "", staffID)
		assert.ErrorIs(t, err, errors.ErrDisputeAlreadyResolved)
	})
}

func TestService_BulkOperations(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("bulk note reports per-fee outcomes", func(t *testing.T) {
		svc, m := newTestService(t)
		okID, missingID := uuid.New(), uuid.New()

		m.fees.On("AppendNote", ctx, tenantID, okID, "called, promised Friday").Return(nil)
		m.fees.On("AppendNote", ctx, tenantID, missingID, "called, promised Friday").Return(repository.ErrNotFound)

		result := svc.BulkAddNote(ctx, tenantID, []uuid.UUID{okID, missingID}, "called, promised Friday")
		assert.Equal(t, []uuid.UUID{okID}, result.Succeeded)
		assert.Contains(t, result.Failed, missingID)
	})

	t.Run("bulk reminder increments each fee", func(t *testing.T) {
		svc, m := newTestService(t)
		ids := []uuid.UUID{uuid.New(), uuid.New()}

		for _, id := range ids {
			m.fees.On("IncrementReminder", ctx, tenantID, id).Return(nil)
		}

		result := svc.BulkSendReminder(ctx, tenantID, ids)
		assert.Len(t, result.Succeeded, 2)
		assert.Empty(t, result.Failed)
	})

	t.Run("bulk mark paid keeps going past failures", func(t *testing.T) {
		svc, m := newTestService(t)
		good := pendingFee(t, tenantID, 500)
		badID := uuid.New()

		m.fees.On("GetByID", ctx, tenantID, good.ID).Return(good, nil)
		m.fees.On("GetByID", ctx, tenantID, badID).Return(nil, repository.ErrNotFound)
		m.fees.On("UpdatePayment", ctx, good, int64(1)).Return(nil)
		m.payments.On("Create", ctx, mock.Anything).Return(nil)
		m.cache.On("Invalidate", ctx, tenantID).Return(nil)

		result := svc.BulkMarkPaid(ctx, tenantID, []uuid.UUID{good.ID, badID}, PaymentInput{})
		assert.Equal(t, []uuid.UUID{good.ID}, result.Succeeded)
		assert.Contains(t, result.Failed, badID)
	})
}
