package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/firmdesk/collections-backend/internal/domain/collection"
	"github.com/firmdesk/collections-backend/internal/domain/fee"
	"github.com/firmdesk/collections-backend/internal/domain/values"
)

// FeeRepository mock
type FeeRepository struct {
	mock.Mock
}

func (m *FeeRepository) GetByID(ctx context.Context, tenantID, feeID uuid.UUID) (*fee.FeeRecord, error) {
	args := m.Called(ctx, tenantID, feeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.FeeRecord), args.Error(1)
}

func (m *FeeRepository) UpdatePayment(ctx context.Context, f *fee.FeeRecord, expectedVersion int64) error {
	args := m.Called(ctx, f, expectedVersion)
	return args.Error(0)
}

func (m *FeeRepository) UpdateStatus(ctx context.Context, tenantID, feeID uuid.UUID, status fee.PaymentStatus) error {
	args := m.Called(ctx, tenantID, feeID, status)
	return args.Error(0)
}

func (m *FeeRepository) IncrementReminder(ctx context.Context, tenantID, feeID uuid.UUID) error {
	args := m.Called(ctx, tenantID, feeID)
	return args.Error(0)
}

func (m *FeeRepository) AppendNote(ctx context.Context, tenantID, feeID uuid.UUID, note string) error {
	args := m.Called(ctx, tenantID, feeID, note)
	return args.Error(0)
}

// PaymentRepository mock
type PaymentRepository struct {
	mock.Mock
}

func (m *PaymentRepository) Create(ctx context.Context, p *fee.PaymentEvent) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// DisputeRepository mock
type DisputeRepository struct {
	mock.Mock
}

func (m *DisputeRepository) GetByID(ctx context.Context, tenantID, disputeID uuid.UUID) (*fee.Dispute, error) {
	args := m.Called(ctx, tenantID, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.Dispute), args.Error(1)
}

func (m *DisputeRepository) ListPending(ctx context.Context, tenantID uuid.UUID) ([]*fee.Dispute, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*fee.Dispute), args.Error(1)
}

func (m *DisputeRepository) OpenDisputeIndex(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]bool, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]bool), args.Error(1)
}

func (m *DisputeRepository) Update(ctx context.Context, d *fee.Dispute) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// DashboardRepository mock
type DashboardRepository struct {
	mock.Mock
}

func (m *DashboardRepository) ListRows(ctx context.Context, tenantID uuid.UUID, filter collection.Filter, sort collection.Sort, page collection.Page, now time.Time) ([]collection.ViewRow, int, error) {
	args := m.Called(ctx, tenantID, filter, sort, page, now)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]collection.ViewRow), args.Int(1), args.Error(2)
}

func (m *DashboardRepository) ListAll(ctx context.Context, tenantID uuid.UUID, dateRange *collection.DateRange) ([]collection.ViewRow, error) {
	args := m.Called(ctx, tenantID, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]collection.ViewRow), args.Error(1)
}

// TrackingRepository mock
type TrackingRepository struct {
	mock.Mock
}

func (m *TrackingRepository) ListByYear(ctx context.Context, tenantID uuid.UUID, taxYear int) ([]collection.ViewRow, error) {
	args := m.Called(ctx, tenantID, taxYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]collection.ViewRow), args.Error(1)
}

// GroupFeeRepository mock
type GroupFeeRepository struct {
	mock.Mock
}

func (m *GroupFeeRepository) GetByID(ctx context.Context, tenantID, groupCalcID uuid.UUID) (*fee.GroupFeeRecord, error) {
	args := m.Called(ctx, tenantID, groupCalcID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.GroupFeeRecord), args.Error(1)
}

func (m *GroupFeeRepository) SettleGroup(ctx context.Context, g *fee.GroupFeeRecord, payment *fee.PaymentEvent) ([]uuid.UUID, error) {
	args := m.Called(ctx, g, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// KPICache mock
type KPICache struct {
	mock.Mock
}

func (m *KPICache) Get(ctx context.Context, key string) (*collection.KPIs, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*collection.KPIs), args.Error(1)
}

func (m *KPICache) Set(ctx context.Context, key string, k *collection.KPIs) error {
	args := m.Called(ctx, key, k)
	return args.Error(0)
}

func (m *KPICache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

// MetricsCollector mock
type MetricsCollector struct {
	mock.Mock
}

func (m *MetricsCollector) RecordPayment(ctx context.Context, method fee.PaymentMethod, amount values.Money) {
	m.Called(ctx, method, amount)
}

func (m *MetricsCollector) RecordDashboardLatency(ctx context.Context, latency time.Duration) {
	m.Called(ctx, latency)
}

func (m *MetricsCollector) RecordCollectionRate(ctx context.Context, rate float64) {
	m.Called(ctx, rate)
}
