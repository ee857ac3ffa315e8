package collection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/firmdesk/collections-backend/internal/domain/collection"
	"github.com/firmdesk/collections-backend/internal/domain/fee"
	"github.com/firmdesk/collections-backend/internal/domain/values"
)

// Service is the collection dashboard service: reads, payment recording and
// dispute handling, all scoped to one tenant per call.
type Service interface {
	// GetDashboardData returns one filtered, sorted, paginated page of
	// dashboard rows with derived fields and alert flags attached.
	GetDashboardData(ctx context.Context, tenantID uuid.UUID, filter collection.Filter, sort collection.Sort, page collection.Page) (*DashboardPage, error)
	// GetKPIs returns the dashboard summary block, optionally scoped to a
	// reporting period.
	GetKPIs(ctx context.Context, tenantID uuid.UUID, dateRange *collection.DateRange) (*collection.KPIs, error)
	// MarkAsPaid settles the full outstanding balance of a fee.
	MarkAsPaid(ctx context.Context, tenantID, feeID uuid.UUID, input PaymentInput) (*fee.FeeRecord, error)
	// MarkPartialPayment accumulates a partial payment against a fee.
	MarkPartialPayment(ctx context.Context, tenantID, feeID uuid.UUID, amount values.Money, input PaymentInput) (*fee.FeeRecord, error)
	// GetDisputedPayments returns all unresolved disputes for the tenant.
	GetDisputedPayments(ctx context.Context, tenantID uuid.UUID) ([]*fee.Dispute, error)
	// ResolveDispute applies a staff decision to a pending dispute.
	ResolveDispute(ctx context.Context, tenantID, disputeID uuid.UUID, resolution fee.DisputeStatus, notes string, resolvedBy uuid.UUID) (*fee.Dispute, error)
	// BulkMarkPaid settles many fees, reporting per-fee success.
	BulkMarkPaid(ctx context.Context, tenantID uuid.UUID, feeIDs []uuid.UUID, input PaymentInput) *BulkResult
	// BulkAddNote appends the same note to many fees.
	BulkAddNote(ctx context.Context, tenantID uuid.UUID, feeIDs []uuid.UUID, note string) *BulkResult
	// BulkSendReminder bumps the reminder counter on many fees.
	BulkSendReminder(ctx context.Context, tenantID uuid.UUID, feeIDs []uuid.UUID) *BulkResult
}

// FeeRepository defines the interface for fee calculation storage
type FeeRepository interface {
	GetByID(ctx context.Context, tenantID, feeID uuid.UUID) (*fee.FeeRecord, error)
	// UpdatePayment writes payment fields guarded by an optimistic version
	// check; it fails when the stored version moved past expectedVersion.
	UpdatePayment(ctx context.Context, f *fee.FeeRecord, expectedVersion int64) error
	// UpdateStatus is the unguarded status write used when a payment record
	// cannot be produced and only the status must land.
	UpdateStatus(ctx context.Context, tenantID, feeID uuid.UUID, status fee.PaymentStatus) error
	IncrementReminder(ctx context.Context, tenantID, feeID uuid.UUID) error
	AppendNote(ctx context.Context, tenantID, feeID uuid.UUID, note string) error
}

// PaymentRepository defines the interface for the append-only payment log
type PaymentRepository interface {
	Create(ctx context.Context, p *fee.PaymentEvent) error
}

// DisputeRepository defines the interface for dispute storage
type DisputeRepository interface {
	GetByID(ctx context.Context, tenantID, disputeID uuid.UUID) (*fee.Dispute, error)
	ListPending(ctx context.Context, tenantID uuid.UUID) ([]*fee.Dispute, error)
	// OpenDisputeIndex returns the fee ids with a pending dispute, fetched
	// once per dashboard read.
	OpenDisputeIndex(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]bool, error)
	Update(ctx context.Context, d *fee.Dispute) error
}

// DashboardRepository defines the interface for dashboard view reads
type DashboardRepository interface {
	ListRows(ctx context.Context, tenantID uuid.UUID, filter collection.Filter, sort collection.Sort, page collection.Page, now time.Time) ([]collection.ViewRow, int, error)
	ListAll(ctx context.Context, tenantID uuid.UUID, dateRange *collection.DateRange) ([]collection.ViewRow, error)
}

// KPICache caches computed KPI blocks per tenant and reporting period.
type KPICache interface {
	Get(ctx context.Context, key string) (*collection.KPIs, error)
	Set(ctx context.Context, key string, k *collection.KPIs) error
	// Invalidate drops every cached KPI block for the tenant after a write.
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// MetricsCollector defines the interface for collecting dashboard metrics
type MetricsCollector interface {
	RecordPayment(ctx context.Context, method fee.PaymentMethod, amount values.Money)
	RecordDashboardLatency(ctx context.Context, latency time.Duration)
	RecordCollectionRate(ctx context.Context, rate float64)
}

// PaymentInput carries the caller-supplied payment details.
type PaymentInput struct {
	Method    fee.PaymentMethod
	Date      time.Time
	Reference string
	Notes     string
}

// DashboardPage is one page of transformed rows plus the unpaginated total.
type DashboardPage struct {
	Rows       []collection.DashboardRow `json:"rows"`
	TotalCount int                       `json:"total_count"`
	Page       int                       `json:"page"`
	PageSize   int                       `json:"page_size"`
}

// BulkResult reports per-fee outcomes of a bulk operation. A bulk call never
// fails as a whole; each fee succeeds or fails on its own.
type BulkResult struct {
	Succeeded []uuid.UUID          `json:"succeeded"`
	Failed    map[uuid.UUID]string `json:"failed,omitempty"`
}

func newBulkResult() *BulkResult {
	return &BulkResult{Failed: make(map[uuid.UUID]string)}
}

func (b *BulkResult) ok(id uuid.UUID) {
	b.Succeeded = append(b.Succeeded, id)
}

func (b *BulkResult) fail(id uuid.UUID, err error) {
	b.Failed[id] = err.Error()
}
