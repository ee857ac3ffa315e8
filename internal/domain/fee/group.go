package fee

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/firmdesk/collections-backend/internal/domain/errors"
	"github.com/firmdesk/collections-backend/internal/domain/values"
)

// GroupFeeRecord is one billing obligation shared across all clients in a
// client group. Paying the group settles every member FeeRecord; the fan-out
// must be applied atomically with the group's own transition.
type GroupFeeRecord struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	GroupID  uuid.UUID `json:"group_id"`
	TaxYear  int       `json:"tax_year"`

	AuditAmount       values.Money `json:"audit_amount"`
	BookkeepingAmount values.Money `json:"bookkeeping_amount"`
	TotalAmount       values.Money `json:"total_amount"`

	Status PaymentStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewGroupFeeRecord creates a calculated group fee. The total is the sum of
// the audit and bookkeeping sub-totals.
func NewGroupFeeRecord(tenantID, groupID uuid.UUID, taxYear int, audit, bookkeeping values.Money) (*GroupFeeRecord, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("tenant ID cannot be nil")
	}
	if groupID == uuid.Nil {
		return nil, fmt.Errorf("group ID cannot be nil")
	}
	if taxYear < 2000 || taxYear > 2100 {
		return nil, fmt.Errorf("tax year out of range: %d", taxYear)
	}
	if audit.IsNegative() || bookkeeping.IsNegative() {
		return nil, fmt.Errorf("group fee amounts cannot be negative")
	}

	total, err := audit.Add(bookkeeping)
	if err != nil {
		return nil, err
	}

	now := clock.Now()
	return &GroupFeeRecord{
		ID:                uuid.New(),
		TenantID:          tenantID,
		GroupID:           groupID,
		TaxYear:           taxYear,
		AuditAmount:       audit,
		BookkeepingAmount: bookkeeping,
		TotalAmount:       total,
		Status:            StatusNotSent,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// MarkPaid transitions the group obligation to paid. Member fee records are
// settled by the group-fee service inside the same transaction.
func (g *GroupFeeRecord) MarkPaid() error {
	if g.Status.IsTerminal() {
		return errors.ErrFeeAlreadyPaid
	}
	g.Status = StatusPaid
	g.UpdatedAt = clock.Now()
	return nil
}
