package fee

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/firmdesk/collections-backend/internal/domain/errors"
	"github.com/firmdesk/collections-backend/internal/domain/values"
)

// Dispute is a client-initiated claim of having already paid a fee.
type Dispute struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	FeeID    uuid.UUID `json:"fee_id"`

	ClaimedDate      *time.Time    `json:"claimed_date,omitempty"`
	ClaimedAmount    *values.Money `json:"claimed_amount,omitempty"`
	ClaimedReference string        `json:"claimed_reference,omitempty"`

	Status          DisputeStatus `json:"status"`
	ResolutionNotes string        `json:"resolution_notes,omitempty"`
	ResolvedBy      *uuid.UUID    `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type DisputeStatus string

const (
	DisputePending        DisputeStatus = "pending"
	DisputeResolvedPaid   DisputeStatus = "resolved_paid"
	DisputeResolvedUnpaid DisputeStatus = "resolved_unpaid"
	DisputeInvalid        DisputeStatus = "invalid"
)

func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputePending, DisputeResolvedPaid, DisputeResolvedUnpaid, DisputeInvalid:
		return true
	default:
		return false
	}
}

// IsResolution reports whether the status is a staff decision (anything but
// pending).
func (s DisputeStatus) IsResolution() bool {
	return s.IsValid() && s != DisputePending
}

// Resolve applies a staff decision to a pending dispute.
func (d *Dispute) Resolve(resolution DisputeStatus, notes string, resolvedBy uuid.UUID) error {
	if !resolution.IsResolution() {
		return errors.NewValidationError("INVALID_RESOLUTION",
			fmt.Sprintf("invalid dispute resolution: %s", resolution))
	}
	if d.Status != DisputePending {
		return errors.ErrDisputeAlreadyResolved
	}

	now := clock.Now()
	d.Status = resolution
	d.ResolutionNotes = notes
	d.ResolvedBy = &resolvedBy
	d.ResolvedAt = &now
	return nil
}

// PaymentDate returns the date to stamp on a payment emitted from this
// dispute: the claimed date when present, otherwise now.
func (d *Dispute) PaymentDate() time.Time {
	if d.ClaimedDate != nil {
		return *d.ClaimedDate
	}
	return clock.Now()
}
