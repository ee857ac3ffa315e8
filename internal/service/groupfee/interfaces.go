package groupfee

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/firmdesk/collections-backend/internal/domain/fee"
)

// Service settles group-level billing obligations.
type Service interface {
	// MarkGroupAsPaid settles a group fee and every member fee in one
	// transaction, returning the settled group and the member fee ids the
	// cascade touched.
	MarkGroupAsPaid(ctx context.Context, tenantID, groupCalcID uuid.UUID, input PaymentInput) (*GroupPaymentResult, error)
}

// GroupRepository defines the interface for group fee storage
type GroupRepository interface {
	GetByID(ctx context.Context, tenantID, groupCalcID uuid.UUID) (*fee.GroupFeeRecord, error)
	// SettleGroup applies the group transition, the member fan-out and the
	// payment event atomically.
	SettleGroup(ctx context.Context, g *fee.GroupFeeRecord, payment *fee.PaymentEvent) ([]uuid.UUID, error)
}

// PaymentInput carries the caller-supplied payment details.
type PaymentInput struct {
	Method    fee.PaymentMethod
	Date      time.Time
	Reference string
	Notes     string
}

// GroupPaymentResult reports the settled group and the cascade scope.
type GroupPaymentResult struct {
	Group        *fee.GroupFeeRecord `json:"group"`
	MemberFeeIDs []uuid.UUID         `json:"member_fee_ids"`
	Payment      *fee.PaymentEvent   `json:"payment"`
}
