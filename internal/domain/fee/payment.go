package fee

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/firmdesk/collections-backend/internal/domain/values"
)

// PaymentEvent is an immutable record of money received against a fee.
// Partial payments accumulate on the FeeRecord itself; a single completing
// event is written only when the fee closes, carrying the full accumulated
// amount with its VAT breakdown.
type PaymentEvent struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	FeeID    uuid.UUID `json:"fee_id"`

	AmountPaid      values.Money `json:"amount_paid"`
	AmountBeforeVAT values.Money `json:"amount_before_vat"`
	VATAmount       values.Money `json:"vat_amount"`

	PaymentMethod    PaymentMethod `json:"payment_method"`
	PaymentDate      time.Time     `json:"payment_date"`
	PaymentReference string        `json:"payment_reference,omitempty"`
	Notes            string        `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewCompletingPayment builds the event that closes a fee. The VAT breakdown
// is back-computed from the gross amount at the default rate.
func NewCompletingPayment(tenantID, feeID uuid.UUID, amount values.Money, method PaymentMethod, paymentDate time.Time, reference, notes string) (*PaymentEvent, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("tenant ID cannot be nil")
	}
	if feeID == uuid.Nil {
		return nil, fmt.Errorf("fee ID cannot be nil")
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	if method == "" {
		method = MethodBankTransfer
	}
	if !method.IsValid() {
		return nil, fmt.Errorf("invalid payment method: %s", method)
	}
	if paymentDate.IsZero() {
		paymentDate = clock.Now()
	}

	beforeVAT, vat := amount.SplitVAT(values.DefaultVATRate)

	return &PaymentEvent{
		ID:               uuid.New(),
		TenantID:         tenantID,
		FeeID:            feeID,
		AmountPaid:       amount,
		AmountBeforeVAT:  beforeVAT,
		VATAmount:        vat,
		PaymentMethod:    method,
		PaymentDate:      paymentDate,
		PaymentReference: reference,
		Notes:            notes,
		CreatedAt:        clock.Now(),
	}, nil
}
