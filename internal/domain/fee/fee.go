package fee

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/firmdesk/collections-backend/internal/domain/errors"
	"github.com/firmdesk/collections-backend/internal/domain/values"
)

// FeeRecord is one client's billing obligation for one tax year.
type FeeRecord struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	ClientID uuid.UUID `json:"client_id"`
	TaxYear  int       `json:"tax_year"`

	// GroupID links member fees that share a group-level obligation.
	GroupID *uuid.UUID `json:"group_id,omitempty"`

	BaseAmount      values.Money    `json:"base_amount"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	FinalAmount     values.Money    `json:"final_amount"`
	VATAmount       values.Money    `json:"vat_amount"`

	Status     PaymentStatus `json:"status"`
	PaidAmount values.Money  `json:"paid_amount"`

	PaymentMethodSelected *PaymentMethod `json:"payment_method_selected,omitempty"`
	PromisedPaymentDate   *time.Time     `json:"promised_payment_date,omitempty"`
	LetterSentDate        *time.Time     `json:"letter_sent_date,omitempty"`
	ReminderCount         int            `json:"reminder_count"`
	Notes                 string         `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version guards concurrent partial-payment accumulation.
	Version int64 `json:"version"`
}

type PaymentStatus int

const (
	StatusNotCalculated PaymentStatus = iota
	StatusNotSent
	StatusPending
	StatusPartialPaid
	StatusPaid
	StatusCancelled
)

func (s PaymentStatus) String() string {
	switch s {
	case StatusNotCalculated:
		return "not_calculated"
	case StatusNotSent:
		return "not_sent"
	case StatusPending:
		return "pending"
	case StatusPartialPaid:
		return "partial_paid"
	case StatusPaid:
		return "paid"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParsePaymentStatus maps a persisted status label to its enum value.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch s {
	case "not_calculated":
		return StatusNotCalculated, nil
	case "not_sent":
		return StatusNotSent, nil
	case "pending", "sent":
		return StatusPending, nil
	case "partial_paid":
		return StatusPartialPaid, nil
	case "paid":
		return StatusPaid, nil
	case "cancelled":
		return StatusCancelled, nil
	default:
		return StatusNotCalculated, fmt.Errorf("unknown payment status: %q", s)
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

type PaymentMethod string

const (
	MethodBankTransfer  PaymentMethod = "bank_transfer"
	MethodChecks        PaymentMethod = "checks"
	MethodCCSingle      PaymentMethod = "cc_single"
	MethodCCInstallment PaymentMethod = "cc_installments"
	MethodCash          PaymentMethod = "cash"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodBankTransfer, MethodChecks, MethodCCSingle, MethodCCInstallment, MethodCash:
		return true
	default:
		return false
	}
}

// IsCreditCard reports whether the method runs through the card checkout flow.
func (m PaymentMethod) IsCreditCard() bool {
	return m == MethodCCSingle || m == MethodCCInstallment
}

// methodDiscounts is the static payment-method discount table shown on the
// collection letter.
var methodDiscounts = map[PaymentMethod]decimal.Decimal{
	MethodBankTransfer:  decimal.Zero,
	MethodChecks:        decimal.Zero,
	MethodCCSingle:      decimal.NewFromFloat(2.5),
	MethodCCInstallment: decimal.Zero,
	MethodCash:          decimal.NewFromInt(5),
}

// DiscountPercent returns the discount granted for paying via this method.
func (m PaymentMethod) DiscountPercent() decimal.Decimal {
	if d, ok := methodDiscounts[m]; ok {
		return d
	}
	return decimal.Zero
}

// NewFeeRecord creates a calculated fee that has not yet been sent.
func NewFeeRecord(tenantID, clientID uuid.UUID, taxYear int, base values.Money, discountPercent decimal.Decimal) (*FeeRecord, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("tenant ID cannot be nil")
	}
	if clientID == uuid.Nil {
		return nil, fmt.Errorf("client ID cannot be nil")
	}
	if taxYear < 2000 || taxYear > 2100 {
		return nil, fmt.Errorf("tax year out of range: %d", taxYear)
	}
	if base.IsNegative() {
		return nil, fmt.Errorf("base amount cannot be negative")
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("discount percent out of range: %s", discountPercent)
	}

	hundred := decimal.NewFromInt(100)
	factor := hundred.Sub(discountPercent).Div(hundred)
	final := base.Mul(factor).RoundToAgorot()
	_, vat := final.SplitVAT(values.DefaultVATRate)

	now := clock.Now()
	return &FeeRecord{
		ID:              uuid.New(),
		TenantID:        tenantID,
		ClientID:        clientID,
		TaxYear:         taxYear,
		BaseAmount:      base,
		DiscountPercent: discountPercent,
		FinalAmount:     final,
		VATAmount:       vat,
		Status:          StatusNotSent,
		PaidAmount:      values.ZeroILS(),
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}, nil
}

// AmountRemaining is the outstanding balance.
func (f *FeeRecord) AmountRemaining() values.Money {
	rem, err := f.FinalAmount.Sub(f.PaidAmount)
	if err != nil {
		return values.ZeroILS()
	}
	return rem
}

// MarkLetterSent transitions not_sent -> pending when the collection letter
// goes out.
func (f *FeeRecord) MarkLetterSent(at time.Time) error {
	if f.Status != StatusNotSent {
		return errors.NewBusinessError("LETTER_ALREADY_SENT",
			fmt.Sprintf("cannot send letter in status %s", f.Status))
	}
	f.Status = StatusPending
	f.LetterSentDate = &at
	f.UpdatedAt = clock.Now()
	return nil
}

// SelectPaymentMethod records the client's payment-method choice.
func (f *FeeRecord) SelectPaymentMethod(m PaymentMethod) error {
	if !m.IsValid() {
		return errors.NewValidationError("INVALID_PAYMENT_METHOD",
			fmt.Sprintf("unknown payment method: %s", m))
	}
	if f.Status.IsTerminal() {
		return errors.NewBusinessError("FEE_CLOSED",
			fmt.Sprintf("cannot select payment method in status %s", f.Status))
	}
	f.PaymentMethodSelected = &m
	f.UpdatedAt = clock.Now()
	return nil
}

// ApplyPayment accumulates a partial payment. It returns true when the
// accumulated total reaches the final amount and the record transitions to
// paid; the caller is then responsible for emitting the completing
// PaymentEvent carrying the full accumulated amount.
//
// Over-payment is rejected before any mutation: paid_amount never exceeds
// final_amount.
func (f *FeeRecord) ApplyPayment(amount values.Money) (completed bool, err error) {
	if !amount.IsPositive() {
		return false, errors.NewValidationError("INVALID_AMOUNT", "payment amount must be positive")
	}
	if f.Status.IsTerminal() {
		return false, errors.ErrFeeAlreadyPaid
	}
	if f.Status == StatusNotCalculated || f.Status == StatusNotSent {
		return false, errors.NewBusinessError("LETTER_NOT_SENT",
			fmt.Sprintf("cannot record payment in status %s", f.Status))
	}

	newTotal, err := f.PaidAmount.Add(amount)
	if err != nil {
		return false, errors.NewValidationError("INVALID_AMOUNT", "payment amount is incompatible with fee currency").WithCause(err)
	}
	if newTotal.Compare(f.FinalAmount) > 0 {
		return false, errors.NewValidationError("PAYMENT_EXCEEDS_TOTAL", "partial payment exceeds total").
			WithDetails(map[string]interface{}{
				"final_amount": f.FinalAmount.String(),
				"paid_amount":  f.PaidAmount.String(),
				"attempted":    amount.String(),
			})
	}

	f.PaidAmount = newTotal
	if newTotal.Compare(f.FinalAmount) == 0 {
		f.Status = StatusPaid
		completed = true
	} else {
		f.Status = StatusPartialPaid
	}
	f.UpdatedAt = clock.Now()
	return completed, nil
}

// MarkPaid settles the entire outstanding balance in one step and returns the
// amount that was outstanding.
func (f *FeeRecord) MarkPaid() (values.Money, error) {
	if f.Status.IsTerminal() {
		return values.Money{}, errors.ErrFeeAlreadyPaid
	}
	if f.Status == StatusNotCalculated || f.Status == StatusNotSent {
		return values.Money{}, errors.NewBusinessError("LETTER_NOT_SENT",
			fmt.Sprintf("cannot mark paid in status %s", f.Status))
	}

	outstanding := f.AmountRemaining()
	f.PaidAmount = f.FinalAmount
	f.Status = StatusPaid
	f.UpdatedAt = clock.Now()
	return outstanding, nil
}

// Cancel voids a fee before any money has been received.
func (f *FeeRecord) Cancel() error {
	if f.Status.IsTerminal() {
		return errors.NewBusinessError("FEE_CLOSED",
			fmt.Sprintf("cannot cancel fee in status %s", f.Status))
	}
	if f.PaidAmount.IsPositive() {
		return errors.NewBusinessError("FEE_HAS_PAYMENTS", "cannot cancel a fee with recorded payments")
	}
	f.Status = StatusCancelled
	f.UpdatedAt = clock.Now()
	return nil
}

// IncrementReminder bumps the reminder counter when another letter goes out.
func (f *FeeRecord) IncrementReminder() {
	f.ReminderCount++
	f.UpdatedAt = clock.Now()
}
