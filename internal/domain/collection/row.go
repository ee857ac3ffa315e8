package collection

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/firmdesk/collections-backend/internal/domain/fee"
	"github.com/firmdesk/collections-backend/internal/domain/values"
)

// SourceType discriminates per-client fee calculations from ad-hoc billing
// letters. Billing rows never carry alerts.
type SourceType string

const (
	SourceFee     SourceType = "fee"
	SourceBilling SourceType = "billing"
)

// ViewRow is one raw row of collection_dashboard_view: the pre-joined
// flattening of client, fee, letter and payment data, one row per client fee.
type ViewRow struct {
	FeeID    uuid.UUID
	ClientID uuid.UUID
	TaxYear  int

	CompanyNameHe string
	CompanyNameEn string

	OriginalAmount values.Money
	PaidAmount     values.Money
	Status         fee.PaymentStatus

	PaymentMethodSelected *fee.PaymentMethod
	LetterSentDate        *time.Time
	LastOpenedAt          *time.Time
	PromisedPaymentDate   *time.Time
	ReminderCount         int

	// HasCompletedPayment comes from the payment-method-selection log, not
	// the fee record; it distinguishes an abandoned card checkout from one
	// that went through.
	HasCompletedPayment bool

	SourceType SourceType
}

// DashboardRow is the typed row handed to callers: a ViewRow annotated with
// derived fields and alert flags.
type DashboardRow struct {
	ViewRow

	DaysSinceSent   *int            `json:"days_since_sent,omitempty"`
	AmountRemaining values.Money    `json:"amount_remaining"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	HasOpenDispute  bool            `json:"has_open_dispute"`
	Alerts          []AlertFlag     `json:"alerts,omitempty"`
}

// TransformRow annotates one raw view row. openDisputes is the tenant-wide
// open-dispute index keyed by fee id, fetched once per read (the reference
// system looked disputes up per row; a missing index entry simply means no
// alert).
func TransformRow(row ViewRow, openDisputes map[uuid.UUID]bool, now time.Time) DashboardRow {
	out := DashboardRow{
		ViewRow:         row,
		AmountRemaining: amountRemaining(row),
		HasOpenDispute:  openDisputes[row.FeeID],
	}

	if row.LetterSentDate != nil {
		days := int(now.Sub(*row.LetterSentDate).Hours() / 24)
		if days < 0 {
			days = 0
		}
		out.DaysSinceSent = &days
	}

	if row.PaymentMethodSelected != nil {
		out.DiscountPercent = row.PaymentMethodSelected.DiscountPercent()
	} else {
		out.DiscountPercent = decimal.Zero
	}

	if row.SourceType != SourceBilling {
		out.Alerts = AlertsForRow(row, out.HasOpenDispute, now)
	}

	return out
}

// TransformRows annotates a page of view rows.
func TransformRows(rows []ViewRow, openDisputes map[uuid.UUID]bool, now time.Time) []DashboardRow {
	out := make([]DashboardRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, TransformRow(row, openDisputes, now))
	}
	return out
}

func amountRemaining(row ViewRow) values.Money {
	rem, err := row.OriginalAmount.Sub(row.PaidAmount)
	if err != nil || rem.IsNegative() {
		return values.ZeroILS()
	}
	return rem
}
