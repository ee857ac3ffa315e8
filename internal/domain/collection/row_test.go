package collection

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmdesk/collections-backend/internal/domain/fee"
	"github.com/firmdesk/collections-backend/internal/domain/values"
)

func TestTransformRow_DerivedFields(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	feeID := uuid.New()

	row := ViewRow{
		FeeID:                 feeID,
		ClientID:              uuid.New(),
		CompanyNameHe:         "חברת דוגמה",
		CompanyNameEn:         "Example Ltd",
		OriginalAmount:        values.NewILS("1000.00"),
		PaidAmount:            values.NewILS("400.00"),
		Status:                fee.StatusPartialPaid,
		LetterSentDate:        sentDaysAgo(now, 10),
		PaymentMethodSelected: methodPtr(fee.MethodCash),
		SourceType:            SourceFee,
	}

	out := TransformRow(row, map[uuid.UUID]bool{feeID: true}, now)

	require.NotNil(t, out.DaysSinceSent)
	assert.Equal(t, 10, *out.DaysSinceSent)
	assert.True(t, out.AmountRemaining.Equal(values.NewILS("600.00")))
	assert.True(t, out.DiscountPercent.Equal(decimal.NewFromInt(5)))
	assert.True(t, out.HasOpenDispute)
	assert.Contains(t, out.Alerts, AlertHasDispute)
}

func TestTransformRow_DaysSinceSentFloors(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	sent := now.Add(-36 * time.Hour) // 1.5 days

	out := TransformRow(ViewRow{
		FeeID:          uuid.New(),
		OriginalAmount: values.NewILS("1"),
		LetterSentDate: &sent,
		SourceType:     SourceFee,
	}, nil, now)

	require.NotNil(t, out.DaysSinceSent)
	assert.Equal(t, 1, *out.DaysSinceSent)
}

func TestTransformRow_NoLetterNoDays(t *testing.T) {
	out := TransformRow(ViewRow{
		FeeID:          uuid.New(),
		OriginalAmount: values.NewILS("1"),
		Status:         fee.StatusNotSent,
		SourceType:     SourceFee,
	}, nil, time.Now())

	assert.Nil(t, out.DaysSinceSent)
	assert.Empty(t, out.Alerts)
}

func TestTransformRow_BillingRowsNeverAlert(t *testing.T) {
	now := time.Now()

	row := ViewRow{
		FeeID:          uuid.New(),
		OriginalAmount: values.NewILS("500.00"),
		Status:         fee.StatusPending,
		LetterSentDate: sentDaysAgo(now, 30),
		SourceType:     SourceBilling,
	}

	out := TransformRow(row, map[uuid.UUID]bool{row.FeeID: true}, now)

	assert.Empty(t, out.Alerts)
	// dispute presence is still surfaced, just not as an alert
	assert.True(t, out.HasOpenDispute)
}

func TestTransformRow_OverpaidRowClampsRemaining(t *testing.T) {
	out := TransformRow(ViewRow{
		FeeID:          uuid.New(),
		OriginalAmount: values.NewILS("100.00"),
		PaidAmount:     values.NewILS("150.00"),
		SourceType:     SourceFee,
	}, nil, time.Now())

	assert.True(t, out.AmountRemaining.IsZero())
}

func TestAlertsForRow(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		row     ViewRow
		dispute bool
		want    []AlertFlag
	}{
		{
			name: "fresh letter no alerts",
			row: ViewRow{
				Status:         fee.StatusPending,
				LetterSentDate: sentDaysAgo(now, 3),
			},
			want: nil,
		},
		{
			name: "unopened 8 days",
			row: ViewRow{
				Status:         fee.StatusPending,
				LetterSentDate: sentDaysAgo(now, 8),
			},
			want: []AlertFlag{AlertNotOpened7d},
		},
		{
			name: "unopened exactly 7 days triggers",
			row: ViewRow{
				Status:         fee.StatusPending,
				LetterSentDate: sentDaysAgo(now, 7),
			},
			want: []AlertFlag{AlertNotOpened7d},
		},
		{
			name: "unopened 15 days trips both thresholds",
			row: ViewRow{
				Status:         fee.StatusPending,
				LetterSentDate: sentDaysAgo(now, 15),
			},
			want: []AlertFlag{AlertNotOpened7d, AlertNoSelection14d},
		},
		{
			name: "selection suppresses unopened alerts",
			row: ViewRow{
				Status:                fee.StatusPending,
				LetterSentDate:        sentDaysAgo(now, 15),
				PaymentMethodSelected: methodPtr(fee.MethodBankTransfer),
			},
			want: nil,
		},
		{
			name: "abandoned cart single payment",
			row: ViewRow{
				Status:                fee.StatusPending,
				LetterSentDate:        sentDaysAgo(now, 2),
				PaymentMethodSelected: methodPtr(fee.MethodCCSingle),
			},
			want: []AlertFlag{AlertAbandonedCart},
		},
		{
			name: "abandoned cart installments",
			row: ViewRow{
				Status:                fee.StatusPartialPaid,
				LetterSentDate:        sentDaysAgo(now, 2),
				PaymentMethodSelected: methodPtr(fee.MethodCCInstallment),
			},
			want: []AlertFlag{AlertAbandonedCart},
		},
		{
			name: "completed checkout is not abandoned",
			row: ViewRow{
				Status:                fee.StatusPending,
				LetterSentDate:        sentDaysAgo(now, 2),
				PaymentMethodSelected: methodPtr(fee.MethodCCSingle),
				HasCompletedPayment:   true,
			},
			want: nil,
		},
		{
			name: "paid fee never abandoned",
			row: ViewRow{
				Status:                fee.StatusPaid,
				PaymentMethodSelected: methodPtr(fee.MethodCCSingle),
			},
			want: nil,
		},
		{
			name:    "open dispute",
			row:     ViewRow{Status: fee.StatusPending},
			dispute: true,
			want:    []AlertFlag{AlertHasDispute},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AlertsForRow(tt.row, tt.dispute, now)
			assert.Equal(t, tt.want, got)
		})
	}
}
