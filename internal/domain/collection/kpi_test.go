package collection

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/firmdesk/collections-backend/internal/domain/fee"
	"github.com/firmdesk/collections-backend/internal/domain/values"
)

func sentDaysAgo(now time.Time, days int) *time.Time {
	t := now.AddDate(0, 0, -days)
	return &t
}

func methodPtr(m fee.PaymentMethod) *fee.PaymentMethod {
	return &m
}

func TestComputeKPIs_EmptyInput(t *testing.T) {
	k := ComputeKPIs(nil)

	assert.True(t, k.TotalExpected.IsZero())
	assert.True(t, k.TotalReceived.IsZero())
	assert.True(t, k.TotalPending.IsZero())
	assert.True(t, k.CollectionRate.IsZero())
	assert.Zero(t, k.SentCount)
	assert.Zero(t, k.Unopened7dCount)
}

func TestComputeKPIs_TotalsAndRate(t *testing.T) {
	now := time.Now()

	rows := []DashboardRow{
		{ViewRow: ViewRow{
			FeeID:          uuid.New(),
			OriginalAmount: values.NewILS("1000.00"),
			Status:         fee.StatusPaid,
			LetterSentDate: sentDaysAgo(now, 3),
		}},
		{ViewRow: ViewRow{
			FeeID:          uuid.New(),
			OriginalAmount: values.NewILS("2000.00"),
			Status:         fee.StatusPending,
			LetterSentDate: sentDaysAgo(now, 3),
		}},
		{ViewRow: ViewRow{
			FeeID:          uuid.New(),
			OriginalAmount: values.NewILS("1000.00"),
			Status:         fee.StatusPartialPaid,
			PaidAmount:     values.NewILS("400.00"),
			LetterSentDate: sentDaysAgo(now, 3),
		}},
	}

	k := ComputeKPIs(rows)

	assert.True(t, k.TotalExpected.Equal(values.NewILS("4000.00")), "expected: %s", k.TotalExpected)
	assert.True(t, k.TotalReceived.Equal(values.NewILS("1000.00")))
	assert.True(t, k.TotalPending.Equal(values.NewILS("3000.00")))
	assert.True(t, k.CollectionRate.Equal(decimal.NewFromInt(25)), "rate: %s", k.CollectionRate)

	assert.Equal(t, 1, k.PaidCount)
	assert.Equal(t, 1, k.PendingCount)
	assert.Equal(t, 1, k.PartialCount)
	assert.Equal(t, 3, k.SentCount)
}

func TestComputeKPIs_RateRoundingAndBounds(t *testing.T) {
	rows := []DashboardRow{
		{ViewRow: ViewRow{OriginalAmount: values.NewILS("300.00"), Status: fee.StatusPaid}},
		{ViewRow: ViewRow{OriginalAmount: values.NewILS("600.00"), Status: fee.StatusPending}},
	}

	k := ComputeKPIs(rows)
	// 300/900 = 33.333... -> 33.33
	assert.True(t, k.CollectionRate.Equal(decimal.NewFromFloat(33.33)), "rate: %s", k.CollectionRate)
	assert.True(t, k.CollectionRate.GreaterThanOrEqual(decimal.Zero))
	assert.True(t, k.CollectionRate.LessThanOrEqual(decimal.NewFromInt(100)))
}

func TestComputeKPIs_FullyPaidIsHundredPercent(t *testing.T) {
	rows := []DashboardRow{
		{ViewRow: ViewRow{OriginalAmount: values.NewILS("500.00"), Status: fee.StatusPaid}},
	}
	k := ComputeKPIs(rows)
	assert.True(t, k.CollectionRate.Equal(decimal.NewFromInt(100)))
	assert.True(t, k.TotalPending.IsZero())
}

func TestComputeKPIs_AlertCounts(t *testing.T) {
	now := time.Now()

	unopened := TransformRow(ViewRow{
		FeeID:          uuid.New(),
		OriginalAmount: values.NewILS("100.00"),
		Status:         fee.StatusPending,
		LetterSentDate: sentDaysAgo(now, 20),
	}, nil, now)

	abandoned := TransformRow(ViewRow{
		FeeID:                 uuid.New(),
		OriginalAmount:        values.NewILS("100.00"),
		Status:                fee.StatusPending,
		LetterSentDate:        sentDaysAgo(now, 2),
		PaymentMethodSelected: methodPtr(fee.MethodCCSingle),
	}, nil, now)

	disputed := TransformRow(ViewRow{
		FeeID:          uuid.New(),
		OriginalAmount: values.NewILS("100.00"),
		Status:         fee.StatusPending,
		LetterSentDate: sentDaysAgo(now, 2),
	}, map[uuid.UUID]bool{}, now)
	disputed.HasOpenDispute = true
	disputed.Alerts = append(disputed.Alerts, AlertHasDispute)

	k := ComputeKPIs([]DashboardRow{unopened, abandoned, disputed})

	// 20 days unopened trips both thresholds
	assert.Equal(t, 1, k.Unopened7dCount)
	assert.Equal(t, 1, k.NoSelection14dCount)
	assert.Equal(t, 1, k.AbandonedCartCount)
	assert.Equal(t, 1, k.ActiveDisputeCount)
	assert.Equal(t, 2, k.NotSelectedCount)
}

func TestComputeKPIs_NotSelectedCount(t *testing.T) {
	now := time.Now()
	rows := []DashboardRow{
		{ViewRow: ViewRow{OriginalAmount: values.NewILS("1"), Status: fee.StatusPending, LetterSentDate: sentDaysAgo(now, 1)}},
		{ViewRow: ViewRow{OriginalAmount: values.NewILS("1"), Status: fee.StatusPending, LetterSentDate: sentDaysAgo(now, 1), PaymentMethodSelected: methodPtr(fee.MethodCash)}},
		{ViewRow: ViewRow{OriginalAmount: values.NewILS("1"), Status: fee.StatusPaid, LetterSentDate: sentDaysAgo(now, 1)}},
	}
	k := ComputeKPIs(rows)
	assert.Equal(t, 1, k.NotSelectedCount)
	assert.Equal(t, 3, k.SentCount)
}
