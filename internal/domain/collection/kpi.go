package collection

import (
	"github.com/shopspring/decimal"

	"github.com/firmdesk/collections-backend/internal/domain/fee"
	"github.com/firmdesk/collections-backend/internal/domain/values"
)

// KPIs is the dashboard summary block: totals, collection rate, per-status
// client counts and alert counts. Computed purely from rows already read;
// never fails on valid input.
type KPIs struct {
	TotalExpected values.Money `json:"total_expected"`
	TotalReceived values.Money `json:"total_received"`
	TotalPending  values.Money `json:"total_pending"`

	// CollectionRate is received/expected as a percentage, rounded to two
	// decimals; exactly zero when nothing is expected.
	CollectionRate decimal.Decimal `json:"collection_rate"`

	SentCount        int `json:"sent_count"`
	PaidCount        int `json:"paid_count"`
	PartialCount     int `json:"partial_count"`
	PendingCount     int `json:"pending_count"`
	NotSelectedCount int `json:"not_selected_count"`

	Unopened7dCount     int `json:"unopened_7d_count"`
	NoSelection14dCount int `json:"no_selection_14d_count"`
	AbandonedCartCount  int `json:"abandoned_cart_count"`
	ActiveDisputeCount  int `json:"active_dispute_count"`
}

// ComputeKPIs aggregates dashboard rows that were already deduplicated and
// dispute-annotated upstream. Alert counts reuse the flags attached during
// row transformation, so the two stay consistent.
func ComputeKPIs(rows []DashboardRow) KPIs {
	k := KPIs{
		TotalExpected:  values.ZeroILS(),
		TotalReceived:  values.ZeroILS(),
		TotalPending:   values.ZeroILS(),
		CollectionRate: decimal.Zero,
	}

	for _, row := range rows {
		k.TotalExpected = mustAdd(k.TotalExpected, row.OriginalAmount)

		switch row.Status {
		case fee.StatusPaid:
			k.TotalReceived = mustAdd(k.TotalReceived, row.OriginalAmount)
			k.PaidCount++
		case fee.StatusPartialPaid:
			k.PartialCount++
		case fee.StatusPending:
			k.PendingCount++
		}

		if row.LetterSentDate != nil {
			k.SentCount++
			if row.PaymentMethodSelected == nil && !row.Status.IsTerminal() {
				k.NotSelectedCount++
			}
		}

		for _, alert := range row.Alerts {
			switch alert {
			case AlertNotOpened7d:
				k.Unopened7dCount++
			case AlertNoSelection14d:
				k.NoSelection14dCount++
			case AlertAbandonedCart:
				k.AbandonedCartCount++
			case AlertHasDispute:
				k.ActiveDisputeCount++
			}
		}
	}

	pending, err := k.TotalExpected.Sub(k.TotalReceived)
	if err == nil {
		k.TotalPending = pending
	}

	if k.TotalExpected.IsPositive() {
		k.CollectionRate = k.TotalReceived.Amount().
			Div(k.TotalExpected.Amount()).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	return k
}

// mustAdd folds same-currency sums; rows from one tenant view share a
// currency so the error branch keeps the accumulator unchanged.
func mustAdd(acc, v values.Money) values.Money {
	sum, err := acc.Add(v)
	if err != nil {
		return acc
	}
	return sum
}
