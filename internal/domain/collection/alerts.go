package collection

import (
	"time"

	"github.com/firmdesk/collections-backend/internal/domain/fee"
)

// AlertFlag is a derived, recomputed-on-read annotation; it is never stored.
type AlertFlag string

const (
	AlertNotOpened7d    AlertFlag = "not_opened_7d"
	AlertNoSelection14d AlertFlag = "no_selection_14d"
	AlertAbandonedCart  AlertFlag = "abandoned_cart"
	AlertHasDispute     AlertFlag = "has_dispute"
)

const (
	unopenedAlertAfter    = 7 * 24 * time.Hour
	noSelectionAlertAfter = 14 * 24 * time.Hour
)

// AlertsForRow evaluates every alert predicate against one fee row. The same
// predicates drive the KPI alert counts, so a row flagged here is counted
// there and vice versa.
func AlertsForRow(row ViewRow, hasOpenDispute bool, now time.Time) []AlertFlag {
	var alerts []AlertFlag

	if isUnopened(row, now, unopenedAlertAfter) {
		alerts = append(alerts, AlertNotOpened7d)
	}
	if isUnopened(row, now, noSelectionAlertAfter) {
		alerts = append(alerts, AlertNoSelection14d)
	}
	if isAbandonedCart(row) {
		alerts = append(alerts, AlertAbandonedCart)
	}
	if hasOpenDispute {
		alerts = append(alerts, AlertHasDispute)
	}

	return alerts
}

// isUnopened: letter sent, nothing selected, and the letter has been sitting
// for at least the threshold.
func isUnopened(row ViewRow, now time.Time, threshold time.Duration) bool {
	if row.Status != fee.StatusPending {
		return false
	}
	if row.PaymentMethodSelected != nil {
		return false
	}
	if row.LetterSentDate == nil {
		return false
	}
	return !row.LetterSentDate.After(now.Add(-threshold))
}

// isAbandonedCart: the client picked a card flow but never completed the
// checkout.
func isAbandonedCart(row ViewRow) bool {
	if row.PaymentMethodSelected == nil || !row.PaymentMethodSelected.IsCreditCard() {
		return false
	}
	if row.Status == fee.StatusPaid {
		return false
	}
	return !row.HasCompletedPayment
}
