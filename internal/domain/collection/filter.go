package collection

import (
	"fmt"
	"time"

	"github.com/firmdesk/collections-backend/internal/domain/fee"
)

// Filter is the structured dashboard filter. Every dimension is independent
// and conjunctive; zero values mean "no restriction on this dimension".
type Filter struct {
	Status        StatusFilter
	PaymentMethod MethodFilter
	AlertType     AlertFlag
	TimeRange     TimeRange
	Search        string
}

// StatusFilter narrows rows to one payment status.
type StatusFilter struct {
	All    bool
	Status fee.PaymentStatus
}

// FilterAllStatuses matches every status (dimension skipped).
func FilterAllStatuses() StatusFilter {
	return StatusFilter{All: true}
}

// FilterStatus matches a single status.
func FilterStatus(s fee.PaymentStatus) StatusFilter {
	return StatusFilter{Status: s}
}

// MethodFilter narrows rows by selected payment method, including the special
// "not_selected" value for rows where the client has chosen nothing yet.
type MethodFilter struct {
	All         bool
	NotSelected bool
	Method      fee.PaymentMethod
}

func FilterAllMethods() MethodFilter {
	return MethodFilter{All: true}
}

func FilterMethodNotSelected() MethodFilter {
	return MethodFilter{NotSelected: true}
}

func FilterMethod(m fee.PaymentMethod) MethodFilter {
	return MethodFilter{Method: m}
}

// TimeRange is a pre-defined day-offset window over letter_sent_date.
type TimeRange string

const (
	RangeAll    TimeRange = "all"
	RangeCustom TimeRange = "custom"
	Range0to7   TimeRange = "0-7"
	Range8to14  TimeRange = "8-14"
	Range15to30 TimeRange = "15-30"
	Range31to60 TimeRange = "31-60"
	Range60Plus TimeRange = "60+"
)

// timeRangeBounds maps each bucket to its [min, max] day offsets. The buckets
// are contiguous and non-overlapping; 60+ is open-ended.
var timeRangeBounds = map[TimeRange]struct{ min, max int }{
	Range0to7:   {0, 7},
	Range8to14:  {8, 14},
	Range15to30: {15, 30},
	Range31to60: {31, 60},
	Range60Plus: {61, -1},
}

// IsBucket reports whether the range restricts the query; "all" and "custom"
// are no-ops per the dashboard contract.
func (tr TimeRange) IsBucket() bool {
	_, ok := timeRangeBounds[tr]
	return ok
}

// Window resolves the bucket to an absolute letter_sent_date window
// [now - max, now - min]. open is true for the open-ended 60+ bucket, in
// which case only `to` is meaningful.
func (tr TimeRange) Window(now time.Time) (from, to time.Time, open bool, err error) {
	bounds, ok := timeRangeBounds[tr]
	if !ok {
		return time.Time{}, time.Time{}, false, fmt.Errorf("time range %q has no window", tr)
	}

	to = now.AddDate(0, 0, -bounds.min)
	if bounds.max < 0 {
		return time.Time{}, to, true, nil
	}
	from = now.AddDate(0, 0, -bounds.max)
	return from, to, false, nil
}

// BucketForDays classifies a days-since-sent value into exactly one bucket.
func BucketForDays(days int) TimeRange {
	switch {
	case days <= 7:
		return Range0to7
	case days <= 14:
		return Range8to14
	case days <= 30:
		return Range15to30
	case days <= 60:
		return Range31to60
	default:
		return Range60Plus
	}
}

// DateRange is an explicit absolute window, used by KPI reads that scope to
// a reporting period rather than a bucket.
type DateRange struct {
	From time.Time
	To   time.Time
}

// SortField is the allow-list of dashboard sort columns; anything else falls
// back to the default ordering.
type SortField string

const (
	SortByCompanyName SortField = "company_name"
	SortByAmount      SortField = "amount"
	SortByStatus      SortField = "status"
	SortByLetterSent  SortField = "letter_sent_date"
	SortByDaysSince   SortField = "days_since_sent"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort pairs a field with a direction.
type Sort struct {
	Field     SortField
	Direction SortDirection
}

// Page is offset pagination for dashboard reads.
type Page struct {
	Number int
	Size   int
}

// Offset converts the 1-based page number to a row offset.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Size <= 0 {
		p.Size = 50
	}
	if p.Size > 500 {
		p.Size = 500
	}
	if p.Number < 1 {
		p.Number = 1
	}
	return p
}
