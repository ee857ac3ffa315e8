package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firmdesk/collections-backend/internal/domain/collection"
	"github.com/firmdesk/collections-backend/internal/domain/fee"
)

// DashboardRepository reads the pre-joined collection_dashboard_view.
type DashboardRepository struct {
	db *pgxpool.Pool
}

// NewDashboardRepository creates a new dashboard repository
func NewDashboardRepository(db *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{db: db}
}

const dashboardColumns = `
	fee_id, client_id, tax_year,
	company_name_he, company_name_en,
	original_amount, paid_amount, status,
	payment_method_selected, letter_sent_date, last_opened_at,
	promised_payment_date, reminder_count, has_completed_payment, source_type`

// predicate appends SQL conditions and their arguments for one filter
// dimension. Each dimension owns one entry in the dispatch table below, so
// adding a dimension never touches the query assembly.
type predicate func(f collection.Filter, now time.Time, q *queryArgs)

type queryArgs struct {
	tenantID   uuid.UUID
	conditions []string
	args       []interface{}
}

func (q *queryArgs) add(condition string, args ...interface{}) {
	base := len(q.args)
	for i := range args {
		condition = strings.Replace(condition, fmt.Sprintf("@%d", i+1), fmt.Sprintf("$%d", base+i+1), 1)
	}
	q.conditions = append(q.conditions, condition)
	q.args = append(q.args, args...)
}

// filterPredicates is the enum-keyed dispatch table translating each filter
// dimension into a parameterized predicate.
var filterPredicates = []predicate{
	statusPredicate,
	methodPredicate,
	alertPredicate,
	timeRangePredicate,
	searchPredicate,
}

func statusPredicate(f collection.Filter, _ time.Time, q *queryArgs) {
	if f.Status.All {
		return
	}
	q.add("status = @1", f.Status.Status.String())
}

func methodPredicate(f collection.Filter, _ time.Time, q *queryArgs) {
	switch {
	case f.PaymentMethod.All:
		return
	case f.PaymentMethod.NotSelected:
		q.add("payment_method_selected IS NULL")
	default:
		q.add("payment_method_selected = @1", string(f.PaymentMethod.Method))
	}
}

func alertPredicate(f collection.Filter, now time.Time, q *queryArgs) {
	switch f.AlertType {
	case collection.AlertNotOpened7d:
		q.add("status = 'pending' AND payment_method_selected IS NULL AND letter_sent_date <= @1",
			now.AddDate(0, 0, -7))
	case collection.AlertNoSelection14d:
		q.add("status = 'pending' AND payment_method_selected IS NULL AND letter_sent_date <= @1",
			now.AddDate(0, 0, -14))
	case collection.AlertAbandonedCart:
		q.add("payment_method_selected IN ('cc_single', 'cc_installments') AND status <> 'paid' AND NOT has_completed_payment")
	case collection.AlertHasDispute:
		q.add("fee_id IN (SELECT fee_id FROM payment_disputes WHERE tenant_id = @1 AND status = 'pending')", q.tenantID)
	}
}

func timeRangePredicate(f collection.Filter, now time.Time, q *queryArgs) {
	if !f.TimeRange.IsBucket() {
		return
	}
	from, to, open, err := f.TimeRange.Window(now)
	if err != nil {
		return
	}
	if open {
		q.add("letter_sent_date <= @1", to)
		return
	}
	q.add("letter_sent_date BETWEEN @1 AND @2", from, to)
}

func searchPredicate(f collection.Filter, _ time.Time, q *queryArgs) {
	term := strings.TrimSpace(f.Search)
	if term == "" {
		return
	}
	pattern := "%" + term + "%"
	q.add("(company_name_he ILIKE @1 OR company_name_en ILIKE @2)", pattern, pattern)
}

// sortColumns is the allow-list mapping sort fields to view columns.
var sortColumns = map[collection.SortField]string{
	collection.SortByCompanyName: "company_name_he",
	collection.SortByAmount:      "original_amount",
	collection.SortByStatus:      "status",
	collection.SortByLetterSent:  "letter_sent_date",
	collection.SortByDaysSince:   "letter_sent_date",
}

func orderClause(sort collection.Sort) string {
	column, ok := sortColumns[sort.Field]
	if !ok {
		return "letter_sent_date DESC NULLS LAST"
	}

	direction := "DESC"
	if sort.Direction == collection.SortAsc {
		direction = "ASC"
	}
	// days_since_sent inverts: more days means an older send date
	if sort.Field == collection.SortByDaysSince {
		if direction == "ASC" {
			direction = "DESC"
		} else {
			direction = "ASC"
		}
	}
	return column + " " + direction + " NULLS LAST"
}

// ListRows returns one page of dashboard rows plus the unpaginated total.
func (r *DashboardRepository) ListRows(ctx context.Context, tenantID uuid.UUID, filter collection.Filter, sort collection.Sort, page collection.Page, now time.Time) ([]collection.ViewRow, int, error) {
	q := &queryArgs{tenantID: tenantID}
	q.add("tenant_id = @1", tenantID)
	for _, p := range filterPredicates {
		p(filter, now, q)
	}

	where := " WHERE " + strings.Join(q.conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM collection_dashboard_view" + where
	if err := r.db.QueryRow(ctx, countQuery, q.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count dashboard rows: %w", err)
	}

	page = page.Normalize()
	query := "SELECT " + dashboardColumns + " FROM collection_dashboard_view" + where +
		" ORDER BY " + orderClause(sort) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(q.args)+1, len(q.args)+2)
	args := append(q.args, page.Size, page.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list dashboard rows: %w", err)
	}
	defer rows.Close()

	var out []collection.ViewRow
	for rows.Next() {
		row, err := scanViewRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan dashboard row: %w", err)
		}
		out = append(out, row)
	}

	return out, total, rows.Err()
}

// ListAll returns every dashboard row for KPI computation, unfiltered and
// unpaginated.
func (r *DashboardRepository) ListAll(ctx context.Context, tenantID uuid.UUID, dateRange *collection.DateRange) ([]collection.ViewRow, error) {
	q := &queryArgs{tenantID: tenantID}
	q.add("tenant_id = @1", tenantID)
	if dateRange != nil {
		q.add("letter_sent_date BETWEEN @1 AND @2", dateRange.From, dateRange.To)
	}

	query := "SELECT " + dashboardColumns + " FROM collection_dashboard_view WHERE " +
		strings.Join(q.conditions, " AND ")

	rows, err := r.db.Query(ctx, query, q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboard rows: %w", err)
	}
	defer rows.Close()

	var out []collection.ViewRow
	for rows.Next() {
		row, err := scanViewRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dashboard row: %w", err)
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

func scanViewRow(rows pgx.Rows) (collection.ViewRow, error) {
	var row collection.ViewRow
	var statusStr, sourceType string
	var method *string

	err := rows.Scan(
		&row.FeeID, &row.ClientID, &row.TaxYear,
		&row.CompanyNameHe, &row.CompanyNameEn,
		&row.OriginalAmount, &row.PaidAmount, &statusStr,
		&method, &row.LetterSentDate, &row.LastOpenedAt,
		&row.PromisedPaymentDate, &row.ReminderCount, &row.HasCompletedPayment, &sourceType,
	)
	if err != nil {
		return collection.ViewRow{}, err
	}

	row.Status, err = fee.ParsePaymentStatus(statusStr)
	if err != nil {
		return collection.ViewRow{}, err
	}
	if method != nil {
		m := fee.PaymentMethod(*method)
		row.PaymentMethodSelected = &m
	}
	row.SourceType = collection.SourceType(sourceType)
	return row, nil
}
