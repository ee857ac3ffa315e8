package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/firmdesk/collections-backend/internal/domain/collection"
	domainErrors "github.com/firmdesk/collections-backend/internal/domain/errors"
	"github.com/firmdesk/collections-backend/internal/domain/fee"
	"github.com/firmdesk/collections-backend/internal/domain/values"
	collectionsvc "github.com/firmdesk/collections-backend/internal/service/collection"
	"github.com/firmdesk/collections-backend/internal/service/feetracking"
	"github.com/firmdesk/collections-backend/internal/service/groupfee"
)

// Handler serves the collection dashboard, fee tracking and group fee APIs.
type Handler struct {
	collection collectionsvc.Service
	tracking   feetracking.Service
	groups     groupfee.Service
	validate   *validator.Validate
	logger     *zap.Logger
}

func NewHandler(collectionService collectionsvc.Service, trackingService feetracking.Service, groupService groupfee.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		collection: collectionService,
		tracking:   trackingService,
		groups:     groupService,
		validate:   validator.New(),
		logger:     logger,
	}
}

// --- request payloads ---

type paymentRequest struct {
	Method    string `json:"method" validate:"omitempty,oneof=bank_transfer checks cc_single cc_installments cash"`
	Date      string `json:"date" validate:"omitempty"`
	Reference string `json:"reference" validate:"max=255"`
	Notes     string `json:"notes" validate:"max=2000"`
}

type partialPaymentRequest struct {
	Amount string `json:"amount" validate:"required"`
	paymentRequest
}

type resolveDisputeRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=resolved_paid resolved_unpaid invalid"`
	Notes      string `json:"notes" validate:"max=2000"`
}

type bulkMarkPaidRequest struct {
	FeeIDs []string `json:"fee_ids" validate:"required,min=1,max=500,dive,uuid"`
	paymentRequest
}

type bulkNoteRequest struct {
	FeeIDs []string `json:"fee_ids" validate:"required,min=1,max=500,dive,uuid"`
	Note   string   `json:"note" validate:"required,max=2000"`
}

type bulkReminderRequest struct {
	FeeIDs []string `json:"fee_ids" validate:"required,min=1,max=500,dive,uuid"`
}

// --- dashboard reads ---

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant")
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	page, err := h.collection.GetDashboardData(r.Context(), tenantID, filter, parseSort(r), parsePage(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, page)
}

func (h *Handler) handleKPIs(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant")
		return
	}

	dateRange, err := parseDateRange(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	kpis, err := h.collection.GetKPIs(r.Context(), tenantID, dateRange)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, kpis)
}

// --- payment writes ---

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant")
		return
	}
	feeID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req paymentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	record, err := h.collection.MarkAsPaid(r.Context(), tenantID, feeID, input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, record)
}

func (h *Handler) handlePartialPayment(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant")
		return
	}
	feeID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req partialPaymentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	amount, err := values.NewMoneyFromString(req.Amount, values.ILS)
	if err != nil {
		writeError(w, h.logger, domainErrors.NewValidationError("INVALID_AMOUNT", "amount must be a positive decimal").WithCause(err))
		return
	}
	input, err := req.toInput()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	record, err := h.collection.MarkPartialPayment(r.Context(), tenantID, feeID, amount, input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, record)
}

// --- disputes ---

func (h *Handler) handleListDisputes(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant")
		return
	}

	disputes, err := h.collection.GetDisputedPayments(r.Context(), tenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, disputes)
}

func (h *Handler) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant")
		return
	}
	disputeID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req resolveDisputeRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resolvedBy, _ := UserFromContext(r.Context())
	dispute, err := h.collection.ResolveDispute(r.Context(), tenantID, disputeID, fee.DisputeStatus(req.Resolution), req.Notes, resolvedBy)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, dispute)
}

// --- bulk operations ---

func (h *Handler) handleBulkMarkPaid(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant")
		return
	}

	var req bulkMarkPaidRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	feeIDs, err := parseUUIDs(req.FeeIDs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result := h.collection.BulkMarkPaid(r.Context(), tenantID, feeIDs, input)
	writeData(w, http.StatusOK, result)
}

func (h *Handler) handleBulkAddNote(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant")
		return
	}

	var req bulkNoteRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	feeIDs, err := parseUUIDs(req.FeeIDs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result := h.collection.BulkAddNote(r.Context(), tenantID, feeIDs, req.Note)
	writeData(w, http.StatusOK, result)
}

func (h *Handler) handleBulkSendReminder(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant")
		return
	}

	var req bulkReminderRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	feeIDs, err := parseUUIDs(req.FeeIDs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result := h.collection.BulkSendReminder(r.Context(), tenantID, feeIDs)
	writeData(w, http.StatusOK, result)
}

// --- fee tracking ---

func (h *Handler) handleTracking(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant")
		return
	}

	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		writeError(w, h.logger, domainErrors.NewValidationError("INVALID_TAX_YEAR", "tax year must be numeric"))
		return
	}

	data, err := h.tracking.GetTrackingData(r.Context(), tenantID, year)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, data)
}

// --- group fees ---

func (h *Handler) handleGroupMarkPaid(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant")
		return
	}
	groupID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req paymentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.groups.MarkGroupAsPaid(r.Context(), tenantID, groupID, groupfee.PaymentInput{
		Method:    input.Method,
		Date:      input.Date,
		Reference: input.Reference,
		Notes:     input.Notes,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// --- decoding and parsing helpers ---

func (h *Handler) decode(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return domainErrors.NewValidationError("INVALID_BODY", "request body is not valid JSON").WithCause(err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return domainErrors.NewValidationError("VALIDATION_FAILED", err.Error())
	}
	return nil
}

func (r paymentRequest) toInput() (collectionsvc.PaymentInput, error) {
	input := collectionsvc.PaymentInput{
		Reference: r.Reference,
		Notes:     r.Notes,
	}
	if r.Method != "" {
		input.Method = fee.PaymentMethod(r.Method)
	}
	if r.Date != "" {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return input, domainErrors.NewValidationError("INVALID_DATE", "date must be YYYY-MM-DD")
		}
		input.Date = date
	}
	return input, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domainErrors.NewValidationError("INVALID_ID", "path id must be a UUID")
	}
	return id, nil
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, domainErrors.NewValidationError("INVALID_ID", "fee_ids must be UUIDs")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseFilter maps the dashboard query parameters onto the structured filter.
// The "sent" label is accepted as an alias for pending to match what the
// collection letters screen displays.
func parseFilter(r *http.Request) (collection.Filter, error) {
	q := r.URL.Query()
	filter := collection.Filter{
		Status:        collection.FilterAllStatuses(),
		PaymentMethod: collection.FilterAllMethods(),
		TimeRange:     collection.RangeAll,
		Search:        q.Get("search"),
	}

	if raw := q.Get("status"); raw != "" && raw != "all" {
		status, err := fee.ParsePaymentStatus(raw)
		if err != nil {
			return filter, domainErrors.NewValidationError("INVALID_FILTER", "unknown status filter")
		}
		filter.Status = collection.FilterStatus(status)
	}

	if raw := q.Get("payment_method"); raw != "" && raw != "all" {
		if raw == "not_selected" {
			filter.PaymentMethod = collection.FilterMethodNotSelected()
		} else {
			method := fee.PaymentMethod(raw)
			if !method.IsValid() {
				return filter, domainErrors.NewValidationError("INVALID_FILTER", "unknown payment method filter")
			}
			filter.PaymentMethod = collection.FilterMethod(method)
		}
	}

	if raw := q.Get("alert_type"); raw != "" && raw != "all" {
		switch flag := collection.AlertFlag(raw); flag {
		case collection.AlertNotOpened7d, collection.AlertNoSelection14d, collection.AlertAbandonedCart, collection.AlertHasDispute:
			filter.AlertType = flag
		default:
			return filter, domainErrors.NewValidationError("INVALID_FILTER", "unknown alert type filter")
		}
	}

	if raw := q.Get("time_range"); raw != "" {
		tr := collection.TimeRange(raw)
		if tr != collection.RangeAll && tr != collection.RangeCustom && !tr.IsBucket() {
			return filter, domainErrors.NewValidationError("INVALID_FILTER", "unknown time range filter")
		}
		filter.TimeRange = tr
	}

	return filter, nil
}

func parseSort(r *http.Request) collection.Sort {
	q := r.URL.Query()
	sort := collection.Sort{
		Field:     collection.SortField(q.Get("sort_by")),
		Direction: collection.SortDirection(q.Get("sort_dir")),
	}
	if sort.Direction != collection.SortAsc && sort.Direction != collection.SortDesc {
		sort.Direction = collection.SortAsc
	}
	return sort
}

func parsePage(r *http.Request) collection.Page {
	q := r.URL.Query()
	page := collection.Page{Number: 1}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		page.Number = n
	}
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil {
		page.Size = size
	}
	return page.Normalize()
}

func parseDateRange(r *http.Request) (*collection.DateRange, error) {
	q := r.URL.Query()
	fromRaw, toRaw := q.Get("from"), q.Get("to")
	if fromRaw == "" && toRaw == "" {
		return nil, nil
	}
	if fromRaw == "" || toRaw == "" {
		return nil, domainErrors.NewValidationError("INVALID_DATE_RANGE", "from and to must both be provided")
	}

	from, err := time.Parse("2006-01-02", fromRaw)
	if err != nil {
		return nil, domainErrors.NewValidationError("INVALID_DATE_RANGE", "from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", toRaw)
	if err != nil {
		return nil, domainErrors.NewValidationError("INVALID_DATE_RANGE", "to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, domainErrors.NewValidationError("INVALID_DATE_RANGE", "to must not precede from")
	}
	return &collection.DateRange{From: from, To: to.AddDate(0, 0, 1)}, nil
}
