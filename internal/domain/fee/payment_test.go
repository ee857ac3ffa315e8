package fee

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmdesk/collections-backend/internal/domain/values"
)

func TestNewCompletingPayment(t *testing.T) {
	tenantID := uuid.New()
	feeID := uuid.New()

	t.Run("vat breakdown recombines exactly", func(t *testing.T) {
		p, err := NewCompletingPayment(tenantID, feeID, values.NewILS("1000.00"), MethodChecks, time.Now(), "chk-55", "")
		require.NoError(t, err)

		sum, err := p.AmountBeforeVAT.Add(p.VATAmount)
		require.NoError(t, err)
		assert.True(t, sum.Equal(p.AmountPaid))
		assert.True(t, p.AmountBeforeVAT.Equal(values.NewILS("847.46")))
		assert.True(t, p.VATAmount.Equal(values.NewILS("152.54")))
	})

	t.Run("defaults method to bank transfer", func(t *testing.T) {
		p, err := NewCompletingPayment(tenantID, feeID, values.NewILS("118.00"), "", time.Time{}, "", "")
		require.NoError(t, err)
		assert.Equal(t, MethodBankTransfer, p.PaymentMethod)
		assert.False(t, p.PaymentDate.IsZero())
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewCompletingPayment(tenantID, feeID, values.ZeroILS(), MethodCash, time.Now(), "", "")
		assert.Error(t, err)
	})

	t.Run("rejects nil ids", func(t *testing.T) {
		_, err := NewCompletingPayment(uuid.Nil, feeID, values.NewILS("1"), MethodCash, time.Now(), "", "")
		assert.Error(t, err)
		_, err = NewCompletingPayment(tenantID, uuid.Nil, values.NewILS("1"), MethodCash, time.Now(), "", "")
		assert.Error(t, err)
	})

	t.Run("rejects unknown method", func(t *testing.T) {
		_, err := NewCompletingPayment(tenantID, feeID, values.NewILS("1"), PaymentMethod("wire"), time.Now(), "", "")
		assert.Error(t, err)
	})
}

func TestDispute_Resolve(t *testing.T) {
	resolver := uuid.New()

	newDispute := func() *Dispute {
		return &Dispute{
			ID:       uuid.New(),
			TenantID: uuid.New(),
			FeeID:    uuid.New(),
			Status:   DisputePending,
		}
	}

	t.Run("resolves pending dispute", func(t *testing.T) {
		d := newDispute()
		require.NoError(t, d.Resolve(DisputeResolvedPaid, "bank statement confirmed", resolver))
		assert.Equal(t, DisputeResolvedPaid, d.Status)
		assert.Equal(t, "bank statement confirmed", d.ResolutionNotes)
		require.NotNil(t, d.ResolvedBy)
		assert.Equal(t, resolver, *d.ResolvedBy)
		assert.NotNil(t, d.ResolvedAt)
	})

	t.Run("double resolution rejected", func(t *testing.T) {
		d := newDispute()
		require.NoError(t, d.Resolve(DisputeResolvedUnpaid, "", resolver))
		assert.Error(t, d.Resolve(DisputeInvalid, "", resolver))
	})

	t.Run("pending is not a resolution", func(t *testing.T) {
		d := newDispute()
		assert.Error(t, d.Resolve(DisputePending, "", resolver))
	})
}

func TestDispute_PaymentDate(t *testing.T) {
	claimed := time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)
	d := &Dispute{Status: DisputePending, ClaimedDate: &claimed}
	assert.Equal(t, claimed, d.PaymentDate())

	d2 := &Dispute{Status: DisputePending}
	assert.WithinDuration(t, time.Now(), d2.PaymentDate(), time.Minute)
}

func TestGroupFeeRecord(t *testing.T) {
	g, err := NewGroupFeeRecord(uuid.New(), uuid.New(), 2024, values.NewILS("5000.00"), values.NewILS("3000.00"))
	require.NoError(t, err)
	assert.True(t, g.TotalAmount.Equal(values.NewILS("8000.00")))
	assert.Equal(t, StatusNotSent, g.Status)

	require.NoError(t, g.MarkPaid())
	assert.Equal(t, StatusPaid, g.Status)
	assert.Error(t, g.MarkPaid())
}

func TestLetterRecord_RecordOpen(t *testing.T) {
	l := &LetterRecord{ID: uuid.New(), FeeID: uuid.New(), SentAt: time.Now()}

	first := time.Now()
	l.RecordOpen(first)
	l.RecordOpen(first.Add(time.Hour))

	assert.Equal(t, 2, l.OpenCount)
	require.NotNil(t, l.OpenedAt)
	assert.Equal(t, first, *l.OpenedAt)
}
