package values

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		wantErr  bool
	}{
		{name: "valid ILS", amount: "1180.00", currency: "ILS"},
		{name: "valid USD", amount: "99.99", currency: "USD"},
		{name: "lowercase currency normalized", amount: "5", currency: "ils"},
		{name: "negative amount allowed", amount: "-20.50", currency: "ILS"},
		{name: "empty currency", amount: "10", currency: "", wantErr: true},
		{name: "short currency", amount: "10", currency: "IL", wantErr: true},
		{name: "unsupported currency", amount: "10", currency: "XXX", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoneyFromString(tt.amount, tt.currency)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ILS", MustNewMoney(m.Amount(), "ils").Currency())
		})
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a := NewILS("100.50")
	b := NewILS("49.50")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(NewILS("150.00")))

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.Equal(NewILS("51.00")))

	usd := MustNewMoney(decimal.NewFromInt(5), USD)
	_, err = a.Add(usd)
	assert.Error(t, err)
	_, err = a.Sub(usd)
	assert.Error(t, err)
}

func TestMoney_Compare(t *testing.T) {
	assert.Equal(t, 1, NewILS("10").Compare(NewILS("5")))
	assert.Equal(t, 0, NewILS("5.00").Compare(NewILS("5")))
	assert.Equal(t, -1, NewILS("4").Compare(NewILS("5")))

	assert.Panics(t, func() {
		NewILS("1").Compare(MustNewMoney(decimal.NewFromInt(1), USD))
	})
}

func TestMoney_SplitVAT(t *testing.T) {
	tests := []struct {
		name       string
		gross      string
		wantBefore string
		wantVAT    string
	}{
		{name: "clean split", gross: "1180.00", wantBefore: "1000.00", wantVAT: "180.00"},
		{name: "rounding remainder goes to VAT", gross: "1000.00", wantBefore: "847.46", wantVAT: "152.54"},
		{name: "small amount", gross: "1.00", wantBefore: "0.85", wantVAT: "0.15"},
		{name: "zero", gross: "0", wantBefore: "0.00", wantVAT: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gross := NewILS(tt.gross)
			before, vat := gross.SplitVAT(DefaultVATRate)

			assert.True(t, before.Equal(NewILS(tt.wantBefore)), "before: got %s", before)
			assert.True(t, vat.Equal(NewILS(tt.wantVAT)), "vat: got %s", vat)

			// parts must always recombine exactly
			sum, err := before.Add(vat)
			require.NoError(t, err)
			assert.True(t, sum.Equal(gross), "recombined: got %s, want %s", sum, gross)
		})
	}
}

func TestMoney_Predicates(t *testing.T) {
	assert.True(t, ZeroILS().IsZero())
	assert.True(t, NewILS("0.01").IsPositive())
	assert.True(t, NewILS("-0.01").IsNegative())
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := NewILS("1234.56")

	data, err := m.MarshalJSON()
	require.NoError(t, err)

	var out Money
	require.NoError(t, out.UnmarshalJSON(data))
	assert.True(t, m.Equal(out))
}

func TestMoney_Scan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("1180.00"))
	assert.True(t, m.Equal(NewILS("1180.00")))

	require.NoError(t, m.Scan([]byte("55.5")))
	assert.True(t, m.Equal(NewILS("55.5")))

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	assert.Error(t, m.Scan(struct{}{}))
}
