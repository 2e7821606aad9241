package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalTransaction_SignedAmount(t *testing.T) {
	txn := domain.CanonicalTransaction{Amount: decimal.RequireFromString("52.10"), Direction: domain.Expense}
	assert.Equal(t, "-52.1", txn.SignedAmount().String())

	txn.Direction = domain.Income
	assert.Equal(t, "52.1", txn.SignedAmount().String())
}

func TestCanonicalTransaction_JSONDate(t *testing.T) {
	txn := domain.CanonicalTransaction{Date: civil.Date{Year: 2025, Month: time.November, Day: 1}}
	b, err := json.Marshal(txn)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"date":"2025-11-01"`)
}

func TestMerchantFromDescription(t *testing.T) {
	tests := []struct {
		name string
		desc string
		want string
	}{
		{name: "pos prefix", desc: "POS PURCHASE COFFEE SHOP #1234", want: "COFFEE SHOP"},
		{name: "masked card", desc: "AMAZON MKTPLACE XXXX1234", want: "AMAZON MKTPLACE"},
		{name: "plain", desc: "  Grocery Store  ", want: "Grocery Store"},
		{name: "only noise keeps original", desc: "#123", want: "#123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.MerchantFromDescription(tt.desc))
		})
	}
}

func TestDedupStatus_IsDuplicate(t *testing.T) {
	assert.False(t, domain.DedupUnique.IsDuplicate())
	assert.False(t, domain.DedupStatus("").IsDuplicate())
	assert.True(t, domain.DedupDuplicateWithinFile.IsDuplicate())
	assert.True(t, domain.DedupDuplicateDatabase.IsDuplicate())
	assert.True(t, domain.DedupDuplicatePending.IsDuplicate())
}

func TestSignConvention_Text(t *testing.T) {
	for _, sc := range []domain.SignConvention{domain.SignedAmount, domain.InvertedAmount, domain.DebitCredit} {
		b, err := sc.MarshalText()
		require.NoError(t, err)
		var back domain.SignConvention
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, sc, back)
	}

	var sc domain.SignConvention
	assert.ErrorIs(t, sc.UnmarshalText([]byte("sideways")), apperrors.ErrValidation)
	_, err := domain.SignConvention(42).MarshalText()
	assert.Error(t, err)
}

func TestColumnMapping_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mapping domain.ColumnMapping
		wantErr bool
	}{
		{
			name:    "signed amount",
			mapping: domain.ColumnMapping{DateColumn: domain.Col(0), AmountColumn: domain.Col(1), DescriptionColumn: domain.Col(2), SignConvention: domain.SignedAmount},
		},
		{
			name:    "debit credit",
			mapping: domain.ColumnMapping{DateColumn: domain.Col(0), DebitColumn: domain.Col(2), CreditColumn: domain.Col(3), SignConvention: domain.DebitCredit},
		},
		{
			name:    "missing date",
			mapping: domain.ColumnMapping{AmountColumn: domain.Col(1), SignConvention: domain.SignedAmount},
			wantErr: true,
		},
		{
			name:    "debit credit missing credit",
			mapping: domain.ColumnMapping{DateColumn: domain.Col(0), DebitColumn: domain.Col(2), SignConvention: domain.DebitCredit},
			wantErr: true,
		},
		{
			name:    "amount with debit credit convention",
			mapping: domain.ColumnMapping{DateColumn: domain.Col(0), AmountColumn: domain.Col(1), DebitColumn: domain.Col(2), CreditColumn: domain.Col(3), SignConvention: domain.DebitCredit},
			wantErr: true,
		},
		{
			name:    "zero convention",
			mapping: domain.ColumnMapping{DateColumn: domain.Col(0), AmountColumn: domain.Col(1)},
			wantErr: true,
		},
		{
			name:    "negative index",
			mapping: domain.ColumnMapping{DateColumn: domain.Col(-1), AmountColumn: domain.Col(1), SignConvention: domain.SignedAmount},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mapping.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidMapping)
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				assert.False(t, tt.mapping.Recognized())
			} else {
				assert.NoError(t, err)
				assert.True(t, tt.mapping.Recognized())
			}
		})
	}
}

func TestColumnMapping_MaxColumn(t *testing.T) {
	m := domain.ColumnMapping{DateColumn: domain.Col(0), DebitColumn: domain.Col(4), CreditColumn: domain.Col(3)}
	assert.Equal(t, 4, m.MaxColumn())
	assert.Equal(t, -1, domain.ColumnMapping{}.MaxColumn())
}

func TestRawRow_Text(t *testing.T) {
	assert.Equal(t, "03/04/2024,-52.10,COFFEE SHOP", domain.RawRow{"03/04/2024", "-52.10", "COFFEE SHOP"}.Text())
	assert.Equal(t, `"a,b",c`, domain.RawRow{"a,b", "c"}.Text())
	assert.NotEqual(t, domain.RawRow{"a,b", "c"}.Text(), domain.RawRow{"a", "b,c"}.Text())
	assert.Equal(t, `"say ""hi""",1.00`, domain.RawRow{`say "hi"`, "1.00"}.Text())
}
