package columns_test

import (
	"testing"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/SscSPs/txn_ingest/internal/ingest/columns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func col(t *testing.T, p *int) int {
	t.Helper()
	require.NotNil(t, p)
	return *p
}

func TestAnalyze_SignedAmountWithHeader(t *testing.T) {
	rows := []domain.RawRow{
		{"Date", "Amount", "Description"},
		{"03/04/2024", "-52.10", "COFFEE SHOP"},
		{"03/05/2024", "2500.00", "PAYROLL DEPOSIT"},
		{"03/15/2024", "-12.00", "BOOKSTORE"},
	}

	a := columns.Analyze(rows)

	assert.True(t, a.HasHeader)
	assert.True(t, a.Recognized())
	assert.Equal(t, 3, a.ColumnCount)
	assert.Equal(t, 3, a.SampledRows)
	assert.Equal(t, 0, col(t, a.Mapping.DateColumn))
	assert.Equal(t, 1, col(t, a.Mapping.AmountColumn))
	assert.Equal(t, 2, col(t, a.Mapping.DescriptionColumn))
	assert.Equal(t, domain.SignedAmount, a.Mapping.SignConvention)
	assert.Equal(t, "MM/DD/YYYY", a.Mapping.DateFormat)
	assert.Equal(t, columns.RoleDate, a.Columns[0].Role)
	assert.Equal(t, columns.RoleAmount, a.Columns[1].Role)
	assert.Equal(t, columns.RoleDescription, a.Columns[2].Role)
}

func TestAnalyze_DateCellsWithClockTime(t *testing.T) {
	rows := []domain.RawRow{
		{"Date", "Amount", "Description"},
		{"03/04/2024 14:30", "-52.10", "COFFEE SHOP"},
		{"03/05/2024 09:05", "2500.00", "PAYROLL DEPOSIT"},
		{"03/15/2024 18:45", "-12.00", "BOOKSTORE"},
	}

	a := columns.Analyze(rows)

	require.True(t, a.Recognized())
	assert.Equal(t, 0, col(t, a.Mapping.DateColumn))
	assert.Equal(t, "MM/DD/YYYY", a.Mapping.DateFormat)
	assert.Equal(t, columns.RoleDate, a.Columns[0].Role)
}

func TestAnalyze_DebitCreditHeadersSkipBalance(t *testing.T) {
	rows := []domain.RawRow{
		{"Date", "Description", "Debit", "Credit", "Balance"},
		{"04/01/2024", "GROCERY", "45.00", "", "1000.00"},
		{"04/02/2024", "SALARY", "0", "100.00", "1100.00"},
	}

	a := columns.Analyze(rows)

	require.True(t, a.Recognized())
	assert.Equal(t, domain.DebitCredit, a.Mapping.SignConvention)
	assert.Equal(t, 2, col(t, a.Mapping.DebitColumn))
	assert.Equal(t, 3, col(t, a.Mapping.CreditColumn))
	assert.Nil(t, a.Mapping.AmountColumn)
	assert.Equal(t, 1, col(t, a.Mapping.DescriptionColumn))
	assert.Equal(t, columns.RoleBalance, a.Columns[4].Role)
}

func TestAnalyze_HeaderlessComplementaryColumns(t *testing.T) {
	rows := []domain.RawRow{
		{"2024-04-01", "GROCERY STORE", "45.00", ""},
		{"2024-04-02", "SALARY", "", "100.00"},
		{"2024-04-03", "FUEL STATION", "30.00", ""},
	}

	a := columns.Analyze(rows)

	assert.False(t, a.HasHeader)
	require.True(t, a.Recognized())
	assert.Equal(t, domain.DebitCredit, a.Mapping.SignConvention)
	assert.Equal(t, 2, col(t, a.Mapping.DebitColumn))
	assert.Equal(t, 3, col(t, a.Mapping.CreditColumn))
	assert.Equal(t, "YYYY-MM-DD", a.Mapping.DateFormat)
}

func TestAnalyze_TwoDateColumnsPicksLeftmost(t *testing.T) {
	rows := []domain.RawRow{
		{"Transaction Date", "Post Date", "Description", "Amount"},
		{"01/02/2024", "01/03/2024", "STORE", "-5.00"},
		{"01/05/2024", "01/06/2024", "CAFE", "-7.25"},
	}

	a := columns.Analyze(rows)

	assert.Equal(t, 0, col(t, a.Mapping.DateColumn))
	assert.Equal(t, 3, col(t, a.Mapping.AmountColumn))
	assert.Equal(t, 2, col(t, a.Mapping.DescriptionColumn))
}

func TestAnalyze_InvertedCardExport(t *testing.T) {
	rows := []domain.RawRow{
		{"Date", "Description", "Amount"},
		{"05/01/2024", "GROCERY", "45.00"},
		{"05/02/2024", "FUEL", "30.00"},
		{"05/03/2024", "CINEMA", "18.00"},
		{"05/04/2024", "BOOKS", "22.50"},
		{"05/20/2024", "PAYMENT THANK YOU", "-115.50"},
	}

	a := columns.Analyze(rows)

	assert.Equal(t, domain.InvertedAmount, a.Mapping.SignConvention)
}

func TestAnalyze_Unrecognized(t *testing.T) {
	rows := []domain.RawRow{
		{"name", "note"},
		{"alpha", "beta"},
		{"gamma", "delta"},
	}

	a := columns.Analyze(rows)

	assert.False(t, a.Recognized())
	assert.Nil(t, a.Mapping.DateColumn)
	assert.Nil(t, a.Mapping.AmountColumn)
	assert.NotEmpty(t, a.Fingerprint)
}

func TestAnalyze_Empty(t *testing.T) {
	a := columns.Analyze(nil)
	assert.False(t, a.Recognized())
	assert.Zero(t, a.ColumnCount)
}

func TestAnalyze_SamplesAtMost25Rows(t *testing.T) {
	rows := []domain.RawRow{{"Date", "Amount", "Description"}}
	for i := 0; i < 40; i++ {
		rows = append(rows, domain.RawRow{"03/04/2024", "-1.00", "X"})
	}
	a := columns.Analyze(rows)
	assert.Equal(t, columns.SampleSize, a.SampledRows)
}

func TestFingerprint(t *testing.T) {
	first := columns.Analyze([]domain.RawRow{
		{"Date", "Amount", "Description"},
		{"03/04/2024", "-52.10", "COFFEE SHOP"},
	})
	second := columns.Analyze([]domain.RawRow{
		{" date ", "AMOUNT", "Description"},
		{"07/09/2025", "19.99", "BOOKS"},
		{"07/10/2025", "-4.00", "CAFE"},
	})
	reordered := columns.Analyze([]domain.RawRow{
		{"Amount", "Date", "Description"},
		{"-52.10", "03/04/2024", "COFFEE SHOP"},
	})
	wider := columns.Analyze([]domain.RawRow{
		{"Date", "Amount", "Description", "Balance"},
		{"03/04/2024", "-52.10", "COFFEE SHOP", "10.00"},
	})

	assert.Len(t, first.Fingerprint, 16)
	assert.Equal(t, first.Fingerprint, second.Fingerprint, "same layout, different data")
	assert.NotEqual(t, first.Fingerprint, reordered.Fingerprint)
	assert.NotEqual(t, first.Fingerprint, wider.Fingerprint)
}

func TestFingerprint_HeaderlessUsesShape(t *testing.T) {
	a := columns.Analyze([]domain.RawRow{{"2024-04-01", "GROCERY", "45.00"}})
	b := columns.Analyze([]domain.RawRow{{"2025-01-09", "RENT", "-900.00"}})
	c := columns.Analyze([]domain.RawRow{{"GROCERY", "2024-04-01", "45.00"}})

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "transaction date", columns.NormalizeHeader("  Transaction_Date "))
	assert.Equal(t, "amount usd", columns.NormalizeHeader("Amount (USD)"))
}
