package tabular_test

import (
	"testing"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/SscSPs/txn_ingest/internal/ingest/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_Comma(t *testing.T) {
	data := []byte("\xef\xbb\xbfDate,Amount,Description\n03/04/2024,-52.10,\"COFFEE SHOP, DOWNTOWN\"\n\n03/05/2024,100.00,PAYROLL\n")

	table, err := tabular.Read(data)
	require.NoError(t, err)
	assert.Equal(t, ',', table.Delimiter)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, domain.RawRow{"Date", "Amount", "Description"}, table.Rows[0])
	assert.Equal(t, "COFFEE SHOP, DOWNTOWN", table.Rows[1][2])
}

func TestRead_Semicolon(t *testing.T) {
	data := []byte("Datum;Betrag;Text\n04.03.2024;-52,10;Kaffee\n05.03.2024;1.234,56;Gehalt\n")

	table, err := tabular.Read(data)
	require.NoError(t, err)
	assert.Equal(t, ';', table.Delimiter)
	assert.Equal(t, domain.RawRow{"04.03.2024", "-52,10", "Kaffee"}, table.Rows[1])
}

func TestRead_Empty(t *testing.T) {
	_, err := tabular.Read([]byte("  \n"))
	assert.Error(t, err)
}

func TestRows_DropsBlank(t *testing.T) {
	rows := tabular.Rows([][]string{{" a ", "b"}, {"", " "}, {"c"}})
	assert.Equal(t, []domain.RawRow{{"a", "b"}, {"c"}}, rows)
}
