package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleTable(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"date", "Rate", "Unemp"}, rows[0])
	assert.Equal(t, "2020-01-01", rows[1][0])
	assert.Equal(t, "5", rows[1][2])

	// Null cell stays empty in the second data row.
	assert.Equal(t, "2020-02-01", rows[2][0])
	assert.Equal(t, "1.5", rows[2][1])
	if len(rows[2]) > 2 {
		assert.Empty(t, rows[2][2])
	}
}
