package roster

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().Value = v
		}
	}
	path := filepath.Join(t.TempDir(), "roster.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoad(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"company", "ticker", "industry_code", "industry_name"},
		{"AlphaChem", "9830", "2011", "Basic Chemicals"},
		{"BetaChem", "051910", "2011", "Basic Chemicals"},
		{"GammaSteel", "5490", "2410", "Primary Steel"},
	})

	r, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())

	ticker, ok := r.Ticker("AlphaChem")
	require.True(t, ok)
	assert.Equal(t, "009830", ticker, "numeric codes are padded to six digits")

	ticker, ok = r.Ticker("BetaChem")
	require.True(t, ok)
	assert.Equal(t, "051910", ticker)

	_, ok = r.Ticker("Nobody")
	assert.False(t, ok)
}

func TestLoad_NormalizesNames(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"company", "ticker", "industry_code", "industry_name"},
		{" ＡｌｐｈａＣｈｅｍ ", "9830", "2011", "Basic Chemicals"},
	})

	r, err := Load(path, "")
	require.NoError(t, err)

	_, ok := r.Ticker("AlphaChem")
	assert.True(t, ok, "full-width workbook names fold to the canonical form")
}

func TestLoad_SkipsBlankAndDuplicateRows(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"company", "ticker", "industry_code", "industry_name"},
		{"AlphaChem", "9830", "2011", "Basic Chemicals"},
		{"", "1234", "2011", "Basic Chemicals"},
		{"AlphaChem", "777", "2011", "Basic Chemicals"},
	})

	r, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	ticker, _ := r.Ticker("AlphaChem")
	assert.Equal(t, "009830", ticker, "first occurrence wins")
}

func TestLoad_NamedSheetMissing(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"company", "ticker", "industry_code", "industry_name"},
		{"AlphaChem", "9830", "2011", "Basic Chemicals"},
	})

	_, err := Load(path, "NoSuchSheet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchSheet")
}

func TestClassifications(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"company", "ticker", "industry_code", "industry_name"},
		{"AlphaChem", "9830", "2011", "Basic Chemicals"},
		{"Unclassified", "1111", "", ""},
	})

	r, err := Load(path, "")
	require.NoError(t, err)

	cls := r.Classifications()
	require.Len(t, cls, 1)
	assert.Equal(t, "AlphaChem", cls[0].Company)
	assert.Equal(t, "2011", cls[0].IndustryCode)
}
