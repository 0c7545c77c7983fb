package frame

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRead_KeepsNAString(t *testing.T) {
	data := []byte("\xEF\xBB\xBFEnglish short name,Alpha-2 code\nNamibia,NA\nGermany,DE\n")

	df, err := Read(data)
	require.NoError(t, err)

	codes, err := Strings(df, "Alpha-2 code")
	require.NoError(t, err)
	assert.Equal(t, []string{"NA", "DE"}, codes)
	assert.Equal(t, []string{"English short name", "Alpha-2 code"}, df.Names())
}

func TestRead_HeaderCellSkipsTitleLines(t *testing.T) {
	data := []byte("Time Series - GHG total\n\nParty,Base year,1990,1991\nGermany,1,\"1,250.5\",NO\n,,,\n")

	df, err := Read(data, WithHeaderCell("Party"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Party", "Base year", "1990", "1991"}, df.Names())
	assert.Equal(t, 1, df.Nrow())

	_, err = Read(data, WithHeaderCell("Country"))
	assert.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestRead_RaggedRows(t *testing.T) {
	df, err := Read([]byte("a,b,c\n1,2\n3,4,5,6\n"))
	require.NoError(t, err)

	c, err := Strings(df, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "5"}, c)
}

func TestRead_Empty(t *testing.T) {
	_, err := Read([]byte("a,b\n"))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "1980", normalizeHeader(" 1980.0 "))
	assert.Equal(t, "2.5", normalizeHeader("2.5"))
	assert.Equal(t, "M.0.EL", normalizeHeader("M.0.EL"))
}

func TestWideToLong(t *testing.T) {
	df, err := Read([]byte("area,unit,1990,1991\nDEU,Gg,1.5,2.5\nFRA,Gg,3,\n"))
	require.NoError(t, err)

	long, err := WideToLong(df, "year", "emissions")
	require.NoError(t, err)

	assert.Equal(t, []string{"area", "unit", "year", "emissions"}, long.Names())
	assert.Equal(t, 4, long.Nrow())

	areas, _ := Strings(long, "area")
	values, _ := Strings(long, "emissions")
	assert.Equal(t, []string{"DEU", "FRA", "DEU", "FRA"}, areas)
	assert.Equal(t, []string{"1.5", "3", "2.5", ""}, values)

	years, err := long.Col("year").Int()
	require.NoError(t, err)
	assert.Equal(t, []int{1990, 1990, 1991, 1991}, years)
}

func TestWideToLong_NoYears(t *testing.T) {
	df, err := Read([]byte("a,b\n1,2\n"))
	require.NoError(t, err)

	_, err = WideToLong(df, "year", "value")
	assert.ErrorIs(t, err, ErrNoYearColumns)
}

func TestWideToLong_Collision(t *testing.T) {
	df, err := Read([]byte("year,1990\nx,1\n"))
	require.NoError(t, err)

	_, err = WideToLong(df, "year", "value")
	assert.Error(t, err)
}

func TestIsYear(t *testing.T) {
	assert.True(t, IsYear("1990"))
	assert.False(t, IsYear(""))
	assert.False(t, IsYear("Base year"))
	assert.False(t, IsYear("1990.0"))
}

func TestFilters(t *testing.T) {
	df, err := Read([]byte("entity,area\nCO2,DEU\nCH4,DEU\nCO2,EARTH\nCO2,FRA\n"))
	require.NoError(t, err)

	df, err = Match(df, "entity", "CO2")
	require.NoError(t, err)
	df, err = Exclude(df, "area", []string{"EARTH", "ANT"})
	require.NoError(t, err)

	areas, _ := Strings(df, "area")
	assert.Equal(t, []string{"DEU", "FRA"}, areas)

	_, err = Exclude(df, "missing", nil)
	assert.Error(t, err)
}

func TestLeftJoinAndPresent(t *testing.T) {
	left, err := Read([]byte("iso3,value\nDEU,1\nXXX,2\n"))
	require.NoError(t, err)
	right, err := Read([]byte("iso3,country\nDEU,Germany\nFRA,France\n"))
	require.NoError(t, err)

	joined, err := LeftJoin(left, right, "iso3")
	require.NoError(t, err)
	assert.Equal(t, 2, joined.Nrow())

	matched, err := Present(joined, "country")
	require.NoError(t, err)

	codes, _ := Strings(matched, "iso3")
	assert.Equal(t, []string{"DEU"}, codes)
}

func TestStripDeriveSort(t *testing.T) {
	df, err := Read([]byte("country,n\n Germany ,2\nAlbania,1\n"))
	require.NoError(t, err)

	df, err = Strip(df, "country")
	require.NoError(t, err)
	df, err = Derive(df, "country", "upper", func(s string) string { return s + "!" })
	require.NoError(t, err)
	df, err = Sort(df, "country")
	require.NoError(t, err)

	countries, _ := Strings(df, "country")
	upper, _ := Strings(df, "upper")
	assert.Equal(t, []string{"Albania", "Germany"}, countries)
	assert.Equal(t, []string{"Albania!", "Germany!"}, upper)

	df, err = Rename(df, map[string]string{"n": "count"})
	require.NoError(t, err)
	df, err = Select(df, "count", "country")
	require.NoError(t, err)
	assert.Equal(t, []string{"count", "country"}, df.Names())
}

func TestRequire(t *testing.T) {
	df, err := Read([]byte("actor_id,name\nDEU,Germany\n"))
	require.NoError(t, err)

	assert.NoError(t, Require(df, "name", "actor_id"))
	assert.ErrorContains(t, Require(df, "name", "type"), `"type"`)
}

func TestParseNumber(t *testing.T) {
	missing := NewMissing("no data", "NO")

	v, ok, err := ParseNumber(" 1,234.5 ", missing)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 1234.5, v, 1e-9)

	for _, raw := range []string{"", "NaN", "no data", "NO"} {
		_, ok, err := ParseNumber(raw, missing)
		require.NoError(t, err)
		assert.False(t, ok, raw)
	}

	_, _, err = ParseNumber("n/a", missing)
	assert.Error(t, err)
}

func TestParseNumber_JoinedMarkers(t *testing.T) {
	missing := NewMissing("NO", "NE", "IE", "NA")

	for _, raw := range []string{"NO,NE", "IE, NA", " NE,NO,IE "} {
		_, ok, err := ParseNumber(raw, missing)
		require.NoError(t, err, raw)
		assert.False(t, ok, raw)
	}

	// a marker joined to anything else is still an error
	for _, raw := range []string{"NO,", "NO,X", "NONE"} {
		_, _, err := ParseNumber(raw, missing)
		assert.Error(t, err, raw)
	}

	v, ok, err := ParseNumber("1,250,000.5", missing)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 1250000.5, v, 1e-9)
}

func TestReadExcel_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "GDP, current prices (Billions of U.S. dollars)"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", 2020))
	require.NoError(t, f.SetCellValue("Sheet1", "C1", 2021))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Germany "))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "3846.41"))
	require.NoError(t, f.SetCellValue("Sheet1", "C2", "no data"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	df, err := ReadExcel(buf.Bytes(), ".xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"GDP, current prices (Billions of U.S. dollars)", "2020", "2021"}, df.Names())
	gdp, _ := Strings(df, "2021")
	assert.Equal(t, []string{"no data"}, gdp)
}

func TestReadExcel_XLS(t *testing.T) {
	data, err := os.ReadFile("testdata/imf_gdp.xls")
	require.NoError(t, err)

	df, err := ReadExcel(data, ".xls")
	require.NoError(t, err)

	assert.Equal(t, []string{"GDP, current prices (Billions of U.S. dollars)", "2020", "2021", "2022"}, df.Names())
	assert.Equal(t, 6, df.Nrow())

	countries, err := Strings(df, "GDP, current prices (Billions of U.S. dollars)")
	require.NoError(t, err)
	assert.Equal(t, "Germany", countries[0])
	assert.Equal(t, "©IMF, 2022", countries[5])

	gdp, err := Strings(df, "2021")
	require.NoError(t, err)
	assert.Equal(t, []string{"4259.25", "no data", "9.5", "1", "1", ""}, gdp)
}

func TestReadExcel_XLSNotWorkbook(t *testing.T) {
	data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 600)...)
	_, err := ReadExcel(data, ".xls")
	assert.Error(t, err)
}

func TestReadExcel_TabSeparatedXLS(t *testing.T) {
	data := []byte("Country\t2020\nGermany\t3846.41\n")

	df, err := ReadExcel(data, ".xls")
	require.NoError(t, err)
	assert.Equal(t, []string{"Country", "2020"}, df.Names())
}

func TestReadExcel_Unsupported(t *testing.T) {
	_, err := ReadExcel([]byte("x"), ".ods")
	assert.Error(t, err)
}
