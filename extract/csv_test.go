package extract

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuellwn/beanimport/record"
)

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func readSeekerOf(s string) func() (io.ReadSeeker, error) {
	return func() (io.ReadSeeker, error) {
		return strings.NewReader(s), nil
	}
}

func mercuryExtractor(csvBody string) *CsvExtractor {
	ext := builtinCsvLayouts["mercury"]
	ext.Open = readSeekerOf(csvBody)
	ext.Name = "testdata/mercury.csv"
	return &ext
}

const mercuryCsv = `Date,Description,Amount,Status,Source Account,Bank Description
2024-01-02,Acme Corp,-42.50,sent,Checking,ACME CORP PAYMENT
2024-01-05,Refund Inc,10.00,sent,Checking,REFUND INC ACH
`

func TestCsvExtractorDetect(t *testing.T) {
	ext := mercuryExtractor(mercuryCsv)
	ok, err := ext.Detect(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	wrongHeader := mercuryExtractor("a,b,c\n1,2,3\n")
	ok, err = wrongHeader.Detect(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCsvExtractorProcess(t *testing.T) {
	ext := mercuryExtractor(mercuryCsv)

	var recs []record.Record
	err := ext.Process(context.Background(), func(r record.Record) error {
		recs = append(recs, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	first := recs[0]
	assert.Equal(t, "testdata/mercury.csv", first.File)
	assert.Equal(t, 2, first.Lineno)
	assert.Equal(t, "2024-01-02", first.Date.Format("2006-01-02"))
	assert.Equal(t, "Acme Corp ACME CORP PAYMENT", first.Desc)
	assert.True(t, first.Amount.Equal(mustDecimal("-42.50")))
	assert.Equal(t, "Checking", first.Extra["Source Account"])
}

func TestCsvExtractorFingerprintStable(t *testing.T) {
	ext := mercuryExtractor(mercuryCsv)

	fp1, err := ext.Fingerprint(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fp1)

	fp2, err := ext.Fingerprint(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fp2)

	assert.Equal(t, fp1.FirstRowHash, fp2.FirstRowHash)
	assert.True(t, fp1.StartingDate.Equal(fp2.StartingDate))

	appended := mercuryExtractor(mercuryCsv + "2024-01-09,Another Inc,5.00,sent,Checking,ANOTHER INC\n")
	fp3, err := appended.Fingerprint(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, fp1.FirstRowHash, fp3.FirstRowHash)
}

func TestParseCsvAmountHandlesParensAndCommas(t *testing.T) {
	amt, err := parseCsvAmount("$1,234.56")
	require.NoError(t, err)
	assert.True(t, amt.Equal(mustDecimal("1234.56")))

	neg, err := parseCsvAmount("($42.00)")
	require.NoError(t, err)
	assert.True(t, neg.Equal(mustDecimal("-42.00")))
}
