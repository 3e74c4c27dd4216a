package reconcile

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainLedger = `include "included.bean"

2024-01-02 * "Mercury" "Opening balance"
  import-id: "abc123"
  import-override: "NARRATION,PAYEE"
  Assets:Bank:Mercury   1000.00 USD
  Equity:Opening-Balances

2024-01-05 ! "Coffee Shop" "Latte"
  Assets:Bank:Mercury  -3.50 USD
  Expenses:Food:Coffee
`

const includedLedger = `2024-02-01 * "Rent" "February rent"
  import-id: "def456"
  Assets:Bank:Mercury  -1200.00 USD
  Expenses:Rent
`

func newFixtureFS(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/main.bean", []byte(mainLedger), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/included.bean", []byte(includedLedger), 0o644))
	return fs
}

func TestScanLedgerTreeFollowsIncludes(t *testing.T) {
	fs := newFixtureFS(t)
	var warnings []string
	out, err := ScanLedgerTree(fs, "/work", "main.bean", func(r string) { warnings = append(warnings, r) })
	require.NoError(t, err)
	assert.Empty(t, warnings)

	byID := make(map[string]BeancountTransaction, len(out))
	for _, bt := range out {
		byID[bt.ID] = bt
	}

	require.Contains(t, byID, "abc123")
	assert.Equal(t, "main.bean", byID["abc123"].File)
	assert.Equal(t, OverrideSet{OverrideNarration: true, OverridePayee: true}, byID["abc123"].Override)

	require.Contains(t, byID, "def456")
	assert.Equal(t, "included.bean", byID["def456"].File)
	assert.Nil(t, byID["def456"].Override)
}

func TestScanLedgerTreeSkipsTransactionsWithoutImportID(t *testing.T) {
	fs := newFixtureFS(t)
	out, err := ScanLedgerTree(fs, "/work", "main.bean", nil)
	require.NoError(t, err)

	// mainLedger has two transactions but only one carries import-id; includedLedger's one
	// transaction also carries import-id, so exactly two entries should come back total.
	require.Len(t, out, 2)
	for _, bt := range out {
		assert.NotEmpty(t, bt.ID)
	}
}
