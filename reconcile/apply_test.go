package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledger "github.com/samuellwn/beanimport"
	"github.com/samuellwn/beanimport/ruleeval"
)

// S4 — update with narration override: applying the change set keeps date/flag/payee/
// postings from the existing entry and takes narration only from the generated one.
func TestApplyChangeSetS4NarrationOverride(t *testing.T) {
	existing := &ledger.File{
		T: []ledger.Transaction{
			{
				Line:      10,
				Date:      "2024-01-01",
				Flag:      ledger.StatusClear,
				Payee:     "Existing Payee",
				Narration: "MOCK_NARRATION",
				Postings: []ledger.Posting{
					{Account: "Assets:Checking"},
				},
			},
		},
	}

	cs := &ChangeSet{
		Update: map[int]TransactionUpdate{
			10: {
				Override: OverrideSet{OverrideNarration: true},
				Txn: ruleeval.GeneratedTransaction{
					ImportID: "MOCK_IMPORT_ID",
					Txn: ledger.Transaction{
						Date:      "2099-12-31",
						Flag:      ledger.StatusPending,
						Payee:     "New Payee",
						Narration: "NEW_DESC",
						Postings: []ledger.Posting{
							{Account: "Expenses:Other"},
						},
					},
				},
			},
		},
	}

	out, err := ApplyChangeSet(existing, cs, false)
	require.NoError(t, err)
	require.Len(t, out.T, 1)
	txn := out.T[0]
	assert.Equal(t, "2024-01-01", txn.Date)
	assert.Equal(t, ledger.StatusClear, txn.Flag)
	assert.Equal(t, "Existing Payee", txn.Payee)
	assert.Equal(t, "NEW_DESC", txn.Narration)
	require.Len(t, txn.Postings, 1)
	assert.Equal(t, "Assets:Checking", txn.Postings[0].Account)
	assert.Equal(t, 10, txn.Line)
}

// A full-replace update (ALL override, the default) must still preserve the existing entry's
// leading comments, since those live outside the transaction fields a generated entry can carry.
func TestUpdateTransactionFullReplacePreservesComments(t *testing.T) {
	existing := &ledger.File{
		T: []ledger.Transaction{
			{
				Line:     10,
				Date:     "2024-01-01",
				Comments: []string{"; manually reconciled 2024-02-01"},
			},
		},
	}

	cs := &ChangeSet{
		Update: map[int]TransactionUpdate{
			10: {
				Override: nil,
				Txn: ruleeval.GeneratedTransaction{
					ImportID: "MOCK_IMPORT_ID",
					Txn:      ledger.Transaction{Date: "2024-01-02", Narration: "NEW_DESC"},
				},
			},
		},
	}

	out, err := ApplyChangeSet(existing, cs, false)
	require.NoError(t, err)
	require.Len(t, out.T, 1)
	assert.Equal(t, []string{"; manually reconciled 2024-02-01"}, out.T[0].Comments)
	assert.Equal(t, "NEW_DESC", out.T[0].Narration)
}

// S5 — dangling + remove_dangling: a dangling entry is untouched when the flag is off, and
// removed when it is on.
func TestApplyChangeSetS5RemoveDangling(t *testing.T) {
	existing := &ledger.File{
		T: []ledger.Transaction{
			{Line: 5, Date: "2024-01-01", Narration: "dangling entry"},
		},
	}
	cs := &ChangeSet{
		Update:   map[int]TransactionUpdate{},
		Dangling: []BeancountTransaction{{File: "output.bean", Lineno: 5, ID: "X"}},
	}

	kept, err := ApplyChangeSet(existing, cs, false)
	require.NoError(t, err)
	assert.Len(t, kept.T, 1)

	removed, err := ApplyChangeSet(existing, cs, true)
	require.NoError(t, err)
	assert.Empty(t, removed.T)
}

func TestApplyChangeSetAddAssignsHighLineNumbers(t *testing.T) {
	cs := &ChangeSet{
		Update: map[int]TransactionUpdate{},
		Add: []ruleeval.GeneratedTransaction{
			{ImportID: "NEW1", Txn: ledger.Transaction{Date: "2024-01-01", Narration: "one"}},
			{ImportID: "NEW2", Txn: ledger.Transaction{Date: "2024-01-01", Narration: "two"}},
		},
	}

	out, err := ApplyChangeSet(nil, cs, false)
	require.NoError(t, err)
	require.Len(t, out.T, 2)
	assert.Equal(t, AddEntryLinenoOffset, out.T[0].Line)
	assert.Equal(t, AddEntryLinenoOffset+1, out.T[1].Line)
}

func TestGeneratedToTransactionOmitsEmptySources(t *testing.T) {
	g := ruleeval.GeneratedTransaction{
		ImportID: "ID1",
		Sources:  nil,
		Txn: ledger.Transaction{
			Date:     "2024-01-01",
			Metadata: []ledger.MetadataItem{{Name: "import-id", Value: "ID1"}},
		},
	}
	txn := generatedToTransaction(g)
	for _, m := range txn.Metadata {
		assert.NotEqual(t, "import-src", m.Name)
	}
}

func TestGeneratedToTransactionIncludesSourcesJoinedByColon(t *testing.T) {
	g := ruleeval.GeneratedTransaction{
		ImportID: "ID1",
		Sources:  []string{"a.csv", "b.csv"},
		Txn: ledger.Transaction{
			Date:     "2024-01-01",
			Metadata: []ledger.MetadataItem{{Name: "import-id", Value: "ID1"}},
		},
	}
	txn := generatedToTransaction(g)
	var found bool
	for i, m := range txn.Metadata {
		if m.Name == "import-id" {
			require.Less(t, i+1, len(txn.Metadata))
			assert.Equal(t, "import-src", txn.Metadata[i+1].Name)
			assert.Equal(t, "a.csv:b.csv", txn.Metadata[i+1].Value)
			found = true
		}
	}
	assert.True(t, found)
}
