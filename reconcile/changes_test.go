package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledger "github.com/samuellwn/beanimport"
	"github.com/samuellwn/beanimport/ruleeval"
)

func gen(id, file, narration string) ruleeval.GeneratedTransaction {
	return ruleeval.GeneratedTransaction{
		ImportID: id,
		File:     file,
		Txn: ledger.Transaction{
			Date:      "2024-01-01",
			Flag:      ledger.StatusClear,
			Narration: narration,
		},
	}
}

// S4 — update with narration override: existing entry has NARRATION override set, generated
// entry has a new narration. ComputeChanges must route this into Update, not Add.
func TestComputeChangesS4Update(t *testing.T) {
	existing := []BeancountTransaction{
		{File: "output.bean", Lineno: 10, ID: "MOCK_IMPORT_ID", Override: OverrideSet{OverrideNarration: true}},
	}
	generated := []ruleeval.GeneratedTransaction{gen("MOCK_IMPORT_ID", "output.bean", "NEW_DESC")}

	sets := ComputeChanges(generated, existing, nil, "/work")
	cs, ok := sets["/work/output.bean"]
	require.True(t, ok)
	assert.Empty(t, cs.Add)
	assert.Empty(t, cs.Remove)
	assert.Empty(t, cs.Dangling)
	require.Contains(t, cs.Update, 10)
	assert.Equal(t, OverrideSet{OverrideNarration: true}, cs.Update[10].Override)
}

// S5 — dangling: an existing transaction with no generated counterpart and no override is
// reported as dangling, never removed outright by ComputeChanges itself.
func TestComputeChangesS5Dangling(t *testing.T) {
	existing := []BeancountTransaction{
		{File: "output.bean", Lineno: 5, ID: "X"},
	}

	sets := ComputeChanges(nil, existing, nil, "/work")
	cs := sets["/work/output.bean"]
	require.NotNil(t, cs)
	require.Len(t, cs.Dangling, 1)
	assert.Equal(t, "X", cs.Dangling[0].ID)
	assert.Empty(t, cs.Remove)
}

// Dangling stability: an override flag (here ALL) keeps an otherwise unmatched existing
// transaction out of Dangling.
func TestComputeChangesOverrideSuppressesDangling(t *testing.T) {
	existing := []BeancountTransaction{
		{File: "output.bean", Lineno: 5, ID: "X", Override: OverrideSet{OverrideAll: true}},
	}

	sets := ComputeChanges(nil, existing, nil, "/work")
	cs := sets["/work/output.bean"]
	require.NotNil(t, cs)
	assert.Empty(t, cs.Dangling)
}

// A deleted id that also has a generated counterpart: delete wins, no add/update.
func TestComputeChangesDeleteWinsOverAdd(t *testing.T) {
	existing := []BeancountTransaction{
		{File: "output.bean", Lineno: 7, ID: "DUP"},
	}
	generated := []ruleeval.GeneratedTransaction{gen("DUP", "output.bean", "whatever")}
	deleted := []ruleeval.DeletedTransaction{{ImportID: "DUP"}}

	sets := ComputeChanges(generated, existing, deleted, "/work")
	cs := sets["/work/output.bean"]
	require.NotNil(t, cs)
	require.Len(t, cs.Remove, 1)
	assert.Equal(t, "DUP", cs.Remove[0].ID)
	assert.Empty(t, cs.Add)
	assert.Empty(t, cs.Update)
}

// A generated id that moves files: old file gets a remove, new file gets an add.
func TestComputeChangesMovedFile(t *testing.T) {
	existing := []BeancountTransaction{
		{File: "old.bean", Lineno: 3, ID: "MOVED"},
	}
	generated := []ruleeval.GeneratedTransaction{gen("MOVED", "new.bean", "whatever")}

	sets := ComputeChanges(generated, existing, nil, "/work")
	oldCS := sets["/work/old.bean"]
	require.NotNil(t, oldCS)
	require.Len(t, oldCS.Remove, 1)

	newCS := sets["/work/new.bean"]
	require.NotNil(t, newCS)
	require.Len(t, newCS.Add, 1)
	assert.Equal(t, "MOVED", newCS.Add[0].ImportID)
}

func TestParseOverrideFlags(t *testing.T) {
	var warnings []string
	warn := func(reason string) { warnings = append(warnings, reason) }

	set := ParseOverrideFlags("NARRATION,PAYEE", warn)
	assert.Equal(t, OverrideSet{OverrideNarration: true, OverridePayee: true}, set)
	assert.Empty(t, warnings)

	set = ParseOverrideFlags("NONE,NARRATION", warn)
	assert.Nil(t, set)
	assert.Len(t, warnings, 1)

	warnings = nil
	set = ParseOverrideFlags("BOGUS", warn)
	assert.Nil(t, set)
	assert.Len(t, warnings, 1)

	assert.Nil(t, ParseOverrideFlags("", warn))
}
