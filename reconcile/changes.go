package reconcile

import (
	"path/filepath"

	"github.com/samuellwn/beanimport/ruleeval"
)

// ComputeChanges builds one ChangeSet per ledger file touched by generated, existing, or
// deleted entries, grounded on compute_changes' three linear passes (build id-keyed maps,
// walk existing entries, walk generated entries). File identity is compared via a workdir-
// resolved, cleaned absolute path so "output.bean" and "./output.bean" resolve to the same
// ChangeSet key regardless of how a rule or the existing ledger spelled it.
func ComputeChanges(
	generated []ruleeval.GeneratedTransaction,
	existing []BeancountTransaction,
	deleted []ruleeval.DeletedTransaction,
	workdir string,
) map[string]*ChangeSet {
	resolve := func(p string) string { return filepath.Clean(filepath.Join(workdir, p)) }

	generatedByID := make(map[string]ruleeval.GeneratedTransaction, len(generated))
	for _, g := range generated {
		generatedByID[g.ImportID] = g
	}
	existingByID := make(map[string]BeancountTransaction, len(existing))
	for _, e := range existing {
		existingByID[e.ID] = e
	}
	deletedIDs := make(map[string]bool, len(deleted))
	for _, d := range deleted {
		deletedIDs[d.ImportID] = true
	}

	sets := make(map[string]*ChangeSet)
	ensure := func(file string) *ChangeSet {
		cs, ok := sets[file]
		if !ok {
			cs = &ChangeSet{Update: map[int]TransactionUpdate{}}
			sets[file] = cs
		}
		return cs
	}

	for _, e := range existing {
		existingFile := resolve(e.File)
		if deletedIDs[e.ID] {
			cs := ensure(existingFile)
			cs.Remove = append(cs.Remove, e)
			continue
		}
		g, hasGenerated := generatedByID[e.ID]
		switch {
		case hasGenerated && resolve(g.File) != existingFile:
			cs := ensure(existingFile)
			cs.Remove = append(cs.Remove, e)
		case !hasGenerated && e.Override == nil:
			cs := ensure(existingFile)
			cs.Dangling = append(cs.Dangling, e)
		}
	}

	for _, g := range generated {
		if deletedIDs[g.ImportID] {
			continue
		}
		generatedFile := resolve(g.File)
		e, hasExisting := existingByID[g.ImportID]
		if hasExisting && resolve(e.File) == generatedFile {
			cs := ensure(generatedFile)
			cs.Update[e.Lineno] = TransactionUpdate{Txn: g, Override: e.Override}
		} else {
			cs := ensure(generatedFile)
			cs.Add = append(cs.Add, g)
		}
	}

	return sets
}
