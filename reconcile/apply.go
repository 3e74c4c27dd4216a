package reconcile

import (
	"strings"

	ledger "github.com/samuellwn/beanimport"
	"github.com/samuellwn/beanimport/ruleeval"
)

// AddEntryLinenoOffset is the artificial line number newly added entries are assigned, high
// enough that a stable sort by (date, line) always places them after any real existing entry
// on the same date, grounded on post_processor.py's constants.ADD_ENTRY_LINENO_OFFSET.
const AddEntryLinenoOffset = 1 << 30

// ApplyChangeSet rewrites existing (the parsed contents of one ledger file, or nil if the file
// doesn't exist yet) according to cs, returning the new contents to write back. Grounded on
// apply_change_set's partition-drop-replace-append shape, operating directly on
// ledger.Transaction values instead of rebuilding a lark parse tree.
func ApplyChangeSet(existing *ledger.File, cs *ChangeSet, removeDangling bool) (*ledger.File, error) {
	linesToRemove := make(map[int]bool, len(cs.Remove)+len(cs.Dangling))
	for _, t := range cs.Remove {
		linesToRemove[t.Lineno] = true
	}
	if removeDangling {
		for _, t := range cs.Dangling {
			linesToRemove[t.Lineno] = true
		}
	}

	var directives []ledger.Directive
	var kept []ledger.Transaction
	if existing != nil {
		directives = existing.D
		kept = make([]ledger.Transaction, 0, len(existing.T))
		for _, txn := range existing.T {
			if linesToRemove[txn.Line] {
				continue
			}
			if upd, ok := cs.Update[txn.Line]; ok {
				replaced, err := updateTransaction(txn, upd)
				if err != nil {
					return nil, err
				}
				kept = append(kept, replaced)
				continue
			}
			kept = append(kept, txn)
		}
	}

	for i, g := range cs.Add {
		txn := generatedToTransaction(g)
		txn.Line = AddEntryLinenoOffset + i
		kept = append(kept, txn)
	}

	return &ledger.File{T: kept, D: directives}, nil
}

// updateTransaction applies the override discipline: ALL or an unset override replaces the
// entry wholesale; NONE keeps the existing entry untouched; otherwise only the fields whose
// flag is set are taken from the generated transaction, with the existing entry's source line
// number and metadata (including import-id/import-src) always preserved.
func updateTransaction(existing ledger.Transaction, upd TransactionUpdate) (ledger.Transaction, error) {
	generated := generatedToTransaction(upd.Txn)

	if upd.Override == nil || upd.Override[OverrideAll] {
		generated.Line = existing.Line
		generated.Comments = existing.Comments
		return generated, nil
	}
	if upd.Override[OverrideNone] {
		return existing, nil
	}

	result := existing
	if upd.Override[OverrideDate] {
		result.Date = generated.Date
	}
	if upd.Override[OverrideFlagField] {
		result.Flag = generated.Flag
	}
	if upd.Override[OverridePayee] {
		result.Payee = generated.Payee
	}
	if upd.Override[OverrideNarration] {
		result.Narration = generated.Narration
	}
	if upd.Override[OverrideHashtags] {
		result.Tags = generated.Tags
	}
	if upd.Override[OverrideLinks] {
		result.Links = generated.Links
	}
	if upd.Override[OverridePostings] {
		result.Postings = generated.Postings
	}
	return result, nil
}

// generatedToTransaction finalizes a GeneratedTransaction's ledger.Transaction, inserting the
// import-src metadata line right after import-id when sources is non-empty, grounded on
// txn_to_text's conditional import-src line (never emitted for an empty sources list, never an
// empty-string line).
func generatedToTransaction(g ruleeval.GeneratedTransaction) ledger.Transaction {
	txn := *g.Txn.CleanCopy()

	if len(g.Sources) == 0 {
		return txn
	}

	src := ledger.MetadataItem{Name: "import-src", Value: strings.Join(g.Sources, ":")}
	metadata := make([]ledger.MetadataItem, 0, len(txn.Metadata)+1)
	for _, m := range txn.Metadata {
		metadata = append(metadata, m)
		if m.Name == "import-id" {
			metadata = append(metadata, src)
		}
	}
	txn.Metadata = metadata
	return txn
}
