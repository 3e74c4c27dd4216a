// Package reconcile implements the ledger scanner (4.F), change-set computer (4.G), and
// change-set applier (4.H), grounded on
// original_source/beanhub_import/post_processor.go's extract_existing_transactions/
// compute_changes/apply_change_set. The original builds and rewrites a lark parse tree;
// here the same operations work directly on *ledger.File/ledger.Transaction values, since the
// ledger package already has a parser/formatter of its own and never needed an intermediate
// generic-parse-tree representation.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/samuellwn/beanimport/ruleeval"
)

// OverrideFlag is one bit of the override discipline a TransactionUpdate applies when
// reconciling a generated transaction against an existing one, grounded on
// post_processor.py's ImportOverrideFlag (reconstructed from its call sites; never defined as
// an enum class anywhere in the filtered original_source snapshot).
type OverrideFlag string

const (
	OverrideNone       OverrideFlag = "NONE"
	OverrideAll        OverrideFlag = "ALL"
	OverrideDate       OverrideFlag = "DATE"
	OverrideFlagField  OverrideFlag = "FLAG"
	OverrideNarration  OverrideFlag = "NARRATION"
	OverridePayee      OverrideFlag = "PAYEE"
	OverrideHashtags   OverrideFlag = "HASHTAGS"
	OverrideLinks      OverrideFlag = "LINKS"
	OverridePostings   OverrideFlag = "POSTINGS"
)

// OverrideSet is the parsed form of an `import-override` metadata value.
type OverrideSet map[OverrideFlag]bool

// ParseOverrideFlags tokenizes value by `,`; an unknown token, or NONE/ALL co-occurring with any
// other flag, makes the whole set invalid — warnFn is called with a human-readable reason and
// the set is treated as absent (nil, not an error), mirroring parse_override_flags's
// warn-and-return-None behavior.
func ParseOverrideFlags(value string, warnFn func(reason string)) OverrideSet {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	set := make(OverrideSet, len(parts))
	for _, p := range parts {
		flag := OverrideFlag(strings.TrimSpace(p))
		switch flag {
		case OverrideNone, OverrideAll, OverrideDate, OverrideFlagField, OverrideNarration,
			OverridePayee, OverrideHashtags, OverrideLinks, OverridePostings:
			set[flag] = true
		default:
			if warnFn != nil {
				warnFn(fmt.Sprintf("unknown override flag %q in %q", p, value))
			}
			return nil
		}
	}

	hasExclusive := set[OverrideNone] || set[OverrideAll]
	if hasExclusive && len(set) > 1 {
		if warnFn != nil {
			warnFn(fmt.Sprintf("NONE/ALL may not co-occur with other override flags: %q", value))
		}
		return nil
	}

	return set
}

// BeancountTransaction identifies one existing ledger transaction entry by its reserved
// import-id metadata, grounded on extract_existing_transactions' yielded value shape.
type BeancountTransaction struct {
	File     string
	Lineno   int
	ID       string
	Override OverrideSet
}

// TransactionUpdate pairs a freshly generated transaction with the override discipline to apply
// when replacing the existing entry it corresponds to.
type TransactionUpdate struct {
	Txn      ruleeval.GeneratedTransaction
	Override OverrideSet
}

// ChangeSet is the set of edits one ledger file needs, keyed by the file's path joined onto
// the workdir and cleaned, one level up in ComputeChanges' returned map.
type ChangeSet struct {
	Remove   []BeancountTransaction
	Add      []ruleeval.GeneratedTransaction
	Update   map[int]TransactionUpdate // keyed by existing entry's source line number
	Dangling []BeancountTransaction
}
