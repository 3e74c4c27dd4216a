// Package ruleeval implements the rule evaluator (render a matched rule's templates against a
// record), the input-loop expander, and the field-level filter evaluator, grounded primarily on
// original_source/beancount_importer_rules/processor.go's process_transaction/
// generate_postings/match_transaction_with_vars. The rule evaluator's Python ancestor is a
// generator that yields Generated/Deleted transactions and terminates with an optional
// Unprocessed return value; here that shape becomes an Outcome value carrying both the
// collected stream and the final value instead of raising StopIteration with a payload.
package ruleeval

import (
	ledger "github.com/samuellwn/beanimport"
	"github.com/samuellwn/beanimport/record"
)

// GeneratedTransaction is a transaction an add_txn action produced, rendered and ready to
// reconcile against the ledger file it targets.
type GeneratedTransaction struct {
	ImportID string
	File     string   // Workdir-relative target ledger file; input's default_file if the action didn't override it.
	Sources  []string // Record files that contributed to this transaction, never a line number (see spec's source-annotation-stability rule).
	Txn      ledger.Transaction
}

// DeletedTransaction marks the existing ledger entry with this import id for removal.
type DeletedTransaction struct {
	ImportID string
}

// UnprocessedTransaction is a record no rule's conditions matched (and no rule ignored it
// either), surfaced so the driver can report it instead of silently dropping the record.
type UnprocessedTransaction struct {
	ImportID        string
	Record          record.Record
	OutputFile      string
	PrependPostings []ledger.Posting
	AppendPostings  []ledger.Posting
}

// Outcome is what evaluating the rule list against one record produces: zero or more
// generated/deleted transactions from the rule whose actions ran, and at most one Unprocessed
// value when nothing matched.
type Outcome struct {
	Generated   []GeneratedTransaction
	Deleted     []DeletedTransaction
	Unprocessed *UnprocessedTransaction
}
