package reconcile

import (
	ledger "github.com/samuellwn/beanimport"
)

// ExtractExisting walks file's transactions and returns one BeancountTransaction per
// transaction that carries an import-id metadatum, grounded on
// extract_existing_transactions' per-statement metadata scan. Unlike the lark-tree original,
// *ledger.File already holds transactions as a flat, already-parsed slice, so no tree traversal
// is needed here — only the metadata extraction and override-flag parsing survive from it.
// filePath is the workdir-relative path of file, recorded as File in the returned entries.
func ExtractExisting(file *ledger.File, filePath string, warnFn func(string)) []BeancountTransaction {
	out := make([]BeancountTransaction, 0, len(file.T))

	for _, txn := range file.T {
		importID, ok := txn.Meta("import-id")
		if !ok {
			continue
		}

		var override OverrideSet
		if raw, ok := txn.Meta("import-override"); ok {
			override = ParseOverrideFlags(raw, warnFn)
		}

		out = append(out, BeancountTransaction{
			File:     filePath,
			Lineno:   txn.Line,
			ID:       importID,
			Override: override,
		})
	}

	return out
}
