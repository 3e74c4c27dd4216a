// Package record defines the shape of a single extracted statement line and the extractor
// contract that turns an input file into a stream of them, generalized from
// samuellwn-ledger/tools/fromcsv's ad-hoc CSV-row-to-Transaction conversion into a reusable
// interface any input-file format can implement.
package record

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a single normalized statement line handed to the rule evaluator. Every field besides
// File/Lineno/Date/Desc/Amount is optional and left at its zero value when an extractor doesn't
// populate it; Extra carries whatever extractor-specific fields a rule might want to reference
// that aren't promoted to a named field here (the original implementation's free-form "extra"
// dict).
type Record struct {
	File   string // Path to the input file this record was extracted from, workdir-relative.
	Lineno int    // 1-based line number within File, used to build the reversed_lineno template var.

	Date   time.Time
	Desc   string
	Amount decimal.Decimal

	TransactionID  string
	PostDate       time.Time
	Timestamp      time.Time
	Timezone       string
	BankDesc       string
	Currency       string
	Category       string
	Subcategory    string
	Status         string
	Type           string
	SourceAccount  string
	DestAccount    string
	Note           string
	Reference      string
	Payee          string
	GLCode         string
	NameOnCard     string
	LastFourDigits string
	Pending        bool

	Extra map[string]string
}

// Fingerprint identifies a specific point in an input file's history so the driver can detect
// when a previously-seen file has grown (appended rows) vs. changed in a way that invalidates
// earlier imports.
type Fingerprint struct {
	StartingDate  time.Time
	FirstRowHash  string
}

// Extractor is the plug-in contract an input format implements. Implementations are expected
// to be restartable: process may be called multiple times (e.g. once to fingerprint, again to
// stream), and must re-seek to the beginning of their input on each call.
type Extractor interface {
	// Detect reports whether this extractor recognizes the given input file's format.
	Detect(ctx context.Context) (bool, error)

	// Fingerprint returns an identifying fingerprint for the input file's current content, or
	// nil if the file is empty.
	Fingerprint(ctx context.Context) (*Fingerprint, error)

	// Process streams the file's records in order to fn. Returning an error from fn stops
	// iteration and that error is returned from Process.
	Process(ctx context.Context, fn func(Record) error) error

	// ImportIDTemplate returns the default Go template string used to render this extractor's
	// records' import ids, when a rule or input config doesn't override it.
	ImportIDTemplate() string
}

// DefaultImportIDTemplate mirrors the original implementation's
// "{{ file | as_posix_path }}:{{ reversed_lineno }}" default.
const DefaultImportIDTemplate = `{{ file | as_posix_path }}:{{ reversed_lineno }}`
