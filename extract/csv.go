// Package extract implements the record.Extractor plug-ins the driver feeds into the rule
// evaluator: a generic delimited-field extractor and an OFX extractor, grounded on
// original_source/beancount_importer_rules/extractor.go's ExtractorCsvBase and on the teacher's
// tools/fromcsv and tools/fromofx.go converters.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/samuellwn/beanimport/record"
)

// CsvExtractor reads delimited records with a fixed set of named fields, grounded on
// ExtractorCsvBase's detect/fingerprint/process trio and on tools/fromcsv/main.go's
// currency-string cleanup (strip $, (), and thousands separators, treat parens as negative).
type CsvExtractor struct {
	Open func() (io.ReadSeeker, error) // Reopens the underlying file; Process seeks back to the start before reading.
	Name string                        // File name surfaced in produced Records and used for the default import id template.

	Fields      []string // Expected header fields, in order; Detect requires an exact match.
	DateField   string
	DateFormat  string // Go reference-time layout, e.g. "01/02/2006".
	AmountField string
	DescFields  []string // Concatenated (space-joined, in listed order) to build Record.Desc.

	ImportIDTemplateOverride string
}

func (e *CsvExtractor) ImportIDTemplate() string {
	if e.ImportIDTemplateOverride != "" {
		return e.ImportIDTemplateOverride
	}
	return record.DefaultImportIDTemplate
}

func (e *CsvExtractor) header(r io.ReadSeeker) ([]string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return reader.Read()
}

// Detect reports whether the file's header row matches Fields exactly, the same
// fieldnames-equality check detect_has_header/detect perform in the original.
func (e *CsvExtractor) Detect(ctx context.Context) (bool, error) {
	f, err := e.Open()
	if err != nil {
		return false, err
	}
	defer closeIfCloser(f)

	header, err := e.header(f)
	if err != nil {
		return false, nil
	}
	return stringsEqual(header, e.Fields), nil
}

// Fingerprint hashes the last row of the file along with its parsed date, so a file that has
// been appended to (new rows after the last-seen one) is detected as changed while a file that
// hasn't moved fingerprints identically across runs.
func (e *CsvExtractor) Fingerprint(ctx context.Context) (*record.Fingerprint, error) {
	f, err := e.Open()
	if err != nil {
		return nil, err
	}
	defer closeIfCloser(f)

	hasHeader, err := e.detectHasHeader(f)
	if err != nil {
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	if hasHeader {
		if _, err := reader.Read(); err != nil {
			return nil, fmt.Errorf("extract: csv fingerprint header: %w", err)
		}
	}

	var last []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		last = row
	}
	if last == nil {
		return nil, nil
	}

	fields := e.rowFields(last)
	date, err := time.Parse(e.DateFormat, fields[e.DateField])
	if err != nil {
		return nil, fmt.Errorf("extract: csv fingerprint date: %w", err)
	}

	hash := sha256.New()
	for _, field := range e.Fields {
		hash.Write([]byte(fields[field]))
	}

	return &record.Fingerprint{
		StartingDate: date,
		FirstRowHash: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

func (e *CsvExtractor) detectHasHeader(f io.ReadSeeker) (bool, error) {
	header, err := e.header(f)
	if err != nil {
		return false, nil
	}
	return stringsEqual(header, e.Fields), nil
}

// Process streams one record.Record per data row (skipping the header row if one was detected),
// grounded on ExtractorCsvBase.process's seek-to-start-then-enumerate loop.
func (e *CsvExtractor) Process(ctx context.Context, fn func(record.Record) error) error {
	f, err := e.Open()
	if err != nil {
		return err
	}
	defer closeIfCloser(f)

	hasHeader, err := e.detectHasHeader(f)
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	lineno := 0
	if hasHeader {
		if _, err := reader.Read(); err != nil {
			return fmt.Errorf("extract: csv header: %w", err)
		}
		lineno = 1
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		lineno++

		rec, err := e.toRecord(row, lineno)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func (e *CsvExtractor) rowFields(row []string) map[string]string {
	fields := make(map[string]string, len(e.Fields))
	for i, name := range e.Fields {
		if i < len(row) {
			fields[name] = row[i]
		}
	}
	return fields
}

func (e *CsvExtractor) toRecord(row []string, lineno int) (record.Record, error) {
	fields := e.rowFields(row)

	date, err := time.Parse(e.DateFormat, fields[e.DateField])
	if err != nil {
		return record.Record{}, fmt.Errorf("extract: csv row %d date: %w", lineno, err)
	}

	amount, err := parseCsvAmount(fields[e.AmountField])
	if err != nil {
		return record.Record{}, fmt.Errorf("extract: csv row %d amount: %w", lineno, err)
	}

	descParts := make([]string, 0, len(e.DescFields))
	for _, name := range e.DescFields {
		if v := fields[name]; v != "" {
			descParts = append(descParts, v)
		}
	}

	extra := make(map[string]string, len(fields))
	for k, v := range fields {
		extra[k] = v
	}

	return record.Record{
		File:   e.Name,
		Lineno: lineno,
		Date:   date,
		Desc:   strings.Join(descParts, " "),
		Amount: amount,
		Extra:  extra,
	}, nil
}

// parseCsvAmount strips currency decoration the way tools/fromcsv/main.go's amountClean loop
// does: '$' and ',' are dropped, a value wrapped in parens is negated.
func parseCsvAmount(raw string) (decimal.Decimal, error) {
	var b strings.Builder
	negate := false
	for _, r := range raw {
		switch r {
		case '$', ',':
		case '(':
			negate = true
		case ')':
		default:
			b.WriteRune(r)
		}
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(b.String()))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if negate {
		amount = amount.Neg()
	}
	return amount, nil
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func closeIfCloser(r io.ReadSeeker) {
	if c, ok := r.(io.Closer); ok {
		c.Close()
	}
}
