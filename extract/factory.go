package extract

import (
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/samuellwn/beanimport/record"
)

// builtinCsvLayouts holds a few representative bank CSV column layouts, the same sort of
// hand-written per-source schema tools/fromcsv/main.go bakes into its flag set. A real
// deployment would grow this table (or replace it with a config-driven one); spec.md's
// extractor contract only specifies the record.Extractor surface itself, not how
// implementations are discovered, so a compile-time registry is this module's answer to the
// original's dynamic `package.module:Class` plug-in string, which Go has no runtime equivalent
// of.
var builtinCsvLayouts = map[string]CsvExtractor{
	"generic_csv": {
		Fields:      []string{"date", "description", "amount"},
		DateField:   "date",
		DateFormat:  "2006-01-02",
		AmountField: "amount",
		DescFields:  []string{"description"},
	},
	"mercury": {
		Fields:      []string{"Date", "Description", "Amount", "Status", "Source Account", "Bank Description"},
		DateField:   "Date",
		DateFormat:  "2006-01-02",
		AmountField: "Amount",
		DescFields:  []string{"Description", "Bank Description"},
	},
}

// NewExtractor resolves name against the built-in CSV layouts and the OFX extractor, opening
// path lazily (and repeatably, as record.Extractor requires) through fs.
func NewExtractor(fs afero.Fs, name, path string) (record.Extractor, error) {
	open := func() (io.ReadSeeker, error) {
		return fs.Open(path)
	}

	if name == "ofx" || name == "qfx" {
		return &OfxExtractor{Open: open, Name: path}, nil
	}

	layout, ok := builtinCsvLayouts[name]
	if !ok {
		return nil, fmt.Errorf("extract: no built-in extractor registered for %q", name)
	}
	ext := layout
	ext.Open = open
	ext.Name = path
	return &ext, nil
}
