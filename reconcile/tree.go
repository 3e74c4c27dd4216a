package reconcile

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/samuellwn/beanimport/parse"
)

// ScanLedgerTree parses beanfile (workdir-relative) and every file reachable from it through
// `include` directives, resolving each include path against workdir the same way
// extract_existing_transactions' traverse helper always resolves against root_dir rather than
// the including file's own directory. Returns one BeancountTransaction per import-id-bearing
// transaction found anywhere in the tree.
func ScanLedgerTree(fs afero.Fs, workdir, beanfile string, warnFn func(string)) ([]BeancountTransaction, error) {
	visited := make(map[string]bool)
	var out []BeancountTransaction

	var visit func(relPath string) error
	visit = func(relPath string) error {
		clean := filepath.Clean(relPath)
		if visited[clean] {
			return nil
		}
		visited[clean] = true

		data, err := afero.ReadFile(fs, filepath.Join(workdir, clean))
		if err != nil {
			return fmt.Errorf("reconcile: reading %s: %w", clean, err)
		}

		file, err := parse.ParseLedger(string(data))
		if err != nil {
			return fmt.Errorf("reconcile: parsing %s: %w", clean, err)
		}

		out = append(out, ExtractExisting(file, clean, warnFn)...)

		for _, d := range file.D {
			if d.Type != "include" {
				continue
			}
			included, err := unquoteIncludeArgument(d.Argument)
			if err != nil {
				return fmt.Errorf("reconcile: %s: %w", clean, err)
			}
			if err := visit(included); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(beanfile); err != nil {
		return nil, err
	}
	return out, nil
}

func unquoteIncludeArgument(arg string) (string, error) {
	trimmed := strings.TrimSpace(arg)
	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		return strconv.Unquote(trimmed)
	}
	return trimmed, nil
}
