// Package driver orchestrates a full import run: load config, expand inputs, evaluate rules
// against every extracted record, reconcile the results against the existing ledger, and write
// the updated files back out. Grounded on
// original_source/beancount_importer_rules/engine.go's ImportRuleEngine (process_transaction/
// changesets/run), with its rich.Table reports replaced by structured zap log lines (see
// DESIGN.md — no pack example imports a terminal-table library).
package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	ledger "github.com/samuellwn/beanimport"
	"github.com/samuellwn/beanimport/config"
	"github.com/samuellwn/beanimport/parse"
	"github.com/samuellwn/beanimport/record"
	"github.com/samuellwn/beanimport/reconcile"
	"github.com/samuellwn/beanimport/ruleeval"
	"github.com/samuellwn/beanimport/tmplenv"
	"github.com/samuellwn/beanimport/txnproc"
)

// ExtractorFactory resolves an extractor name (an input's `config.extractor` field) into a
// record.Extractor bound to a specific input file, grounded on create_extractor_factory's
// module:class resolution, simplified to a name-keyed registry since this module doesn't load
// third-party Python modules at runtime.
type ExtractorFactory func(fs afero.Fs, name, path string) (record.Extractor, error)

// Driver holds everything one run needs.
type Driver struct {
	Fs               afero.Fs
	Workdir          string
	ConfigPath       string // workdir-relative
	BeanfilePath     string // workdir-relative
	DataDir          string // workdir-relative directory walked for candidate input files, default "data"
	RemoveDangling   bool
	Env              *tmplenv.Env
	Logger           *zap.Logger
	ExtractorFactory ExtractorFactory
}

// Result summarizes one run, mirroring IProcessedTransactionsMap plus the computed change sets.
type Result struct {
	Generated   []ruleeval.GeneratedTransaction
	Deleted     []ruleeval.DeletedTransaction
	Unprocessed []ruleeval.UnprocessedTransaction
	ChangeSets  map[string]*reconcile.ChangeSet
}

func (d *Driver) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return zap.NewNop()
}

// Run executes one full import pass: load config, process every input's records through the
// rule list, reconcile against the existing ledger tree, and write every touched ledger file
// back out through d.Fs.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	log := d.logger()

	doc, err := config.Load(d.Fs, filepath.Join(d.Workdir, d.ConfigPath))
	if err != nil {
		return nil, err
	}
	log.Info("loaded import config", zap.String("path", d.ConfigPath))

	rules, err := config.ResolveImports(d.Fs, d.Workdir, doc.Imports)
	if err != nil {
		return nil, err
	}

	proc := &txnproc.Processor{Env: d.Env, Rules: rules, Logger: log}

	dataDir := d.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	files, err := walkDataDir(d.Fs, filepath.Join(d.Workdir, dataDir))
	if err != nil {
		return nil, fmt.Errorf("driver: walking %s: %w", dataDir, err)
	}

	var result Result
	for _, file := range files {
		rel, err := filepath.Rel(d.Workdir, file)
		if err != nil {
			return nil, fmt.Errorf("driver: %s: %w", file, err)
		}

		for _, input := range doc.Inputs {
			points, err := ruleeval.ExpandLoop(d.Env, input)
			if err != nil {
				return nil, err
			}

			for _, point := range points {
				extractorName := point.Config.Extractor
				// The extractor sees the workdir-relative path, which becomes each record's File.
				extFs := d.Fs
				if filepath.Clean(d.Workdir) != "." {
					extFs = afero.NewBasePathFs(d.Fs, d.Workdir)
				}
				ext, err := d.ExtractorFactory(extFs, extractorName, rel)
				if err != nil {
					log.Warn("failed to load extractor, skipping file",
						zap.String("extractor", extractorName), zap.String("file", rel), zap.Error(err))
					continue
				}

				detected, err := ext.Detect(ctx)
				if err != nil {
					return nil, fmt.Errorf("driver: detecting %s: %w", rel, err)
				}
				if !detected {
					continue
				}

				log.Info("processing file", zap.String("file", rel), zap.String("extractor", extractorName))

				outcomes, err := proc.ProcessInput(ctx, extractorName, ext, point.Match, input.Filters, point.Config, doc.Context, point.Vars)
				if err != nil {
					return nil, fmt.Errorf("driver: processing %s: %w", rel, err)
				}

				for _, o := range outcomes {
					for _, g := range o.Generated {
						log.Info("generated transaction", zap.String("id", g.ImportID), zap.String("file", g.File))
						result.Generated = append(result.Generated, g)
					}
					for _, del := range o.Deleted {
						log.Info("deleted transaction", zap.String("id", del.ImportID))
						result.Deleted = append(result.Deleted, del)
					}
					if o.Unprocessed != nil {
						log.Info("skipped input record",
							zap.String("id", o.Unprocessed.ImportID),
							zap.String("file", o.Unprocessed.Record.File),
							zap.Int("lineno", o.Unprocessed.Record.Lineno))
						result.Unprocessed = append(result.Unprocessed, *o.Unprocessed)
					}
				}
			}
		}
	}

	log.Info("processed transactions",
		zap.Int("generated", len(result.Generated)),
		zap.Int("deleted", len(result.Deleted)),
		zap.Int("unprocessed", len(result.Unprocessed)))

	log.Info("collecting existing imported transactions")
	existing, err := reconcile.ScanLedgerTree(d.Fs, d.Workdir, d.BeanfilePath, func(reason string) {
		log.Warn("override parse warning", zap.String("reason", reason))
	})
	if err != nil {
		return nil, err
	}
	log.Info("found existing imported transactions", zap.Int("count", len(existing)))

	changeSets := reconcile.ComputeChanges(result.Generated, existing, result.Deleted, d.Workdir)
	result.ChangeSets = changeSets

	for target, cs := range changeSets {
		if err := d.applyAndWrite(target, cs); err != nil {
			return nil, err
		}
	}

	d.reportDangling(log, changeSets)

	return &result, nil
}

func (d *Driver) applyAndWrite(target string, cs *reconcile.ChangeSet) error {
	log := d.logger()

	rel, err := filepath.Rel(d.Workdir, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("driver: output file %s escapes workdir %s", target, d.Workdir)
	}

	var existing *ledger.File
	data, err := afero.ReadFile(d.Fs, target)
	switch {
	case err == nil:
		existing, err = parse.ParseLedger(string(data))
		if err != nil {
			return fmt.Errorf("driver: parsing %s: %w", target, err)
		}
		log.Info("applying change set", zap.String("file", target),
			zap.Int("add", len(cs.Add)), zap.Int("update", len(cs.Update)),
			zap.Int("remove", len(cs.Remove)), zap.Int("dangling", len(cs.Dangling)),
			zap.Bool("remove_dangling", d.RemoveDangling))
	case len(cs.Remove) > 0 || len(cs.Update) > 0:
		return fmt.Errorf("driver: %s does not exist but has updates/removals queued", target)
	default:
		log.Info("creating new ledger file", zap.String("file", target), zap.Int("add", len(cs.Add)))
	}

	updated, err := reconcile.ApplyChangeSet(existing, cs, d.RemoveDangling)
	if err != nil {
		return fmt.Errorf("driver: applying change set to %s: %w", target, err)
	}

	out, err := d.Fs.Create(target)
	if err != nil {
		return fmt.Errorf("driver: creating %s: %w", target, err)
	}
	defer out.Close()

	return updated.Format(out)
}

// walkDataDir enumerates every regular file under dir, grounded on processor.py's
// walk_dir_files (a thin os.walk wrapper); a missing data directory yields no files rather than
// an error, since a fresh project may not have one yet.
func walkDataDir(fs afero.Fs, dir string) ([]string, error) {
	if ok, err := afero.DirExists(fs, dir); err != nil {
		return nil, err
	} else if !ok {
		return nil, nil
	}

	var files []string
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (d *Driver) reportDangling(log *zap.Logger, changeSets map[string]*reconcile.ChangeSet) {
	for file, cs := range changeSets {
		for _, txn := range cs.Dangling {
			log.Warn("dangling transaction", zap.String("file", file),
				zap.Int("lineno", txn.Lineno), zap.String("id", txn.ID),
				zap.Bool("removed", d.RemoveDangling))
		}
	}
}
