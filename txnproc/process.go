// Package txnproc ties one input's extractor, match/filter/loop configuration, and rule list
// together into a stream of ruleeval.Outcome values, grounded on
// original_source/beancount_importer_rules/processor.go's process_imports loop (the piece of
// the original that drives generate_postings/process_transaction once per extracted record).
package txnproc

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/samuellwn/beanimport/config"
	"github.com/samuellwn/beanimport/match"
	"github.com/samuellwn/beanimport/record"
	"github.com/samuellwn/beanimport/ruleeval"
	"github.com/samuellwn/beanimport/tmplenv"
)

// Processor evaluates every record an extractor produces against a fixed rule list.
type Processor struct {
	Env    *tmplenv.Env
	Rules  []config.ImportRule
	Logger *zap.Logger
}

// ProcessInput runs one (already loop-expanded) input configuration against ext, returning one
// Outcome per record that passed the input's match condition and filters. extractorName
// identifies the extractor to rules whose common_cond/match predicates test it; docContext and
// loopVars are merged into every record's template context, with loopVars taking precedence.
func (p *Processor) ProcessInput(
	ctx context.Context,
	extractorName string,
	ext record.Extractor,
	inputMatch *match.FileMatchSpec,
	filters []config.FilterSpec,
	details config.InputConfigDetails,
	docContext map[string]string,
	loopVars map[string]string,
) ([]ruleeval.Outcome, error) {
	records, err := collectRecords(ctx, ext)
	if err != nil {
		return nil, fmt.Errorf("txnproc: extracting records: %w", err)
	}
	totalLines := len(records)

	prepend, appendP := resolvePostings(p.logger(), details)

	baseCtx := make(map[string]any, len(docContext)+len(loopVars))
	for k, v := range docContext {
		baseCtx[k] = v
	}
	for k, v := range loopVars {
		baseCtx[k] = v
	}

	idTemplate := ext.ImportIDTemplate()

	outcomes := make([]ruleeval.Outcome, 0, len(records))
	for _, rec := range records {
		if inputMatch != nil {
			m, err := inputMatch.Build()
			if err != nil {
				return nil, fmt.Errorf("txnproc: input match: %w", err)
			}
			matched, err := m.MatchFile(rec.File)
			if err != nil {
				return nil, fmt.Errorf("txnproc: input match: %w", err)
			}
			if !matched {
				continue
			}
		}

		passed, err := ruleeval.EvaluateFilters(filters, rec)
		if err != nil {
			return nil, fmt.Errorf("txnproc: evaluating filters: %w", err)
		}
		if !passed {
			continue
		}

		recCtx := ruleeval.RecordContext(rec, totalLines, baseCtx)

		importID, err := ruleeval.RenderImportID(p.Env, idTemplate, recCtx)
		if err != nil {
			return nil, fmt.Errorf("txnproc: rendering import id for %s:%d: %w", rec.File, rec.Lineno, err)
		}

		outcome, err := ruleeval.EvaluateRecord(
			p.Env, p.Rules, extractorName, rec, recCtx, importID,
			details.DefaultFile, details.DefaultTxn, prepend, appendP,
		)
		if err != nil {
			return nil, fmt.Errorf("txnproc: evaluating record %s: %w", importID, err)
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

func collectRecords(ctx context.Context, ext record.Extractor) ([]record.Record, error) {
	var records []record.Record
	err := ext.Process(ctx, func(rec record.Record) error {
		records = append(records, rec)
		return nil
	})
	return records, err
}

// resolvePostings applies append_postings/appending_postings precedence: the preferred field
// wins whenever both are set, and using the deprecated field alone logs a warning so a config
// author notices it during a normal run instead of only in documentation.
func resolvePostings(logger *zap.Logger, details config.InputConfigDetails) (prepend, appendP []config.PostingTemplate) {
	prepend = details.PrependPostings

	switch {
	case len(details.AppendPostings) > 0:
		appendP = details.AppendPostings
	case len(details.AppendingPostings) > 0:
		logger.Warn("config uses deprecated appending_postings field, rename to append_postings")
		appendP = details.AppendingPostings
	}
	return prepend, appendP
}

func (p *Processor) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return zap.NewNop()
}
