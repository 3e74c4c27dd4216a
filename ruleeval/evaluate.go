package ruleeval

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	ledger "github.com/samuellwn/beanimport"
	"github.com/samuellwn/beanimport/config"
	"github.com/samuellwn/beanimport/match"
	"github.com/samuellwn/beanimport/record"
	"github.com/samuellwn/beanimport/tmplenv"
)

// RecordContext builds the template data available to every rendered template for a record:
// file/lineno/reversed_lineno/date/desc/amount/extra, merged with whatever doc-level context
// and loop variables the caller has already resolved.
func RecordContext(rec record.Record, totalLines int, extra map[string]any) map[string]any {
	ctx := map[string]any{
		"file":             rec.File,
		"lineno":           rec.Lineno,
		"reversed_lineno":  rec.Lineno - totalLines,
		"date":             rec.Date.Format("2006-01-02"),
		"desc":             rec.Desc,
		"amount":           rec.Amount.String(),
		"transaction_id":   rec.TransactionID,
		"timezone":         rec.Timezone,
		"bank_desc":        rec.BankDesc,
		"currency":         rec.Currency,
		"category":         rec.Category,
		"subcategory":      rec.Subcategory,
		"status":           rec.Status,
		"type":             rec.Type,
		"source_account":   rec.SourceAccount,
		"dest_account":     rec.DestAccount,
		"note":             rec.Note,
		"reference":        rec.Reference,
		"payee":            rec.Payee,
		"gl_code":          rec.GLCode,
		"name_on_card":     rec.NameOnCard,
		"last_four_digits": rec.LastFourDigits,
		"pending":          rec.Pending,
	}
	if !rec.PostDate.IsZero() {
		ctx["post_date"] = rec.PostDate.Format("2006-01-02")
	}
	if !rec.Timestamp.IsZero() {
		ctx["timestamp"] = rec.Timestamp.Format(time.RFC3339)
	}
	for k, v := range rec.Extra {
		ctx[k] = v
	}
	for k, v := range extra {
		ctx[k] = v
	}
	return ctx
}

// RenderImportID renders idTemplate against ctx, failing if the result is empty, mirroring
// render_txn_id's rule that an id rendering to nothing is a config bug, not an omission.
func RenderImportID(env *tmplenv.Env, idTemplate string, ctx map[string]any) (string, error) {
	id, err := env.Render("import-id", idTemplate, ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("ruleeval: rendered import id is empty")
	}
	return id, nil
}

// EvaluateRecord runs the first matching rule's actions against rec, returning the resulting
// Outcome. rules is searched in order; the first rule whose conditions match wins and no
// further rules are tried, mirroring process_imports' "for import_rule in import_rules: ...
// break" loop. A record no rule matches produces an Outcome with only Unprocessed set.
func EvaluateRecord(
	env *tmplenv.Env,
	rules []config.ImportRule,
	extractorName string,
	rec record.Record,
	ctx map[string]any,
	importID string,
	defaultFile string,
	defaultTxn *config.TransactionTemplate,
	prependTmpl, appendTmpl []config.PostingTemplate,
) (Outcome, error) {
	for _, rule := range rules {
		var vars map[string]string
		var matched bool
		var err error

		switch {
		case len(rule.Match) > 0:
			vars, matched, err = match.MatchTransactionWithVars(rule.CommonCond, rule.Match, extractorName, rec)
		case rule.CommonCond != nil:
			matched, err = match.MatchTransaction(*rule.CommonCond, extractorName, rec)
		default:
			matched = true
		}
		if err != nil {
			return Outcome{}, err
		}
		if !matched {
			continue
		}

		return runActions(env, rule.Actions, rec, ctx, vars, importID, defaultFile, defaultTxn, prependTmpl, appendTmpl)
	}

	prepend, err := renderPostings(env, prependTmpl, ctx)
	if err != nil {
		return Outcome{}, err
	}
	appendPostings, err := renderPostings(env, appendTmpl, ctx)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Unprocessed: &UnprocessedTransaction{
			ImportID:        importID,
			Record:          rec,
			OutputFile:      defaultFile,
			PrependPostings: prepend,
			AppendPostings:  appendPostings,
		},
	}, nil
}

func runActions(
	env *tmplenv.Env,
	actions config.ActionList,
	rec record.Record,
	ctx map[string]any,
	vars map[string]string,
	importID string,
	defaultFile string,
	defaultTxn *config.TransactionTemplate,
	prependTmpl, appendTmpl []config.PostingTemplate,
) (Outcome, error) {
	ruleCtx := ctx
	if len(vars) > 0 {
		merged := make(map[string]any, len(ctx)+len(vars))
		for k, v := range ctx {
			merged[k] = v
		}
		for k, v := range vars {
			merged[k] = v
		}
		ruleCtx = merged
	}

	var out Outcome

	for _, action := range actions {
		switch a := action.(type) {
		case config.ActionIgnore:
			return Outcome{}, nil

		case config.ActionDelTxn:
			id := a.ID
			if id == "" {
				id = importID
			}
			rendered, err := env.Render("del-txn-id", id, ruleCtx)
			if err != nil {
				return Outcome{}, err
			}
			out.Deleted = append(out.Deleted, DeletedTransaction{ImportID: rendered})

		case config.ActionAddTxn:
			txn, err := renderTransaction(env, firstNonEmptyTemplate(a.Txn, defaultTxn), ruleCtx, importID, prependTmpl, appendTmpl)
			if err != nil {
				return Outcome{}, err
			}
			file := a.File
			if file == "" {
				file = defaultFile
			}
			out.Generated = append(out.Generated, GeneratedTransaction{
				ImportID: importID,
				File:     file,
				Sources:  []string{rec.File},
				Txn:      *txn,
			})
		}
	}

	return out, nil
}

// firstNonEmptyTemplate merges a rule's txn template over the input's default_txn, field by
// field, mirroring process_transaction's first_non_none(rule_field, default_field) priority.
func firstNonEmptyTemplate(txn config.TransactionTemplate, def *config.TransactionTemplate) config.TransactionTemplate {
	if def == nil {
		return txn
	}
	merged := txn
	if merged.ID == "" {
		merged.ID = def.ID
	}
	if merged.Date == "" {
		merged.Date = def.Date
	}
	if merged.Flag == "" {
		merged.Flag = def.Flag
	}
	if merged.Payee == "" {
		merged.Payee = def.Payee
	}
	if merged.Narration == "" {
		merged.Narration = def.Narration
	}
	if len(merged.Tags) == 0 {
		merged.Tags = def.Tags
	}
	if len(merged.Links) == 0 {
		merged.Links = def.Links
	}
	if len(merged.Metadata) == 0 {
		merged.Metadata = def.Metadata
	}
	if len(merged.Postings) == 0 {
		merged.Postings = def.Postings
	}
	return merged
}

func renderTransaction(
	env *tmplenv.Env,
	tmpl config.TransactionTemplate,
	ctx map[string]any,
	importID string,
	prependTmpl, appendTmpl []config.PostingTemplate,
) (*ledger.Transaction, error) {
	txn := &ledger.Transaction{}

	date := tmpl.Date
	if date == "" {
		date = "{{ date }}"
	}
	renderedDate, err := env.Render("txn-date", date, ctx)
	if err != nil {
		return nil, err
	}
	txn.Date = renderedDate

	flag := tmpl.Flag
	if flag == "" {
		flag = "*"
	}
	renderedFlag, err := env.Render("txn-flag", flag, ctx)
	if err != nil {
		return nil, err
	}
	txn.Flag = ledger.ParseStatus(renderedFlag)

	if tmpl.Payee != "" {
		payee, ok, err := env.RenderOptional("txn-payee", tmpl.Payee, ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			txn.Payee = payee
		}
	}

	narration := tmpl.Narration
	if narration == "" {
		narration = `{{ desc | default "" true }}`
	}
	renderedNarration, err := env.Render("txn-narration", narration, ctx)
	if err != nil {
		return nil, err
	}
	txn.Narration = renderedNarration

	txn.Tags = append([]string(nil), tmpl.Tags...)
	txn.Links = append([]string(nil), tmpl.Links...)

	txn.Metadata = append(txn.Metadata, ledger.MetadataItem{Name: "import-id", Value: importID})
	for _, m := range tmpl.Metadata {
		if m.Name == "import-id" || m.Name == "import-src" {
			return nil, fmt.Errorf("ruleeval: metadata name %q is reserved for import bookkeeping", m.Name)
		}
		value, ok, err := env.RenderOptional("txn-meta", m.Value, ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		txn.Metadata = append(txn.Metadata, ledger.MetadataItem{Name: m.Name, Value: value})
	}

	postings := make([]config.PostingTemplate, 0, len(prependTmpl)+len(tmpl.Postings)+len(appendTmpl))
	postings = append(postings, prependTmpl...)
	postings = append(postings, tmpl.Postings...)
	postings = append(postings, appendTmpl...)

	rendered, err := renderPostings(env, postings, ctx)
	if err != nil {
		return nil, err
	}
	txn.Postings = rendered

	return txn, nil
}

// renderPostings renders each posting template in order, dropping any whose account renders to
// the omit sentinel (per the omit law) rather than emitting a zero-value posting.
func renderPostings(env *tmplenv.Env, tmpls []config.PostingTemplate, ctx map[string]any) ([]ledger.Posting, error) {
	var out []ledger.Posting
	for _, p := range tmpls {
		post, ok, err := renderPosting(env, p, ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, *post)
		}
	}
	return out, nil
}

func renderPosting(env *tmplenv.Env, p config.PostingTemplate, ctx map[string]any) (*ledger.Posting, bool, error) {
	account, ok, err := env.RenderOptional("posting-account", p.Account, ctx)
	if err != nil || !ok {
		return nil, false, err
	}

	post := &ledger.Posting{Account: account, Null: true}

	if p.Amount != nil {
		num, ok, err := env.RenderOptional("posting-amount-number", p.Amount.Number, ctx)
		if err != nil {
			return nil, false, err
		}
		if ok {
			dec, err := decimal.NewFromString(num)
			if err != nil {
				return nil, false, fmt.Errorf("ruleeval: posting amount %q: %w", num, err)
			}
			currency, _, err := env.RenderOptional("posting-amount-currency", p.Amount.Currency, ctx)
			if err != nil {
				return nil, false, err
			}
			post.Amount = &ledger.Amount{Number: dec, Currency: currency}
			post.Null = false
		}
	}

	if p.Cost != "" {
		cost, ok, err := env.RenderOptional("posting-cost", p.Cost, ctx)
		if err != nil {
			return nil, false, err
		}
		if ok {
			post.Cost = cost
		}
	}

	if p.Price != nil {
		num, ok, err := env.RenderOptional("posting-price-number", p.Price.Number, ctx)
		if err != nil {
			return nil, false, err
		}
		if ok {
			dec, err := decimal.NewFromString(num)
			if err != nil {
				return nil, false, fmt.Errorf("ruleeval: posting price %q: %w", num, err)
			}
			currency, _, err := env.RenderOptional("posting-price-currency", p.Price.Currency, ctx)
			if err != nil {
				return nil, false, err
			}
			post.Price = &ledger.Amount{Number: dec, Currency: currency}
		}
	}

	return post, true, nil
}
