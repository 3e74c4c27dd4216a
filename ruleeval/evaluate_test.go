package ruleeval

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuellwn/beanimport/config"
	"github.com/samuellwn/beanimport/match"
	"github.com/samuellwn/beanimport/record"
	"github.com/samuellwn/beanimport/tmplenv"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

// S1 — simple add: a mercury/Amazon Web Services record rendered through a matching rule
// produces one GeneratedTransaction.
func TestEvaluateRecordS1SimpleAdd(t *testing.T) {
	env := tmplenv.New()
	rec := record.Record{
		File:   "mercury.csv",
		Lineno: 2,
		Date:   mustDate(t, "2024-04-16"),
		Desc:   "Amazon Web Services",
		Amount: decimal.RequireFromString("-353.63"),
	}

	desc := "Amazon Web Services"
	rules := []config.ImportRule{
		{
			Match: []match.TxnMatchVars{
				{Cond: match.SimpleTxnMatchRule{Desc: &match.StrMatchSpec{Exact: desc}}},
			},
			Actions: config.ActionList{
				config.ActionAddTxn{
					File: "output.bean",
					Txn: config.TransactionTemplate{
						Postings: []config.PostingTemplate{
							{Account: "Assets:Bank:US:Mercury", Amount: &config.AmountTemplate{Number: "{{ amount }}", Currency: "USD"}},
							{Account: "Expenses:FooBar", Amount: &config.AmountTemplate{Number: "353.63", Currency: "USD"}},
						},
					},
				},
			},
		},
	}

	ctx := RecordContext(rec, 5, nil)
	importID, err := RenderImportID(env, `{{ file | as_posix_path }}:{{ reversed_lineno }}`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "mercury.csv:-3", importID)

	out, err := EvaluateRecord(env, rules, "mercury", rec, ctx, importID, "output.bean", nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, out.Generated, 1)
	gen := out.Generated[0]
	assert.Equal(t, "output.bean", gen.File)
	assert.Equal(t, []string{"mercury.csv"}, gen.Sources)
	assert.Equal(t, "2024-04-16", gen.Txn.Date)
	assert.Equal(t, "*", gen.Txn.Flag.String())
	assert.Equal(t, "Amazon Web Services", gen.Txn.Narration)
	require.Len(t, gen.Txn.Postings, 2)
	assert.Equal(t, "Assets:Bank:US:Mercury", gen.Txn.Postings[0].Account)
	assert.True(t, gen.Txn.Postings[0].Amount.Number.Equal(decimal.RequireFromString("-353.63")))
	assert.Nil(t, out.Unprocessed)
}

// S2 — unmatched: same record, no rule matches; expect zero generated and an Unprocessed
// carrying the resolved import id and the rendered prepend/append postings.
func TestEvaluateRecordS2Unmatched(t *testing.T) {
	env := tmplenv.New()
	rec := record.Record{
		File:   "mercury.csv",
		Lineno: 2,
		Date:   mustDate(t, "2024-04-16"),
		Desc:   "Amazon Web Services",
		Amount: decimal.RequireFromString("-353.63"),
	}

	var rules []config.ImportRule
	ctx := RecordContext(rec, 5, nil)
	importID, err := RenderImportID(env, `{{ file | as_posix_path }}:{{ reversed_lineno }}`, ctx)
	require.NoError(t, err)

	prepend := []config.PostingTemplate{
		{Account: "Assets:Bank:US:Mercury", Amount: &config.AmountTemplate{Number: "{{ amount }}", Currency: "USD"}},
	}
	appendPostings := []config.PostingTemplate{
		{Account: "Expenses:Unknown"},
	}

	out, err := EvaluateRecord(env, rules, "mercury", rec, ctx, importID, "output.bean", nil, prepend, appendPostings)
	require.NoError(t, err)
	assert.Empty(t, out.Generated)
	assert.Empty(t, out.Deleted)
	require.NotNil(t, out.Unprocessed)
	assert.Equal(t, "mercury.csv:-3", out.Unprocessed.ImportID)
	require.Len(t, out.Unprocessed.PrependPostings, 1)
	assert.Equal(t, "Assets:Bank:US:Mercury", out.Unprocessed.PrependPostings[0].Account)
	assert.True(t, out.Unprocessed.PrependPostings[0].Amount.Number.Equal(decimal.RequireFromString("-353.63")))
	require.Len(t, out.Unprocessed.AppendPostings, 1)
	assert.Equal(t, "Expenses:Unknown", out.Unprocessed.AppendPostings[0].Account)
}

// S3 — delete: a DelTxn action with its own id template produces exactly one
// DeletedTransaction, independent of the record's resolved import id.
func TestEvaluateRecordS3Delete(t *testing.T) {
	env := tmplenv.New()
	rec := record.Record{
		File:   "mock.csv",
		Lineno: 123,
		Date:   mustDate(t, "2024-01-01"),
		Desc:   "whatever",
		Amount: decimal.Zero,
	}

	rules := []config.ImportRule{
		{
			Actions: config.ActionList{
				config.ActionDelTxn{ID: "id-{{ file }}:{{ lineno }}"},
			},
		},
	}

	ctx := RecordContext(rec, 200, nil)
	out, err := EvaluateRecord(env, rules, "mock", rec, ctx, "unused-default-id", "output.bean", nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, out.Deleted, 1)
	assert.Equal(t, "id-mock.csv:123", out.Deleted[0].ImportID)
	assert.Empty(t, out.Generated)
	assert.Nil(t, out.Unprocessed)
}

func TestRecordContextExposesOptionalFields(t *testing.T) {
	rec := record.Record{
		File:          "mercury.csv",
		Lineno:        2,
		Date:          mustDate(t, "2024-04-16"),
		Desc:          "Amazon Web Services",
		Amount:        decimal.RequireFromString("-353.63"),
		SourceAccount: "Mercury Checking xx12",
		Currency:      "USD",
	}
	ctx := RecordContext(rec, 5, nil)
	assert.Equal(t, "Mercury Checking xx12", ctx["source_account"])
	assert.Equal(t, "USD", ctx["currency"])
	_, hasPostDate := ctx["post_date"]
	assert.False(t, hasPostDate)
}

func TestOmitSentinelDropsPosting(t *testing.T) {
	env := tmplenv.New()
	rec := record.Record{File: "x.csv", Lineno: 1, Date: mustDate(t, "2024-01-01"), Desc: "x"}

	rules := []config.ImportRule{
		{
			Actions: config.ActionList{
				config.ActionAddTxn{
					File: "output.bean",
					Txn: config.TransactionTemplate{
						Postings: []config.PostingTemplate{
							{Account: "{{ omit }}"},
							{Account: "Expenses:Kept"},
						},
					},
				},
			},
		},
	}

	ctx := RecordContext(rec, 1, nil)
	out, err := EvaluateRecord(env, rules, "x", rec, ctx, "x.csv:1", "output.bean", nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, out.Generated, 1)
	require.Len(t, out.Generated[0].Txn.Postings, 1)
	assert.Equal(t, "Expenses:Kept", out.Generated[0].Txn.Postings[0].Account)
}

func TestReservedMetadataNameIsFatal(t *testing.T) {
	env := tmplenv.New()
	rec := record.Record{File: "x.csv", Lineno: 1, Date: mustDate(t, "2024-01-01"), Desc: "x"}

	rules := []config.ImportRule{
		{
			Actions: config.ActionList{
				config.ActionAddTxn{
					File: "output.bean",
					Txn: config.TransactionTemplate{
						Metadata: []config.MetadataItemTemplate{{Name: "import-id", Value: "bogus"}},
					},
				},
			},
		},
	}

	ctx := RecordContext(rec, 1, nil)
	_, err := EvaluateRecord(env, rules, "x", rec, ctx, "x.csv:1", "output.bean", nil, nil, nil)
	require.Error(t, err)
}
