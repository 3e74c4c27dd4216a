package match

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuellwn/beanimport/record"
)

func TestMatchTransactionMatchesOnSourceAccountAndPayee(t *testing.T) {
	rec := record.Record{
		Desc:          "Amazon Web Services",
		Amount:        decimal.RequireFromString("-353.63"),
		SourceAccount: "Mercury Checking xx12",
		Payee:         "Amazon",
	}

	rule := SimpleTxnMatchRule{
		SourceAccount: &StrMatchSpec{Exact: "Mercury Checking xx12"},
		Payee:         &StrMatchSpec{Prefix: "Amaz"},
	}
	ok, err := MatchTransaction(rule, "mercury", rec)
	require.NoError(t, err)
	assert.True(t, ok)

	rule.SourceAccount = &StrMatchSpec{Exact: "Some Other Account"}
	ok, err = MatchTransaction(rule, "mercury", rec)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchTransactionUnsetOptionalDateFieldNeverMatchesNonEmptyPattern(t *testing.T) {
	rec := record.Record{Desc: "x"}
	rule := SimpleTxnMatchRule{PostDate: &StrMatchSpec{Exact: "2024-04-16"}}
	ok, err := MatchTransaction(rule, "mercury", rec)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchTransactionPostDateFormatsAsDateOnly(t *testing.T) {
	rec := record.Record{
		Desc:     "x",
		PostDate: time.Date(2024, 4, 17, 0, 0, 0, 0, time.UTC),
	}
	rule := SimpleTxnMatchRule{PostDate: &StrMatchSpec{Exact: "2024-04-17"}}
	ok, err := MatchTransaction(rule, "mercury", rec)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchTransactionPendingMatchesBooleanAsString(t *testing.T) {
	rec := record.Record{Desc: "x", Pending: true}
	rule := SimpleTxnMatchRule{Pending: &StrMatchSpec{Exact: "true"}}
	ok, err := MatchTransaction(rule, "mercury", rec)
	require.NoError(t, err)
	assert.True(t, ok)
}
