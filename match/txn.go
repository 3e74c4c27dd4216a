package match

import (
	"strconv"
	"time"

	"github.com/samuellwn/beanimport/record"
)

// AmountMatchSpec matches a record's amount with a comparison operator against a fixed value,
// grounded on the same operator set the input-loop filter evaluator uses (==, !=, <, <=, >, >=)
// since both are "compare a typed record field against a configured value" operations.
type AmountMatchSpec struct {
	Eq string `yaml:"eq,omitempty"`
	Ne string `yaml:"ne,omitempty"`
	Lt string `yaml:"lt,omitempty"`
	Le string `yaml:"le,omitempty"`
	Gt string `yaml:"gt,omitempty"`
	Ge string `yaml:"ge,omitempty"`
}

func (s *AmountMatchSpec) matches(amount record.Record) (bool, error) {
	val := amount.Amount

	cmp := func(other string, want int) (bool, error) {
		dec, err := parseDecimalArg(other)
		if err != nil {
			return false, err
		}
		return val.Cmp(dec) == want, nil
	}

	switch {
	case s.Eq != "":
		dec, err := parseDecimalArg(s.Eq)
		if err != nil {
			return false, err
		}
		return val.Equal(dec), nil
	case s.Ne != "":
		dec, err := parseDecimalArg(s.Ne)
		if err != nil {
			return false, err
		}
		return !val.Equal(dec), nil
	case s.Lt != "":
		return cmp(s.Lt, -1)
	case s.Le != "":
		ok, err := cmp(s.Le, -1)
		if err != nil || ok {
			return ok, err
		}
		return cmp(s.Le, 0)
	case s.Gt != "":
		return cmp(s.Gt, 1)
	case s.Ge != "":
		ok, err := cmp(s.Ge, 1)
		if err != nil || ok {
			return ok, err
		}
		return cmp(s.Ge, 0)
	}
	return true, nil
}

// SimpleTxnMatchRule is the set of per-field predicates a record must satisfy, every non-nil
// field ANDed together, grounded on match_transaction's "AND across all non-None fields of a
// rule" behavior. The field set mirrors record.Record's full attribute list, every optional
// field on Record getting a matching optional predicate here.
type SimpleTxnMatchRule struct {
	Extractor *StrMatchSpec    `yaml:"extractor,omitempty"`
	File      *FileMatchSpec   `yaml:"file,omitempty"`
	Desc      *StrMatchSpec    `yaml:"desc,omitempty"`
	Date      *StrMatchSpec    `yaml:"date,omitempty"`
	Amount    *AmountMatchSpec `yaml:"amount,omitempty"`

	TransactionID  *StrMatchSpec `yaml:"transaction_id,omitempty"`
	PostDate       *StrMatchSpec `yaml:"post_date,omitempty"`
	Timestamp      *StrMatchSpec `yaml:"timestamp,omitempty"`
	Timezone       *StrMatchSpec `yaml:"timezone,omitempty"`
	BankDesc       *StrMatchSpec `yaml:"bank_desc,omitempty"`
	Currency       *StrMatchSpec `yaml:"currency,omitempty"`
	Category       *StrMatchSpec `yaml:"category,omitempty"`
	Subcategory    *StrMatchSpec `yaml:"subcategory,omitempty"`
	Status         *StrMatchSpec `yaml:"status,omitempty"`
	Type           *StrMatchSpec `yaml:"type,omitempty"`
	SourceAccount  *StrMatchSpec `yaml:"source_account,omitempty"`
	DestAccount    *StrMatchSpec `yaml:"dest_account,omitempty"`
	Note           *StrMatchSpec `yaml:"note,omitempty"`
	Reference      *StrMatchSpec `yaml:"reference,omitempty"`
	Payee          *StrMatchSpec `yaml:"payee,omitempty"`
	GLCode         *StrMatchSpec `yaml:"gl_code,omitempty"`
	NameOnCard     *StrMatchSpec `yaml:"name_on_card,omitempty"`
	LastFourDigits *StrMatchSpec `yaml:"last_four_digits,omitempty"`
	Pending        *StrMatchSpec `yaml:"pending,omitempty"`
}

// MatchTransaction reports whether rec satisfies every non-nil predicate in rule.
func MatchTransaction(rule SimpleTxnMatchRule, extractorName string, rec record.Record) (bool, error) {
	if rule.Extractor != nil {
		ok, err := MatchStrPtr(rule.Extractor, extractorName)
		if err != nil || !ok {
			return false, err
		}
	}
	if rule.File != nil {
		m, err := rule.File.Build()
		if err != nil {
			return false, err
		}
		ok, err := m.MatchFile(rec.File)
		if err != nil || !ok {
			return false, err
		}
	}
	if rule.Desc != nil {
		ok, err := MatchStrPtr(rule.Desc, rec.Desc)
		if err != nil || !ok {
			return false, err
		}
	}
	if rule.Date != nil {
		ok, err := MatchStrPtr(rule.Date, rec.Date.Format("2006-01-02"))
		if err != nil || !ok {
			return false, err
		}
	}
	if rule.Amount != nil {
		ok, err := rule.Amount.matches(rec)
		if err != nil || !ok {
			return false, err
		}
	}

	fields := []struct {
		spec  *StrMatchSpec
		value string
	}{
		{rule.TransactionID, rec.TransactionID},
		{rule.PostDate, formatDateField(rec.PostDate)},
		{rule.Timestamp, formatTimestampField(rec.Timestamp)},
		{rule.Timezone, rec.Timezone},
		{rule.BankDesc, rec.BankDesc},
		{rule.Currency, rec.Currency},
		{rule.Category, rec.Category},
		{rule.Subcategory, rec.Subcategory},
		{rule.Status, rec.Status},
		{rule.Type, rec.Type},
		{rule.SourceAccount, rec.SourceAccount},
		{rule.DestAccount, rec.DestAccount},
		{rule.Note, rec.Note},
		{rule.Reference, rec.Reference},
		{rule.Payee, rec.Payee},
		{rule.GLCode, rec.GLCode},
		{rule.NameOnCard, rec.NameOnCard},
		{rule.LastFourDigits, rec.LastFourDigits},
		{rule.Pending, strconv.FormatBool(rec.Pending)},
	}
	for _, f := range fields {
		if f.spec == nil {
			continue
		}
		ok, err := MatchStrPtr(f.spec, f.value)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

// formatDateField stringifies an optional date-only field, leaving a zero time as "" so an unset
// post_date doesn't masquerade as matching a pattern that expects a real date.
func formatDateField(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// formatTimestampField is formatDateField's counterpart for fields with a meaningful
// time-of-day component.
func formatTimestampField(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// TxnMatchVars pairs a match condition with a set of template variables to bind when it fires,
// grounded on TxnMatchVars{cond, vars} / match_transaction_with_vars's "first cond match wins"
// iteration.
type TxnMatchVars struct {
	Cond SimpleTxnMatchRule `yaml:"cond"`
	Vars map[string]string  `yaml:"vars"`
}

// MatchTransactionWithVars returns the Vars of the first TxnMatchVars whose Cond (ANDed with
// commonCond, if non-nil) matches rec, and true. If none match, returns nil, false.
func MatchTransactionWithVars(commonCond *SimpleTxnMatchRule, candidates []TxnMatchVars, extractorName string, rec record.Record) (map[string]string, bool, error) {
	for _, c := range candidates {
		if commonCond != nil {
			ok, err := MatchTransaction(*commonCond, extractorName, rec)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				continue
			}
		}
		ok, err := MatchTransaction(c.Cond, extractorName, rec)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return c.Vars, true, nil
		}
	}
	return nil, false, nil
}
