/*
Copyright 2021 by Milo Christiansen

This software is provided 'as-is', without any express or implied warranty. In
no event will the authors be held liable for any damages arising from the use of
this software.

Permission is granted to anyone to use this software for any purpose, including
commercial applications, and to alter it and redistribute it freely, subject to
the following restrictions:

1. The origin of this software must not be misrepresented; you must not claim
that you wrote the original software. If you use this software in a product, an
acknowledgment in the product documentation would be appreciated but is not
required.

2. Altered source versions must be plainly marked as such, and must not be
misrepresented as being the original software.

3. This notice may not be removed or altered from any source distribution.
*/

/*
Package ledger contains a parser and formatter for a beancount-flavored ledger file.

This is a generalization of the Ledger CLI dialect this package used to support: transactions
now carry an optional payee, hashtags, links, and string-valued metadata instead of a single
K/V map, and posting amounts are exact decimals instead of a fixed-point int64 in thousandths
of a cent. The parse tree still remembers comments and source line numbers so a tree can be
round tripped, or surgically edited by the reconcile package, without disturbing the parts an
editor didn't touch.
*/
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

type Status int

// Status constants for Transaction.Flag and Posting.Status
const (
	StatusUndefined = Status(iota)
	StatusPending
	StatusClear
)

func (s Status) String() string {
	switch s {
	case StatusClear:
		return "*"
	case StatusPending:
		return "!"
	default:
		return ""
	}
}

// ParseStatus recovers a status from its single character flag form.
func ParseStatus(flag string) Status {
	switch flag {
	case "*":
		return StatusClear
	case "!":
		return StatusPending
	default:
		return StatusUndefined
	}
}

// Amount is an exact decimal quantity paired with a currency symbol.
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Number.String(), a.Currency)
}

// MetadataItem is a single `key: "value"` line attached to a transaction or posting.
type MetadataItem struct {
	Name  string
	Value string
}

// Posting is a single line item in a Transaction.
type Posting struct {
	Status Status //   | ! | * (optional)

	Account string
	// Amount is nil for an elided ("null") posting, whose value is implied by the rest
	// of the transaction balancing to zero in its currency.
	Amount *Amount
	Null   bool
	Cost   string // Rendered cost basis annotation, e.g. "{2024-01-01, 10.00 USD}". Empty if absent.
	Price  *Amount

	Metadata []MetadataItem
	Note     string // Trailing `; comment` on the posting line, if any, after any own-line `;` comments directly above the posting, joined with "; ".
}

// Transaction is a single dated entry from a ledger file.
type Transaction struct {
	Date      string // Rendered as-is (YYYY-MM-DD); the reconcile package owns date comparisons.
	Flag      Status
	Payee     string // Optional.
	Narration string

	Tags  []string // Hashtags, without the leading '#'.
	Links []string // Links, without the leading '^'.

	Metadata []MetadataItem
	Postings []Posting

	Comments []string // Leading `; ...` lines that precede this entry in the source, then any `; ...` lines after its last posting.

	Line int // The source line this transaction's date directive begins at.
}

// CleanCopy takes a perfect copy of the transaction, safe for editing without touching the original.
func (t *Transaction) CleanCopy() *Transaction {
	nt := *t
	nt.Tags = slices.Clone(t.Tags)
	nt.Links = slices.Clone(t.Links)
	nt.Metadata = slices.Clone(t.Metadata)
	nt.Comments = slices.Clone(t.Comments)
	nt.Postings = make([]Posting, len(t.Postings))
	for i, p := range t.Postings {
		np := p
		np.Metadata = slices.Clone(p.Metadata)
		nt.Postings[i] = np
	}
	return &nt
}

// Meta looks up the first metadata value with the given name. Beancount-style metadata keys
// are not required to be unique but conventionally are.
func (t *Transaction) Meta(name string) (string, bool) {
	for _, m := range t.Metadata {
		if m.Name == name {
			return m.Value, true
		}
	}
	return "", false
}

// Balance ensures that all postings with a given currency add up to 0, or that there is a
// single null posting to absorb the remainder. Returns false, nil if there is more than one
// null posting, otherwise the ending per-currency, per-account balances and true if the
// transaction balances.
func (t *Transaction) Balance() (bool, map[string]decimal.Decimal) {
	bal := map[string]decimal.Decimal{}
	accounts := map[string]decimal.Decimal{}
	null := -1

	for i, p := range t.Postings {
		if p.Null && null != -1 {
			return false, nil
		}
		if p.Null {
			null = i
			continue
		}
		if p.Amount == nil {
			continue
		}
		bal[p.Amount.Currency] = bal[p.Amount.Currency].Add(p.Amount.Number)
		key := p.Account + "\x00" + p.Amount.Currency
		accounts[key] = accounts[key].Add(p.Amount.Number)
	}

	if null != -1 {
		for cur, v := range bal {
			key := t.Postings[null].Account + "\x00" + cur
			accounts[key] = accounts[key].Sub(v)
		}
		return true, accounts
	}

	for _, v := range bal {
		if !v.IsZero() {
			return false, accounts
		}
	}
	return true, accounts
}

// Canonicalize sets the amount of any null posting to the value required to balance the
// transaction. Returns an error if there are multiple null postings, or no null posting and
// the transaction does not balance in some currency.
func (t *Transaction) Canonicalize() error {
	bal := map[string]decimal.Decimal{}
	null := -1

	for i, p := range t.Postings {
		if p.Null && null != -1 {
			return MultipleNullError([2]int{-1, t.Line})
		}
		if p.Null {
			null = i
			continue
		}
		if p.Amount == nil {
			continue
		}
		bal[p.Amount.Currency] = bal[p.Amount.Currency].Add(p.Amount.Number)
	}

	if null != -1 {
		currency := "USD"
		for cur := range bal {
			currency = cur
			break
		}
		t.Postings[null].Amount = &Amount{Number: bal[currency].Neg(), Currency: currency}
		t.Postings[null].Null = false
		return nil
	}

	for _, v := range bal {
		if !v.IsZero() {
			return BalanceError([2]int{-1, t.Line})
		}
	}
	return nil
}

// SumTransactions balances a list of transactions and returns a map of "account\x00currency"
// keys to their ending values.
func SumTransactions(ts []Transaction) (map[string]decimal.Decimal, error) {
	accounts := map[string]decimal.Decimal{}

	for i, t := range ts {
		ok, ac := t.Balance()
		if !ok {
			return nil, BalanceError([2]int{i, t.Line})
		}
		for k, v := range ac {
			accounts[k] = accounts[k].Add(v)
		}
	}

	return accounts, nil
}

type sumTree struct {
	children map[string]*sumTree
	value    decimal.Decimal
}

func (st *sumTree) render(name, lvl, pad string, res [][]string) [][]string {
	if len(st.children) == 1 {
		for key, child := range st.children {
			return child.render(name+":"+key, lvl, pad, res)
		}
	}

	padding := ""
	if name != "" {
		padding = pad
		res = append(res, []string{lvl + name, st.value.StringFixed(2)})
	}

	keys := make([]string, 0, len(st.children))
	for key := range st.children {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		res = st.children[key].render(key, lvl+padding, pad, res)
	}
	return res
}

// FormatSums takes a map of "account\x00currency" to sums and turns it into a list of
// name/value pairs with indentation applied to the names, one tree per currency.
func FormatSums(accounts map[string]decimal.Decimal, pad string) [][]string {
	byCurrency := map[string]map[string]decimal.Decimal{}
	for key, value := range accounts {
		parts := strings.SplitN(key, "\x00", 2)
		account, currency := parts[0], parts[1]
		if byCurrency[currency] == nil {
			byCurrency[currency] = map[string]decimal.Decimal{}
		}
		byCurrency[currency][account] = value
	}

	currencies := make([]string, 0, len(byCurrency))
	for c := range byCurrency {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	var res [][]string
	for _, currency := range currencies {
		root := &sumTree{children: map[string]*sumTree{}}
		for account, value := range byCurrency[currency] {
			parts := strings.Split(account, ":")

			level := root
			for _, part := range parts {
				if level.children == nil {
					level.children = map[string]*sumTree{}
				}
				if level.children[part] == nil {
					level.children[part] = &sumTree{}
				}
				level.children[part].value = level.children[part].value.Add(value)
				level = level.children[part]
			}
		}
		res = root.render("", "", pad, res)
	}
	return res
}

func (t *Transaction) String() string {
	buf := new(bytes.Buffer)

	for _, line := range t.Comments {
		fmt.Fprintf(buf, "; %v\n", line)
	}

	fmt.Fprint(buf, t.Date)
	if flag := t.Flag.String(); flag != "" {
		fmt.Fprintf(buf, " %s", flag)
	} else {
		fmt.Fprint(buf, " txn")
	}
	if t.Payee != "" {
		fmt.Fprintf(buf, " %s", quoteJSON(t.Payee))
	}
	fmt.Fprintf(buf, " %s", quoteJSON(t.Narration))
	for _, tag := range t.Tags {
		fmt.Fprintf(buf, " #%s", tag)
	}
	for _, link := range t.Links {
		fmt.Fprintf(buf, " ^%s", link)
	}
	buf.WriteRune('\n')

	for _, m := range t.Metadata {
		fmt.Fprintf(buf, "  %s: %s\n", m.Name, quoteJSON(m.Value))
	}

	for _, p := range t.Postings {
		fmt.Fprintf(buf, "%v\n", p.String())
	}

	return buf.String()
}

func (p *Posting) String() string {
	buf := new(bytes.Buffer)
	buf.WriteString("  ")

	switch p.Status {
	case StatusClear:
		buf.WriteString("* ")
	case StatusPending:
		buf.WriteString("! ")
	}

	buf.WriteString(p.Account)

	if !p.Null && p.Amount != nil {
		fmt.Fprintf(buf, "  %s", p.Amount)
	}
	if p.Cost != "" {
		fmt.Fprintf(buf, " %s", p.Cost)
	}
	if p.Price != nil {
		fmt.Fprintf(buf, " @ %s", p.Price)
	}
	if p.Note != "" {
		fmt.Fprintf(buf, " ; %v", p.Note)
	}

	for _, m := range p.Metadata {
		fmt.Fprintf(buf, "\n    %s: %s", m.Name, quoteJSON(m.Value))
	}

	return buf.String()
}

func quoteJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// TransactionDateSorter sorts a slice of Transaction by (Date, Line). Under this ordering a
// synthetic addition from the reconcile package (Line at or above its add-entry offset) sorts
// after every existing same-date entry. Neither the applier nor File.Format applies this sort.
type TransactionDateSorter []Transaction

func (tds TransactionDateSorter) Len() int { return len(tds) }

func (tds TransactionDateSorter) Less(i, j int) bool {
	if tds[i].Date != tds[j].Date {
		return tds[i].Date < tds[j].Date
	}
	return tds[i].Line < tds[j].Line
}

func (tds TransactionDateSorter) Swap(i, j int) {
	tds[i], tds[j] = tds[j], tds[i]
}

var _ sort.Interface = TransactionDateSorter(nil)

// Error types

// BalanceError is returned by functions that validate transactions when a transaction does
// not balance to zero in some currency.
type BalanceError [2]int

func (err BalanceError) Error() string {
	if err[0] < 0 {
		return fmt.Sprintf("Transaction (defined on line %v) does not balance.", err[1])
	}
	return fmt.Sprintf("Transaction %v (defined on line %v) does not balance.", err[0], err[1])
}

// MultipleNullError is returned by functions that validate transactions when the transaction
// has more than one null posting.
type MultipleNullError [2]int

func (err MultipleNullError) Error() string {
	if err[0] < 0 {
		return fmt.Sprintf("Transaction (defined on line %v) has multiple null postings.", err[1])
	}
	return fmt.Sprintf("Transaction %v (defined on line %v) has multiple null postings.", err[0], err[1])
}
