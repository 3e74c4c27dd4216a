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

package parse

import (
	"strings"
	"testing"

	ledger "github.com/samuellwn/beanimport"
	"github.com/shopspring/decimal"
)

const sanityLedger = `; Opening balance
2024-01-02 * "Mercury" "Opening balance" #onboarding
  import-id: "abc123"
  Assets:Bank:Mercury   1000.00 USD
  Equity:Opening-Balances

2024-01-05 ! "Coffee Shop" "Latte"
  Expenses:Food:Coffee  3.50 USD
  ; paid by card
  Assets:Bank:Mercury

2024-01-09 txn "Refund" ^order-42
  Assets:Bank:Mercury  10.00 USD
  Income:Refunds
`

func TestParseLedgerSanity(t *testing.T) {
	f, err := ParseLedger(sanityLedger)
	if err != nil {
		t.Fatalf("ParseLedger: %v", err)
	}

	if len(f.T) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(f.T))
	}

	first := f.T[0]
	if first.Date != "2024-01-02" {
		t.Errorf("first.Date = %q, want 2024-01-02", first.Date)
	}
	if first.Flag != ledger.StatusClear {
		t.Errorf("first.Flag = %v, want StatusClear", first.Flag)
	}
	if first.Payee != "Mercury" {
		t.Errorf("first.Payee = %q, want Mercury", first.Payee)
	}
	if first.Narration != "Opening balance" {
		t.Errorf("first.Narration = %q, want %q", first.Narration, "Opening balance")
	}
	if len(first.Tags) != 1 || first.Tags[0] != "onboarding" {
		t.Errorf("first.Tags = %v, want [onboarding]", first.Tags)
	}
	if len(first.Comments) != 1 || first.Comments[0] != "Opening balance" {
		t.Errorf("first.Comments = %v, want [Opening balance]", first.Comments)
	}
	if v, ok := first.Meta("import-id"); !ok || v != "abc123" {
		t.Errorf("first.Meta(import-id) = (%q, %v), want (abc123, true)", v, ok)
	}
	if len(first.Postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(first.Postings))
	}
	if first.Postings[0].Account != "Assets:Bank:Mercury" {
		t.Errorf("posting[0].Account = %q", first.Postings[0].Account)
	}
	wantAmt := decimal.RequireFromString("1000.00")
	if !first.Postings[0].Amount.Number.Equal(wantAmt) || first.Postings[0].Amount.Currency != "USD" {
		t.Errorf("posting[0].Amount = %v, want 1000.00 USD", first.Postings[0].Amount)
	}
	if !first.Postings[1].Null {
		t.Errorf("posting[1] should be a null (elided) posting")
	}

	second := f.T[1]
	if second.Flag != ledger.StatusPending {
		t.Errorf("second.Flag = %v, want StatusPending", second.Flag)
	}
	if second.Postings[0].Note != "" {
		t.Errorf("second.Postings[0].Note = %q, want empty", second.Postings[0].Note)
	}
	if second.Postings[1].Note != "paid by card" {
		t.Errorf("second.Postings[1].Note = %q, want %q", second.Postings[1].Note, "paid by card")
	}

	third := f.T[2]
	if third.Flag != ledger.StatusUndefined {
		t.Errorf("third.Flag = %v, want StatusUndefined (bare txn keyword)", third.Flag)
	}
	if len(third.Links) != 1 || third.Links[0] != "order-42" {
		t.Errorf("third.Links = %v, want [order-42]", third.Links)
	}

	bal, accounts := second.Balance()
	if !bal {
		t.Fatalf("second transaction should balance, accounts=%v", accounts)
	}
}

func TestParseLedgerRoundTrip(t *testing.T) {
	f, err := ParseLedger(sanityLedger)
	if err != nil {
		t.Fatalf("ParseLedger: %v", err)
	}

	var buf strings.Builder
	if err := f.Format(&buf); err != nil {
		t.Fatalf("Format: %v", err)
	}

	f2, err := ParseLedger(buf.String())
	if err != nil {
		t.Fatalf("re-parsing formatted output: %v\n--- formatted ---\n%s", err, buf.String())
	}
	if len(f2.T) != len(f.T) {
		t.Fatalf("round trip changed transaction count: %d != %d", len(f2.T), len(f.T))
	}
	for i := range f.T {
		if f2.T[i].Date != f.T[i].Date || f2.T[i].Narration != f.T[i].Narration {
			t.Errorf("transaction %d changed across round trip: %+v != %+v", i, f2.T[i], f.T[i])
		}
	}
}

func TestParseAmountRejectsBareSign(t *testing.T) {
	_, err := ParseLedger("2024-01-01 * \"x\" \"y\"\n  Assets:Cash  - USD\n  Equity:X\n")
	if err == nil {
		t.Fatalf("expected an error parsing a bare sign with no digits")
	}
}
