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

package ledger

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/samuellwn/beanimport/parse/lex"
)

// File holds a parsed ledger file stored as lists of Directives and Transactions.
type File struct {
	T []Transaction
	D []Directive
}

// ErrImproperInterleave is returned by File.Format if the lists do not interleave properly.
// Caused by bad FoundBefore values in the directives.
var ErrImproperInterleave = errors.New("ledger file transaction and directive lists do not interleave properly")

// Format writes out a ledger file, interleaving the transactions and directives according to
// the "FoundBefore" values in the directives. The directive list is sorted on the FoundBefore
// values as part of this operation; the transactions are written in slice order and are not
// sorted by date, so transactions the reconcile package's applier appends are written after
// the existing ones.
func (f *File) Format(w io.Writer) error {
	// Use a stable sort to be minimally disruptive.
	sort.SliceStable(f.D, func(i, j int) bool {
		return f.D[i].FoundBefore < f.D[j].FoundBefore
	})

	ctr, cdr := 0, 0
	for ctr < len(f.T) || cdr < len(f.D) {
		if cdr < len(f.D) && f.D[cdr].FoundBefore == ctr {
			fmt.Fprintf(w, "\n%v", f.D[cdr].String())
			cdr++
			continue
		}

		if ctr >= len(f.T) {
			return ErrImproperInterleave
		}

		fmt.Fprintf(w, "\n%v", f.T[ctr].String())
		ctr++
	}
	return nil
}

// ErrMalformedAccountName is returned by File.Accounts if an account name is malformed.
type ErrMalformedAccountName struct {
	Name     string
	Location lex.Location
}

func (err ErrMalformedAccountName) Error() string {
	return fmt.Sprintf("malformed account name (%s) at %s", err.Name, err.Location)
}

// Accounts returns a slice of all account directives, in the order they are found in D.
// If any account directives fail to parse, Accounts returns an error.
func (f *File) Accounts() ([]Account, error) {
	accts := []Account{}
	for dIx, d := range f.D {
		if d.Type != "open" && d.Type != "account" {
			continue
		}

		fields := strings.Fields(d.Argument)
		name := d.Argument
		if len(fields) > 0 {
			name = fields[0]
		}

		acct := Account{
			Name:           name,
			FoundBefore:    d.FoundBefore,
			Location:       d.Location,
			DirectiveIndex: dIx,
		}

		if strings.Contains(acct.Name, "  ") || strings.ContainsAny(acct.Name, ";\t") {
			return nil, ErrMalformedAccountName{acct.Name, acct.Location}
		}

		for _, sd := range d.Lines {
			if strings.HasPrefix(sd, "note") {
				acct.Note = strings.TrimSpace(sd[len("note"):])
			}
		}

		accts = append(accts, acct)
	}
	return accts, nil
}

// Account is a simple type representing an account-opening directive.
type Account struct {
	Name string // The name of this account.
	Note string // The contents of the note subdirective, if any.

	FoundBefore    int          // The transaction index this account precedes.
	DirectiveIndex int          // The index of this account in the list of all directives. Calling File.Format may ruin this relationship.
	Location       lex.Location // Line number where this account starts.
}

// CleanCopy takes a perfect copy of the file object. Any edits to the returned File will not
// modify this method's receiver.
func (f *File) CleanCopy() *File {
	nf := &File{T: []Transaction{}, D: []Directive{}}

	for _, tr := range f.T {
		nf.T = append(nf.T, *tr.CleanCopy())
	}

	for _, dir := range f.D {
		nf.D = append(nf.D, *dir.CleanCopy())
	}

	return nf
}

// StripHistory collapses transactions sharing the same import-id metadata down to the latest
// occurrence in T, preserving the position of the first occurrence. This assumes all
// directives are at the beginning of the file; if any directive has a FoundBefore greater than
// 0, data corruption can occur.
func (f *File) StripHistory() {
	newTrs := []Transaction{}
	trIxs := map[string]int{}
	for _, tr := range f.T {
		id, ok := tr.Meta("import-id")
		if !ok || id == "" {
			newTrs = append(newTrs, tr)
			continue
		}

		if idx, ok := trIxs[id]; ok {
			newTrs[idx] = tr
			continue
		}

		trIxs[id] = len(newTrs)
		newTrs = append(newTrs, tr)
	}

	f.T = newTrs
}

// CleanCopy on Directive takes a perfect copy of the directive, safe for editing.
func (d *Directive) CleanCopy() *Directive {
	nd := *d
	nd.Lines = append([]string{}, d.Lines...)
	return &nd
}
