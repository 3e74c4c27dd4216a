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

	ledger "github.com/samuellwn/beanimport"
	"github.com/samuellwn/beanimport/parse/lex"
	"github.com/shopspring/decimal"
)

/*

Each element is either a transaction or a directive. A transaction starts with a date; anything
else starting a line is a directive, read as a keyword, an argument (the rest of the line), and
zero or more indented lines kept raw for whatever owns that directive type to interpret.

*/

// ParseLedger parses a ledger file from a string into a File.
func ParseLedger(input string) (*ledger.File, error) {
	return ParseLedgerRaw(NewCharReader(input, 1))
}

// ParseLedgerRaw parses a ledger file from a CharReader into a File.
func ParseLedgerRaw(cr *CharReader) (*ledger.File, error) {
	f := &ledger.File{}
	var pending []string

	for !cr.EOF {
		cr.Eat(" \t")
		if cr.Match("\n") {
			cr.Next()
			pending = nil
			continue
		}

		if cr.Match(";") {
			cr.Next()
			cr.Eat(" \t")
			line, err := ReadUntilTrimmed(cr, "\n")
			if err != nil {
				return nil, err
			}
			if !cr.EOF {
				cr.Next()
			}
			pending = append(pending, line)
			continue
		}

		if cr.MatchNumeric() {
			txn, err := parseTransaction(cr, pending)
			pending = nil
			if err != nil {
				return nil, err
			}
			f.T = append(f.T, *txn)
			continue
		}

		dir, err := parseDirective(cr)
		pending = nil
		if err != nil {
			return nil, err
		}
		dir.FoundBefore = len(f.T)
		f.D = append(f.D, *dir)
	}

	return f, nil
}

func parseTransaction(cr *CharReader, comments []string) (*ledger.Transaction, error) {
	startLine := cr.L

	date, err := ParseDate(cr)
	if err != nil {
		return nil, err
	}

	cr.Eat(" \t")
	if cr.EOF {
		return nil, ErrUnexpectedEnd(cr.L)
	}

	flag := ledger.StatusUndefined
	switch {
	case cr.Match("*"):
		flag = ledger.ParseStatus("*")
		cr.Next()
	case cr.Match("!"):
		flag = ledger.ParseStatus("!")
		cr.Next()
	case cr.MatchAlpha():
		// Bare keyword flag, e.g. the conventional "txn".
		if _, err := readBareWord(cr); err != nil {
			return nil, err
		}
	default:
		return nil, ErrMalformed(cr.L)
	}

	cr.Eat(" \t")
	if cr.EOF {
		return nil, ErrUnexpectedEnd(cr.L)
	}

	txn := &ledger.Transaction{
		Date:     date,
		Flag:     flag,
		Line:     startLine,
		Comments: comments,
	}

	var strs []string
	for cr.Match("\"") {
		s, err := readQuoted(cr)
		if err != nil {
			return nil, err
		}
		strs = append(strs, s)
		cr.Eat(" \t")
		if cr.EOF {
			return nil, ErrUnexpectedEnd(cr.L)
		}
	}
	switch len(strs) {
	case 1:
		txn.Narration = strs[0]
	case 2:
		txn.Payee = strs[0]
		txn.Narration = strs[1]
	}

	for cr.Match("#^") {
		isTag := cr.C == '#'
		cr.Next()
		word, err := readBareWord(cr)
		if err != nil {
			return nil, err
		}
		if isTag {
			txn.Tags = append(txn.Tags, word)
		} else {
			txn.Links = append(txn.Links, word)
		}
		cr.Eat(" \t")
		if cr.EOF {
			return nil, ErrUnexpectedEnd(cr.L)
		}
	}

	if cr.EOF {
		return txn, nil
	}
	if !cr.Match("\n") {
		return nil, ErrMalformed(cr.L)
	}
	cr.Next()

	var noteLines []string
	for cr.Match(" \t") {
		cr.Eat(" \t")
		if cr.EOF {
			break
		}

		if cr.Match(";") {
			cr.Next()
			cr.Eat(" \t")
			line, err := ReadUntilTrimmed(cr, "\n")
			if err != nil {
				return nil, err
			}
			if !cr.EOF {
				cr.Next()
			}
			noteLines = append(noteLines, line)
			continue
		}

		status := ledger.StatusUndefined
		if cr.Match("*") {
			status = ledger.ParseStatus("*")
			cr.Next()
			cr.Eat(" \t")
		} else if cr.Match("!") {
			status = ledger.ParseStatus("!")
			cr.Next()
			cr.Eat(" \t")
		}
		if cr.EOF {
			break
		}

		token, isMeta, err := readLeadToken(cr)
		if err != nil {
			return nil, err
		}

		if isMeta {
			cr.Eat(" \t")
			value, err := readMetaValue(cr)
			if err != nil {
				return nil, err
			}
			cr.Eat(" \t")
			if cr.Match("\n") {
				cr.Next()
			}
			txn.Metadata = append(txn.Metadata, ledger.MetadataItem{Name: token, Value: value})
			continue
		}

		post, err := parsePosting(cr, status, token)
		if err != nil {
			return nil, err
		}
		if len(noteLines) > 0 {
			if post.Note != "" {
				noteLines = append(noteLines, post.Note)
			}
			post.Note = strings.Join(noteLines, "; ")
			noteLines = nil
		}
		txn.Postings = append(txn.Postings, *post)
	}
	txn.Comments = append(txn.Comments, noteLines...)

	return txn, nil
}

// parsePosting parses everything after a posting's leading status flag and account name.
func parsePosting(cr *CharReader, status ledger.Status, account string) (*ledger.Posting, error) {
	post := &ledger.Posting{Status: status, Account: account}

	cr.Eat(" \t")
	if cr.EOF {
		return post, nil
	}

	if cr.Match("\n") {
		post.Null = true
		cr.Next()
		return post, nil
	}

	if cr.Match(";") {
		cr.Next()
		cr.Eat(" \t")
		note, err := ReadUntilTrimmed(cr, "\n")
		if err != nil {
			return nil, err
		}
		if !cr.EOF {
			cr.Next()
		}
		post.Null = true
		post.Note = note
		return post, nil
	}

	amt, err := parseAmount(cr)
	if err != nil {
		return nil, err
	}
	post.Amount = amt

	cr.Eat(" \t")
	if cr.EOF {
		return post, nil
	}

	if cr.Match("{") {
		cr.Next()
		cost, err := ReadUntilTrimmed(cr, "}")
		if err != nil {
			return nil, err
		}
		cr.Next()
		post.Cost = "{" + cost + "}"
		cr.Eat(" \t")
		if cr.EOF {
			return post, nil
		}
	}

	if cr.Match("@") {
		cr.Next()
		cr.Eat(" \t")
		price, err := parseAmount(cr)
		if err != nil {
			return nil, err
		}
		post.Price = price
		cr.Eat(" \t")
		if cr.EOF {
			return post, nil
		}
	}

	if cr.Match(";") {
		cr.Next()
		cr.Eat(" \t")
		note, err := ReadUntilTrimmed(cr, "\n")
		if err != nil {
			return nil, err
		}
		post.Note = note
	}

	if cr.EOF {
		return post, nil
	}
	if !cr.Match("\n") {
		return nil, ErrMalformed(cr.L)
	}
	cr.Next()

	return post, nil
}

func parseAmount(cr *CharReader) (*ledger.Amount, error) {
	buf := []rune{}
	if cr.Match("-") {
		buf = append(buf, '-')
		cr.Next()
	}
	buf = cr.ReadMatch("0123456789.,", buf)
	if len(buf) == 0 || (len(buf) == 1 && buf[0] == '-') {
		return nil, ErrBadAmount(cr.L)
	}

	numStr := strings.ReplaceAll(string(buf), ",", "")
	num, err := decimal.NewFromString(numStr)
	if err != nil {
		return nil, ErrBadAmount(cr.L)
	}

	cr.Eat(" \t")
	if cr.EOF {
		return &ledger.Amount{Number: num}, nil
	}

	currency, err := readBareWord(cr)
	if err != nil {
		return nil, err
	}

	return &ledger.Amount{Number: num, Currency: currency}, nil
}

// readLeadToken reads a bareword up to whitespace, or up to a ":" immediately followed by
// whitespace/EOL, in which case it is a metadata key and isMetaKey is true. Account names use
// ":" as a path separator with no following whitespace, so this distinguishes "assets:checking"
// (a posting's account) from "import-id: " (a metadata key) using only the single-rune
// lookahead the reader provides.
func readLeadToken(cr *CharReader) (token string, isMetaKey bool, err error) {
	buf := []rune{}
	for {
		if cr.EOF {
			return string(buf), false, nil
		}
		if cr.C == ':' && (cr.NMatch(" \t") || cr.NMatch("\n")) {
			cr.Next()
			return string(buf), true, nil
		}
		if cr.Match(" \t\n") {
			return string(buf), false, nil
		}
		buf = append(buf, cr.C)
		cr.Next()
	}
}

func readMetaValue(cr *CharReader) (string, error) {
	if cr.Match("\"") {
		return readQuoted(cr)
	}
	return ReadUntilTrimmed(cr, "\n")
}

func parseDirective(cr *CharReader) (*ledger.Directive, error) {
	startLine := cr.L

	word, err := readBareWord(cr)
	if err != nil {
		return nil, err
	}
	cr.Eat(" \t")
	arg, err := ReadUntilTrimmed(cr, "\n")
	if err != nil {
		return nil, err
	}
	if !cr.EOF {
		cr.Next()
	}

	dir := &ledger.Directive{
		Type:     word,
		Argument: arg,
		Location: lex.Location(0).L(uint64(startLine)),
	}

	for cr.Match(" \t") {
		cr.Eat(" \t")
		if cr.EOF {
			break
		}
		line, err := ReadUntilTrimmed(cr, "\n")
		if err != nil {
			return nil, err
		}
		if !cr.EOF {
			cr.Next()
		}
		dir.Lines = append(dir.Lines, line)
	}

	return dir, nil
}

// readBareWord reads a run of non-whitespace characters.
func readBareWord(cr *CharReader) (string, error) {
	buf := []rune{}
	buf = cr.ReadUntil(" \t\n", buf)
	if len(buf) == 0 {
		return "", ErrMalformed(cr.L)
	}
	return string(buf), nil
}

// readQuoted reads a double-quoted string, interpreting a small set of backslash escapes.
func readQuoted(cr *CharReader) (string, error) {
	if !cr.Match("\"") {
		return "", ErrMalformed(cr.L)
	}
	cr.Next()

	buf := []rune{}
	for !cr.Match("\"") {
		if cr.EOF {
			return "", ErrUnexpectedEnd(cr.L)
		}
		if cr.C == '\\' {
			cr.Next()
			if cr.EOF {
				return "", ErrUnexpectedEnd(cr.L)
			}
			switch cr.C {
			case 'n':
				buf = append(buf, '\n')
			case 't':
				buf = append(buf, '\t')
			case '"':
				buf = append(buf, '"')
			case '\\':
				buf = append(buf, '\\')
			default:
				buf = append(buf, cr.C)
			}
			cr.Next()
			continue
		}
		buf = append(buf, cr.C)
		cr.Next()
	}
	cr.Next() // consume closing quote

	return string(buf), nil
}

// ReadUntilTrimmed reads characters from the CharReader until one of the characters in `chars`
// is found. The result then has all the whitespace trimmed from the ends.
func ReadUntilTrimmed(cr *CharReader, chars string) (string, error) {
	ln := []rune{}
	ln = cr.ReadUntil(chars, ln)
	// Trim trailing ws
	for i := len(ln) - 1; i > 0; i-- {
		if ln[i] != ' ' && ln[i] != '\t' {
			break
		}
		ln = ln[:i]
	}
	// Trim leading ws
	for i := 0; i < len(ln); i++ {
		if ln[0] != ' ' && ln[0] != '\t' {
			break
		}
		ln = ln[1:]
	}
	return string(ln), nil
}

// ParseDate reads a date in yyyy-mm-dd (or yyyy/mm/dd) format from the CharReader, returning
// it as a string with each separator ('-', '/' or '.') written as '-'.
func ParseDate(cr *CharReader) (string, error) {
	startLine := cr.L
	date := []rune{}

	ok, date := cr.ReadMatchLimit("0123456789", date, 4)
	if !ok {
		return "", ErrBadDate(startLine)
	}
	if cr.EOF {
		return "", ErrUnexpectedEnd(cr.L)
	}
	if !cr.Match("/-.") {
		return "", ErrBadDate(cr.L)
	}
	date = append(date, '-')
	cr.Next()

	ok, date = cr.ReadMatchLimit("0123456789", date, 2)
	if !ok {
		return "", ErrBadDate(startLine)
	}
	if cr.EOF {
		return "", ErrUnexpectedEnd(cr.L)
	}
	if !cr.Match("/-.") {
		return "", ErrBadDate(cr.L)
	}
	date = append(date, '-')
	cr.Next()

	ok, date = cr.ReadMatchLimit("0123456789", date, 2)
	if !ok {
		return "", ErrBadDate(startLine)
	}

	return string(date), nil
}
