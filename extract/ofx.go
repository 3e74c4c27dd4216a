package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/samuellwn/beanimport/record"
)

// OfxExtractor reads OFX/QFX bank statement files, grounded on the teacher's
// tools/fromofx.go (FromOFX), adapted to the record.Extractor streaming contract instead of
// building a *ledger.File directly: ofxgo has no restartable streaming reader, so Process
// parses the whole response once per call and replays it through fn.
type OfxExtractor struct {
	Open func() (io.ReadSeeker, error)
	Name string

	ImportIDTemplateOverride string
}

func (e *OfxExtractor) ImportIDTemplate() string {
	if e.ImportIDTemplateOverride != "" {
		return e.ImportIDTemplateOverride
	}
	return record.DefaultImportIDTemplate
}

// plainTransaction is the subset of ofxgo.Transaction this extractor cares about, copied out so
// the rest of the file doesn't depend on ofxgo's field types directly.
type plainTransaction struct {
	FiTID    string
	TrnType  string
	TrnAmt   string
	DtPosted time.Time
	Memo     string
}

// Detect reports whether the file parses as an OFX response containing exactly one bank
// statement, the same shape tools/fromofx.go assumes before converting it.
func (e *OfxExtractor) Detect(ctx context.Context) (bool, error) {
	f, err := e.Open()
	if err != nil {
		return false, err
	}
	defer closeIfCloser(f)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	resp, err := ofxgo.ParseResponse(f)
	if err != nil {
		return false, nil
	}
	if len(resp.Bank) != 1 {
		return false, nil
	}
	_, ok := resp.Bank[0].(*ofxgo.StatementResponse)
	return ok, nil
}

// Fingerprint hashes the transaction list's FITIDs together, so a statement that has been
// re-downloaded with the same transactions fingerprints identically across runs.
func (e *OfxExtractor) Fingerprint(ctx context.Context) (*record.Fingerprint, error) {
	txns, err := e.readTransactions()
	if err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return nil, nil
	}

	hash := sha256.New()
	for _, txn := range txns {
		hash.Write([]byte(txn.FiTID))
	}

	last := txns[len(txns)-1]
	return &record.Fingerprint{
		StartingDate: last.DtPosted,
		FirstRowHash: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

// Process streams one Record per bank transaction, in file order, numbering lines from 1.
func (e *OfxExtractor) Process(ctx context.Context, fn func(record.Record) error) error {
	txns, err := e.readTransactions()
	if err != nil {
		return err
	}

	for i, txn := range txns {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		amount, err := decimal.NewFromString(txn.TrnAmt)
		if err != nil {
			return fmt.Errorf("extract: ofx transaction %s amount: %w", txn.FiTID, err)
		}

		rec := record.Record{
			File:          e.Name,
			Lineno:        i + 1,
			Date:          txn.DtPosted,
			Desc:          txn.Memo,
			Amount:        amount,
			TransactionID: txn.FiTID,
			Type:          txn.TrnType,
			BankDesc:      txn.Memo,
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (e *OfxExtractor) readTransactions() ([]plainTransaction, error) {
	f, err := e.Open()
	if err != nil {
		return nil, err
	}
	defer closeIfCloser(f)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	resp, err := ofxgo.ParseResponse(f)
	if err != nil {
		return nil, fmt.Errorf("extract: parsing ofx response: %w", err)
	}
	if len(resp.Bank) != 1 {
		return nil, fmt.Errorf("extract: expected exactly one bank response, got %d", len(resp.Bank))
	}

	stmt, ok := resp.Bank[0].(*ofxgo.StatementResponse)
	if !ok {
		return nil, fmt.Errorf("extract: unexpected ofx response type")
	}

	out := make([]plainTransaction, 0, len(stmt.BankTranList.Transactions))
	for _, txn := range stmt.BankTranList.Transactions {
		out = append(out, plainTransaction{
			FiTID:    string(txn.FiTID),
			TrnType:  txn.TrnType.String(),
			TrnAmt:   txn.TrnAmt.String(),
			DtPosted: txn.DtPosted.Time,
			Memo:     string(txn.Memo),
		})
	}
	return out, nil
}
