package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType carries the direction of a transaction. Amounts are stored
// as non-negative magnitudes; the sign lives here.
type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

// ParseTransactionType validates a direction string from the wire.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TypeDebit, TypeCredit:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf("invalid transaction type %q", s)
}

// Mode is the personal/business partition selected by the user. Every
// transaction belongs to exactly one side via IsBusiness.
type Mode string

const (
	ModePersonal Mode = "personal"
	ModeBusiness Mode = "business"
)

// ParseMode validates a mode string from the wire.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePersonal, ModeBusiness:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode %q", s)
}

// Matches reports whether a transaction with the given business flag belongs
// to this mode.
func (m Mode) Matches(isBusiness bool) bool {
	return isBusiness == (m == ModeBusiness)
}

// Date is a calendar date without a time component. It marshals as
// "YYYY-MM-DD" rather than RFC3339.
type Date struct {
	time.Time
}

// ParseDate parses an ISO "YYYY-MM-DD" date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Transaction represents one normalized ledger entry produced by the model.
// It is immutable after ingestion except for Category, which recategorization
// may overwrite.
type Transaction struct {
	ID          string          `json:"id"`
	Date        Date            `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"` // magnitude, never negative
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	IsBusiness  bool            `json:"is_business"`
	Anomaly     string          `json:"anomaly,omitempty"`
}

// ParseResult is the full output of one statement extraction. A new upload
// replaces the previous result wholesale.
type ParseResult struct {
	BankName      string         `json:"bank_name"`
	AccountNumber string         `json:"account_number"` // masked by the model
	Currency      string         `json:"currency"`
	Transactions  []*Transaction `json:"transactions"`
}

// Clone returns a deep copy so readers are isolated from later category
// merges on the live dataset.
func (r *ParseResult) Clone() *ParseResult {
	if r == nil {
		return nil
	}
	out := &ParseResult{
		BankName:      r.BankName,
		AccountNumber: r.AccountNumber,
		Currency:      r.Currency,
		Transactions:  make([]*Transaction, len(r.Transactions)),
	}
	for i, tx := range r.Transactions {
		cp := *tx
		out.Transactions[i] = &cp
	}
	return out
}
