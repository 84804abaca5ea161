package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a member's balance. The balance column is a cached
// projection of ledger_entries and is written only by the ledger service.
type Account struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Version   int             `json:"version" db:"version"` // for optimistic locking
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

const (
	EntryCredit = "CREDIT"
	EntryDebit  = "DEBIT"
)

// LedgerEntry is the append-only journal row written alongside every
// balance mutation. EventID references the deposit or withdrawal that
// triggered the entry.
type LedgerEntry struct {
	ID        int             `json:"id" db:"id"`
	EventID   string          `json:"event_id" db:"event_id"`
	AccountID string          `json:"account_id" db:"account_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"` // signed
	EntryType string          `json:"entry_type" db:"entry_type"`
	Balance   decimal.Decimal `json:"balance" db:"balance"` // balance after applying
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
