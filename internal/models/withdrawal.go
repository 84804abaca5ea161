package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
)

// Withdrawal is a member's request to convert balance into cash.
type Withdrawal struct {
	ID          string          `json:"id" db:"id"`
	AccountID   string          `json:"account_id" db:"account_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Status      string          `json:"status" db:"status"`
	ApproverID  *string         `json:"approver_id,omitempty" db:"approver_id"`
	Note        *string         `json:"note,omitempty" db:"note"`
	RequestedAt time.Time       `json:"requested_at" db:"requested_at"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty" db:"decided_at"`
}
