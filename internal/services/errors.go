package services

import "errors"

// Ledger failure taxonomy. Handlers map these onto HTTP status codes;
// nothing in the service layer retries after any of them.
var (
	ErrDepositNotFound     = errors.New("deposit not found")
	ErrWithdrawalNotFound  = errors.New("withdrawal not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidState        = errors.New("record already processed")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidDecision     = errors.New("decision must be approved or rejected")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrConflict            = errors.New("concurrent modification detected")
)
