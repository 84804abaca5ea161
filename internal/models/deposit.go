package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DepositStatusPending   = "pending"
	DepositStatusValidated = "validated"
	DepositStatusRejected  = "rejected"

	MethodPickup  = "pickup"
	MethodDropoff = "dropoff"
)

// Deposit is a member's waste submission. Weight, price, total, validator
// and validation time stay NULL until staff validates; all five are set
// together in one transaction, exactly once.
type Deposit struct {
	ID            string           `json:"id" db:"id"`
	AccountID     string           `json:"account_id" db:"account_id"`
	WasteTypeID   string           `json:"waste_type_id" db:"waste_type_id"`
	WasteTypeName string           `json:"waste_type_name,omitempty" db:"-"`
	Method        string           `json:"method" db:"method"`
	Status        string           `json:"status" db:"status"`
	WeightKg      *decimal.Decimal `json:"weight_kg,omitempty" db:"weight_kg"`
	UnitPrice     *decimal.Decimal `json:"unit_price,omitempty" db:"unit_price"`
	TotalPrice    *decimal.Decimal `json:"total_price,omitempty" db:"total_price"`
	ValidatorID   *string          `json:"validator_id,omitempty" db:"validator_id"`
	SubmittedAt   time.Time        `json:"submitted_at" db:"submitted_at"`
	ValidatedAt   *time.Time       `json:"validated_at,omitempty" db:"validated_at"`
}
