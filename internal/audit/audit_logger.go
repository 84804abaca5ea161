package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	Timestamp time.Time       `json:"timestamp"`
	EventType string          `json:"event_type"`
	EventID   string          `json:"event_id"`
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Details   any             `json:"details,omitempty"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogCredit(eventID, accountID string, amount, newBalance decimal.Decimal) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "DEPOSIT_CREDIT",
		EventID:   eventID,
		AccountID: accountID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details:   map[string]string{"new_balance": newBalance.String()},
	})
}

func (a *Logger) LogDebit(eventID, accountID string, amount, newBalance decimal.Decimal) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "WITHDRAWAL_DEBIT",
		EventID:   eventID,
		AccountID: accountID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details:   map[string]string{"new_balance": newBalance.String()},
	})
}

func (a *Logger) LogError(eventID, accountID string, err error) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "ERROR",
		EventID:   eventID,
		AccountID: accountID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
