package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banksampah/backend/internal/audit"
	"github.com/banksampah/backend/internal/models"
)

// LedgerService owns the only two balance-mutating paths: crediting an
// account when a deposit is validated and debiting it when a withdrawal
// is approved. Every operation is a single database transaction; the
// deposit/withdrawal row is locked before the account row so concurrent
// calls on the same account serialize without deadlocking.
type LedgerService struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{
		db:    db,
		audit: audit.NewLogger(),
	}
}

// ValidateDeposit records weight and price for a pending deposit and
// credits the owning account with weight * price. Calling it again on
// the same deposit fails with ErrInvalidState.
func (s *LedgerService) ValidateDeposit(ctx context.Context, depositID string, weightKg, unitPrice decimal.Decimal, validatorID string) (decimal.Decimal, error) {
	if weightKg.LessThanOrEqual(decimal.Zero) || unitPrice.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidAmount
	}
	total := weightKg.Mul(unitPrice)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	accountID, status, err := s.lockDeposit(ctx, tx, depositID)
	if err != nil {
		return decimal.Zero, err
	}
	if status != models.DepositStatusPending {
		return decimal.Zero, ErrInvalidState
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE deposits
		SET weight_kg = $1, unit_price = $2, total_price = $3, status = $4, validator_id = $5, validated_at = $6
		WHERE id = $7 AND status = $8`,
		weightKg, unitPrice, total, models.DepositStatusValidated, validatorID, time.Now(),
		depositID, models.DepositStatusPending)
	if err != nil {
		return decimal.Zero, err
	}
	if err := requireOneRow(res, ErrInvalidState); err != nil {
		return decimal.Zero, err
	}

	account, err := s.lockAccount(ctx, tx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	newBalance := account.Balance.Add(total)
	if err := s.appendEntry(ctx, tx, depositID, account.ID, total, models.EntryCredit, newBalance); err != nil {
		return decimal.Zero, err
	}
	if err := s.updateBalance(ctx, tx, account.ID, newBalance, account.Version); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		s.audit.LogError(depositID, account.ID, err)
		return decimal.Zero, err
	}

	s.audit.LogCredit(depositID, account.ID, total, newBalance)
	return total, nil
}

// RejectDeposit moves a pending deposit to its rejected terminal state.
// No balance mutation happens on this path.
func (s *LedgerService) RejectDeposit(ctx context.Context, depositID, validatorID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, status, err := s.lockDeposit(ctx, tx, depositID)
	if err != nil {
		return err
	}
	if status != models.DepositStatusPending {
		return ErrInvalidState
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE deposits
		SET status = $1, validator_id = $2, validated_at = $3
		WHERE id = $4 AND status = $5`,
		models.DepositStatusRejected, validatorID, time.Now(), depositID, models.DepositStatusPending)
	if err != nil {
		return err
	}
	if err := requireOneRow(res, ErrInvalidState); err != nil {
		return err
	}

	return tx.Commit()
}

// RequestWithdrawal creates a pending cash-out request. The amount is
// checked against the current balance under the account row lock, so a
// request can never be created beyond what the member holds right now.
func (s *LedgerService) RequestWithdrawal(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Withdrawal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	account, err := s.lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Balance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	w := &models.Withdrawal{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Amount:      amount,
		Status:      models.WithdrawalStatusPending,
		RequestedAt: time.Now(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO withdrawals (id, account_id, amount, status, requested_at)
		VALUES ($1, $2, $3, $4, $5)`,
		w.ID, w.AccountID, w.Amount, w.Status, w.RequestedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

// DecideWithdrawal finalizes a pending request. Approval debits the
// account; rejection only records the decision. Sufficiency is checked
// again here because the balance may have changed since the request was
// created (another approval can land first).
func (s *LedgerService) DecideWithdrawal(ctx context.Context, withdrawalID, decision, approverID string, note string) error {
	if decision != models.WithdrawalStatusApproved && decision != models.WithdrawalStatusRejected {
		return ErrInvalidDecision
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		accountID string
		amount    decimal.Decimal
		status    string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT account_id, amount, status FROM withdrawals WHERE id = $1 FOR UPDATE`,
		withdrawalID).Scan(&accountID, &amount, &status)
	if err == sql.ErrNoRows {
		return ErrWithdrawalNotFound
	}
	if err != nil {
		return err
	}
	if status != models.WithdrawalStatusPending {
		return ErrInvalidState
	}

	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE withdrawals
		SET status = $1, approver_id = $2, decided_at = $3, note = $4
		WHERE id = $5 AND status = $6`,
		decision, approverID, time.Now(), notePtr, withdrawalID, models.WithdrawalStatusPending)
	if err != nil {
		return err
	}
	if err := requireOneRow(res, ErrInvalidState); err != nil {
		return err
	}

	if decision == models.WithdrawalStatusRejected {
		return tx.Commit()
	}

	account, err := s.lockAccount(ctx, tx, accountID)
	if err != nil {
		return err
	}

	newBalance := account.Balance.Sub(amount)
	if newBalance.IsNegative() {
		return ErrInsufficientBalance
	}
	if err := s.appendEntry(ctx, tx, withdrawalID, account.ID, amount.Neg(), models.EntryDebit, newBalance); err != nil {
		return err
	}
	if err := s.updateBalance(ctx, tx, account.ID, newBalance, account.Version); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.audit.LogError(withdrawalID, account.ID, err)
		return err
	}

	s.audit.LogDebit(withdrawalID, account.ID, amount, newBalance)
	return nil
}

// Balance returns the current cached balance for an account.
func (s *LedgerService) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero, ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// RebuildBalance recomputes the cached balance projection by folding the
// account's ledger entries, then rewrites the accounts row. Admin repair
// tool for when the projection is suspected stale.
func (s *LedgerService) RebuildBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	account, err := s.lockAccount(ctx, tx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT amount FROM ledger_entries WHERE account_id = $1 ORDER BY id`, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	balance := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, err
		}
		balance = balance.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, err
	}

	if err := s.updateBalance(ctx, tx, account.ID, balance, account.Version); err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (s *LedgerService) lockDeposit(ctx context.Context, tx *sql.Tx, depositID string) (string, string, error) {
	var accountID, status string
	err := tx.QueryRowContext(ctx, `
		SELECT account_id, status FROM deposits WHERE id = $1 FOR UPDATE`,
		depositID).Scan(&accountID, &status)
	if err == sql.ErrNoRows {
		return "", "", ErrDepositNotFound
	}
	if err != nil {
		return "", "", err
	}
	return accountID, status, nil
}

func (s *LedgerService) lockAccount(ctx context.Context, tx *sql.Tx, accountID string) (*models.Account, error) {
	var account models.Account
	err := tx.QueryRowContext(ctx, `
		SELECT id, balance, version, updated_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, accountID).
		Scan(&account.ID, &account.Balance, &account.Version, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *LedgerService) appendEntry(ctx context.Context, tx *sql.Tx, eventID, accountID string, amount decimal.Decimal, entryType string, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (event_id, account_id, amount, entry_type, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		eventID, accountID, amount, entryType, balance, time.Now())
	return err
}

func (s *LedgerService) updateBalance(ctx context.Context, tx *sql.Tx, accountID string, newBalance decimal.Decimal, version int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newBalance, time.Now(), accountID, version)
	if err != nil {
		return err
	}
	if err := requireOneRow(res, ErrConflict); err != nil {
		return fmt.Errorf("account %s: %w", accountID, err)
	}
	return nil
}

func requireOneRow(res sql.Result, stale error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return stale
	}
	return nil
}
