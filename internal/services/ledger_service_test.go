package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/banksampah/backend/internal/models"
)

func TestLedgerService_ValidateDeposit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)
	ctx := context.Background()

	t.Run("successful validation credits the account", func(t *testing.T) {
		depositID := "dep1"
		accountID := "acc1"
		weight := decimal.NewFromInt(10)
		price := decimal.NewFromInt(2000)
		total := decimal.NewFromInt(20000)

		mock.ExpectBegin()

		mock.ExpectQuery("SELECT account_id, status FROM deposits WHERE id = \\$1 FOR UPDATE").
			WithArgs(depositID).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "status"}).
				AddRow(accountID, models.DepositStatusPending))

		mock.ExpectExec("UPDATE deposits").
			WithArgs(weight, price, total, models.DepositStatusValidated, "op1", sqlmock.AnyArg(),
				depositID, models.DepositStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery("SELECT id, balance, version, updated_at").
			WithArgs(accountID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}).
				AddRow(accountID, "5000", 3, time.Now()))

		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(depositID, accountID, total, models.EntryCredit, decimal.NewFromInt(25000), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("UPDATE accounts").
			WithArgs(decimal.NewFromInt(25000), sqlmock.AnyArg(), accountID, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectCommit()

		got, err := service.ValidateDeposit(ctx, depositID, weight, price, "op1")
		assert.NoError(t, err)
		assert.True(t, total.Equal(got))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already validated deposit fails", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT account_id, status FROM deposits WHERE id = \\$1 FOR UPDATE").
			WithArgs("dep1").
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "status"}).
				AddRow("acc1", models.DepositStatusValidated))

		mock.ExpectRollback()

		_, err := service.ValidateDeposit(ctx, "dep1", decimal.NewFromInt(10), decimal.NewFromInt(2000), "op1")
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown deposit fails", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT account_id, status FROM deposits WHERE id = \\$1 FOR UPDATE").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "status"}))

		mock.ExpectRollback()

		_, err := service.ValidateDeposit(ctx, "missing", decimal.NewFromInt(10), decimal.NewFromInt(2000), "op1")
		assert.ErrorIs(t, err, ErrDepositNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-positive weight rejected before any query", func(t *testing.T) {
		_, err := service.ValidateDeposit(ctx, "dep1", decimal.Zero, decimal.NewFromInt(2000), "op1")
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = service.ValidateDeposit(ctx, "dep1", decimal.NewFromInt(10), decimal.NewFromInt(-1), "op1")
		assert.ErrorIs(t, err, ErrInvalidAmount)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale account version rolls everything back", func(t *testing.T) {
		depositID := "dep2"
		accountID := "acc1"
		weight := decimal.NewFromInt(2)
		price := decimal.NewFromInt(500)

		mock.ExpectBegin()

		mock.ExpectQuery("SELECT account_id, status FROM deposits WHERE id = \\$1 FOR UPDATE").
			WithArgs(depositID).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "status"}).
				AddRow(accountID, models.DepositStatusPending))

		mock.ExpectExec("UPDATE deposits").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery("SELECT id, balance, version, updated_at").
			WithArgs(accountID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}).
				AddRow(accountID, "0", 7, time.Now()))

		mock.ExpectExec("INSERT INTO ledger_entries").
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("UPDATE accounts").
			WillReturnResult(sqlmock.NewResult(0, 0)) // version moved underneath us

		mock.ExpectRollback()

		_, err := service.ValidateDeposit(ctx, depositID, weight, price, "op1")
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_RejectDeposit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)
	ctx := context.Background()

	t.Run("rejection touches no account row", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT account_id, status FROM deposits WHERE id = \\$1 FOR UPDATE").
			WithArgs("dep1").
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "status"}).
				AddRow("acc1", models.DepositStatusPending))

		mock.ExpectExec("UPDATE deposits").
			WithArgs(models.DepositStatusRejected, "op1", sqlmock.AnyArg(), "dep1", models.DepositStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectCommit()

		err := service.RejectDeposit(ctx, "dep1", "op1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already processed deposit fails", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT account_id, status FROM deposits WHERE id = \\$1 FOR UPDATE").
			WithArgs("dep1").
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "status"}).
				AddRow("acc1", models.DepositStatusRejected))

		mock.ExpectRollback()

		err := service.RejectDeposit(ctx, "dep1", "op1")
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_RequestWithdrawal(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)
	ctx := context.Background()

	t.Run("request within balance succeeds", func(t *testing.T) {
		accountID := "acc1"
		amount := decimal.NewFromInt(30000)

		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id, balance, version, updated_at").
			WithArgs(accountID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}).
				AddRow(accountID, "50000", 1, time.Now()))

		mock.ExpectExec("INSERT INTO withdrawals").
			WithArgs(sqlmock.AnyArg(), accountID, amount, models.WithdrawalStatusPending, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectCommit()

		w, err := service.RequestWithdrawal(ctx, accountID, amount)
		assert.NoError(t, err)
		assert.Equal(t, models.WithdrawalStatusPending, w.Status)
		assert.True(t, amount.Equal(w.Amount))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("request equal to balance succeeds", func(t *testing.T) {
		accountID := "acc1"
		amount := decimal.NewFromInt(50000)

		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id, balance, version, updated_at").
			WithArgs(accountID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}).
				AddRow(accountID, "50000", 1, time.Now()))

		mock.ExpectExec("INSERT INTO withdrawals").
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectCommit()

		_, err := service.RequestWithdrawal(ctx, accountID, amount)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("request beyond balance fails", func(t *testing.T) {
		accountID := "acc1"

		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id, balance, version, updated_at").
			WithArgs(accountID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}).
				AddRow(accountID, "50000", 1, time.Now()))

		mock.ExpectRollback()

		_, err := service.RequestWithdrawal(ctx, accountID, decimal.NewFromInt(50001))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-positive amount rejected before any query", func(t *testing.T) {
		_, err := service.RequestWithdrawal(ctx, "acc1", decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account fails", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id, balance, version, updated_at").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}))

		mock.ExpectRollback()

		_, err := service.RequestWithdrawal(ctx, "missing", decimal.NewFromInt(100))
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_DecideWithdrawal(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)
	ctx := context.Background()

	t.Run("approval debits the account", func(t *testing.T) {
		withdrawalID := "wd1"
		accountID := "acc1"
		amount := decimal.NewFromInt(30000)

		mock.ExpectBegin()

		mock.ExpectQuery("SELECT account_id, amount, status FROM withdrawals WHERE id = \\$1 FOR UPDATE").
			WithArgs(withdrawalID).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "amount", "status"}).
				AddRow(accountID, "30000", models.WithdrawalStatusPending))

		mock.ExpectExec("UPDATE withdrawals").
			WithArgs(models.WithdrawalStatusApproved, "adm1", sqlmock.AnyArg(), nil,
				withdrawalID, models.WithdrawalStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery("SELECT id, balance, version, updated_at").
			WithArgs(accountID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}).
				AddRow(accountID, "50000", 2, time.Now()))

		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(withdrawalID, accountID, amount.Neg(), models.EntryDebit, decimal.NewFromInt(20000), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("UPDATE accounts").
			WithArgs(decimal.NewFromInt(20000), sqlmock.AnyArg(), accountID, 2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectCommit()

		err := service.DecideWithdrawal(ctx, withdrawalID, models.WithdrawalStatusApproved, "adm1", "")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejection leaves the balance alone", func(t *testing.T) {
		withdrawalID := "wd2"
		note := "cash box empty"

		mock.ExpectBegin()

		mock.ExpectQuery("SELECT account_id, amount, status FROM withdrawals WHERE id = \\$1 FOR UPDATE").
			WithArgs(withdrawalID).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "amount", "status"}).
				AddRow("acc1", "30000", models.WithdrawalStatusPending))

		mock.ExpectExec("UPDATE withdrawals").
			WithArgs(models.WithdrawalStatusRejected, "adm1", sqlmock.AnyArg(), &note,
				withdrawalID, models.WithdrawalStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectCommit()

		err := service.DecideWithdrawal(ctx, withdrawalID, models.WithdrawalStatusRejected, "adm1", note)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second decision fails", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT account_id, amount, status FROM withdrawals WHERE id = \\$1 FOR UPDATE").
			WithArgs("wd1").
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "amount", "status"}).
				AddRow("acc1", "30000", models.WithdrawalStatusApproved))

		mock.ExpectRollback()

		err := service.DecideWithdrawal(ctx, "wd1", models.WithdrawalStatusApproved, "adm1", "")
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("approval fails when the balance has since drained", func(t *testing.T) {
		withdrawalID := "wd3"
		accountID := "acc1"

		mock.ExpectBegin()

		mock.ExpectQuery("SELECT account_id, amount, status FROM withdrawals WHERE id = \\$1 FOR UPDATE").
			WithArgs(withdrawalID).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "amount", "status"}).
				AddRow(accountID, "30000", models.WithdrawalStatusPending))

		mock.ExpectExec("UPDATE withdrawals").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery("SELECT id, balance, version, updated_at").
			WithArgs(accountID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}).
				AddRow(accountID, "10000", 4, time.Now())) // another approval landed first

		mock.ExpectRollback()

		err := service.DecideWithdrawal(ctx, withdrawalID, models.WithdrawalStatusApproved, "adm1", "")
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown withdrawal fails", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT account_id, amount, status FROM withdrawals WHERE id = \\$1 FOR UPDATE").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "amount", "status"}))

		mock.ExpectRollback()

		err := service.DecideWithdrawal(ctx, "missing", models.WithdrawalStatusApproved, "adm1", "")
		assert.ErrorIs(t, err, ErrWithdrawalNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown decision rejected before any query", func(t *testing.T) {
		err := service.DecideWithdrawal(ctx, "wd1", "maybe", "adm1", "")
		assert.ErrorIs(t, err, ErrInvalidDecision)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_Balance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)
	ctx := context.Background()

	t.Run("existing account", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts WHERE id = \\$1").
			WithArgs("acc1").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("12500"))

		balance, err := service.Balance(ctx, "acc1")
		assert.NoError(t, err)
		assert.True(t, decimal.NewFromInt(12500).Equal(balance))
	})

	t.Run("unknown account", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts WHERE id = \\$1").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))

		_, err := service.Balance(ctx, "missing")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestLedgerService_RebuildBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)
	ctx := context.Background()

	t.Run("fold over journal entries replaces the projection", func(t *testing.T) {
		accountID := "acc1"

		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id, balance, version, updated_at").
			WithArgs(accountID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}).
				AddRow(accountID, "99999", 5, time.Now())) // stale projection

		mock.ExpectQuery("SELECT amount FROM ledger_entries WHERE account_id = \\$1 ORDER BY id").
			WithArgs(accountID).
			WillReturnRows(sqlmock.NewRows([]string{"amount"}).
				AddRow("20000").
				AddRow("15000").
				AddRow("-30000"))

		mock.ExpectExec("UPDATE accounts").
			WithArgs(decimal.NewFromInt(5000), sqlmock.AnyArg(), accountID, 5).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectCommit()

		balance, err := service.RebuildBalance(ctx, accountID)
		assert.NoError(t, err)
		assert.True(t, decimal.NewFromInt(5000).Equal(balance))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
