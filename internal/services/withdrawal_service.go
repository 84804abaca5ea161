package services

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/banksampah/backend/internal/middleware"
	"github.com/banksampah/backend/internal/models"
)

type WithdrawalService struct {
	db        *sql.DB
	ledger    *LedgerService
	validator *ValidationHelper
}

func NewWithdrawalService(db *sql.DB, ledger *LedgerService) *WithdrawalService {
	return &WithdrawalService{
		db:        db,
		ledger:    ledger,
		validator: NewValidationHelper(),
	}
}

// RequestWithdrawal creates a pending cash-out request
// @Summary Request a withdrawal
// @Description Create a pending withdrawal; the amount must not exceed the current balance
// @Tags withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{amount=number} true "Requested amount"
// @Success 201 {object} models.Withdrawal
// @Failure 400 {object} ErrorResponse "Invalid or insufficient amount"
// @Router /withdrawals [post]
func (s *WithdrawalService) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	accountID, err := accountIDForUser(r.Context(), s.db, userID)
	if err != nil {
		status, msg := ledgerErrorStatus(err)
		SendErrorResponse(w, msg, status, nil)
		return
	}

	withdrawal, err := s.ledger.RequestWithdrawal(r.Context(), accountID, req.Amount)
	if err != nil {
		status, msg := ledgerErrorStatus(err)
		SendErrorResponse(w, msg, status, nil)
		return
	}

	log.Printf("[WITHDRAWAL] Request %s created by user %s for %s", withdrawal.ID, userID, withdrawal.Amount)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "Withdrawal requested",
		"data":    withdrawal,
	})
}

// ListWithdrawals lists requests for the caller, or all for staff
// @Summary List withdrawal requests
// @Tags withdrawals
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (pending|approved|rejected)"
// @Success 200 {array} models.Withdrawal
// @Router /withdrawals [get]
func (s *WithdrawalService) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("userID").(string)
	caps := middleware.CapsFromContext(r.Context())

	query := `
		SELECT w.id, w.account_id, w.amount, w.status, w.approver_id, w.note, w.requested_at, w.decided_at
		FROM withdrawals w`
	args := []any{}

	if !caps.IsStaff() {
		query += ` JOIN accounts a ON a.id = w.account_id WHERE a.user_id = $1`
		args = append(args, userID)
		if status := r.URL.Query().Get("status"); status != "" {
			query += ` AND w.status = $2`
			args = append(args, status)
		}
	} else if status := r.URL.Query().Get("status"); status != "" {
		query += ` WHERE w.status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY w.requested_at DESC`

	rows, err := s.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		log.Printf("[WITHDRAWAL] List query failed: %v", err)
		SendErrorResponse(w, "Failed to list withdrawals", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	withdrawals := []models.Withdrawal{}
	for rows.Next() {
		var wd models.Withdrawal
		if err := rows.Scan(&wd.ID, &wd.AccountID, &wd.Amount, &wd.Status, &wd.ApproverID,
			&wd.Note, &wd.RequestedAt, &wd.DecidedAt); err != nil {
			log.Printf("[WITHDRAWAL] Row scan failed: %v", err)
			SendErrorResponse(w, "Failed to list withdrawals", http.StatusInternalServerError, nil)
			return
		}
		withdrawals = append(withdrawals, wd)
	}
	if err := rows.Err(); err != nil {
		SendErrorResponse(w, "Failed to list withdrawals", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": withdrawals})
}

// DecideWithdrawal approves or rejects a pending request
// @Summary Decide a withdrawal request
// @Description Approve (debits the balance) or reject a pending withdrawal
// @Tags withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param withdrawalId path string true "Withdrawal ID"
// @Param request body object{decision=string,note=string} true "Decision"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse "Invalid decision or insufficient balance"
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Request already processed"
// @Router /withdrawals/{withdrawalId}/decide [post]
func (s *WithdrawalService) DecideWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("userID").(string)
	withdrawalID := chi.URLParam(r, "withdrawalId")

	var req struct {
		Decision string `json:"decision" validate:"required,oneof=approved rejected"`
		Note     string `json:"note"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := s.ledger.DecideWithdrawal(r.Context(), withdrawalID, req.Decision, userID, req.Note); err != nil {
		status, msg := ledgerErrorStatus(err)
		SendErrorResponse(w, msg, status, nil)
		return
	}

	message := "Withdrawal rejected"
	if req.Decision == models.WithdrawalStatusApproved {
		message = "Withdrawal approved"
	}

	log.Printf("[WITHDRAWAL] Request %s %s by %s", withdrawalID, req.Decision, userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
