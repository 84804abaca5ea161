package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banksampah/backend/internal/middleware"
	"github.com/banksampah/backend/internal/models"
)

type DepositService struct {
	db        *sql.DB
	ledger    *LedgerService
	validator *ValidationHelper
}

func NewDepositService(db *sql.DB, ledger *LedgerService) *DepositService {
	return &DepositService{
		db:        db,
		ledger:    ledger,
		validator: NewValidationHelper(),
	}
}

// CreateDeposit submits a new waste deposit for the calling member
// @Summary Submit a waste deposit
// @Description Create a pending deposit; weight and price are recorded later at validation
// @Tags deposits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{waste_type_id=string,method=string} true "Deposit submission"
// @Success 201 {object} models.Deposit
// @Failure 400 {object} ErrorResponse
// @Router /deposits [post]
func (s *DepositService) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		WasteTypeID string `json:"waste_type_id" validate:"required"`
		Method      string `json:"method" validate:"required,oneof=pickup dropoff"`
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

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var wasteTypeName string
	var active bool
	err := s.db.QueryRowContext(r.Context(),
		`SELECT name, is_active FROM waste_types WHERE id = $1`, req.WasteTypeID).
		Scan(&wasteTypeName, &active)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Unknown waste type", http.StatusBadRequest, nil)
		return
	}
	if err != nil {
		log.Printf("[DEPOSIT] Waste type lookup failed: %v", err)
		SendErrorResponse(w, "Failed to create deposit", http.StatusInternalServerError, nil)
		return
	}
	if !active {
		SendErrorResponse(w, "Waste type is not accepted anymore", http.StatusBadRequest, nil)
		return
	}

	accountID, err := accountIDForUser(r.Context(), s.db, userID)
	if err != nil {
		SendErrorResponse(w, "Account not found", http.StatusBadRequest, nil)
		return
	}

	deposit := models.Deposit{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		WasteTypeID:   req.WasteTypeID,
		WasteTypeName: wasteTypeName,
		Method:        req.Method,
		Status:        models.DepositStatusPending,
		SubmittedAt:   time.Now(),
	}

	_, err = s.db.ExecContext(r.Context(), `
		INSERT INTO deposits (id, account_id, waste_type_id, method, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		deposit.ID, deposit.AccountID, deposit.WasteTypeID, deposit.Method, deposit.Status, deposit.SubmittedAt)
	if err != nil {
		log.Printf("[DEPOSIT] Insert failed for user %s: %v", userID, err)
		SendErrorResponse(w, "Failed to create deposit", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[DEPOSIT] Deposit %s created by user %s", deposit.ID, userID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "Deposit submitted",
		"data":    deposit,
	})
}

// ListDeposits lists deposits for the caller, or all deposits for staff
// @Summary List deposits
// @Description Members see their own deposits; staff see everyone's. Filterable by status.
// @Tags deposits
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (pending|validated|rejected)"
// @Success 200 {array} models.Deposit
// @Router /deposits [get]
func (s *DepositService) ListDeposits(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("userID").(string)
	caps := middleware.CapsFromContext(r.Context())

	query := `
		SELECT d.id, d.account_id, d.waste_type_id, wt.name, d.method, d.status,
		       d.weight_kg, d.unit_price, d.total_price, d.validator_id, d.submitted_at, d.validated_at
		FROM deposits d
		JOIN waste_types wt ON wt.id = d.waste_type_id`
	args := []any{}

	if !caps.IsStaff() {
		query += ` JOIN accounts a ON a.id = d.account_id WHERE a.user_id = $1`
		args = append(args, userID)
		if status := r.URL.Query().Get("status"); status != "" {
			query += ` AND d.status = $2`
			args = append(args, status)
		}
	} else if status := r.URL.Query().Get("status"); status != "" {
		query += ` WHERE d.status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY d.submitted_at DESC`

	rows, err := s.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		log.Printf("[DEPOSIT] List query failed: %v", err)
		SendErrorResponse(w, "Failed to list deposits", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	deposits := []models.Deposit{}
	for rows.Next() {
		var d models.Deposit
		if err := rows.Scan(&d.ID, &d.AccountID, &d.WasteTypeID, &d.WasteTypeName, &d.Method, &d.Status,
			&d.WeightKg, &d.UnitPrice, &d.TotalPrice, &d.ValidatorID, &d.SubmittedAt, &d.ValidatedAt); err != nil {
			log.Printf("[DEPOSIT] Row scan failed: %v", err)
			SendErrorResponse(w, "Failed to list deposits", http.StatusInternalServerError, nil)
			return
		}
		deposits = append(deposits, d)
	}
	if err := rows.Err(); err != nil {
		SendErrorResponse(w, "Failed to list deposits", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": deposits})
}

// ValidateDeposit records weight and price and credits the member balance
// @Summary Validate a deposit
// @Description Weigh and price a pending deposit; credits weight * unit price to the member's balance
// @Tags deposits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param depositId path string true "Deposit ID"
// @Param request body object{weight_kg=number,unit_price=number} true "Weighing result"
// @Success 200 {object} object{total_price=number}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Deposit already processed"
// @Router /deposits/{depositId}/validate [post]
func (s *DepositService) ValidateDeposit(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("userID").(string)
	depositID := chi.URLParam(r, "depositId")

	var req struct {
		WeightKg  decimal.Decimal `json:"weight_kg"`
		UnitPrice decimal.Decimal `json:"unit_price"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	total, err := s.ledger.ValidateDeposit(r.Context(), depositID, req.WeightKg, req.UnitPrice, userID)
	if err != nil {
		status, msg := ledgerErrorStatus(err)
		SendErrorResponse(w, msg, status, nil)
		return
	}

	log.Printf("[DEPOSIT] Deposit %s validated by %s, total %s", depositID, userID, total)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message":     "Deposit validated",
		"total_price": total,
	})
}

// RejectDeposit marks a pending deposit rejected without crediting anything
// @Summary Reject a deposit
// @Tags deposits
// @Produce json
// @Security BearerAuth
// @Param depositId path string true "Deposit ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /deposits/{depositId}/reject [post]
func (s *DepositService) RejectDeposit(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("userID").(string)
	depositID := chi.URLParam(r, "depositId")

	if err := s.ledger.RejectDeposit(r.Context(), depositID, userID); err != nil {
		status, msg := ledgerErrorStatus(err)
		SendErrorResponse(w, msg, status, nil)
		return
	}

	log.Printf("[DEPOSIT] Deposit %s rejected by %s", depositID, userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Deposit rejected"})
}

// accountIDForUser resolves the 1:1 account row for a user.
func accountIDForUser(ctx context.Context, db *sql.DB, userID string) (string, error) {
	var accountID string
	err := db.QueryRowContext(ctx, `SELECT id FROM accounts WHERE user_id = $1`, userID).Scan(&accountID)
	if err == sql.ErrNoRows {
		return "", ErrAccountNotFound
	}
	return accountID, err
}

// ledgerErrorStatus maps ledger sentinel errors to HTTP responses.
func ledgerErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrDepositNotFound), errors.Is(err, ErrWithdrawalNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidDecision),
		errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrAccountNotFound):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Failed to process request"
	}
}
