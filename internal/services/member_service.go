package services

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banksampah/backend/internal/models"
)

// MemberService is the staff-facing member administration surface.
type MemberService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewMemberService(db *sql.DB) *MemberService {
	return &MemberService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

type memberSummary struct {
	models.User
	Balance decimal.Decimal `json:"balance"`
}

// ListMembers lists members with their balances
// @Summary List members
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param role query string false "Filter by role (member|operator)"
// @Success 200 {array} models.User
// @Router /members [get]
func (s *MemberService) ListMembers(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT u.id, u.full_name, u.email, u.phone, u.village, u.district, u.regency,
		       u.address_detail, u.role, u.profile_completed, u.created_at, u.updated_at,
		       COALESCE(a.balance, 0)
		FROM users u
		LEFT JOIN accounts a ON a.user_id = u.id
		WHERE u.role <> $1`
	args := []any{models.RoleAdmin}
	if role := r.URL.Query().Get("role"); role != "" {
		query += ` AND u.role = $2`
		args = append(args, role)
	}
	query += ` ORDER BY u.full_name ASC`

	rows, err := s.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		log.Printf("[MEMBER] List query failed: %v", err)
		SendErrorResponse(w, "Failed to list members", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	members := []memberSummary{}
	for rows.Next() {
		var m memberSummary
		if err := rows.Scan(&m.ID, &m.FullName, &m.Email, &m.Phone, &m.Village, &m.District,
			&m.Regency, &m.AddressDetail, &m.Role, &m.ProfileCompleted, &m.CreatedAt,
			&m.UpdatedAt, &m.Balance); err != nil {
			SendErrorResponse(w, "Failed to list members", http.StatusInternalServerError, nil)
			return
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		SendErrorResponse(w, "Failed to list members", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": members})
}

// CreateMember lets an admin register a member or operator directly
// @Summary Create a member or operator
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{full_name=string,email=string,password=string,role=string} true "New account"
// @Success 201 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Router /members [post]
func (s *MemberService) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName      string `json:"full_name" validate:"required,min=2"`
		Email         string `json:"email" validate:"required,email"`
		Password      string `json:"password" validate:"required,min=8"`
		Role          string `json:"role" validate:"required,oneof=member operator"`
		Phone         string `json:"phone"`
		Village       string `json:"village"`
		District      string `json:"district"`
		Regency       string `json:"regency"`
		AddressDetail string `json:"address_detail"`
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

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	user := models.User{
		ID:       uuid.NewString(),
		FullName: req.FullName,
		Email:    strings.ToLower(req.Email),
		Phone:    req.Phone,
		Role:     req.Role,
	}
	user.QRData = generateQRData(user.Email)
	user.QRCode, err = renderQRBadge(user.QRData)
	if err != nil {
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		SendErrorResponse(w, "Failed to create member", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO users (id, full_name, email, password, phone, village, district, regency, address_detail, role, qr_data, qr_code, profile_completed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, true)`,
		user.ID, user.FullName, user.Email, hashedPassword, user.Phone,
		req.Village, req.District, req.Regency, req.AddressDetail,
		user.Role, user.QRData, user.QRCode)
	if err != nil {
		log.Printf("[MEMBER] Insert failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Email already registered", http.StatusConflict, nil)
		return
	}

	_, err = tx.Exec(`
		INSERT INTO accounts (id, user_id, balance, version, updated_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		uuid.NewString(), user.ID, decimal.Zero, 1)
	if err != nil {
		log.Printf("[MEMBER] Account creation failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Failed to create account", http.StatusInternalServerError, nil)
		return
	}

	if err := tx.Commit(); err != nil {
		SendErrorResponse(w, "Failed to create member", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[MEMBER] %s %s created", user.Role, user.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "Member created",
		"data":    user,
	})
}

// GetMember fetches one member with balance
// @Summary Get a member
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param memberId path string true "Member ID"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse
// @Router /members/{memberId} [get]
func (s *MemberService) GetMember(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberId")

	var m memberSummary
	err := s.db.QueryRowContext(r.Context(), `
		SELECT u.id, u.full_name, u.email, u.phone, u.village, u.district, u.regency,
		       u.address_detail, u.role, u.qr_data, u.qr_code, u.profile_completed,
		       u.created_at, u.updated_at, COALESCE(a.balance, 0)
		FROM users u
		LEFT JOIN accounts a ON a.user_id = u.id
		WHERE u.id = $1`, memberID).
		Scan(&m.ID, &m.FullName, &m.Email, &m.Phone, &m.Village, &m.District, &m.Regency,
			&m.AddressDetail, &m.Role, &m.QRData, &m.QRCode, &m.ProfileCompleted,
			&m.CreatedAt, &m.UpdatedAt, &m.Balance)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Member not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[MEMBER] Lookup failed for %s: %v", memberID, err)
		SendErrorResponse(w, "Failed to fetch member", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": m})
}

// DeleteMember removes a member and all their records
// @Summary Delete a member
// @Description Administrative override; cascades to the account, deposits and withdrawals.
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param memberId path string true "Member ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /members/{memberId} [delete]
func (s *MemberService) DeleteMember(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberId")

	res, err := s.db.ExecContext(r.Context(), `DELETE FROM users WHERE id = $1 AND role <> $2`,
		memberID, models.RoleAdmin)
	if err != nil {
		log.Printf("[MEMBER] Delete failed for %s: %v", memberID, err)
		SendErrorResponse(w, "Failed to delete member", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		SendErrorResponse(w, "Member not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[MEMBER] Member %s deleted", memberID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Member deleted"})
}

// FindByCode looks a member up by the scan string on their badge
// @Summary Find member by QR data
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param code query string true "QR data string"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse
// @Router /members/by-code [get]
func (s *MemberService) FindByCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		SendErrorResponse(w, "code query parameter required", http.StatusBadRequest, nil)
		return
	}

	var m memberSummary
	err := s.db.QueryRowContext(r.Context(), `
		SELECT u.id, u.full_name, u.email, u.role, COALESCE(a.balance, 0)
		FROM users u
		LEFT JOIN accounts a ON a.user_id = u.id
		WHERE u.qr_data = $1 AND u.role = $2`, code, models.RoleMember).
		Scan(&m.ID, &m.FullName, &m.Email, &m.Role, &m.Balance)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Member not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		SendErrorResponse(w, "Failed to fetch member", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": m})
}

// RegenerateQR reissues a member's badge
// @Summary Regenerate a member's QR badge
// @Description Issues fresh qr_data and PNG; old badges stop resolving.
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param memberId path string true "Member ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /members/{memberId}/regenerate-qr [post]
func (s *MemberService) RegenerateQR(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberId")

	var email string
	err := s.db.QueryRowContext(r.Context(),
		`SELECT email FROM users WHERE id = $1`, memberID).Scan(&email)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Member not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		SendErrorResponse(w, "Failed to fetch member", http.StatusInternalServerError, nil)
		return
	}

	qrData := generateQRData(email)
	qrCode, err := renderQRBadge(qrData)
	if err != nil {
		SendErrorResponse(w, "Failed to generate QR code", http.StatusInternalServerError, nil)
		return
	}

	_, err = s.db.ExecContext(r.Context(), `
		UPDATE users SET qr_data = $1, qr_code = $2, updated_at = NOW() WHERE id = $3`,
		qrData, qrCode, memberID)
	if err != nil {
		log.Printf("[MEMBER] QR regeneration failed for %s: %v", memberID, err)
		SendErrorResponse(w, "Failed to update member", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[MEMBER] QR badge regenerated for %s", memberID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "QR badge regenerated",
		"qr_code": qrCode,
	})
}
