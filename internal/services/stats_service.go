package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/banksampah/backend/internal/middleware"
	"github.com/banksampah/backend/internal/models"
)

// StatsService computes the per-role dashboard aggregates.
type StatsService struct {
	db *sql.DB
}

func NewStatsService(db *sql.DB) *StatsService {
	return &StatsService{db: db}
}

// GetStats returns dashboard numbers scoped to the caller's capabilities
// @Summary Dashboard statistics
// @Description Members see their own totals; staff see queue-wide numbers; admins additionally see user counts
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /dashboard/stats [get]
func (s *StatsService) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("userID").(string)
	caps := middleware.CapsFromContext(r.Context())

	var stats map[string]any
	var err error
	switch {
	case caps.CanManageMembers:
		stats, err = s.adminStats(r)
	case caps.IsStaff():
		stats, err = s.operatorStats(r)
	default:
		stats, err = s.memberStats(r, userID)
	}
	if err != nil {
		log.Printf("[STATS] Query failed: %v", err)
		SendErrorResponse(w, "Failed to load statistics", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *StatsService) memberStats(r *http.Request, userID string) (map[string]any, error) {
	monthStart := startOfMonth(time.Now())

	var total, pending, validated, thisMonth, withdrawalsPending int
	var withdrawnTotal decimal.Decimal
	err := s.db.QueryRowContext(r.Context(), `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE d.status = 'pending'),
			COUNT(*) FILTER (WHERE d.status = 'validated'),
			COUNT(*) FILTER (WHERE d.submitted_at >= $2)
		FROM deposits d
		JOIN accounts a ON a.id = d.account_id
		WHERE a.user_id = $1`, userID, monthStart).
		Scan(&total, &pending, &validated, &thisMonth)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(r.Context(), `
		SELECT
			COALESCE(SUM(w.amount) FILTER (WHERE w.status = 'approved'), 0),
			COUNT(*) FILTER (WHERE w.status = 'pending')
		FROM withdrawals w
		JOIN accounts a ON a.id = w.account_id
		WHERE a.user_id = $1`, userID).
		Scan(&withdrawnTotal, &withdrawalsPending)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"total_deposits":      total,
		"deposits_pending":    pending,
		"deposits_validated":  validated,
		"deposits_this_month": thisMonth,
		"total_withdrawn":     withdrawnTotal,
		"withdrawals_pending": withdrawalsPending,
	}, nil
}

func (s *StatsService) operatorStats(r *http.Request) (map[string]any, error) {
	monthStart := startOfMonth(time.Now())

	var total, pending, validated, thisMonth, withdrawalsPending, memberCount int
	err := s.db.QueryRowContext(r.Context(), `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'validated'),
			COUNT(*) FILTER (WHERE submitted_at >= $1)
		FROM deposits`, monthStart).
		Scan(&total, &pending, &validated, &thisMonth)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(r.Context(), `
		SELECT COUNT(*) FILTER (WHERE status = 'pending') FROM withdrawals`).
		Scan(&withdrawalsPending)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(r.Context(), `
		SELECT COUNT(*) FROM users WHERE role = $1`, models.RoleMember).
		Scan(&memberCount)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"total_deposits":      total,
		"deposits_pending":    pending,
		"deposits_validated":  validated,
		"deposits_this_month": thisMonth,
		"withdrawals_pending": withdrawalsPending,
		"total_members":       memberCount,
	}, nil
}

func (s *StatsService) adminStats(r *http.Request) (map[string]any, error) {
	stats, err := s.operatorStats(r)
	if err != nil {
		return nil, err
	}

	var userCount, operatorCount int
	err = s.db.QueryRowContext(r.Context(), `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE role = $1) FROM users`, models.RoleOperator).
		Scan(&userCount, &operatorCount)
	if err != nil {
		return nil, err
	}

	var depositedTotal, withdrawnTotal decimal.Decimal
	err = s.db.QueryRowContext(r.Context(), `
		SELECT
			COALESCE((SELECT SUM(total_price) FROM deposits WHERE status = 'validated'), 0),
			COALESCE((SELECT SUM(amount) FROM withdrawals WHERE status = 'approved'), 0)`).
		Scan(&depositedTotal, &withdrawnTotal)
	if err != nil {
		return nil, err
	}

	stats["total_users"] = userCount
	stats["total_operators"] = operatorCount
	stats["total_deposited"] = depositedTotal
	stats["total_withdrawn"] = withdrawnTotal
	return stats, nil
}

func startOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
