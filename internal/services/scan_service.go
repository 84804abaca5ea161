package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/banksampah/backend/internal/models"
)

// ScanService resolves a scanned QR badge to a member card. Lookups are
// cached briefly in Redis because staff scan the same badge several
// times during one drop-off.
type ScanService struct {
	db    *sql.DB
	redis *redis.Client
}

func NewScanService(db *sql.DB, redisClient *redis.Client) *ScanService {
	return &ScanService{
		db:    db,
		redis: redisClient,
	}
}

type ScanResult struct {
	UserID   string          `json:"user_id"`
	FullName string          `json:"full_name"`
	Email    string          `json:"email"`
	Balance  decimal.Decimal `json:"balance"`
}

func (s *ScanService) Lookup(ctx context.Context, qrData string) (*ScanResult, error) {
	key := fmt.Sprintf("scan:%s", qrData)
	if s.redis != nil {
		if data, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var cached ScanResult
			if json.Unmarshal(data, &cached) == nil {
				return &cached, nil
			}
		}
	}

	result, err := s.lookupByQRData(ctx, qrData)
	if err == sql.ErrNoRows {
		// Badges issued before the current format carry the email inside
		// the scan string; fall back to resolving that.
		if email := extractLegacyEmail(qrData); email != "" {
			result, err = s.lookupByEmail(ctx, email)
		}
	}
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("member not found for scanned code")
	}
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(result); err == nil {
			s.redis.Set(ctx, key, data, 5*time.Minute)
		}
	}
	return result, nil
}

func (s *ScanService) lookupByQRData(ctx context.Context, qrData string) (*ScanResult, error) {
	var result ScanResult
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.full_name, u.email, COALESCE(a.balance, 0)
		FROM users u
		LEFT JOIN accounts a ON a.user_id = u.id
		WHERE u.qr_data = $1 AND u.role = $2`, qrData, models.RoleMember).
		Scan(&result.UserID, &result.FullName, &result.Email, &result.Balance)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *ScanService) lookupByEmail(ctx context.Context, email string) (*ScanResult, error) {
	var result ScanResult
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.full_name, u.email, COALESCE(a.balance, 0)
		FROM users u
		LEFT JOIN accounts a ON a.user_id = u.id
		WHERE u.email = $1 AND u.role = $2`, email, models.RoleMember).
		Scan(&result.UserID, &result.FullName, &result.Email, &result.Balance)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// extractLegacyEmail pulls the email out of old badge formats
// (BANKSAMPAH-<email>-<timestamp> or USER-<timestamp>-<email>).
func extractLegacyEmail(qrData string) string {
	switch {
	case strings.HasPrefix(qrData, "BANKSAMPAH-"):
		parts := strings.Split(qrData, "-")
		if len(parts) >= 3 {
			return strings.Join(parts[1:len(parts)-1], "-")
		}
	case strings.HasPrefix(qrData, "USER-"):
		parts := strings.Split(qrData, "-")
		if len(parts) >= 3 {
			return strings.Join(parts[2:], "-")
		}
	}
	return ""
}
