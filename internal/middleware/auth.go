package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"

	"github.com/banksampah/backend/internal/models"
)

var blacklist *redis.Client

// InitAuthMiddleware wires the Redis client used for token blacklisting.
// A nil client disables blacklist checks.
func InitAuthMiddleware(redisClient *redis.Client) {
	blacklist = redisClient
}

// Capabilities is the fixed permission set a role grants. It is resolved
// once here at the auth boundary; handlers never branch on the raw role
// string again.
type Capabilities struct {
	CanValidateDeposit  bool
	CanDecideWithdrawal bool
	CanManageCatalog    bool
	CanManageMembers    bool
	CanManageContent    bool
	CanViewMembers      bool
}

func CapabilitiesFor(role string) Capabilities {
	switch role {
	case models.RoleAdmin:
		return Capabilities{
			CanValidateDeposit:  true,
			CanDecideWithdrawal: true,
			CanManageCatalog:    true,
			CanManageMembers:    true,
			CanManageContent:    true,
			CanViewMembers:      true,
		}
	case models.RoleOperator:
		return Capabilities{
			CanValidateDeposit:  true,
			CanDecideWithdrawal: true,
			CanViewMembers:      true,
		}
	default:
		return Capabilities{}
	}
}

// IsStaff reports whether the holder may act on other members' records.
func (c Capabilities) IsStaff() bool {
	return c.CanValidateDeposit || c.CanDecideWithdrawal
}

func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}
		token := parts[1]

		if blacklist != nil {
			key := fmt.Sprintf("blacklist:%s", token)
			if exists, err := blacklist.Exists(r.Context(), key).Result(); err == nil && exists > 0 {
				http.Error(w, "Token revoked", http.StatusUnauthorized)
				return
			}
		}

		userID, role, err := validateToken(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", userID)
		ctx = context.WithValue(ctx, "caps", CapabilitiesFor(role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCapability gates a route group on one capability check.
func RequireCapability(allowed func(Capabilities) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(CapsFromContext(r.Context())) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CapsFromContext returns the caller's capabilities, empty when absent.
func CapsFromContext(ctx context.Context) Capabilities {
	caps, _ := ctx.Value("caps").(Capabilities)
	return caps
}

func validateToken(tokenString string) (string, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(viper.GetString("jwt.secret_key")), nil
	})

	if err != nil || !token.Valid {
		return "", "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid claims")
	}

	userID := fmt.Sprintf("%v", claims["user_id"])
	role := fmt.Sprintf("%v", claims["role"])
	return userID, role, nil
}
