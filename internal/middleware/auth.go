package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"feira-smart/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	CallerKey       contextKey = "caller"
	callerHolderKey contextKey = "caller_holder"
)

// callerHolder lets outer middleware see who a request was authenticated as
type callerHolder struct {
	caller *domain.Caller
}

func withCallerHolder(ctx context.Context, h *callerHolder) context.Context {
	return context.WithValue(ctx, callerHolderKey, h)
}

// AuthMiddleware validates JWT tokens and puts the caller in the request context
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})

			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			if !token.Valid {
				logger.Debug("Invalid token")
				RespondWithError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				logger.Error("Failed to extract claims from token")
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			rawID, _ := claims["user_id"].(string)
			userID, err := uuid.Parse(rawID)
			if err != nil {
				logger.Warn("Missing or malformed user_id in token claims")
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			rawRole, _ := claims["role"].(string)
			role := domain.Role(rawRole)
			if !role.Valid() {
				logger.Warn("Unknown role in token claims", zap.String("role", rawRole))
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			caller := domain.Caller{UserID: userID, Role: role}

			logger.Debug("User authenticated",
				zap.String("user_id", userID.String()),
				zap.String("role", string(role)),
			)

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// WithCaller stores the authenticated caller in ctx
func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	if h, ok := ctx.Value(callerHolderKey).(*callerHolder); ok {
		h.caller = &caller
	}
	return context.WithValue(ctx, CallerKey, caller)
}

// GetCaller extracts the authenticated caller from request context
func GetCaller(ctx context.Context) (domain.Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(domain.Caller)
	return caller, ok
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	caller, ok := GetCaller(ctx)
	if !ok {
		return "", false
	}
	return caller.UserID.String(), true
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (domain.Role, bool) {
	caller, ok := GetCaller(ctx)
	if !ok {
		return "", false
	}
	return caller.Role, true
}
