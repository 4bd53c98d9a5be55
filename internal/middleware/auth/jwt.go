package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthUser is the caller identified by a verified access token.
type AuthUser struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name,omitempty"`
	Role   string    `json:"role"`
}

type contextKey string

const userContextKey contextKey = "authenticated_user"

// JWTConfig holds the configuration for JWT middleware
type JWTConfig struct {
	Secret    string
	Logger    *zap.Logger
	SkipPaths []string
}

// tokenError carries the machine-readable code returned in a 401 body.
type tokenError struct {
	code string
	msg  string
	err  error
}

func (e *tokenError) Error() string {
	if e.err != nil {
		return e.code + ": " + e.err.Error()
	}
	return e.code
}

// JWTMiddleware validates HS256 access tokens and stores the caller, taken
// from the "sub" claim, in the request context.
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if skipped(path, config.SkipPaths) {
				return next(c)
			}

			user, err := authenticate(c.Request().Header.Get("Authorization"), config.Secret)
			if err != nil {
				te := err.(*tokenError)
				config.Logger.Warn("Rejected access token",
					zap.String("code", te.code),
					zap.String("path", path),
					zap.String("method", c.Request().Method),
					zap.NamedError("cause", te.err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": te.msg, "code": te.code})
			}

			ctx := context.WithValue(c.Request().Context(), userContextKey, user)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_id", user.UserID.String())

			config.Logger.Debug("User authenticated",
				zap.String("user_id", user.UserID.String()),
				zap.String("path", path))
			return next(c)
		}
	}
}

func skipped(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// authenticate turns an Authorization header into the caller. Every failure
// is a *tokenError.
func authenticate(header, secret string) (*AuthUser, error) {
	if header == "" {
		return nil, &tokenError{code: "MISSING_AUTH_HEADER", msg: "Authorization header required"}
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, &tokenError{code: "INVALID_AUTH_FORMAT", msg: "Invalid authorization header format. Expected: Bearer <token>"}
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, &tokenError{code: "INVALID_TOKEN", msg: "Invalid or expired token", err: err}
	}

	sub, _ := claims.GetSubject()
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, &tokenError{code: "INVALID_CLAIMS", msg: "Invalid token claims", err: err}
	}

	user := &AuthUser{UserID: userID}
	user.Email, _ = claims["email"].(string)
	user.Role, _ = claims["role"].(string)
	user.Name, _ = claims["name"].(string)
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok && user.Name == "" {
		user.Name, _ = meta["full_name"].(string)
	}
	return user, nil
}

// GetUserFromContext extracts the authenticated user from the request context
func GetUserFromContext(c echo.Context) (*AuthUser, error) {
	user, ok := c.Request().Context().Value(userContextKey).(*AuthUser)
	if !ok || user == nil {
		return nil, fmt.Errorf("no authenticated user found in context")
	}
	return user, nil
}

// RequireAuth returns the caller or a 401 HTTPError that handlers return as-is.
func RequireAuth(c echo.Context) (*AuthUser, error) {
	user, err := GetUserFromContext(c)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
			"error": "Authentication required",
			"code":  "AUTH_REQUIRED",
		})
	}
	return user, nil
}
