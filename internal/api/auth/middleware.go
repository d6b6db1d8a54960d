package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ContextKey represents keys for context values
type ContextKey string

// SubjectContextKey holds the authenticated principal: a token subject or
// "api-key" for key-based requests.
const SubjectContextKey ContextKey = "auth_subject"

// Middleware builds the request authentication middleware. The second
// return reports whether any credential source is configured; when false
// the middleware is nil and routes stay open.
func Middleware(jwtSecret, apiKeyHash string) (echo.MiddlewareFunc, bool) {
	jwtSecret = strings.TrimSpace(jwtSecret)
	apiKeyHash = strings.TrimSpace(apiKeyHash)
	if jwtSecret == "" && apiKeyHash == "" {
		return nil, false
	}
	secret := []byte(jwtSecret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKeyHash != "" {
				if key := c.Request().Header.Get("X-API-Key"); key != "" {
					if !CheckAPIKey(apiKeyHash, key) {
						return echo.NewHTTPError(http.StatusUnauthorized, "Invalid API key")
					}
					c.Set(string(SubjectContextKey), "api-key")
					return next(c)
				}
			}

			if jwtSecret != "" {
				tokenString := bearerToken(c)
				if tokenString == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "Authorization required")
				}
				subject, err := ValidateToken(secret, tokenString)
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
				}
				c.Set(string(SubjectContextKey), subject)
				return next(c)
			}

			return echo.NewHTTPError(http.StatusUnauthorized, "API key required")
		}
	}, true
}

// bearerToken extracts the token from the Authorization header, falling back
// to the access_token query parameter for EventSource and WebSocket clients
// that cannot set headers.
func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader != "" {
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return ""
		}
		return tokenParts[1]
	}
	return c.QueryParam("access_token")
}

// Subject returns the authenticated principal for the request, or "" when
// auth is disabled.
func Subject(c echo.Context) string {
	if v, ok := c.Get(string(SubjectContextKey)).(string); ok {
		return v
	}
	return ""
}
