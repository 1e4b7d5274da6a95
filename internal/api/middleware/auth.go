package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

// Auth validates the bearer JWT and injects its claims into the context:
// "email" (string), "role" (string) and "client_id" (domain.ClientID).
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			clientID, ok := clientIDClaim(claims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing client identity")
			}

			c.Set("email", claims["sub"])
			c.Set("role", claims["role"])
			c.Set("client_id", clientID)

			return next(c)
		}
	}
}

// clientIDClaim reads the numeric client_id claim. JSON numbers decode as
// float64, so fractional or out-of-range values are rejected.
func clientIDClaim(claims jwt.MapClaims) (domain.ClientID, bool) {
	v, ok := claims["client_id"].(float64)
	if !ok || v < 1 || v > float64(^uint32(0)) || v != float64(uint32(v)) {
		return 0, false
	}
	return domain.ClientID(v), true
}
