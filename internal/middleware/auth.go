package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/deppfellow/nginx-log-sink/internal/errs"
	"github.com/deppfellow/nginx-log-sink/internal/logger"
	"github.com/deppfellow/nginx-log-sink/internal/server"
	"github.com/labstack/echo/v4"
)

// AuthMiddleware protects the read API with Clerk session tokens.
type AuthMiddleware struct {
	server *server.Server
}

func NewAuthMiddleware(s *server.Server) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
	}
}

// RequireAuth validates the Authorization bearer token with Clerk and stores
// the subject, role and permissions on the Echo context.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return echo.WrapMiddleware(
		clerkhttp.WithHeaderAuthorization(
			clerkhttp.AuthorizationFailureHandler(http.HandlerFunc(auth.writeUnauthorized)),
		),
	)(func(c echo.Context) error {
		start := time.Now()

		claims, ok := clerk.SessionClaimsFromContext(c.Request().Context())
		if !ok {
			GetLogger(c).Error().
				Str("function", "RequireAuth").
				Dur("duration", time.Since(start)).
				Msg("could not get session claims from context")

			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(UserRoleKey, claims.ActiveOrganizationRole)
		c.Set("permissions", claims.Claims.ActiveOrganizationPermissions)

		GetLogger(c).Debug().
			Str("function", "RequireAuth").
			Str("user_id", claims.Subject).
			Dur("duration", time.Since(start)).
			Msg("user authenticated successfully")

		return next(c)
	})
}

// writeUnauthorized runs outside Echo, so it writes the HTTPError body itself.
func (auth *AuthMiddleware) writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	body := errs.NewUnauthorizedError("Unauthorized", false)

	w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w.WriteHeader(http.StatusUnauthorized)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.FromContext(r.Context(), auth.server.Logger).Error().
			Err(err).
			Str("function", "RequireAuth").
			Msg("failed to write JSON response")
		return
	}

	logger.FromContext(r.Context(), auth.server.Logger).Warn().
		Str("function", "RequireAuth").
		Msg("request rejected by clerk")
}
