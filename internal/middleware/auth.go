package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkravchenko/member-service/internal/logging"
	"github.com/mkravchenko/member-service/internal/tokens"
)

// ContextKeyUsername is where the filter binds the authenticated
// username for downstream handlers.
const ContextKeyUsername = "username"

const RefreshCookieName = "refresh"

type Verdict int

const (
	VerdictReject Verdict = iota
	VerdictAccept
	VerdictUpgrade
)

// Decision is the filter's explicit outcome for one request: reject with
// a status and message, accept with a bound identity, or accept-with-upgrade
// carrying a freshly minted access token.
type Decision struct {
	Verdict   Verdict
	Username  string
	NewAccess string
	Status    int
	Message   string
}

type AuthFilter struct {
	Codec     *tokens.Codec
	AccessTTL time.Duration
}

func NewAuthFilter(codec *tokens.Codec, accessTTL time.Duration) *AuthFilter {
	return &AuthFilter{Codec: codec, AccessTTL: accessTTL}
}

func reject(status int, message string) Decision {
	return Decision{Verdict: VerdictReject, Status: status, Message: message}
}

func (f *AuthFilter) Exempt(path string) bool {
	return strings.HasPrefix(path, "/api/members/signup") ||
		path == "/api/members/sign" ||
		path == "/health" ||
		strings.HasPrefix(path, "/favicon.ico")
}

// Decide classifies the bearer token against the refresh cookie. The
// ordering is fixed: token-type check precedes expiry, expiry precedes
// nothing — a wrong-type token is rejected before its expiry matters.
func (f *AuthFilter) Decide(bearer, refreshCookie string, hasRefreshCookie bool) Decision {
	if bearer == "" {
		return reject(http.StatusUnauthorized, "authorization token required")
	}

	claims, err := f.Codec.Parse(bearer)
	if err != nil {
		switch tokens.Classify(err) {
		case tokens.KindMalformed:
			return reject(http.StatusUnauthorized, "damaged token, sign in again")
		case tokens.KindUnsupported:
			return reject(http.StatusBadRequest, "unsupported token format")
		case tokens.KindEmptyClaims:
			return reject(http.StatusBadRequest, "token claims are empty")
		default:
			return reject(http.StatusInternalServerError, "token validation failed")
		}
	}

	if !claims.IsAccess() {
		if !hasRefreshCookie || refreshCookie == "" {
			return reject(http.StatusUnauthorized, "only access tokens are accepted, sign in again")
		}
		if f.Codec.IsExpired(refreshCookie) {
			return reject(http.StatusUnauthorized, "refresh token expired, sign in again")
		}
		return reject(http.StatusForbidden, "only access tokens may authorize requests")
	}

	expired := f.Codec.Expired(claims)

	if f.Codec.RefreshDue(claims) && !expired {
		if !hasRefreshCookie || refreshCookie == "" {
			return reject(http.StatusUnauthorized, "refresh cookie required to renew the access token")
		}
		if f.Codec.IsExpired(refreshCookie) {
			return reject(http.StatusUnauthorized, "refresh token expired, sign in again")
		}

		newAccess, err := f.Codec.Create(claims.Username, tokens.TypeAccess, f.AccessTTL)
		if err != nil {
			return reject(http.StatusInternalServerError, "cannot renew access token")
		}
		return Decision{
			Verdict:   VerdictUpgrade,
			Username:  claims.Username,
			NewAccess: newAccess,
			Status:    http.StatusUpgradeRequired,
			Message:   "access token renewed, resend the request with it",
		}
	}

	if expired {
		return reject(http.StatusUnauthorized, "expired token, sign in again")
	}

	return Decision{Verdict: VerdictAccept, Username: claims.Username}
}

func resolveBearer(c echo.Context) string {
	authorization := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(authorization, "Bearer ") {
		return strings.TrimPrefix(authorization, "Bearer ")
	}
	return ""
}

func (f *AuthFilter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if f.Exempt(c.Request().URL.Path) {
			return next(c)
		}

		var refreshCookie string
		hasRefreshCookie := false
		if cookie, err := c.Cookie(RefreshCookieName); err == nil {
			refreshCookie = cookie.Value
			hasRefreshCookie = true
		}

		decision := f.Decide(resolveBearer(c), refreshCookie, hasRefreshCookie)

		switch decision.Verdict {
		case VerdictAccept:
			c.Set(ContextKeyUsername, decision.Username)
			return next(c)
		case VerdictUpgrade:
			l := logging.FromContext(c.Request().Context())
			l.Info("access_token_renewed", "username", decision.Username)
			return c.JSON(decision.Status, echo.Map{
				"message": decision.Message,
				"access":  decision.NewAccess,
			})
		default:
			return echo.NewHTTPError(decision.Status, decision.Message)
		}
	}
}
