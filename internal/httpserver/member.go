package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkravchenko/member-service/internal/logging"
	"github.com/mkravchenko/member-service/internal/middleware"
	"github.com/mkravchenko/member-service/internal/service"
)

type CookiePolicy struct {
	MaxAge   time.Duration
	SameSite http.SameSite
	Secure   bool
}

type MemberHTTP struct {
	Svc    *service.MemberService
	Cookie CookiePolicy
}

// translate maps session-service sentinels to HTTP errors; everything
// unmatched is reported as an internal error.
func translate(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "username already in use")
	case errors.Is(err, service.ErrInvalidPassword):
		return echo.NewHTTPError(http.StatusBadRequest,
			"password must be at least 8 characters with a lowercase, an uppercase, a digit and a symbol")
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "no such member")
	case errors.Is(err, service.ErrBadCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "password mismatch")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func (h *MemberHTTP) refreshCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(h.Cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: h.Cookie.SameSite,
	}
}

func (h *MemberHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "member_signup")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Nickname string `json:"nickname"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Signup(ctx, req.Username, req.Password, req.Nickname)
	if err != nil {
		return translate(err)
	}

	return c.JSON(http.StatusCreated, res)
}

func (h *MemberHTTP) Sign(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "member_sign")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("sign_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.SignIn(ctx, req.Username, req.Password)
	if err != nil {
		return translate(err)
	}

	c.SetCookie(h.refreshCookie(res.RefreshToken))

	return c.JSON(http.StatusOK, echo.Map{
		"token": res.AccessToken,
	})
}

func (h *MemberHTTP) Profile(c echo.Context) error {
	ctx := c.Request().Context()

	username, ok := c.Get(middleware.ContextKeyUsername).(string)
	if !ok || username == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authorization token required")
	}

	profile, err := h.Svc.Profile(ctx, username)
	if err != nil {
		return translate(err)
	}

	return c.JSON(http.StatusOK, profile)
}
