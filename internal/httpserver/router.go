package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mkravchenko/member-service/internal/middleware"
)

type Deps struct {
	MemberHandler *MemberHTTP
	AuthFilter    *middleware.AuthFilter
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/favicon.ico", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	members := e.Group("/api/members", d.AuthFilter.Middleware)

	members.POST("/signup", d.MemberHandler.Signup)
	members.POST("/sign", d.MemberHandler.Sign)
	members.GET("/profile", d.MemberHandler.Profile)
}
