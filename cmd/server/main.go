package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkravchenko/member-service/internal/config"
	"github.com/mkravchenko/member-service/internal/events"
	"github.com/mkravchenko/member-service/internal/httpserver"
	"github.com/mkravchenko/member-service/internal/logging"
	"github.com/mkravchenko/member-service/internal/middleware"
	"github.com/mkravchenko/member-service/internal/repo"
	"github.com/mkravchenko/member-service/internal/service"
	"github.com/mkravchenko/member-service/internal/tokens"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(middleware.RequestLogger(logger))

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	codec := tokens.NewCodec(cfg.JWTSecret, cfg.JWTIssuer)

	memberHTTP := &httpserver.MemberHTTP{
		Svc: &service.MemberService{
			Repo:       repo.GormRepo{DB: db},
			Codec:      codec,
			Producer:   producer,
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
		},
		Cookie: httpserver.CookiePolicy{
			MaxAge:   cfg.RefreshCookieMaxAge,
			SameSite: cfg.CookieSameSite,
			Secure:   cfg.CookieSecure,
		},
	}

	httpserver.Register(e, &httpserver.Deps{
		MemberHandler: memberHTTP,
		AuthFilter:    middleware.NewAuthFilter(codec, cfg.AccessTokenTTL),
	})

	go func() {
		if err := e.Start(cfg.ServerAddress); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
