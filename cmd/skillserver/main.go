package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"quizme"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

func main() {
	cfg, err := quizme.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := quizme.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()
	quizme.SetLogger(zl)
	quizme.SetVerbose(cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := quizme.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start quiz service: %v", err)
	}
	defer app.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(newServer(app.Service, newCookieStore(cfg))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		quizme.Log().Infow("starting skill server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			quizme.Log().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	quizme.Log().Infow("shutting down skill server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		quizme.Log().Errorw("graceful shutdown failed", "error", err)
	}
}

func newCookieStore(cfg *quizme.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.CookieSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
