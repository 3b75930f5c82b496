package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"booknook/internal/config"
	"booknook/internal/http/handlers"
	applog "booknook/internal/log"
	"booknook/internal/mailer"
	"booknook/internal/media"
	"booknook/internal/realtime"
	"booknook/internal/repos"
)

// pushURL is the websocket address page scripts dial: the public host with the push listener's port.
func pushURL(cfg config.ServerConfig) string {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	_, port, err := net.SplitHostPort(cfg.PushAddr)
	if err != nil {
		return ""
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return scheme + "://" + net.JoinHostPort(u.Hostname(), port) + "/ws"
}

func main() {
	boot := applog.L()
	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("config.load")
	}

	// Optional file logging
	var out io.Writer = os.Stdout
	if cfg.Logger.File != "" {
		f, err := os.OpenFile(cfg.Logger.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			boot.Warn().Err(err).Str("file", cfg.Logger.File).Msg("log.file.open")
		} else {
			defer f.Close()
			out = io.MultiWriter(os.Stdout, f)
		}
	}
	applog.Set(applog.New(cfg.Logger, out))
	l := applog.Service("main")

	db, err := repos.OpenDB(cfg.Database.DSN)
	if err != nil {
		l.Fatal().Err(err).Msg("db.open")
	}
	defer db.Close()
	store := repos.NewStore(db)

	var mail mailer.Mailer
	if cfg.Mail.Configured() {
		mail = mailer.NewSMTPMailer(cfg.Mail)
	} else {
		l.Warn().Msg("smtp not configured, emails are logged only")
		mail = &mailer.LogMailer{Log: applog.Service("mail")}
	}

	mediaDir := cfg.Server.MediaDir
	if abs, err := filepath.Abs(mediaDir); err == nil {
		mediaDir = abs
	}
	l.Info().Str("static", "./web/static").Str("media", mediaDir).Msg("static.dirs")

	hub := realtime.NewHub(applog.Service("push"))
	deps, err := handlers.NewDeps(store, cfg, hub, mail, media.NewStore(mediaDir))
	if err != nil {
		l.Fatal().Err(err).Msg("deps.build")
	}

	app := handlers.NewApp(deps, handlers.AppConfig{
		TemplatesDir: "./web/templates",
		StaticDir:    "./web/static",
		MediaDir:     mediaDir,
		PushURL:      pushURL(cfg.Server),
		CookieSecure: cfg.Security.CookieSecure,
		Reload:       cfg.Logger.Level == "debug",
		AccessLog:    true,
	})

	push := &http.Server{
		Addr:              cfg.Server.PushAddr,
		Handler:           realtime.NewRouter(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		l.Info().Str("addr", push.Addr).Msg("push.listen")
		if err := push.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	go func() {
		l.Info().Str("addr", cfg.Server.Address()).Msg("web.listen")
		if err := app.Listen(cfg.Server.Address()); err != nil {
			errc <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		l.Info().Str("signal", s.String()).Msg("shutdown.start")
	case err := <-errc:
		l.Error().Err(err).Msg("listener.failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Close()
	if err := push.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("push.shutdown")
	}
	if err := app.ShutdownWithContext(ctx); err != nil {
		l.Error().Err(err).Msg("web.shutdown")
	}
	l.Info().Msg("shutdown.done")
}
