package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"reviewhub/config"
	"reviewhub/internal/database"
	"reviewhub/internal/ratelimit"
	"reviewhub/internal/router"
	"reviewhub/internal/worker"
	"reviewhub/pkg/cloudinary"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func main() {
	app := cli.NewApp()
	app.Name = "reviewhub"
	app.Usage = "review task marketplace API"
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: ".", Usage: "directory holding config.yaml"},
	}
	app.Commands = []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Start the HTTP API, websocket hubs and scheduler",
			Action: serve,
		},
		{
			Name:   "migrate",
			Usage:  "Run auto-migration and seed levels, badges, settings and the admin account",
			Action: migrate,
		},
	}
	app.DefaultCommand = "serve"

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("reviewhub exited")
	}
}

func setup(c *cli.Context) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	setupLogger(&cfg.Log)
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func setupLogger(cfg *config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func runMigrations(cfg *config.Config, db *gorm.DB) error {
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	if err := database.Seed(db); err != nil {
		return err
	}
	return database.SeedAdmin(db, cfg.App.AdminEmail, cfg.App.AdminPassword)
}

func migrate(c *cli.Context) error {
	cfg, db, err := setup(c)
	if err != nil {
		return err
	}
	if err := runMigrations(cfg, db); err != nil {
		return err
	}
	log.Info().Msg("migrations applied")
	return nil
}

func serve(c *cli.Context) error {
	cfg, db, err := setup(c)
	if err != nil {
		return err
	}
	if err := runMigrations(cfg, db); err != nil {
		return err
	}

	cloud, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
	if err != nil {
		log.Warn().Err(err).Str("component", "cloudinary").Msg("uploads disabled")
		cloud = nil
	}

	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rs, err := ratelimit.NewRedisStore(c.Context, &cfg.Redis)
		if err != nil {
			return err
		}
		defer rs.Close()
		store = rs
		log.Info().Str("component", "ratelimit").Str("addr", cfg.Redis.Addr).Msg("using redis counters")
	}
	limiter := ratelimit.New(store, ratelimit.ClockFunc(time.Now), cfg.RateLimit.Window)

	services := router.NewServices(cfg, db)
	sched, err := worker.New(cfg.App.Location(), services.Competitions, services.ReviewRequests, limiter)
	if err != nil {
		return err
	}
	sched.Start()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(cfg, db, services, cloud, limiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("env", cfg.Server.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		_ = sched.Stop()
		return err
	}
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown")
	}
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
