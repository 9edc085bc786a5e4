package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"reviewhub/internal/auth"
	"reviewhub/internal/catalog"
	"reviewhub/internal/config"
	"reviewhub/internal/database"
	"reviewhub/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a yaml config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	logger := mustLogger(cfg.Env)
	defer logger.Sync()

	log := &zapAdapter{sugar: logger.Sugar()}

	db, err := database.Open(cfg.DB.DSN)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	store := catalog.NewStore(db)
	store.MustValidate()

	tokens := auth.NewTokenService(
		[]byte(cfg.Auth.GetSigningKey()),
		cfg.Auth.GetTokenExpiration(),
		cfg.Auth.GetIssuer(),
		jwt.ClaimStrings(cfg.Auth.GetAudience()),
		log,
	)

	mailer := auth.NewLogMailer(log, cfg.Mail.Sender)

	srv := server.New(server.Options{
		Config:       cfg.Auth,
		Logger:       log,
		Tokens:       tokens,
		Repo:         repo,
		Store:        store,
		Mailer:       mailer,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	})

	go func() {
		log.Info("starting http server", "address", cfg.HTTPServer.Address, "env", cfg.Env)
		if err := srv.Listen(cfg.HTTPServer.Address); err != nil {
			log.Error("http server stopped", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

func mustLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)

	switch env {
	case "local", "dev":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}

	return logger
}

// zapAdapter bridges the sugared zap logger to the leveled key/value
// interface the rest of the service logs through.
type zapAdapter struct {
	sugar *zap.SugaredLogger
}

func (z *zapAdapter) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }
func (z *zapAdapter) Info(msg string, args ...any)  { z.sugar.Infow(msg, args...) }
func (z *zapAdapter) Warn(msg string, args ...any)  { z.sugar.Warnw(msg, args...) }
func (z *zapAdapter) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }
