package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/blockedu/blockedu/internal/assistant"
	"github.com/blockedu/blockedu/internal/attendance"
	"github.com/blockedu/blockedu/internal/auth"
	"github.com/blockedu/blockedu/internal/fees"
	"github.com/blockedu/blockedu/internal/hashing"
	"github.com/blockedu/blockedu/internal/ledger"
	"github.com/blockedu/blockedu/internal/notify"
	"github.com/blockedu/blockedu/internal/records"
	"github.com/blockedu/blockedu/internal/results"
	"github.com/blockedu/blockedu/internal/server"
	"github.com/blockedu/blockedu/internal/students"
	"github.com/blockedu/blockedu/internal/verification"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("blockedu exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("blockedu")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("database.url", "")
	viper.SetDefault("hashing.algorithm", hashing.AlgSHA256)
	viper.SetDefault("hashing.canon_version", hashing.CanonV1)
	viper.SetDefault("auth.token_secret", "")
	viper.SetDefault("auth.token_ttl_hours", 24)
	viper.SetDefault("auth.issuer_url", "")
	viper.SetDefault("institution.name", "BlockEdu Institute")

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	// ── Hashing ──────────────────────────────────────────────────────────────
	hasher, err := hashing.New(
		viper.GetString("hashing.algorithm"),
		viper.GetString("hashing.canon_version"),
	)
	if err != nil {
		return fmt.Errorf("configure hasher: %w", err)
	}
	logger.Info("hasher configured",
		zap.String("algorithm", hasher.Algorithm()),
		zap.String("canon_version", hasher.Version()),
	)

	// ── Stores: durable when database.url is set, in-memory otherwise ────────
	var (
		ledgerStore   ledger.Store
		recordBackend records.Backend
	)
	if dbURL := viper.GetString("database.url"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(context.Background()); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("connected to postgres")
		ledgerStore = ledger.NewPostgres(pool, logger)
		recordBackend = records.NewPostgres(pool)
	} else {
		logger.Info("no database configured, using in-memory stores")
		ledgerStore = ledger.NewMemory()
		recordBackend = records.NewMemory()
	}

	recordStore := records.NewStore(recordBackend, hasher)
	recordSvc := records.NewService(recordStore, ledgerStore, logger)
	recordSvc.SetAnchorCallback(server.RecordLedgerAppend)
	verifier := verification.NewEngine(recordStore, ledgerStore, logger)

	if n, err := ledgerStore.Len(context.Background()); err != nil {
		logger.Warn("ledger length check failed", zap.Error(err))
	} else {
		logger.Info("ledger ready", zap.Int("entries", n))
	}

	// ── Application services ─────────────────────────────────────────────────
	studentStore := students.NewStore()
	feeSvc := fees.NewService(ledgerStore, hasher, logger)
	attendanceStore := attendance.NewStore()
	resultStore := results.NewStore()
	notifier := notify.NewService(notify.NewLogDispatcher(logger), logger)
	chatbot := assistant.New(feeSvc, attendanceStore, resultStore, verifier, logger)

	// ── Auth ─────────────────────────────────────────────────────────────────
	httpPort := viper.GetInt("server.port")
	issuerURL := viper.GetString("auth.issuer_url")
	if issuerURL == "" {
		issuerURL = fmt.Sprintf("http://localhost:%d", httpPort)
	}

	var tokens *auth.TokenIssuer
	var userStore *auth.UserStore
	if secret := viper.GetString("auth.token_secret"); secret != "" {
		ttl := time.Duration(viper.GetInt("auth.token_ttl_hours")) * time.Hour
		tokens = auth.NewTokenIssuer([]byte(secret), issuerURL, ttl)
		userStore = auth.NewUserStore()
	} else {
		logger.Warn("auth disabled — AUTH_TOKEN_SECRET is not set; do not use in production")
	}

	// ── HTTP Router ──────────────────────────────────────────────────────────
	router := server.NewRouter(server.Config{
		CORSOrigins:  viper.GetStringSlice("server.cors_origins"),
		RateLimitRPS: viper.GetInt("server.rate_limit_rps"),
	}, server.Deps{
		Records:    recordSvc,
		Ledger:     ledgerStore,
		Verifier:   verifier,
		Students:   studentStore,
		Fees:       feeSvc,
		Attendance: attendanceStore,
		Results:    resultStore,
		Notifier:   notifier,
		Assistant:  chatbot,
		Users:      userStore,
		Tokens:     tokens,
		Logger:     logger,
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("blockedu HTTP listening", zap.Int("port", httpPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	<-quit
	logger.Info("shutting down blockedu...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("blockedu stopped")
	return nil
}
