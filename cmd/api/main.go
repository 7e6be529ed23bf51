package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/application/otp"
	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-auth-otp/internal/infrastructure/jwt"
	"github.com/go-auth-otp/internal/infrastructure/memory"
	"github.com/go-auth-otp/internal/infrastructure/postgres"
	"github.com/go-auth-otp/internal/infrastructure/sns"
	"github.com/go-auth-otp/internal/pkg/clock"
	"github.com/go-auth-otp/internal/pkg/password"
	transporthttp "github.com/go-auth-otp/internal/transport/http"
	"github.com/joho/godotenv"
)

// stores groups the account and challenge backends selected by STORE_DRIVER.
type stores struct {
	accounts interface {
		Create(ctx context.Context, a *domain.Account) error
		FindByEmail(ctx context.Context, email string) (*domain.Account, error)
		FindByPhone(ctx context.Context, phone string) (*domain.Account, error)
		Ping(ctx context.Context) error
	}
	challenges interface {
		UpsertChallenge(ctx context.Context, ch *domain.OTPChallenge, linked bool) (*domain.OTPChallenge, error)
		ConsumeChallenge(ctx context.Context, phone, code string, now time.Time) (string, error)
	}
	close func()
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()
	clk := clock.System()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	hasher, err := password.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := jwtinfra.NewProvider(cfg.JWTSecret, clk)
	if err != nil {
		return err
	}

	// SNS SMS sender (optional; without it issued codes are only logged as issued).
	var smsSender sns.SMSSender
	if cfg.SMSEnabled {
		if smsSender, err = sns.NewSender(ctx, cfg); err != nil {
			return err
		}
	}

	svc := auth.NewService(auth.ServiceDeps{
		Accounts: st.accounts,
		Hasher:   hasher,
		OTP: otp.NewManager(otp.ManagerDeps{
			Store: st.challenges,
			Clock: clk,
			TTL:   cfg.OTPTTL,
		}),
		Tokens:       tokens,
		SMSSender:    smsSender,
		Clock:        clk,
		AccessTTL:    cfg.JWTAccessTTL,
		OTPTokenTTL:  cfg.JWTOTPTTL,
		StoreTimeout: cfg.StoreTimeout,
	})

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Auth:    svc,
		Tokens:  tokens,
		Store:   st.accounts,
		Clock:   clk,
		EchoOTP: cfg.OTPEchoCode,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.DBRunMigrations {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &stores{
			accounts:   postgres.NewAccountRepo(pool),
			challenges: postgres.NewChallengeRepo(pool),
			close:      pool.Close,
		}, nil

	case config.StoreMemory:
		slog.Warn("using in-memory store; data is lost on restart")
		m := memory.NewStore()
		return &stores{accounts: m, challenges: m, close: func() {}}, nil

	default:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		// Bootstrap DynamoDB tables (creates them if they don't exist).
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return &stores{
			accounts:   dynamo.NewAccountRepo(client, cfg.DynamoTables.Accounts, cfg.DynamoTables.AccountKeys),
			challenges: dynamo.NewChallengeRepo(client, cfg.DynamoTables.OTPChallenges),
			close:      func() {},
		}, nil
	}
}
