// Command authserver runs the development backend for the auth client.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	pqotp "github.com/pquerna/otp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/shandysiswandi/authflow/internal/authserver"
	"github.com/shandysiswandi/authflow/internal/pkg/clock"
	"github.com/shandysiswandi/authflow/internal/pkg/config"
	"github.com/shandysiswandi/authflow/internal/pkg/hash"
	"github.com/shandysiswandi/authflow/internal/pkg/idempotency"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"github.com/shandysiswandi/authflow/internal/pkg/jwt"
	"github.com/shandysiswandi/authflow/internal/pkg/kvstore"
	"github.com/shandysiswandi/authflow/internal/pkg/mfa"
	"github.com/shandysiswandi/authflow/internal/pkg/otp"
	"github.com/shandysiswandi/authflow/internal/pkg/router"
	"github.com/shandysiswandi/authflow/internal/pkg/uid"
	"github.com/shandysiswandi/authflow/internal/pkg/validator"
)

type serverConfig struct {
	Addr                string   `env:"AUTHSERVER_ADDR" envDefault:":3000"`
	CORSOrigins         []string `env:"AUTHSERVER_CORS_ORIGINS" envDefault:"*"`
	JWTSecret           string   `env:"AUTHSERVER_JWT_SECRET,required"`
	JWTTTLMinutes       int      `env:"AUTHSERVER_JWT_TTL_MINUTES" envDefault:"15"`
	RefreshTTLHours     int      `env:"AUTHSERVER_REFRESH_TTL_HOURS" envDefault:"168"`
	ChallengeTTLMinutes int      `env:"AUTHSERVER_CHALLENGE_TTL_MINUTES" envDefault:"5"`
	TOTPIssuer          string   `env:"AUTHSERVER_TOTP_ISSUER" envDefault:"authflow"`
	HMACSecret          string   `env:"AUTHSERVER_HMAC_SECRET,required"`
	BcryptCost          int      `env:"AUTHSERVER_BCRYPT_COST" envDefault:"10"`
	MFAKey              string   `env:"AUTHSERVER_MFA_KEY,required"`
	KVDriver            string   `env:"AUTHSERVER_KV_DRIVER" envDefault:"memory"`
	KVPath              string   `env:"AUTHSERVER_KV_PATH" envDefault:"./authserver.db"`
	RedisURL            string   `env:"AUTHSERVER_REDIS_URL"`
	PostgresURL         string   `env:"AUTHSERVER_POSTGRES_URL"`
	LogLevel            string   `env:"AUTHSERVER_LOG_LEVEL" envDefault:"info"`
}

func main() {
	var cfg serverConfig
	if err := config.ParseEnv(&cfg); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("authserver stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg serverConfig) error {
	ins, err := instrument.New(ctx, &instrument.Config{
		ServiceName: "authserver",
		MaskFields:  []string{"password", "totpCode", "refreshToken", "accessToken", "sessionToken", "secret", "authorization"},
		LogBackend:  "json",
		LogLevel:    instrument.ParseLevel(cfg.LogLevel),
	})
	if err != nil {
		return err
	}
	defer func() { _ = ins.Shutdown(context.WithoutCancel(ctx)) }()

	mfaKey, err := base64.StdEncoding.DecodeString(cfg.MFAKey)
	if err != nil || len(mfaKey) != 32 {
		return errors.New("AUTHSERVER_MFA_KEY must be base64 of 32 bytes")
	}

	store, err := kvstore.NewFromDriver(ctx, cfg.KVDriver, kvstore.FactoryOptions{
		Bolt:           kvstore.BoltOptions{Path: cfg.KVPath, Bucket: "authserver"},
		SQLite:         kvstore.SQLiteOptions{Path: cfg.KVPath, Table: "authserver_kv"},
		RedisURL:       cfg.RedisURL,
		RedisPrefix:    "authserver:",
		PostgresURL:    cfg.PostgresURL,
		PostgresTable:  "authserver_kv",
		ConnectRetries: 5,
	})
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	idemp, closeIdemp, err := newIdempotency(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer closeIdemp()

	v, err := validator.NewV10Validator()
	if err != nil {
		return err
	}
	sf, err := uid.NewSnowflake()
	if err != nil {
		return err
	}
	oid, err := uid.NewObjectIDGenerator()
	if err != nil {
		return err
	}

	clk := clock.New()
	uuid := uid.NewUUID()

	j, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    "authserver",
		Audiences: []string{"authflow"},
		TTL:       time.Duration(cfg.JWTTTLMinutes) * time.Minute,
		Clock:     clk,
		UUID:      uuid,
	})
	if err != nil {
		return err
	}

	r := router.NewRouter(router.Config{
		UUID:            uuid,
		JWT:             j,
		Instrument:      ins,
		PublicEndpoints: authserver.PublicEndpoints,
		MaskFields:      []string{"password", "totpCode", "refreshToken", "sessionToken"},
	})

	if err := authserver.New(authserver.Dependency{
		KVStore:         store,
		Router:          r,
		Idempotency:     idemp,
		Validator:       v,
		HMAC:            hash.NewHMACSHA256(cfg.HMACSecret),
		Bcrypt:          hash.NewBcrypt(cfg.BcryptCost, ""),
		Argon2ID:        hash.NewArgon2id(""),
		MFAEncryptor:    mfa.NewAESGCMEncryptor(mfa.StaticKeyProvider{KeyBytes: mfaKey}),
		MFARecoveryCode: mfa.NewRecoveryCode(),
		UID:             sf,
		OID:             oid,
		Totp:            otp.NewTOTP(cfg.TOTPIssuer, 30, 1, pqotp.DigitsSix),
		Clock:           clk,
		JWT:             j,
		Instrument:      ins,
		ChallengeTTL:    time.Duration(cfg.ChallengeTTLMinutes) * time.Minute,
		RefreshTTL:      time.Duration(cfg.RefreshTTLHours) * time.Hour,
	}); err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(r),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("authserver listening", "address", cfg.Addr, "kv_driver", cfg.KVDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	slog.InfoContext(shutdownCtx, "authserver shutting down")
	return srv.Shutdown(shutdownCtx)
}

// newIdempotency uses redis when a URL is configured so verification stays
// single-flight across replicas.
func newIdempotency(redisURL string) (idempotency.Idempotency, func(), error) {
	if strings.TrimSpace(redisURL) == "" {
		return idempotency.NewMemory(), func() {}, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opt)

	return idempotency.New(client), func() { _ = client.Close() }, nil
}
