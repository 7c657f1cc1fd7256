package app

import (
	"context"
	"log/slog"
	"os"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/shandysiswandi/authflow/internal/pkg/clock"
	"github.com/shandysiswandi/authflow/internal/pkg/config"
	"github.com/shandysiswandi/authflow/internal/pkg/goroutine"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"github.com/shandysiswandi/authflow/internal/pkg/kvstore"
	"github.com/shandysiswandi/authflow/internal/pkg/messaging"
	"github.com/shandysiswandi/authflow/internal/pkg/mfa"
	"github.com/shandysiswandi/authflow/internal/pkg/storage"
	"github.com/shandysiswandi/authflow/internal/pkg/validator"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const scopePubSub = "https://www.googleapis.com/auth/pubsub"

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}

	cfg, err := config.NewViper(path, "AUTHFLOW")
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		LogBackend:       a.config.GetString("log.backend"),
		LogLevel:         instrument.ParseLevel(a.config.GetString("log.level")),
		// stdout belongs to the terminal
		Output: os.Stderr,
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.max_goroutine"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	if strings.TrimSpace(a.config.GetString("export.encryption_key")) == "" {
		return
	}

	rawKey := a.config.GetBinary("export.encryption_key")
	if len(rawKey) != 32 {
		slog.Error("failed to init export encryptor, key must be base64 of 32 bytes (AES-256)")
		os.Exit(1)
	}
	a.mfaEncryptor = mfa.NewAESGCMEncryptor(mfa.StaticKeyProvider{KeyBytes: rawKey})
}

func (a *App) initKVStore() {
	driver := a.config.GetString("kvstore.driver")
	store, err := kvstore.NewFromDriver(a.ctx, driver, kvstore.FactoryOptions{
		Bolt: kvstore.BoltOptions{
			Path:   a.config.GetString("kvstore.bolt.path"),
			Bucket: a.config.GetString("kvstore.bolt.bucket"),
		},
		SQLite: kvstore.SQLiteOptions{
			Path:  a.config.GetString("kvstore.sqlite.path"),
			Table: a.config.GetString("kvstore.sqlite.table"),
		},
		RedisURL:       a.config.GetString("kvstore.redis.url"),
		RedisPrefix:    a.config.GetString("kvstore.redis.prefix"),
		PostgresURL:    a.config.GetString("kvstore.postgres.url"),
		PostgresTable:  a.config.GetString("kvstore.postgres.table"),
		ConnectRetries: uint64(a.config.GetUint("kvstore.connect_retries")),
	})
	if err != nil {
		slog.Error("failed to init kvstore", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.kvstore = store
}

// googleOptions builds client options from the credential keys under prefix.
func (a *App) googleOptions(prefix string, scopes ...string) []option.ClientOption {
	opts := []option.ClientOption{}
	if a.config.GetBool(prefix + ".without_auth") {
		opts = append(opts, option.WithoutAuthentication())
	}

	credsJSON := a.config.GetBinary(prefix + ".credentials_json")
	if v := strings.TrimSpace(a.config.GetString(prefix + ".credentials_file")); v != "" {
		// #nosec G304 -- path is from trusted config file.
		raw, err := os.ReadFile(v)
		if err != nil {
			slog.Error("failed to read google credentials file", "prefix", prefix, "error", err)
			os.Exit(1)
		}
		credsJSON = raw
	}
	if len(credsJSON) > 0 {
		creds, err := google.CredentialsFromJSON(a.ctx, credsJSON, scopes...)
		if err != nil {
			slog.Error("failed to parse google credentials", "prefix", prefix, "error", err)
			os.Exit(1)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	if v := strings.TrimSpace(a.config.GetString(prefix + ".endpoint")); v != "" {
		opts = append(opts, option.WithEndpoint(v))
	}

	return opts
}

func (a *App) initStorage() {
	driver := strings.TrimSpace(a.config.GetString("export.driver"))

	var gcsOptions []option.ClientOption
	if driver == storage.DriverGCS {
		gcsOptions = a.googleOptions("export.gcs", gcs.ScopeFullControl)
	}

	stg, err := storage.NewFromDriver(a.ctx, driver, storage.FactoryOptions{
		File: storage.FileOptions{
			Dir: a.config.GetString("export.file.dir"),
		},
		S3: storage.S3Options{
			Region:       strings.TrimSpace(a.config.GetString("export.s3.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("export.s3.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("export.s3.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("export.s3.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("export.s3.session_token")),
			UsePathStyle: a.config.GetBool("export.s3.use_path_style"),
		},
		GCS: storage.GCSOptions{
			ClientOptions: gcsOptions,
		},
		MinIO: storage.MinIOOptions{
			Region:       strings.TrimSpace(a.config.GetString("export.minio.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("export.minio.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("export.minio.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("export.minio.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("export.minio.session_token")),
			UseSSL:       a.config.GetBool("export.minio.use_ssl"),
		},
	})
	if err != nil {
		slog.Error("failed to init storage", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.storage = stg
}

func (a *App) initMessaging() {
	driver := strings.TrimSpace(a.config.GetString("events.driver"))

	var pubsubOptions []option.ClientOption
	if driver == messaging.DriverGooglePubSub {
		pubsubOptions = a.googleOptions("events.pubsub", scopePubSub)
	}

	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr: a.config.GetString("events.nsq.producer_addr"),
			ProducerConfig: func() *nsq.Config {
				cfg := nsq.NewConfig()
				cfg.DialTimeout = a.config.GetSecond("events.nsq.dial_timeout_seconds")
				cfg.WriteTimeout = a.config.GetSecond("events.nsq.write_timeout_seconds")
				return cfg
			}(),
		},
		Kafka: messaging.KafkaConfig{
			Brokers:      a.config.GetArray("events.kafka.brokers"),
			WriteTimeout: a.config.GetSecond("events.kafka.write_timeout_seconds"),
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("events.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("events.nats.name")),
				nats.MaxReconnects(a.config.GetInt("events.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("events.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("events.nats.reconnect_wait_seconds")),
				nats.RetryOnFailedConnect(a.config.GetBool("events.nats.retry_on_failed_connect")),
			},
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.config.GetString("events.pubsub.project_id"),
			ClientOptions: pubsubOptions,
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Messaging",
			fn: func(context.Context) error {
				return a.messaging.Close()
			},
		},
		{
			name: "Storage",
			fn: func(context.Context) error {
				return a.storage.Close()
			},
		},
		{
			name: "KVStore",
			fn: func(context.Context) error {
				return a.kvstore.Close()
			},
		},
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}
