package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/scam-honeypot/internal/config"
	"github.com/wolfman30/scam-honeypot/internal/honeypot"
	"github.com/wolfman30/scam-honeypot/internal/observability/metrics"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, report archive disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Honeypot bundles the wired engine for a transport to serve.
type Honeypot struct {
	Orchestrator *honeypot.Orchestrator
	Dispatcher   *honeypot.CallbackDispatcher
	Handler      *honeypot.Handler
	Metrics      *metrics.HoneypotMetrics
	Redis        *redis.Client
	Postgres     *pgxpool.Pool
}

// Close waits for pending report dispatches and releases archive connections.
func (h *Honeypot) Close() error {
	if h == nil {
		return nil
	}
	h.Orchestrator.Wait()
	if h.Postgres != nil {
		h.Postgres.Close()
	}
	if h.Redis != nil {
		return h.Redis.Close()
	}
	return nil
}

// BuildPostgresPool connects to DATABASE_URL, returning nil when unset or unreachable.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *pgxpool.Pool {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("failed to configure postgres, report archive disabled", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Warn("postgres not available, report archive disabled", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// LoadAWSConfig builds the SDK config, honouring static credentials and a
// LocalStack endpoint when configured.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, loaders...)
}

// BuildS3Client returns an S3 client for report export, or nil when no bucket is set.
func BuildS3Client(ctx context.Context, cfg *appconfig.Config) (*s3.Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.ReportS3Bucket) == "" {
		return nil, nil
	}
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	endpoint := strings.TrimSpace(cfg.AWSEndpointOverride)
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// BuildHoneypot wires the session store, classifier, dispatcher and optional
// report archive from configuration.
func BuildHoneypot(ctx context.Context, cfg *appconfig.Config, reg prometheus.Registerer, logger *logging.Logger) (*Honeypot, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	limits := honeypot.Limits{MaxMessages: cfg.MaxMessages, MaxNoNewIntel: cfg.MaxNoNewIntel}
	m := metrics.NewHoneypotMetrics(reg)

	var archives honeypot.MultiArchive
	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		archives = append(archives, honeypot.NewRedisReportArchive(redisClient, cfg.ReportArchiveTTL))
		logger.Info("redis report archive enabled", "redis_addr", cfg.RedisAddr)
	}
	pool := BuildPostgresPool(ctx, cfg, logger)
	if pool != nil {
		archives = append(archives, honeypot.NewPostgresReportArchive(pool))
		logger.Info("postgres report archive enabled")
	}
	s3Client, err := BuildS3Client(ctx, cfg)
	if err != nil {
		logger.Warn("s3 report export disabled", "error", err)
	} else if s3Client != nil {
		archives = append(archives, honeypot.NewS3ReportArchive(s3Client, cfg.ReportS3Bucket))
		logger.Info("s3 report export enabled", "bucket", cfg.ReportS3Bucket)
	}
	var archive honeypot.ReportArchive
	if len(archives) > 0 {
		archive = archives
	}

	dispatcher := honeypot.NewCallbackDispatcher(honeypot.DispatcherConfig{
		URL:     cfg.CallbackURL,
		Timeout: cfg.CallbackTimeout,
		Limits:  limits,
		Archive: archive,
		Metrics: m,
		Logger:  logger,
	})

	orchestrator := honeypot.NewOrchestrator(honeypot.OrchestratorConfig{
		Store:      honeypot.NewMemorySessionStore(),
		Classifier: honeypot.NewClassifier(logger),
		Extractor:  honeypot.NewExtractor(),
		Replier:    honeypot.NewReplyGenerator(nil),
		Dispatcher: dispatcher,
		Limits:     limits,
		Metrics:    m,
		Logger:     logger,
	})

	return &Honeypot{
		Orchestrator: orchestrator,
		Dispatcher:   dispatcher,
		Handler:      honeypot.NewHandler(orchestrator, logger),
		Metrics:      m,
		Redis:        redisClient,
		Postgres:     pool,
	}, nil
}
