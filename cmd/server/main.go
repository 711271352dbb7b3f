// Command server runs the video lifecycle orchestrator: the queue consumers
// that drive processing status, the media-server webhook endpoints, and the
// health and metrics surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/miadabdi/streamy/internal/api"
	"github.com/miadabdi/streamy/internal/blob"
	"github.com/miadabdi/streamy/internal/live"
	"github.com/miadabdi/streamy/internal/notify"
	"github.com/miadabdi/streamy/internal/observability/logging"
	"github.com/miadabdi/streamy/internal/observability/metrics"
	"github.com/miadabdi/streamy/internal/queue"
	"github.com/miadabdi/streamy/internal/server"
	"github.com/miadabdi/streamy/internal/serverutil"
	"github.com/miadabdi/streamy/internal/storage"
	"github.com/miadabdi/streamy/internal/video"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	amqpURL := flag.String("amqp-url", "", "AMQP broker URL")
	prefetch := flag.Int("prefetch", 0, "unacknowledged message window per consumer")
	redisAddr := flag.String("redis-addr", "", "Redis address for status notifications (optional)")
	redisPassword := flag.String("redis-password", "", "Redis password for status notifications")
	redisChannel := flag.String("redis-channel", "", "Redis pub/sub channel for status notifications")
	s3Endpoint := flag.String("s3-endpoint", "", "object store endpoint URL")
	s3Region := flag.String("s3-region", "", "object store region")
	s3AccessKey := flag.String("s3-access-key", "", "object store access key")
	s3SecretKey := flag.String("s3-secret-key", "", "object store secret key")
	srsHookToken := flag.String("srs-hook-token", "", "bearer token required on media-server webhooks")
	shutdownTimeout := flag.Duration("shutdown-timeout", 0, "graceful shutdown timeout")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("STREAMY_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("STREAMY_LOG_FORMAT")),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, runConfig{
		addr:            resolveAddr(*addr),
		postgresDSN:     strings.TrimSpace(firstNonEmpty(*postgresDSN, os.Getenv("STREAMY_POSTGRES_DSN"), os.Getenv("DATABASE_URL"))),
		amqpURL:         strings.TrimSpace(firstNonEmpty(*amqpURL, os.Getenv("STREAMY_AMQP_URL"))),
		prefetch:        *prefetch,
		redisAddr:       strings.TrimSpace(firstNonEmpty(*redisAddr, os.Getenv("STREAMY_REDIS_ADDR"))),
		redisPassword:   firstNonEmpty(*redisPassword, os.Getenv("STREAMY_REDIS_PASSWORD")),
		redisChannel:    firstNonEmpty(*redisChannel, os.Getenv("STREAMY_REDIS_CHANNEL")),
		s3Endpoint:      strings.TrimSpace(firstNonEmpty(*s3Endpoint, os.Getenv("STREAMY_S3_ENDPOINT"))),
		s3Region:        firstNonEmpty(*s3Region, os.Getenv("STREAMY_S3_REGION")),
		s3AccessKey:     firstNonEmpty(*s3AccessKey, os.Getenv("STREAMY_S3_ACCESS_KEY")),
		s3SecretKey:     firstNonEmpty(*s3SecretKey, os.Getenv("STREAMY_S3_SECRET_KEY")),
		srsHookToken:    firstNonEmpty(*srsHookToken, os.Getenv("STREAMY_SRS_HOOK_TOKEN")),
		shutdownTimeout: *shutdownTimeout,
	}); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

type runConfig struct {
	addr            string
	postgresDSN     string
	amqpURL         string
	prefetch        int
	redisAddr       string
	redisPassword   string
	redisChannel    string
	s3Endpoint      string
	s3Region        string
	s3AccessKey     string
	s3SecretKey     string
	srsHookToken    string
	shutdownTimeout time.Duration
}

func run(ctx context.Context, logger *slog.Logger, cfg runConfig) error {
	if cfg.amqpURL == "" {
		return errors.New("no broker configured: provide --amqp-url or STREAMY_AMQP_URL")
	}

	store, err := openStore(ctx, cfg.postgresDSN)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	transport, err := queue.DialAMQP(queue.AMQPConfig{
		URL:    cfg.amqpURL,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer transport.Close(context.Background())

	var blobs blob.Store
	if cfg.s3Endpoint != "" {
		blobs, err = blob.NewS3Store(ctx, blob.S3Config{
			Endpoint:  cfg.s3Endpoint,
			Region:    cfg.s3Region,
			AccessKey: cfg.s3AccessKey,
			SecretKey: cfg.s3SecretKey,
		})
		if err != nil {
			return fmt.Errorf("connect object store: %w", err)
		}
	} else {
		logger.Warn("object store not configured, uploads disabled")
	}

	var notifier notify.Notifier
	if cfg.redisAddr != "" {
		redisNotifier, err := notify.NewRedisNotifier(ctx, cfg.redisAddr, cfg.redisPassword, cfg.redisChannel)
		if err != nil {
			return err
		}
		defer redisNotifier.Close()
		notifier = redisNotifier
	}

	recorder := metrics.Default()
	videos, err := video.NewService(video.Config{
		Store:     store,
		Transport: transport,
		Blobs:     blobs,
		Notifier:  notifier,
		Metrics:   recorder,
		Logger:    logger,
		Prefetch:  cfg.prefetch,
	})
	if err != nil {
		return err
	}
	liveService, err := live.NewService(store, transport, notifier, recorder, logger)
	if err != nil {
		return err
	}

	httpServer := server.New(server.Config{
		Addr: cfg.addr,
		Handler: &api.Handler{
			Store:        store,
			Live:         liveService,
			Logger:       logger,
			SRSHookToken: cfg.srsHookToken,
		},
		Recorder: recorder,
		Logger:   logger,
	})

	if err := videos.Run(ctx); err != nil {
		return err
	}
	logger.Info("orchestrator started", "addr", cfg.addr, "queues", queue.Names)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return serverutil.Run(groupCtx, serverutil.Config{
			Server:          httpServer,
			ShutdownTimeout: cfg.shutdownTimeout,
		})
	})
	return group.Wait()
}

func openStore(ctx context.Context, dsn string) (storage.Repository, error) {
	if dsn == "" {
		return nil, errors.New("no datastore configured: provide --postgres-dsn, STREAMY_POSTGRES_DSN, or DATABASE_URL")
	}
	store, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return store, nil
}

func resolveAddr(flagValue string) string {
	addr := strings.TrimSpace(flagValue)
	if addr == "" {
		addr = strings.TrimSpace(os.Getenv("STREAMY_ADDR"))
	}
	if addr == "" {
		addr = ":8080"
	}
	return addr
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
