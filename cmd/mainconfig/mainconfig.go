// Package mainconfig centralizes infrastructure wiring shared by the API and
// worker binaries.
package mainconfig

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/clinicware/booking-engine/internal/availability"
	"github.com/clinicware/booking-engine/internal/catalog"
	appconfig "github.com/clinicware/booking-engine/internal/config"
	"github.com/clinicware/booking-engine/internal/contacts"
	"github.com/clinicware/booking-engine/internal/crm"
	"github.com/clinicware/booking-engine/internal/engine"
	"github.com/clinicware/booking-engine/internal/messaging"
	"github.com/clinicware/booking-engine/internal/reservations"
	"github.com/clinicware/booking-engine/pkg/logging"
)

// transcriptTTL bounds how long per-contact transcripts live in Redis.
const transcriptTTL = 30 * 24 * time.Hour

// LoadAWSConfig builds the AWS SDK config used for SQS, honoring static
// credentials and a LocalStack endpoint override.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}

	if endpoint := cfg.AWSEndpointOverride; endpoint != "" {
		awsCfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
			func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
				if service == sqs.ServiceID {
					return aws.Endpoint{
						URL:           endpoint,
						PartitionID:   "aws",
						SigningRegion: cfg.AWSRegion,
					}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			},
		)
	}

	return awsCfg, nil
}

// NewRedisClient builds the shared Redis client.
func NewRedisClient(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

// NewQueue selects the job queue implementation: in-memory for single-process
// deployments, SQS otherwise.
func NewQueue(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (engine.Queue, error) {
	if cfg.UseMemoryQueue {
		logger.Info("using in-memory booking queue")
		return engine.NewMemoryQueue(256), nil
	}
	if cfg.BookingQueueURL == "" {
		return nil, fmt.Errorf("mainconfig: BOOKING_QUEUE_URL required when USE_MEMORY_QUEUE=false")
	}
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("mainconfig: load aws config: %w", err)
	}
	return engine.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.BookingQueueURL), nil
}

// Deps bundles everything the binaries wire together.
type Deps struct {
	Pool        *pgxpool.Pool
	SQLDB       *sql.DB
	Redis       *redis.Client
	Queue       engine.Queue
	Catalog     *catalog.Store
	Transcripts *engine.RedisTranscript
	Engine      *engine.Engine
	Worker      *engine.Worker
	Publisher   *engine.Publisher
}

// Build wires the full booking stack. The returned cleanup closes every
// owned connection.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Deps, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("mainconfig: DATABASE_URL is required")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("mainconfig: create pgx pool: %w", err)
	}
	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("mainconfig: open sql db: %w", err)
	}
	redisClient := NewRedisClient(cfg)

	cleanup := func() {
		pool.Close()
		_ = sqlDB.Close()
		_ = redisClient.Close()
	}

	queue, err := NewQueue(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		logger.Warn("invalid clinic timezone, falling back to local", "timezone", cfg.ClinicTimezone)
		loc = time.Local
	}

	reservationRepo := reservations.NewPostgresRepository(pool)
	avail := availability.NewEngine(reservationRepo)
	directory := contacts.NewPostgresRepository(pool)
	pipeline := crm.NewPostgresRepository(pool)
	resolver := catalog.NewResolver()
	catalogStore := catalog.NewStore(redisClient)
	transcripts := engine.NewRedisTranscript(redisClient, transcriptTTL)
	sessions := engine.NewPostgresSessionStore(sqlDB)

	executor := engine.NewExecutor(reservationRepo, avail, directory, pipeline, resolver, loc, logger)
	eng := engine.NewEngine(sessions, reservationRepo, avail, executor, catalogStore, logger,
		engine.WithLocation(loc),
		engine.WithTranscript(transcripts),
	)

	var sender messaging.ReplySender
	if cfg.ReplyWebhookURL != "" {
		sender = messaging.NewWebhookSender(cfg.ReplyWebhookURL, cfg.ReplyTimeout, logger)
	} else {
		logger.Info("no reply webhook configured, logging replies")
		sender = messaging.NewLogSender(logger)
	}

	worker := engine.NewWorker(eng, queue, sender, logger,
		engine.WithWorkerCount(cfg.WorkerCount),
		engine.WithProcessedStore(engine.NewPostgresProcessedStore(pool)),
	)

	return &Deps{
		Pool:        pool,
		SQLDB:       sqlDB,
		Redis:       redisClient,
		Queue:       queue,
		Catalog:     catalogStore,
		Transcripts: transcripts,
		Engine:      eng,
		Worker:      worker,
		Publisher:   engine.NewPublisher(queue, logger),
	}, cleanup, nil
}
