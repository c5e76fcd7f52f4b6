package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"pdfinsight/features/job"
	"pdfinsight/internal/config"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
)

type Dependencies struct {
	DB          *sql.DB
	Store       job.Store
	NSQProducer *nsq.Producer
}

// Close releases the resources Bootstrap acquired. Safe on a partially
// populated value.
func (d *Dependencies) Close() {
	if d.NSQProducer != nil {
		d.NSQProducer.Stop()
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			slog.Warn("failed to close db", "error", err)
		}
	}
}

// Bootstrap wires the optional infrastructure: a durable Postgres job store
// when ENABLE_POSTGRES is set (in-memory otherwise) and an NSQ producer for
// job status events when ENABLE_EVENTS is set.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}

	// Job store
	if cfg.EnablePostgres {
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		deps.DB = db

		// Retry loop
		retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
		for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
			if err := db.PingContext(ctx); err == nil {
				break
			}
			slog.Warn("failed to ping db, retrying...", "attempt", i+1)
			time.Sleep(retryDelay)
		}
		if err := db.PingContext(ctx); err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to ping db: %w", err)
		}

		// Migrations
		driver, err := postgres.WithInstance(db, &postgres.Config{})
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("migration driver error: %w", err)
		}
		m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("migration instance error: %w", err)
		}
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			deps.Close()
			return nil, fmt.Errorf("migration up error: %w", err)
		}
		slog.Info("migrations applied successfully")

		deps.Store = job.NewPostgresRepo(db)
	} else {
		deps.Store = job.NewMemoryStore()
	}

	// Job status events
	if cfg.EnableEvents {
		nsqCfg := nsq.NewConfig()
		producer, err := nsq.NewProducer(cfg.NSQDHost, nsqCfg)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("nsq producer error: %w", err)
		}
		deps.NSQProducer = producer

		createTopics(cfg.NSQDHTTP)
	}

	return deps, nil
}

// createTopics pre-creates the status topics over nsqd's HTTP API. NSQ
// creates topics lazily on publish, but consumers querying lookupd 404
// until the first message lands.
func createTopics(nsqdHTTP string) {
	create := func(topic string) {
		url := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTP, topic)
		resp, err := http.Post(url, "application/json", nil) // #nosec G107 -- URL is built from internal NSQ config, not user input
		if err != nil {
			slog.Warn("failed to create NSQ topic", "topic", topic, "error", err)
			return
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close NSQ topic creation response body", "error", closeErr)
		}
	}

	go func() {
		time.Sleep(2 * time.Second)
		create(config.TopicJobStatus)
		create(config.TopicJobCompleted)
	}()
}
