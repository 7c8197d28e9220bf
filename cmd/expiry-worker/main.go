package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/escapehq/escape/internal/adapters/crdb"
	mongoadapter "github.com/escapehq/escape/internal/adapters/mongo"
	"github.com/escapehq/escape/internal/adapters/rabbit"
	"github.com/escapehq/escape/internal/booking"
	"github.com/escapehq/escape/internal/catalog"
	"github.com/escapehq/escape/internal/config"
	"github.com/escapehq/escape/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	led := crdb.NewLedger(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	var cat catalog.Catalog = mongoadapter.NewCatalogRepository(mongoClient.Database("escape"), logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	manager := booking.NewManager(led, cat, rabbitPub, logger, cfg.BookingTTL)
	worker := NewExpiryWorker(manager, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, time.Minute)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown expiry worker")
}

// ExpiryWorker sweeps the ledger for tentative bookings whose TTL elapsed,
// cancelling them and restoring their seats.
type ExpiryWorker struct {
	manager *booking.Manager
	logger  observability.Logger
}

func NewExpiryWorker(manager *booking.Manager, logger observability.Logger) *ExpiryWorker {
	return &ExpiryWorker{manager: manager, logger: logger}
}

func (w *ExpiryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := w.sweepWithRetry(ctx, now); err != nil {
				w.logger.WithError(err).Error("expiry sweep failed after retries")
			}
		}
	}
}

func (w *ExpiryWorker) sweepWithRetry(ctx context.Context, now time.Time) error {
	const maxRetries = 3
	var err error
	for i := 0; i < maxRetries; i++ {
		var expired int
		expired, err = w.manager.ExpireStale(ctx, now)
		if err == nil {
			if expired > 0 {
				w.logger.WithField("expired", expired).Info("cancelled stale tentative bookings")
			}
			return nil
		}

		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
