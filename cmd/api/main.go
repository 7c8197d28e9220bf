package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/escapehq/escape/internal/adapters/crdb"
	mongoadapter "github.com/escapehq/escape/internal/adapters/mongo"
	"github.com/escapehq/escape/internal/adapters/rabbit"
	redisadapter "github.com/escapehq/escape/internal/adapters/redis"
	"github.com/escapehq/escape/internal/booking"
	"github.com/escapehq/escape/internal/catalog"
	"github.com/escapehq/escape/internal/config"
	httphandler "github.com/escapehq/escape/internal/http"
	"github.com/escapehq/escape/internal/idempotency"
	"github.com/escapehq/escape/internal/ledger"
	"github.com/escapehq/escape/internal/observability"
	"github.com/escapehq/escape/internal/rateLimit"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	var cache *redisadapter.Cache
	var redisIdemp *redisadapter.Idempotency
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		cache = redisadapter.NewCache(redisClient)
		redisIdemp = redisadapter.NewIdempotency(redisClient)
	}
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(cache)

	var rabbitPub *rabbit.Publisher
	if cfg.RabbitURL != "" {
		rabbitConn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer rabbitConn.Close()
		rabbitPub, err = rabbit.NewPublisher(rabbitConn)
		if err != nil {
			log.Fatalf("failed to create publisher: %v", err)
		}
	}

	var led ledger.Ledger
	var events booking.EventPublisher = booking.NopPublisher{}
	if cfg.CRDBDSN != "" {
		pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
		if err != nil {
			log.Fatalf("failed to connect to crdb: %v", err)
		}
		defer pool.Close()
		crdbLedger := crdb.NewLedger(pool)
		led = crdbLedger
		// events go through the outbox so the outbox-publisher delivers them
		events = crdb.NewOutboxWriter(crdbLedger)
	} else {
		logger.Warn("no CRDB_DSN configured, bookings are kept in memory")
		led = ledger.NewMemory()
		if rabbitPub != nil {
			events = rabbitPub
		}
	}

	var cat catalog.Catalog
	var users *mongoadapter.UserStore
	var audit *mongoadapter.AuditLogger
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		mongoDB := mongoClient.Database("escape")
		catRepo := mongoadapter.NewCatalogRepository(mongoDB, logger)
		if cfg.SeedCatalog {
			if err := catRepo.SeedExperiences(context.Background(), catalog.Seed()); err != nil {
				logger.WithError(err).Warn("failed to seed experiences")
			}
		}
		cat = catRepo
		users = mongoadapter.NewUserStore(mongoDB, logger)
		audit = mongoadapter.NewAuditLogger(mongoDB, logger)
	} else {
		logger.Warn("no MONGO_URI configured, serving the built-in catalog")
		cat = catalog.NewMemory(catalog.Seed())
	}

	manager := booking.NewManager(led, cat, events, logger, cfg.BookingTTL)

	handlers := httphandler.NewHandlers(cfg, manager, cat, users, audit, cache, idemp)
	r := httphandler.SetupRouter(handlers, logger, rl, idemp, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
