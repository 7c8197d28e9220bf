package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/escapehq/escape/internal/adapters/crdb"
	mongoadapter "github.com/escapehq/escape/internal/adapters/mongo"
	"github.com/escapehq/escape/internal/adapters/rabbit"
	redisadapter "github.com/escapehq/escape/internal/adapters/redis"
	"github.com/escapehq/escape/internal/booking"
	"github.com/escapehq/escape/internal/config"
	"github.com/escapehq/escape/internal/domain"
	httphandler "github.com/escapehq/escape/internal/http"
	"github.com/escapehq/escape/internal/idempotency"
	"github.com/escapehq/escape/internal/observability"
	"github.com/escapehq/escape/internal/outbox"
	"github.com/escapehq/escape/internal/rateLimit"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestIntegration_ReserveOrderConfirm(t *testing.T) {
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer crdbContainer.Terminate(ctx)

	mongoContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForExec([]string{"mongo", "--eval", "db.runCommand('ping').ok"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer mongoContainer.Terminate(ctx)

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer redisContainer.Terminate(ctx)

	rabbitContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-management",
			ExposedPorts: []string{"5672/tcp", "15672/tcp"},
			WaitingFor:   wait.ForHTTP("/api/health").WithPort("15672"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rabbitContainer.Terminate(ctx)

	crdbHost, err := crdbContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	crdbPort, err := crdbContainer.MappedPort(ctx, "26257")
	if err != nil {
		t.Fatal(err)
	}
	mongoHost, err := mongoContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	mongoPort, err := mongoContainer.MappedPort(ctx, "27017")
	if err != nil {
		t.Fatal(err)
	}
	redisHost, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatal(err)
	}
	rabbitHost, err := rabbitContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	rabbitPort, err := rabbitContainer.MappedPort(ctx, "5672")
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		HTTPAddr:     ":8080",
		CRDBDSN:      "postgresql://root@" + crdbHost + ":" + crdbPort.Port() + "/escape?sslmode=disable",
		MongoURI:     "mongodb://" + mongoHost + ":" + mongoPort.Port(),
		RedisAddr:    redisHost + ":" + redisPort.Port(),
		RabbitURL:  "amqp://guest:guest@" + rabbitHost + ":" + rabbitPort.Port() + "/",
		BookingTTL: 15 * time.Minute,
	}

	pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE DATABASE IF NOT EXISTS escape;
		CREATE TABLE IF NOT EXISTS escape.bookings (
			id UUID PRIMARY KEY,
			experience_id UUID,
			slot_id UUID,
			user_id UUID,
			status TEXT CHECK (status IN ('tentative', 'confirmed', 'cancelled')),
			participants INT,
			total_amount NUMERIC,
			order_ref TEXT,
			payment_ref TEXT,
			created_at TIMESTAMPTZ,
			expires_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS escape.outbox (
			id UUID PRIMARY KEY,
			aggregate_type TEXT,
			aggregate_id UUID,
			event_type TEXT,
			payload_json BYTES,
			created_at TIMESTAMPTZ DEFAULT now(),
			published_at TIMESTAMPTZ,
			status TEXT DEFAULT 'NEW',
			dedupe_key TEXT
		);
	`)
	if err != nil {
		t.Fatal(err)
	}

	led := crdb.NewLedger(pool)

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		t.Fatal(err)
	}
	defer mongoClient.Disconnect(ctx)
	mongoDB := mongoClient.Database("escape")
	logger := observability.NewLogger()
	cat := mongoadapter.NewCatalogRepository(mongoDB, logger)
	users := mongoadapter.NewUserStore(mongoDB, logger)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	cache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(cache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		t.Fatal(err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		t.Fatal(err)
	}
	consumer, err := rabbit.NewConsumer(rabbitConn, "escape.test.q", "booking.*", "order.*")
	if err != nil {
		t.Fatal(err)
	}
	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}

	manager := booking.NewManager(led, cat, crdb.NewOutboxWriter(led), logger, cfg.BookingTTL)
	handlers := httphandler.NewHandlers(cfg, manager, cat, users, audit, cache, idemp)
	r := httphandler.SetupRouter(handlers, logger, rl, idemp, "")

	srv := &http.Server{Addr: ":8080", Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Error(err)
		}
	}()
	defer srv.Shutdown(ctx)

	// seed one experience with a future slot
	experienceID := uuid.New()
	slotID := uuid.New()
	userID := uuid.New()
	err = cat.CreateExperience(ctx, domain.Experience{
		ID:       experienceID,
		Title:    "Night Kayaking",
		HostName: "Asha",
		Reviews: []domain.Review{
			{ID: uuid.New(), UserID: uuid.New(), UserName: "Ananya", Rating: 5, Comment: "Absolutely loved it!", Date: time.Now().Add(-48 * time.Hour)},
		},
		Slots: []domain.Slot{
			{ID: slotID, StartTime: time.Now().Add(48 * time.Hour), SeatsAvailable: 8, TotalSeats: 10, Price: 1800},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	stored, err := cat.GetExperience(ctx, experienceID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Reviews) != 1 || stored.Reviews[0].UserName != "Ananya" {
		t.Fatalf("expected the seeded review to round-trip, got %v", stored.Reviews)
	}

	post := func(path string, body map[string]interface{}) *http.Response {
		t.Helper()
		data, _ := json.Marshal(body)
		req, _ := http.NewRequest("POST", "http://localhost:8080"+path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", uuid.New().String())
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	// reserve two seats
	resp := post("/v1/bookings", map[string]interface{}{
		"user_id":       userID.String(),
		"experience_id": experienceID.String(),
		"slot_id":       slotID.String(),
		"participants":  2,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("reserve failed, status: %d", resp.StatusCode)
	}
	var reserveResp struct {
		ID          uuid.UUID `json:"id"`
		Status      string    `json:"status"`
		TotalAmount float64   `json:"total_amount"`
	}
	json.NewDecoder(resp.Body).Decode(&reserveResp)
	if reserveResp.Status != "tentative" {
		t.Errorf("expected tentative booking, got %s", reserveResp.Status)
	}
	if reserveResp.TotalAmount != 3600 {
		t.Errorf("expected total 3600, got %f", reserveResp.TotalAmount)
	}

	slot, err := cat.GetSlot(ctx, experienceID, slotID)
	if err != nil {
		t.Fatal(err)
	}
	if slot.SeatsAvailable != 6 {
		t.Errorf("expected 6 seats left, got %d", slot.SeatsAvailable)
	}

	// create the payment order
	resp = post("/v1/bookings/"+reserveResp.ID.String()+"/order", map[string]interface{}{
		"amount": reserveResp.TotalAmount,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create order failed, status: %d", resp.StatusCode)
	}
	var orderResp struct {
		OrderRef string `json:"order_ref"`
	}
	json.NewDecoder(resp.Body).Decode(&orderResp)
	if !strings.HasPrefix(orderResp.OrderRef, "order_rcptid_") {
		t.Errorf("unexpected order ref %q", orderResp.OrderRef)
	}

	// validate payment details
	resp = post("/v1/payments/validate", map[string]interface{}{
		"method":  "upi",
		"details": map[string]interface{}{"upi_id": "jane@upi"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate failed, status: %d", resp.StatusCode)
	}
	var validateResp struct {
		Valid bool `json:"valid"`
	}
	json.NewDecoder(resp.Body).Decode(&validateResp)
	if !validateResp.Valid {
		t.Error("expected valid upi details")
	}

	// confirm
	resp = post("/v1/bookings/"+reserveResp.ID.String()+"/confirm", map[string]interface{}{
		"payment_ref": "pay_123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm failed, status: %d", resp.StatusCode)
	}
	var confirmResp struct {
		Status     string `json:"status"`
		PaymentRef string `json:"payment_ref"`
	}
	json.NewDecoder(resp.Body).Decode(&confirmResp)
	if confirmResp.Status != "confirmed" || confirmResp.PaymentRef != "pay_123" {
		t.Errorf("expected confirmed/pay_123, got %s/%s", confirmResp.Status, confirmResp.PaymentRef)
	}

	// confirming an unknown booking fails with 404
	resp = post("/v1/bookings/"+uuid.New().String()+"/confirm", map[string]interface{}{
		"payment_ref": "pay_999",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown booking, got %d", resp.StatusCode)
	}

	// the confirmed booking shows up for the user, newest first
	req, _ := http.NewRequest("GET", "http://localhost:8080/v1/users/"+userID.String()+"/bookings", nil)
	getResp, err := http.DefaultClient.Do(req)
	if err != nil || getResp.StatusCode != http.StatusOK {
		t.Fatalf("get bookings failed: %v, status: %d", err, getResp.StatusCode)
	}
	var bookings []struct {
		ID         uuid.UUID `json:"id"`
		Status     string    `json:"status"`
		PaymentRef string    `json:"payment_ref"`
	}
	json.NewDecoder(getResp.Body).Decode(&bookings)
	if len(bookings) != 1 || bookings[0].ID != reserveResp.ID || bookings[0].Status != "confirmed" {
		t.Errorf("expected one confirmed booking, got %v", bookings)
	}

	// partition: the slot is in the future, so the booking is upcoming
	req, _ = http.NewRequest("GET", "http://localhost:8080/v1/users/"+userID.String()+"/bookings/partitioned", nil)
	partResp, err := http.DefaultClient.Do(req)
	if err != nil || partResp.StatusCode != http.StatusOK {
		t.Fatalf("get partitioned bookings failed: %v, status: %d", err, partResp.StatusCode)
	}
	var parts struct {
		Upcoming []json.RawMessage `json:"upcoming"`
		Past     []json.RawMessage `json:"past"`
	}
	json.NewDecoder(partResp.Body).Decode(&parts)
	if len(parts.Upcoming) != 1 || len(parts.Past) != 0 {
		t.Errorf("expected 1 upcoming / 0 past, got %d/%d", len(parts.Upcoming), len(parts.Past))
	}

	// outbox has recorded the lifecycle events
	records, err := led.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) < 2 {
		t.Errorf("expected reserved and confirmed outbox records, got %d", len(records))
	}

	// the outbox publisher drains them to rabbit
	pubCtx, pubCancel := context.WithCancel(ctx)
	defer pubCancel()
	go outbox.NewPublisher(led, rabbitPub, logger).Run(pubCtx, 500*time.Millisecond)

	deadline := time.Now().Add(10 * time.Second)
	for {
		remaining, err := led.GetUnpublishedOutbox(ctx, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(remaining) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("outbox still has %d unpublished records", len(remaining))
		}
		time.Sleep(200 * time.Millisecond)
	}

	// drained events reach the bound queue
	select {
	case d := <-deliveries:
		var event map[string]interface{}
		if err := json.Unmarshal(d.Body, &event); err != nil {
			t.Fatal(err)
		}
		if event["booking_id"] != reserveResp.ID.String() {
			t.Errorf("unexpected event booking_id %v", event["booking_id"])
		}
		d.Ack(false)
	case <-time.After(10 * time.Second):
		t.Fatal("no event delivered to the bound queue")
	}

	// releasing more seats than were taken clamps at the slot total
	if err := cat.ReleaseSeats(ctx, experienceID, slotID, 2); err != nil {
		t.Fatal(err)
	}
	if err := cat.ReleaseSeats(ctx, experienceID, slotID, 10); err != nil {
		t.Fatal(err)
	}
	slot, err = cat.GetSlot(ctx, experienceID, slotID)
	if err != nil {
		t.Fatal(err)
	}
	if slot.SeatsAvailable != 10 {
		t.Errorf("expected seats clamped at 10, got %d", slot.SeatsAvailable)
	}
}
