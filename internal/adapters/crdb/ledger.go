package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/escapehq/escape/internal/domain"
	"github.com/escapehq/escape/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	SerializationFailureCode = "40001"
)

// Ledger is the durable booking ledger on CockroachDB. It satisfies
// ledger.Ledger and adds WithTx for callers that need to combine booking
// writes with outbox inserts.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

func (l *Ledger) Append(ctx context.Context, booking domain.Booking) error {
	err := l.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO bookings (id, experience_id, slot_id, user_id, status, participants, total_amount, order_ref, payment_ref, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, '', '', $8, $9)
		`, booking.ID, booking.ExperienceID, booking.SlotID, booking.UserID, booking.Status,
			booking.Participants, booking.TotalAmount, booking.CreatedAt, booking.ExpiresAt)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (l *Ledger) FindByID(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := l.pool.QueryRow(ctx, `
		SELECT id, experience_id, slot_id, user_id, status, participants, total_amount, order_ref, payment_ref, created_at, expires_at
		FROM bookings WHERE id = $1
	`, id).Scan(&b.ID, &b.ExperienceID, &b.SlotID, &b.UserID, &b.Status, &b.Participants,
		&b.TotalAmount, &b.OrderRef, &b.PaymentRef, &b.CreatedAt, &b.ExpiresAt)
	if err == pgx.ErrNoRows {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	if err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (l *Ledger) SetOrderRef(ctx context.Context, id uuid.UUID, orderRef string) error {
	result, err := l.pool.Exec(ctx, `
		UPDATE bookings SET order_ref = $2 WHERE id = $1
	`, id, orderRef)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (l *Ledger) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus, paymentRef string) (domain.Booking, error) {
	var b domain.Booking
	err := l.WithTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			UPDATE bookings SET status = $2, payment_ref = $3
			WHERE id = $1 AND status = 'tentative'
			RETURNING id, experience_id, slot_id, user_id, status, participants, total_amount, order_ref, payment_ref, created_at, expires_at
		`, id, status, paymentRef).Scan(&b.ID, &b.ExperienceID, &b.SlotID, &b.UserID, &b.Status,
			&b.Participants, &b.TotalAmount, &b.OrderRef, &b.PaymentRef, &b.CreatedAt, &b.ExpiresAt)
	})
	if err == pgx.ErrNoRows {
		// no tentative row: either missing or already transitioned
		var existing string
		lookupErr := l.pool.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&existing)
		if lookupErr == pgx.ErrNoRows {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		if lookupErr != nil {
			return domain.Booking{}, lookupErr
		}
		return domain.Booking{}, domain.ErrConflict
	}
	if err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (l *Ledger) FilterByUser(ctx context.Context, userID uuid.UUID, status domain.BookingStatus) ([]domain.Booking, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, experience_id, slot_id, user_id, status, participants, total_amount, order_ref, payment_ref, created_at, expires_at
		FROM bookings WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC
	`, userID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookings(rows)
}

func (l *Ledger) ExpiredTentative(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, experience_id, slot_id, user_id, status, participants, total_amount, order_ref, payment_ref, created_at, expires_at
		FROM bookings WHERE status = 'tentative' AND expires_at <= $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookings(rows)
}

func scanBookings(rows pgx.Rows) ([]domain.Booking, error) {
	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.ExperienceID, &b.SlotID, &b.UserID, &b.Status, &b.Participants,
			&b.TotalAmount, &b.OrderRef, &b.PaymentRef, &b.CreatedAt, &b.ExpiresAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
