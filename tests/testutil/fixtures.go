package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cashflow/internal/infrastructure/postgres"
	"github.com/iho/cashflow/internal/infrastructure/postgres/generated"
)

// TestDB provides isolated test database connections.
type TestDB struct {
	URL     string
	Pool    *pgxpool.Pool
	Queries *generated.Queries
	t       *testing.T
}

// NewTestDB connects to DATABASE_URL and applies migrations. The test is
// skipped in -short mode or when DATABASE_URL is unset.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	if err := postgres.RunMigrations(dbURL, MigrationsPath(), zerolog.Nop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	db := &TestDB{
		URL:     dbURL,
		Pool:    pool,
		Queries: generated.New(pool),
		t:       t,
	}
	t.Cleanup(db.Cleanup)

	return db
}

// MigrationsPath finds the migrations directory from the repo root or a
// package directory below it.
func MigrationsPath() string {
	for _, p := range []string{
		"internal/infrastructure/postgres/migrations",
		"../../internal/infrastructure/postgres/migrations",
		"../../../internal/infrastructure/postgres/migrations",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "internal/infrastructure/postgres/migrations"
}

// Cleanup closes the database connection.
func (db *TestDB) Cleanup() {
	db.Pool.Close()
}

// TruncateAll removes all data from tables.
func (db *TestDB) TruncateAll(ctx context.Context) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		TRUNCATE TABLE transactions;
		TRUNCATE TABLE daily_balances;
	`)
	if err != nil {
		db.t.Fatalf("failed to truncate tables: %v", err)
	}
}

// InsertDailyBalance seeds a consolidated day.
func (db *TestDB) InsertDailyBalance(ctx context.Context, day time.Time, credit, debit decimal.Decimal) {
	db.t.Helper()

	err := db.Queries.InsertDailyBalance(ctx, generated.InsertDailyBalanceParams{
		Date:        pgtype.Date{Time: day, Valid: true},
		TotalCredit: numeric(credit),
		TotalDebit:  numeric(debit),
		Balance:     numeric(credit.Sub(debit)),
		UpdatedAt:   pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true},
	})
	if err != nil {
		db.t.Fatalf("failed to insert daily balance: %v", err)
	}
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}

// NewRedis returns a client for REDIS_URL, or an in-memory server when unset.
func NewRedis(t *testing.T) *redis.Client {
	t.Helper()

	var opts *redis.Options
	if url := os.Getenv("REDIS_URL"); url != "" {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			t.Fatalf("invalid REDIS_URL: %v", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: miniredis.RunT(t).Addr()}
	}

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

// RabbitMQURL returns RABBITMQ_URL or skips the test.
func RabbitMQURL(t *testing.T) string {
	t.Helper()

	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		t.Skip("RABBITMQ_URL not set")
	}
	return url
}
