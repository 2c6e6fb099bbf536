package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one connection: keeps :memory: databases alive and serialises writers
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, logger: logger}
	if err := db.createTables(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := db.ensureColumn("bookings", "version", "INTEGER NOT NULL DEFAULT 1"); err != nil {
		sqlDB.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return db, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            company_name TEXT NOT NULL DEFAULT '',
            user_type TEXT NOT NULL DEFAULT 'BOTH',
            telegram_chat_id INTEGER NOT NULL DEFAULT 0,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS spaces (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            description TEXT NOT NULL,
            image_src TEXT NOT NULL,
            images TEXT NOT NULL DEFAULT '[]',
            space_type TEXT NOT NULL,
            category TEXT NOT NULL,
            capacity INTEGER NOT NULL,
            min_capacity INTEGER NOT NULL DEFAULT 1,
            location_value TEXT NOT NULL,
            address TEXT NOT NULL,
            city TEXT NOT NULL,
            state TEXT NOT NULL DEFAULT '',
            postal_code TEXT NOT NULL DEFAULT '',
            country TEXT NOT NULL,
            latitude REAL,
            longitude REAL,
            square_footage INTEGER,
            ceiling_height REAL,
            amenities TEXT NOT NULL DEFAULT '[]',
            equipment TEXT NOT NULL DEFAULT '[]',
            instant_booking BOOLEAN NOT NULL DEFAULT 0,
            requires_approval BOOLEAN NOT NULL DEFAULT 0,
            min_booking_hours INTEGER NOT NULL DEFAULT 1,
            max_booking_hours INTEGER NOT NULL DEFAULT 0,
            cancellation_policy TEXT NOT NULL DEFAULT 'MODERATE',
            rules TEXT NOT NULL DEFAULT '[]',
            is_active BOOLEAN NOT NULL DEFAULT 1,
            verified BOOLEAN NOT NULL DEFAULT 0,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS pricing_tiers (
            id TEXT PRIMARY KEY,
            space_id TEXT NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
            position INTEGER NOT NULL DEFAULT 0,
            pricing_type TEXT NOT NULL,
            price REAL NOT NULL,
            currency TEXT NOT NULL DEFAULT 'USD',
            is_peak_price BOOLEAN NOT NULL DEFAULT 0,
            peak_days TEXT NOT NULL DEFAULT '[]',
            peak_hours TEXT NOT NULL DEFAULT '',
            cleaning_fee REAL NOT NULL DEFAULT 0,
            service_fee REAL NOT NULL DEFAULT 0,
            overtime_fee REAL NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS business_hours (
            id TEXT PRIMARY KEY,
            space_id TEXT NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
            day_of_week TEXT NOT NULL,
            open_time TEXT NOT NULL,
            close_time TEXT NOT NULL,
            is_closed BOOLEAN NOT NULL DEFAULT 0,
            UNIQUE(space_id, day_of_week)
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            space_id TEXT NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
            start_date_time TEXT NOT NULL,
            end_date_time TEXT NOT NULL,
            total_hours REAL NOT NULL,
            attendee_count INTEGER NOT NULL,
            event_type TEXT NOT NULL DEFAULT '',
            company_name TEXT NOT NULL DEFAULT '',
            special_requests TEXT NOT NULL DEFAULT '',
            hourly_rate REAL NOT NULL DEFAULT 0,
            total_price REAL NOT NULL,
            pricing_type TEXT NOT NULL DEFAULT 'HOURLY',
            addons TEXT NOT NULL DEFAULT '[]',
            status TEXT NOT NULL DEFAULT 'PENDING',
            payment_status TEXT NOT NULL DEFAULT 'PENDING',
            rejection_reason TEXT NOT NULL DEFAULT '',
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS invoices (
            id TEXT PRIMARY KEY,
            invoice_number TEXT NOT NULL UNIQUE,
            booking_id TEXT NOT NULL UNIQUE REFERENCES bookings(id) ON DELETE CASCADE,
            billing_name TEXT NOT NULL,
            billing_email TEXT NOT NULL,
            subtotal REAL NOT NULL,
            taxes REAL NOT NULL,
            total REAL NOT NULL,
            issued_at TEXT NOT NULL,
            due_date TEXT NOT NULL,
            paid_at TEXT,
            status TEXT NOT NULL DEFAULT 'DRAFT',
            tax_id TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS reviews (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            space_id TEXT NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
            booking_id TEXT NOT NULL UNIQUE REFERENCES bookings(id) ON DELETE CASCADE,
            rating INTEGER NOT NULL,
            cleanliness_rating INTEGER,
            amenities_rating INTEGER,
            location_rating INTEGER,
            value_rating INTEGER,
            comment TEXT NOT NULL DEFAULT '',
            created_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS favorites (
            user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            space_id TEXT NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
            created_at TEXT NOT NULL,
            PRIMARY KEY (user_id, space_id)
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            booking_id TEXT NOT NULL,
            payload TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at TEXT NOT NULL,
            processed_at TEXT,
            next_retry_at TEXT
        )`,

		`CREATE INDEX IF NOT EXISTS idx_users_telegram_chat_id ON users(telegram_chat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_spaces_user_id ON spaces(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_spaces_active_created ON spaces(is_active, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_pricing_tiers_space_id ON pricing_tiers(space_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_space_window ON bookings(space_id, start_date_time, end_date_time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_status_due ON invoices(status, due_date)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_space_id ON reviews(space_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, next_retry_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// ensureColumn adds a column to an existing table, ignoring "duplicate column".
func (db *DB) ensureColumn(table, column, definition string) error {
	_, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
		return fmt.Errorf("failed to add %s.%s: %w", table, column, err)
	}
	return nil
}

// withTx runs fn inside a transaction, committing when fn returns nil.
// Queries inside fn must go through tx: the pool holds a single connection.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeList(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeList(s string) []string {
	out := []string{}
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
