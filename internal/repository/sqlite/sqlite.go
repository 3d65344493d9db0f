// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// SQLite is embedded — a single file, no separate server — which fits a
// single-binary deployment and makes tests trivial (":memory:"). The
// modernc.org/sqlite driver is a pure Go translation of SQLite, so no CGo
// and no C toolchain is needed to build or cross-compile.
//
// The store-level invariant the auth flows rely on lives here: email
// uniqueness is enforced only among verified accounts, via a partial unique
// index. Unverified shadow rows never collide with anything.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	// Blank import registers the driver with database/sql under the name
	// "sqlite".
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository
// interfaces. The server owns it and closes it on shutdown.
type DB struct {
	conn *sql.DB
}

// New creates a SQLite connection pool and runs migrations.
//
// dbPath examples:
//   - "data/riskinn.db" — file-based, persistent
//   - ":memory:"        — in-memory, for tests
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time, and every ":memory:" connection
	// is its own database. A single pooled connection avoids both problems.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in flight — important
	// for a web server where requests hit the DB concurrently.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates all tables and indexes. CREATE ... IF NOT EXISTS keeps it
// idempotent, so it is safe on every boot.
func (db *DB) migrate() error {
	// Accounts. Secret pairs (otp_*, reset_token_*) are nullable column
	// pairs: both set or both NULL, written only through Update.
	//
	// The partial unique index is the uniqueness rule for verified emails:
	// one verified row per email, unverified shadow rows unconstrained.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                     TEXT PRIMARY KEY,
			name                   TEXT NOT NULL,
			email                  TEXT NOT NULL,
			password_hash          TEXT NOT NULL DEFAULT '',
			avatar_url             TEXT NOT NULL DEFAULT '',
			role                   TEXT NOT NULL DEFAULT 'student',
			provider               TEXT NOT NULL DEFAULT 'local',
			google_id              TEXT,
			is_verified            INTEGER NOT NULL DEFAULT 0,
			otp_code               TEXT,
			otp_expires_at         DATETIME,
			reset_token_hash       TEXT,
			reset_token_expires_at DATETIME,
			password_changed_at    DATETIME,
			last_login             DATETIME,
			profile                TEXT NOT NULL DEFAULT '{}',
			send_offers            INTEGER NOT NULL DEFAULT 0,
			created_at             DATETIME NOT NULL,
			updated_at             DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_verified
			ON users(email) WHERE is_verified = 1;
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_google_id
			ON users(google_id) WHERE google_id IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_users_reset_token
			ON users(reset_token_hash) WHERE reset_token_hash IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Catalog. List-valued fields are stored as JSON text — the catalog is
	// served as documents, never queried field-by-field below the filter
	// columns.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id                TEXT PRIMARY KEY,
			title             TEXT NOT NULL,
			slug              TEXT NOT NULL UNIQUE,
			product_type      TEXT NOT NULL,
			status            TEXT NOT NULL DEFAULT 'Draft',
			is_featured       INTEGER NOT NULL DEFAULT 0,
			short_description TEXT NOT NULL DEFAULT '',
			long_description  TEXT NOT NULL DEFAULT '',
			image_url         TEXT NOT NULL DEFAULT '',
			categories        TEXT NOT NULL DEFAULT '[]',
			tags              TEXT NOT NULL DEFAULT '[]',
			level             TEXT NOT NULL DEFAULT '',
			language          TEXT NOT NULL DEFAULT 'English',
			price_current     TEXT NOT NULL DEFAULT '',
			price_original    REAL NOT NULL DEFAULT 0,
			price_currency    TEXT NOT NULL DEFAULT 'INR',
			price_type        TEXT NOT NULL DEFAULT '',
			duration_text     TEXT NOT NULL DEFAULT '',
			learning_outcomes TEXT NOT NULL DEFAULT '[]',
			rating_average    REAL NOT NULL DEFAULT 0,
			rating_count      INTEGER NOT NULL DEFAULT 0,
			total_enrollments INTEGER NOT NULL DEFAULT 0,
			created_at        DATETIME NOT NULL,
			updated_at        DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_products_status ON products(status);
		CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating products table: %w", err)
	}

	// Lead capture. Course contact pages are stored whole as JSON
	// documents keyed by course id; nothing queries inside the payload.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS course_contacts (
			course_id  TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS course_inquiries (
			id             TEXT PRIMARY KEY,
			course_page_id TEXT NOT NULL,
			form_id        TEXT NOT NULL,
			submitted_data TEXT NOT NULL,
			user_id        TEXT NOT NULL DEFAULT '',
			submitted_at   DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_course_inquiries_page
			ON course_inquiries(course_page_id);
		CREATE TABLE IF NOT EXISTS contact_submissions (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			email        TEXT NOT NULL,
			phone        TEXT NOT NULL DEFAULT '',
			inquiry_type TEXT NOT NULL DEFAULT '',
			subject      TEXT NOT NULL DEFAULT '',
			message      TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'New',
			submitted_by TEXT NOT NULL DEFAULT '',
			created_at   DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_contact_submissions_status
			ON contact_submissions(status);
	`)
	if err != nil {
		return fmt.Errorf("creating lead tables: %w", err)
	}

	return nil
}

// marshalJSON encodes a value for a JSON text column. Failure here means a
// programming error (unencodable type), so it surfaces as a wrapped error.
func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding json column: %w", err)
	}
	return string(b), nil
}

func unmarshalJSON(data string, v any) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("sqlite: decoding json column: %w", err)
	}
	return nil
}
