package config

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/sirupsen/logrus"
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create users table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			full_name VARCHAR(255) NOT NULL,
			password_hash CHAR(16) NOT NULL,
			balance NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			photo_key VARCHAR(512),
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create artworks table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS artworks (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			original_owner_id BIGINT NOT NULL REFERENCES users(id),
			current_owner_id BIGINT NOT NULL REFERENCES users(id),
			acquisition_type VARCHAR(10) NOT NULL DEFAULT 'uploaded'
				CHECK (acquisition_type IN ('uploaded', 'purchased')),
			image_key VARCHAR(512) UNIQUE NOT NULL,
			price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
			is_available BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create notifications table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type VARCHAR(20) NOT NULL,
			title VARCHAR(255) NOT NULL,
			body TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_artworks_available ON artworks(is_available) WHERE is_available",
		"CREATE INDEX IF NOT EXISTS idx_artworks_current_owner ON artworks(current_owner_id)",
		"CREATE INDEX IF NOT EXISTS idx_artworks_original_owner ON artworks(original_owner_id)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC)",
	}

	for _, idx := range indexes {
		if _, err = db.Exec(idx); err != nil {
			logrus.Warnf("Failed to create index: %v", err)
			// Indexes are not critical, keep going
		}
	}

	return nil
}
