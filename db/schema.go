package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

func InitializeDatabaseSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS gigs (
			gig_id VARCHAR(255) PRIMARY KEY,
			band_name VARCHAR(255) NOT NULL,
			city VARCHAR(255) NOT NULL,
			year VARCHAR(16) NOT NULL,
			date VARCHAR(64) NOT NULL,
			venue VARCHAR(255) NOT NULL,
			collection_point_map TEXT NOT NULL,
			collection_point TEXT NOT NULL,
			collection_time VARCHAR(64) NOT NULL,
			original_date VARCHAR(64) NOT NULL,
			capacity INTEGER NOT NULL,
			description TEXT NOT NULL,
			image TEXT NOT NULL,
			price VARCHAR(32) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS events (
			event_id VARCHAR(255) PRIMARY KEY,
			published_at TIMESTAMP NOT NULL,
			event_name VARCHAR(255) NOT NULL,
			event_payload BYTEA NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("could not initialize database schema: %w", err)
	}

	return nil
}
