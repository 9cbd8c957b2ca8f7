package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"timelessmusic/entity"
)

const gigColumns = `gig_id, band_name, city, year, date, venue, collection_point_map,
	collection_point, collection_time, original_date, capacity, description, image, price`

type GigsPostgresRepository struct {
	db *sqlx.DB
}

func NewGigsPostgresRepository(db *sqlx.DB) GigsPostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return GigsPostgresRepository{db: db}
}

// Store ignores gigs that already exist, so seeding can be repeated.
func (r GigsPostgresRepository) Store(ctx context.Context, gig entity.Gig) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO gigs (`+gigColumns+`)
		VALUES (:gig_id, :band_name, :city, :year, :date, :venue, :collection_point_map,
			:collection_point, :collection_time, :original_date, :capacity, :description, :image, :price)
		ON CONFLICT DO NOTHING
	`, gig)
	if err != nil {
		return fmt.Errorf("could not store gig %s: %w", gig.ID, err)
	}

	return nil
}

func (r GigsPostgresRepository) FindAll(ctx context.Context) ([]entity.Gig, error) {
	gigs := []entity.Gig{}
	err := r.db.SelectContext(ctx, &gigs, `
		SELECT `+gigColumns+`
		FROM gigs
		ORDER BY date ASC, gig_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("could not find gigs: %w", err)
	}

	return gigs, nil
}

func (r GigsPostgresRepository) Get(ctx context.Context, gigID string) (entity.Gig, error) {
	var gig entity.Gig
	err := r.db.GetContext(ctx, &gig, `
		SELECT `+gigColumns+`
		FROM gigs
		WHERE gig_id = $1
	`, gigID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Gig{}, fmt.Errorf("gig %s: %w", gigID, entity.ErrNotFound)
	}
	if err != nil {
		return entity.Gig{}, fmt.Errorf("could not get gig %s: %w", gigID, err)
	}

	return gig, nil
}
