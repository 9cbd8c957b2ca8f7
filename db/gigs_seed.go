package db

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"timelessmusic/entity"
)

type GigStore interface {
	Store(ctx context.Context, gig entity.Gig) error
}

// SeedGigs loads a JSON array of gigs and stores every one of them.
// Gigs that already exist are left untouched.
func SeedGigs(ctx context.Context, store GigStore, r io.Reader) (int, error) {
	var gigs []entity.Gig
	if err := json.NewDecoder(r).Decode(&gigs); err != nil {
		return 0, fmt.Errorf("could not decode gigs: %w", err)
	}

	for i, gig := range gigs {
		if gig.ID == "" {
			return i, fmt.Errorf("gig at position %d has no id", i)
		}
		if err := store.Store(ctx, gig); err != nil {
			return i, err
		}
	}

	return len(gigs), nil
}
