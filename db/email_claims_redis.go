package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const emailClaimKeyPrefix = "ticket-email:"

// RedisEmailClaims remembers which tickets were already e-mailed.
type RedisEmailClaims struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisEmailClaims(rdb *redis.Client, ttl time.Duration) RedisEmailClaims {
	if rdb == nil {
		panic("redis client is nil")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return RedisEmailClaims{rdb: rdb, ttl: ttl}
}

func EmailClaimKey(ticketID string) string {
	return emailClaimKeyPrefix + ticketID
}

func (c RedisEmailClaims) Claim(ctx context.Context, ticketID string) (bool, error) {
	claimed, err := c.rdb.SetNX(ctx, EmailClaimKey(ticketID), time.Now().UTC().Format(time.RFC3339), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("could not claim email for ticket %s: %w", ticketID, err)
	}

	return claimed, nil
}

func (c RedisEmailClaims) Release(ctx context.Context, ticketID string) error {
	if err := c.rdb.Del(ctx, EmailClaimKey(ticketID)).Err(); err != nil {
		return fmt.Errorf("could not release email claim for ticket %s: %w", ticketID, err)
	}

	return nil
}
