// Package dedup guards the pipeline against processing the same document text
// twice, e.g. when a text_extracted event is redelivered.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "legalintel:extracted:"

// Config configures the Redis connection backing the guard.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Guard records (document, content) pairs in Redis for TTL.
type Guard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGuard connects to Redis and verifies connectivity.
func NewGuard(ctx context.Context, cfg Config) (*Guard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Guard{client: client, ttl: ttl}, nil
}

// Claim marks text as being processed for documentID. It returns false when
// the same pair was already claimed within the TTL.
func (g *Guard) Claim(ctx context.Context, documentID, text string) (bool, error) {
	ok, err := g.client.SetNX(ctx, Key(documentID, text), time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", documentID, err)
	}
	return ok, nil
}

// Release drops a claim so a failed document can be retried.
func (g *Guard) Release(ctx context.Context, documentID, text string) error {
	if err := g.client.Del(ctx, Key(documentID, text)).Err(); err != nil {
		return fmt.Errorf("release %s: %w", documentID, err)
	}
	return nil
}

func (g *Guard) Close() error {
	return g.client.Close()
}

// Key is the Redis key for a document and its text.
func Key(documentID, text string) string {
	return keyPrefix + documentID + ":" + ContentHash(text)
}

// ContentHash is the SHA-256 of text with case and whitespace normalized.
func ContentHash(text string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	h := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(h[:])
}
