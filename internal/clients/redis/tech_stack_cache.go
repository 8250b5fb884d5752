package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/envutil"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

// TechStackCache is a read-through cache for the latest tech stack
// suggestion per backlog. The cache is optional: NewTechStackCache
// returns nil without error when REDIS_ADDR is unset.
type TechStackCache interface {
	Get(ctx context.Context, backlogID, userID uuid.UUID) (*types.TechStackSuggestion, error)
	Set(ctx context.Context, suggestion *types.TechStackSuggestion) error
	Invalidate(ctx context.Context, backlogID, userID uuid.UUID) error
	Close() error
}

type techStackCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewTechStackCache connects to REDIS_ADDR. Returns (nil, nil) when the
// address is unset so deployments without redis keep working.
func NewTechStackCache(log *logger.Logger) (TechStackCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		log.Info("REDIS_ADDR unset, tech stack cache disabled")
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := time.Duration(envutil.Int("REDIS_TECH_STACK_TTL_SECONDS", 3600)) * time.Second

	return &techStackCache{
		log: log.With("service", "TechStackCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func cacheKey(backlogID, userID uuid.UUID) string {
	return fmt.Sprintf("techstack:%s:%s", userID, backlogID)
}

func (c *techStackCache) Get(ctx context.Context, backlogID, userID uuid.UUID) (*types.TechStackSuggestion, error) {
	if c == nil {
		return nil, nil
	}
	raw, err := c.rdb.Get(ctx, cacheKey(backlogID, userID)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var s types.TechStackSuggestion
	if err := json.Unmarshal(raw, &s); err != nil {
		// Stale or corrupt entry. Drop it and fall through to the DB.
		_ = c.rdb.Del(ctx, cacheKey(backlogID, userID)).Err()
		return nil, nil
	}
	return &s, nil
}

func (c *techStackCache) Set(ctx context.Context, suggestion *types.TechStackSuggestion) error {
	if c == nil || suggestion == nil {
		return nil
	}
	raw, err := json.Marshal(suggestion)
	if err != nil {
		return fmt.Errorf("marshal suggestion: %w", err)
	}
	key := cacheKey(suggestion.BacklogID, suggestion.UserID)
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *techStackCache) Invalidate(ctx context.Context, backlogID, userID uuid.UUID) error {
	if c == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, cacheKey(backlogID, userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *techStackCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
