// Package cache provides a Redis-backed cache for the built knowledge
// hierarchy. Building the tree reads four tables; the snapshot is cached
// until any catalog or taxonomy mutation invalidates it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"beacon/api/internal/hierarchy"
)

const hierarchyKey = "beacon:hierarchy:v1"

// ErrMiss is returned when no cached snapshot exists.
var ErrMiss = errors.New("cache miss")

// Snapshot is the cached payload: the built tree plus its placement report.
type Snapshot struct {
	Nodes  []*hierarchy.Node `json:"nodes"`
	Report hierarchy.Report  `json:"report"`
}

// HierarchyCache stores hierarchy snapshots in Redis.
type HierarchyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(redisURL string, ttl time.Duration) (*HierarchyCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient creates a cache from an existing Redis client.
func NewWithClient(client *redis.Client, ttl time.Duration) *HierarchyCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &HierarchyCache{client: client, ttl: ttl}
}

// Get returns the cached snapshot or ErrMiss.
func (c *HierarchyCache) Get(ctx context.Context) (Snapshot, error) {
	jsonData, err := c.client.Get(ctx, hierarchyKey).Result()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrMiss
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get hierarchy snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(jsonData), &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal hierarchy snapshot: %w", err)
	}
	return snapshot, nil
}

// Put stores a snapshot with the configured TTL.
func (c *HierarchyCache) Put(ctx context.Context, snapshot Snapshot) error {
	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal hierarchy snapshot: %w", err)
	}
	if err := c.client.Set(ctx, hierarchyKey, jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("save hierarchy snapshot: %w", err)
	}
	return nil
}

// Invalidate drops the snapshot. Called after any catalog, subject, intent,
// or article mutation.
func (c *HierarchyCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, hierarchyKey).Err(); err != nil {
		return fmt.Errorf("invalidate hierarchy snapshot: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *HierarchyCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *HierarchyCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
