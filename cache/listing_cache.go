package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	keyPrefix   = "property:"
	scanPattern = keyPrefix + "*"
	scanCount   = 100
)

// ListingCache stores rendered public listing pages in redis. A nil client
// turns every operation into a no-op.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

func NewListingCache(client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *ListingCache {
	return &ListingCache{client: client, ttl: ttl, log: log.WithField("component", "listing_cache")}
}

// Key derives a stable key from a namespace and query parameters; the
// order of parameters and of repeated values does not matter.
func Key(namespace string, queryParams url.Values) string {
	keys := make([]string, 0, len(queryParams))
	for k := range queryParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(namespace)
	sb.WriteString(":")

	for _, key := range keys {
		values := append([]string(nil), queryParams[key]...)
		sort.Strings(values)
		for _, val := range values {
			sb.WriteString(key)
			sb.WriteString("=")
			sb.WriteString(val)
			sb.WriteString("&")
		}
	}
	rawKey := strings.TrimSuffix(sb.String(), "&")

	sum := sha256.Sum256([]byte(rawKey))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *ListingCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		c.log.WithField("key", key).Debug("Cache hit")
		return data, true
	}
	if !errors.Is(err, redis.Nil) {
		c.log.WithError(err).WithField("key", key).Warn("Redis GET failed")
	}
	return nil, false
}

func (c *ListingCache) Set(ctx context.Context, key string, data []byte) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Failed to cache response")
	}
}

// Invalidate deletes every cached listing page.
func (c *ListingCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var keysToDelete []string
	var cursor uint64
	for {
		var currentKeys []string
		var err error
		currentKeys, cursor, err = c.client.Scan(ctx, cursor, scanPattern, scanCount).Result()
		if err != nil {
			c.log.WithError(err).WithField("pattern", scanPattern).Error("Redis SCAN failed")
			return
		}
		keysToDelete = append(keysToDelete, currentKeys...)
		if cursor == 0 {
			break
		}
	}
	if len(keysToDelete) == 0 {
		return
	}

	pipe := c.client.Pipeline()
	for _, key := range keysToDelete {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.WithError(err).WithField("keys", len(keysToDelete)).Error("Failed to delete cached listings")
		return
	}
	c.log.WithField("keys", len(keysToDelete)).Debug("Listing cache invalidated")
}
