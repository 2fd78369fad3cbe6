package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// QueryCache stores JSON query results in redis under <prefix>:<resource>:<hash>.
type QueryCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewQueryCache(client *redis.Client, prefix string, ttl time.Duration) *QueryCache {
	return &QueryCache{client: client, prefix: prefix, ttl: ttl}
}

// Key hashes params in sorted order so equal queries share a key.
func (q *QueryCache) Key(resource string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("resource=" + resource)
	for _, k := range keys {
		fmt.Fprintf(&b, "&%s=%s", k, params[k])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s:%s:%s", q.prefix, resource, hex.EncodeToString(sum[:]))
}

// Get decodes a cached value into dst and reports whether it was found.
func (q *QueryCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := q.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (q *QueryCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return q.client.Set(ctx, key, raw, q.ttl).Err()
}

// Invalidate drops every cached result of resource.
func (q *QueryCache) Invalidate(ctx context.Context, resource string) error {
	pattern := fmt.Sprintf("%s:%s:*", q.prefix, resource)
	iter := q.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := q.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("error during SCAN iteration: %w", err)
	}
	return nil
}
