// Package cache memoizes oracle verdicts in Redis. Oracle answers are
// deterministic for a model and a row, so repeated evaluations of the same
// records skip the network entirely.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ercarpio/SG-CNN/itbn"
)

const keyPrefix = "itbn:verdict:"

// Options configures the Redis connection.
type Options struct {
	// URL is the Redis connection string, e.g. "redis://localhost:6379/0".
	URL            string
	TTL            time.Duration
	ConnectTimeout time.Duration
}

// VerdictCache is an itbn.Oracle that answers from Redis when it can and
// falls through to the wrapped oracle otherwise.
type VerdictCache struct {
	client *redis.Client
	next   itbn.Oracle
	digest string
	ttl    time.Duration
	log    logrus.FieldLogger

	hits, misses int
}

// New connects to Redis and wraps next. Keys are scoped to the model digest.
func New(opts Options, next itbn.Oracle, m *itbn.Model, log logrus.FieldLogger) (*VerdictCache, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &VerdictCache{
		client: client,
		next:   next,
		digest: m.Digest(),
		ttl:    opts.TTL,
		log:    log,
	}, nil
}

func (c *VerdictCache) key(row itbn.Row) string {
	return keyPrefix + c.digest + ":" + row.Key()
}

// Query returns the cached predictions for row, asking the wrapped oracle on
// a miss. Redis failures degrade to uncached queries.
func (c *VerdictCache) Query(ctx context.Context, row itbn.Row) (itbn.Predictions, error) {
	key := c.key(row)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var preds itbn.Predictions
		if err := json.Unmarshal(data, &preds); err == nil {
			c.hits++
			return preds, nil
		}
		c.log.WithField("key", key).Warn("dropping unreadable cached verdict")
	case !errors.Is(err, redis.Nil):
		c.log.WithError(err).Warn("verdict cache read failed")
	}

	c.misses++
	preds, err := c.next.Query(ctx, row)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(preds)
	if err != nil {
		return nil, fmt.Errorf("marshal verdict: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("verdict cache write failed")
	}
	return preds, nil
}

// Stats reports cache hits and misses since creation.
func (c *VerdictCache) Stats() (hits, misses int) { return c.hits, c.misses }

// Close closes the Redis connection.
func (c *VerdictCache) Close() error { return c.client.Close() }
