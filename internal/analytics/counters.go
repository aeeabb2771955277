package analytics

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Counters is the aggregate store for delivery outcomes. Increments must be
// atomic: concurrent webhook callbacks for different messages of the same
// campaign must not lose updates.
type Counters interface {
	IncrDelivered(ctx context.Context, key string) error
	IncrFailed(ctx context.Context, key string) error
}

// Reader exposes the counters to dashboard reads.
type Reader interface {
	Get(ctx context.Context, key string) (delivered, failed int64, err error)
}

// RuleKey and CampaignKey build the aggregate keys a message folds into.
func RuleKey(ruleID int) string     { return fmt.Sprintf("rule:%d", ruleID) }
func CampaignKey(campaignID int) string { return fmt.Sprintf("campaign:%d", campaignID) }

// RedisCounters keeps per-rule/per-campaign delivered and failed counts in a
// redis hash. HINCRBY is a server-side atomic increment, so there is no
// read-modify-write window.
type RedisCounters struct {
	Client *redis.Client
}

func NewRedisCounters(client *redis.Client) *RedisCounters {
	return &RedisCounters{Client: client}
}

func (c *RedisCounters) IncrDelivered(ctx context.Context, key string) error {
	return c.Client.HIncrBy(ctx, "analytics:"+key, "delivered", 1).Err()
}

func (c *RedisCounters) IncrFailed(ctx context.Context, key string) error {
	return c.Client.HIncrBy(ctx, "analytics:"+key, "failed", 1).Err()
}

// Get returns the delivered/failed counts for a key (dashboard reads).
func (c *RedisCounters) Get(ctx context.Context, key string) (delivered, failed int64, err error) {
	vals, err := c.Client.HGetAll(ctx, "analytics:"+key).Result()
	if err != nil {
		return 0, 0, err
	}
	delivered = parseCount(vals["delivered"])
	failed = parseCount(vals["failed"])
	return delivered, failed, nil
}

func parseCount(s string) int64 {
	var n int64
	fmt.Sscanf(s, "%d", &n)
	return n
}

var _ Counters = (*RedisCounters)(nil)
var _ Reader = (*RedisCounters)(nil)
