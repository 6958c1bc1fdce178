package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// CachedLinkTargetReader is a Redis cache-aside wrapper for the redirect lookup.
// Redis errors fall through to the underlying reader; a nil client disables caching.
type CachedLinkTargetReader struct {
	next   LinkTargetReader
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCachedLinkTargetReader(next LinkTargetReader, client *redis.Client, prefix string, ttl time.Duration) *CachedLinkTargetReader {
	return &CachedLinkTargetReader{next: next, client: client, prefix: prefix, ttl: ttl}
}

func (c *CachedLinkTargetReader) key(code string) string {
	return c.prefix + "link:" + code
}

func (c *CachedLinkTargetReader) TargetByShortCode(ctx context.Context, code string) (*models.LinkTarget, error) {
	if c.client == nil {
		return c.next.TargetByShortCode(ctx, code)
	}

	raw, err := c.client.Get(ctx, c.key(code)).Bytes()
	switch {
	case err == nil:
		var target models.LinkTarget
		if jerr := json.Unmarshal(raw, &target); jerr == nil {
			return &target, nil
		}
		logrus.WithField("short_code", code).Warn("discarding undecodable cached link")
	case !errors.Is(err, redis.Nil):
		logrus.WithError(err).WithField("short_code", code).Warn("link cache read failed")
	}

	target, err := c.next.TargetByShortCode(ctx, code)
	if err != nil || target == nil {
		return target, err
	}

	if payload, jerr := json.Marshal(target); jerr == nil {
		if serr := c.client.Set(ctx, c.key(code), payload, c.ttl).Err(); serr != nil {
			logrus.WithError(serr).WithField("short_code", code).Warn("link cache write failed")
		}
	}
	return target, nil
}

// Invalidate drops the cached entry for code.
func (c *CachedLinkTargetReader) Invalidate(ctx context.Context, code string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key(code)).Err()
}
