package honeypot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultArchiveTTL = 7 * 24 * time.Hour
	archiveIndexKey   = "honeypot:reports"
)

// RedisReportArchive stores delivered terminal reports in Redis so operators
// can inspect them after the fact. Live session state never goes to Redis.
type RedisReportArchive struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisReportArchive creates an archive. A non-positive ttl uses seven days.
func NewRedisReportArchive(client *redis.Client, ttl time.Duration) *RedisReportArchive {
	if client == nil {
		panic("honeypot: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultArchiveTTL
	}
	return &RedisReportArchive{redis: client, ttl: ttl}
}

// Archive writes the report under its session key and appends the id to the index.
func (a *RedisReportArchive) Archive(ctx context.Context, payload CallbackPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("honeypot: failed to marshal report: %w", err)
	}
	pipe := a.redis.TxPipeline()
	pipe.Set(ctx, reportKey(payload.SessionID), data, a.ttl)
	pipe.RPush(ctx, archiveIndexKey, payload.SessionID)
	pipe.Expire(ctx, archiveIndexKey, a.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("honeypot: failed to archive report: %w", err)
	}
	return nil
}

// Load returns the archived report for sessionID.
func (a *RedisReportArchive) Load(ctx context.Context, sessionID string) (*CallbackPayload, error) {
	data, err := a.redis.Get(ctx, reportKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("honeypot: no archived report for session %s", sessionID)
		}
		return nil, fmt.Errorf("honeypot: failed to load report: %w", err)
	}
	var payload CallbackPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("honeypot: failed to decode report: %w", err)
	}
	return &payload, nil
}

// SessionIDs lists archived session ids in delivery order.
func (a *RedisReportArchive) SessionIDs(ctx context.Context) ([]string, error) {
	ids, err := a.redis.LRange(ctx, archiveIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("honeypot: failed to list reports: %w", err)
	}
	return ids, nil
}

func reportKey(sessionID string) string {
	return fmt.Sprintf("honeypot:report:%s", sessionID)
}

var _ ReportArchive = (*RedisReportArchive)(nil)
