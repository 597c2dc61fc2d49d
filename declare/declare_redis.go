package declare

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIndex shares declarations between processes of the same agent. Keys
// expire; forgetting a declaration only risks duplicate examination, never
// duplicate remediation by this agent.
type RedisIndex struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ Index = (*RedisIndex)(nil)

func NewRedisIndex(redisURL string, ttl time.Duration) (*RedisIndex, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}
	return &RedisIndex{rdb: rdb, ttl: ttl}, nil
}

func redisDeclareKey(groupID int64) string {
	return fmt.Sprintf("declare/%d", groupID)
}

func (i *RedisIndex) IsDeclared(ctx context.Context, groupID, messageID int64) (bool, error) {
	return i.rdb.SIsMember(ctx, redisDeclareKey(groupID), messageID).Result()
}

func (i *RedisIndex) Declare(ctx context.Context, groupID, messageID int64) error {
	key := redisDeclareKey(groupID)
	if err := i.rdb.SAdd(ctx, key, messageID).Err(); err != nil {
		return err
	}
	return i.rdb.Expire(ctx, key, i.ttl).Err()
}

func (i *RedisIndex) PurgeGroup(ctx context.Context, groupID int64) error {
	return i.rdb.Del(ctx, redisDeclareKey(groupID)).Err()
}
