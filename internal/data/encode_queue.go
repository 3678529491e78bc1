package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rajapam/broker/internal/core"
)

const (
	encodeQueueKey    = "broker:encode:queue"
	encodeClaimPrefix = "broker:encode:done:"

	// encodeClaimTTL keeps claim markers long enough that any plausible
	// redelivery window has passed.
	encodeClaimTTL = 24 * time.Hour
)

// popDueScript atomically removes and returns every member due at the given
// score. Popping and removing in one script keeps two consumers from taking
// the same task.
var popDueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, member in ipairs(due) do
	redis.call('ZREM', KEYS[1], member)
end
return due
`)

// RedisEncodeQueue is the delayed encode task queue, backed by a Redis sorted
// set scored by due time. Delivery is at-least-once; consumers deduplicate
// through TryClaim.
type RedisEncodeQueue struct {
	client  redis.UniversalClient
	markers *RedisCacheRepo
}

// NewRedisEncodeQueue creates a new RedisEncodeQueue with the given Redis client.
func NewRedisEncodeQueue(client redis.UniversalClient) *RedisEncodeQueue {
	return &RedisEncodeQueue{
		client:  client,
		markers: NewRedisCacheRepo(client),
	}
}

// Schedule enqueues the task to become due at runAt. Re-scheduling an already
// queued task keeps the earliest due time (ZADD LT).
func (q *RedisEncodeQueue) Schedule(ctx context.Context, task core.EncodeTask, runAt time.Time) error {
	member, err := encodeMember(task)
	if err != nil {
		return err
	}

	return q.client.ZAddArgs(ctx, encodeQueueKey, redis.ZAddArgs{
		LT: true,
		Members: []redis.Z{{
			Score:  float64(runAt.UnixMilli()),
			Member: member,
		}},
	}).Err()
}

// PopDue atomically removes and returns up to limit tasks due at now.
func (q *RedisEncodeQueue) PopDue(ctx context.Context, now time.Time, limit int) ([]core.EncodeTask, error) {
	if limit <= 0 {
		limit = 100
	}

	raw, err := popDueScript.Run(ctx, q.client,
		[]string{encodeQueueKey},
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.Itoa(limit),
	).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop due encode tasks: %w", err)
	}

	tasks := make([]core.EncodeTask, 0, len(raw))
	for _, member := range raw {
		var task core.EncodeTask
		if err := json.Unmarshal([]byte(member), &task); err != nil {
			// A malformed member can never be decoded; dropping it beats
			// popping it forever.
			continue
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// TryClaim sets the processed marker for the task. Returns false when the
// task was already claimed, making redelivery a no-op for consumers.
func (q *RedisEncodeQueue) TryClaim(ctx context.Context, task core.EncodeTask) (bool, error) {
	if task.SessionID == "" {
		return false, errors.New("session id is required")
	}

	key := encodeClaimPrefix + task.SessionID + ":" + string(task.Kind)
	return q.markers.SetIfNotExists(ctx, key, []byte("1"), encodeClaimTTL)
}

func encodeMember(task core.EncodeTask) (string, error) {
	if task.SessionID == "" {
		return "", errors.New("session id is required")
	}
	if task.Kind == "" {
		return "", errors.New("encode kind is required")
	}

	member, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("encode task member: %w", err)
	}
	return string(member), nil
}
