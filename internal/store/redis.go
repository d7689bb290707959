package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const redisKeyPrefix = "leadpipeline:activity:"

// RedisStore implements ClientActivityStore with one sorted set per client,
// scored by unix nanoseconds. It lets several server instances share one
// rate-limit table.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedis connects to the Redis server at addr and pings it.
func NewRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "redis: ping %s", addr)
	}
	return &RedisStore{rdb: rdb}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(clientID string) string {
	return redisKeyPrefix + clientID
}

func (s *RedisStore) Record(ctx context.Context, clientID string, ts time.Time) error {
	key := redisKey(clientID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, key, redis.Z{
			Score:  float64(ts.UnixNano()),
			Member: uuid.New().String(),
		})
		p.Expire(ctx, key, Retention)
		return nil
	})
	if err != nil {
		return eris.Wrapf(err, "redis: record activity %s", clientID)
	}
	return nil
}

func (s *RedisStore) CountSince(ctx context.Context, clientID string, since time.Time) (int, error) {
	n, err := s.rdb.ZCount(ctx, redisKey(clientID), "("+strconv.FormatInt(since.UnixNano(), 10), "+inf").Result()
	if err != nil {
		return 0, eris.Wrapf(err, "redis: count activity %s", clientID)
	}
	return int(n), nil
}

// admitScript counts each window and adds the member only when every
// count is below its limit. KEYS[1] is the client's set; ARGV holds the
// score, member and TTL seconds, then a (since, limit) pair per window.
// It returns the rejected window index (-1 when admitted) followed by the
// counts.
var admitScript = redis.NewScript(`
local counts = {}
local rejected = -1
for i = 4, #ARGV, 2 do
	local n = redis.call('ZCOUNT', KEYS[1], '(' .. ARGV[i], '+inf')
	counts[#counts + 1] = n
	local limit = tonumber(ARGV[i + 1])
	if rejected < 0 and limit > 0 and n >= limit then
		rejected = #counts - 1
	end
end
if rejected < 0 then
	redis.call('ZADD', KEYS[1], ARGV[1], ARGV[2])
	redis.call('EXPIRE', KEYS[1], tonumber(ARGV[3]))
end
table.insert(counts, 1, rejected)
return counts
`)

func (s *RedisStore) Admit(ctx context.Context, clientID string, ts time.Time, windows []Window) (Admission, error) {
	args := []any{
		strconv.FormatInt(ts.UnixNano(), 10),
		uuid.New().String(),
		int64(Retention.Seconds()),
	}
	for _, w := range windows {
		args = append(args, strconv.FormatInt(w.Since.UnixNano(), 10), w.Limit)
	}

	res, err := admitScript.Run(ctx, s.rdb, []string{redisKey(clientID)}, args...).Int64Slice()
	if err != nil {
		return Admission{}, eris.Wrapf(err, "redis: admit activity %s", clientID)
	}
	if len(res) != len(windows)+1 {
		return Admission{}, eris.Errorf("redis: admit returned %d values for %d windows", len(res), len(windows))
	}

	a := Admission{Rejected: int(res[0]), Counts: make([]int, len(windows))}
	for i, n := range res[1:] {
		a.Counts[i] = int(n)
	}
	return a, nil
}

func (s *RedisStore) Purge(ctx context.Context, before time.Time) (int, error) {
	maxScore := "(" + strconv.FormatInt(before.UnixNano(), 10)
	removed := 0
	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := s.rdb.ZRemRangeByScore(ctx, iter.Val(), "-inf", maxScore).Result()
		if err != nil {
			return removed, eris.Wrapf(err, "redis: purge %s", iter.Val())
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, eris.Wrap(err, "redis: scan activity keys")
	}
	return removed, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
