package singleton

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaseStore holds the cluster-wide singleton lease. A lease is a key whose
// value names the owner and which expires unless renewed.
type LeaseStore interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) (bool, error)
}

var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLease keeps the lease in Redis with SET NX PX. Renew and release run
// as scripts so a node never touches a lease another node now owns.
type RedisLease struct {
	client *redis.Client
}

func NewRedisLease(client *redis.Client) *RedisLease {
	return &RedisLease{client: client}
}

func (r *RedisLease) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, owner, ttl).Result()
}

func (r *RedisLease) Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, r.client, []string{key}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisLease) Release(ctx context.Context, key, owner string) (bool, error) {
	n, err := releaseScript.Run(ctx, r.client, []string{key}, owner).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
