package checkpoint

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

type Options = redis.Options

// releaseScript deletes the lease only while it is still held by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore namespaces every key as "<namespace>:<key>".
type RedisStore struct {
	Namespace string
	Client    *redis.Client
}

func NewRedisStore(options Options, namespace string) *RedisStore {
	return &RedisStore{Namespace: namespace, Client: redis.NewClient(&options)}
}

func (r *RedisStore) key(k string) string {
	if r.Namespace == "" {
		return k
	}
	return r.Namespace + ":" + k
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.Client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if eris.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, eris.Wrapf(err, "get %s", key)
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	return eris.Wrapf(r.Client.Set(ctx, r.key(key), value, 0).Err(), "set %s", key)
}

func (r *RedisStore) Clear(ctx context.Context, key string) error {
	return eris.Wrapf(r.Client.Del(ctx, r.key(key)).Err(), "clear %s", key)
}

func (r *RedisStore) Acquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	ok, err := r.Client.SetNX(ctx, r.key(key), holder, ttl).Result()
	if err != nil {
		return false, eris.Wrapf(err, "acquire %s", key)
	}
	if ok {
		return true, nil
	}
	cur, err := r.Client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if eris.Is(err, redis.Nil) {
			return false, nil
		}
		return false, eris.Wrapf(err, "acquire %s", key)
	}
	if cur != holder {
		return false, nil
	}
	return true, eris.Wrapf(r.Client.PExpire(ctx, r.key(key), ttl).Err(), "renew %s", key)
}

func (r *RedisStore) Release(ctx context.Context, key, holder string) error {
	return eris.Wrapf(releaseScript.Run(ctx, r.Client, []string{r.key(key)}, holder).Err(), "release %s", key)
}

func (r *RedisStore) Close() error {
	if err := r.Client.Close(); err != nil {
		return eris.Wrap(err, "close redis")
	}
	return nil
}
