package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const jobKeyPrefix = "pizzeria:job:"

var releaseOwnedKeyScript = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// KeyRegistry guards scheduled job keys across processes. A key is held by
// the owner that reserved it until released or expired.
type KeyRegistry struct {
	client *goredis.Client
	owner  string
}

func NewKeyRegistry(client *goredis.Client, owner string) *KeyRegistry {
	return &KeyRegistry{client: client, owner: owner}
}

func (r *KeyRegistry) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, jobKeyPrefix+key, r.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserving job key %s: %w", key, err)
	}
	return ok, nil
}

func (r *KeyRegistry) Release(ctx context.Context, key string) error {
	if err := releaseOwnedKeyScript.Run(ctx, r.client, []string{jobKeyPrefix + key}, r.owner).Err(); err != nil {
		return fmt.Errorf("releasing job key %s: %w", key, err)
	}
	return nil
}
