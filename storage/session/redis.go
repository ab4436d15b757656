package session

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
)

const keyPrefix = "masomo:enrollment-wizard:"

// unlockScript deletes the lock only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ enrollment.SessionStore = (*redisStore)(nil) // interface compliance check

func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

// NewRedisStore returns a store shared by every API instance. Wizards expire after ttl without updates.
func NewRedisStore(client *redis.Client, ttl time.Duration) enrollment.SessionStore {
	return &redisStore{client: client, ttl: ttl}
}

func wizardKey(id string) string { return keyPrefix + id }
func lockKey(id string) string   { return keyPrefix + id + ":lock" }
func indexKey() string           { return keyPrefix + "updated" }

func (s *redisStore) Save(ctx context.Context, snap enrollment.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding wizard")
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, wizardKey(snap.ID), data, s.ttl)
		pipe.ZAdd(ctx, indexKey(), redis.Z{Score: float64(time.Now().Unix()), Member: snap.ID})
		return nil
	})
	return errors.Wrap(err, "saving wizard")
}

func (s *redisStore) Load(ctx context.Context, id string) (enrollment.Snapshot, error) {
	data, err := s.client.Get(ctx, wizardKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return enrollment.Snapshot{}, enrollment.ErrNotFound
		}
		return enrollment.Snapshot{}, errors.Wrap(err, "loading wizard")
	}

	var snap enrollment.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return enrollment.Snapshot{}, errors.Wrap(err, "decoding wizard")
	}
	return snap, nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, wizardKey(id))
		pipe.ZRem(ctx, indexKey(), id)
		return nil
	})
	return errors.Wrap(err, "deleting wizard")
}

func (s *redisStore) Lock(ctx context.Context, id string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, lockKey(id), token, ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "acquiring lock")
	}
	if !ok {
		return nil, enrollment.ErrLocked
	}

	unlock := func() {
		// released even if the caller's context is done
		_ = unlockScript.Run(context.WithoutCancel(ctx), s.client, []string{lockKey(id)}, token).Err()
	}
	return unlock, nil
}

// Sweep deletes the wizards last saved before `before`. Redis expires them anyway; this keeps the index small.
func (s *redisStore) Sweep(ctx context.Context, before time.Time) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, errors.Wrap(err, "listing idle wizards")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = wizardKey(id)
		members[i] = id
	}

	var deleted *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, indexKey(), members...)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "deleting idle wizards")
	}
	return int(deleted.Val()), nil
}
