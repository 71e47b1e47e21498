package sink

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/mensylisir/xmrecipe/config"
)

const indexKey = "index"

// RedisSink stores each recipe as a JSON string under prefix+id and keeps
// the set of ids under prefix+"index".
type RedisSink struct {
	client *redis.Client
	prefix string
}

var (
	_ Sink    = (*RedisSink)(nil)
	_ Catalog = (*RedisSink)(nil)
)

// NewRedisSink connects to spec.Addr and pings it.
func NewRedisSink(spec config.RedisSpec) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            spec.Addr,
		Password:        spec.Password,
		DB:              spec.DB,
		Protocol:        2,
		DisableIdentity: true,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to reach redis at %s", spec.Addr)
	}
	return NewRedisSinkWithClient(client, spec.Prefix), nil
}

// NewRedisSinkWithClient wraps an existing client. An empty prefix gets
// config.DefaultRedisPrefix.
func NewRedisSinkWithClient(client *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = config.DefaultRedisPrefix
	}
	return &RedisSink{client: client, prefix: prefix}
}

func (s *RedisSink) Key(id string) string { return s.prefix + id }

func (s *RedisSink) Save(ctx context.Context, recipe RecipeContent) (SaveResult, error) {
	if err := validate(recipe); err != nil {
		return SaveResult{}, err
	}
	id := RecipeID(recipe)
	data, err := json.Marshal(recipe)
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "failed to encode recipe")
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.Key(id), data, 0)
		pipe.SAdd(ctx, s.Key(indexKey), id)
		return nil
	})
	if err != nil {
		return SaveResult{}, errors.Wrapf(err, "failed to store recipe %s", id)
	}
	return result(id, recipe), nil
}

// Load reads a stored recipe back. ok is false when id is unknown.
func (s *RedisSink) Load(ctx context.Context, id string) (RecipeContent, bool, error) {
	var recipe RecipeContent
	data, err := s.client.Get(ctx, s.Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return recipe, false, nil
	}
	if err != nil {
		return recipe, false, errors.Wrapf(err, "failed to load recipe %s", id)
	}
	if err := json.Unmarshal(data, &recipe); err != nil {
		return recipe, false, errors.Wrapf(err, "corrupt recipe %s", id)
	}
	return recipe, true, nil
}

// IDs lists every stored recipe id.
func (s *RedisSink) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.Key(indexKey)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recipes")
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
