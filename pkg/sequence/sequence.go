package sequence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

// Generator hands out human-readable codes for records people look at in
// support tickets. Entity IDs stay snowflakes; these are display codes only.
type Generator interface {
	NextWithdrawalCode(ctx context.Context) (string, error)
}

type RedisGenerator struct {
	rdb *redis.Client
}

type Params struct {
	fx.In

	Redis *redis.Client
}

func NewRedisGenerator(p Params) Generator {
	return &RedisGenerator{
		rdb: p.Redis,
	}
}

func (g *RedisGenerator) NextWithdrawalCode(ctx context.Context) (string, error) {
	seq, err := g.rdb.Incr(ctx, "seq:withdrawal").Result()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("WD-%06d", seq), nil
}
