package cache

import (
	"context"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"BitePoints/storage/redis"
)

const (
	multiplierKey = "multiplier:current"
)

// GetMultiplier 读取当前生效的积分倍数，未设置时返回 (0, false, nil)
func GetMultiplier(ctx context.Context) (float64, bool, error) {
	key := redis.Key(multiplierKey)

	value, err := redis.Client().Get(ctx, key).Result()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	multiplier, err := strconv.ParseFloat(value, 64)
	if err != nil {
		// 脏数据视为未设置，等待调度器下次刷新覆盖
		return 0, false, nil
	}
	return multiplier, true, nil
}

// SetMultiplier 写入当前生效的积分倍数，不设置过期，由调度器周期覆盖
func SetMultiplier(ctx context.Context, multiplier float64) error {
	key := redis.Key(multiplierKey)
	return redis.Client().Set(ctx, key, strconv.FormatFloat(multiplier, 'f', -1, 64), 0).Err()
}
