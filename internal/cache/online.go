package cache

import (
	"context"
	"time"

	"BitePoints/storage/redis"
)

const (
	onlinePrefix = "online"

	// 在线标记过期后视为离线，客户端心跳会续期
	onlineTTL = 10 * time.Minute
)

// SetOnline 写入用户在线标记，返回写入前是否在线，用于识别离线转在线的边沿
func SetOnline(ctx context.Context, userID string) (bool, error) {
	key := redis.Key(onlinePrefix, userID)

	wasOnline, err := redis.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}

	if err := redis.Client().Set(ctx, key, "1", onlineTTL).Err(); err != nil {
		return false, err
	}
	return wasOnline > 0, nil
}

// SetOffline 清除用户在线标记
func SetOffline(ctx context.Context, userID string) error {
	key := redis.Key(onlinePrefix, userID)
	return redis.Client().Del(ctx, key).Err()
}

// IsOnline 查询用户是否在线
func IsOnline(ctx context.Context, userID string) (bool, error) {
	key := redis.Key(onlinePrefix, userID)
	result, err := redis.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}
