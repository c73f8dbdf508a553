package services

import (
	"errors"
	"time"

	"github.com/PalmTamino/Xboard/internal/database"
	"github.com/go-redis/redis/v8"
)

const denylistPrefix = "denylist:"

// AddToDenylist 注销的 token 进入黑名单,存活到原有效期结束
func AddToDenylist(tokenString string, expiration time.Duration) error {
	key := denylistPrefix + tokenString
	return database.RedisClient.Set(database.Ctx, key, 1, expiration).Err()
}

func IsDenylisted(tokenString string) (bool, error) {
	key := denylistPrefix + tokenString
	val, err := database.RedisClient.Get(database.Ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return val != "", nil
}
