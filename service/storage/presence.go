package storage

import (
	"context"
	"time"

	redis2 "DProject/service/storage/redis"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var ctx = context.Background()

// presence key: collab:presence:<user>
// Value: node_id, TTL controls the online validity period.
// 仅做镜像：权威状态在进程内的连接注册表，这里给外围 REST 服务看。
func presenceKey(user string) string { return "collab:presence:" + user }

// PresenceOnline sets the user as online and renews the TTL
func PresenceOnline(user, nodeID string, ttl time.Duration) error {
	rdb := redis2.GetRedis()
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), nodeID, ttl).Err()
}

// PresenceOffline actively sets the user offline (deletes the key)
func PresenceOffline(user string) error {
	rdb := redis2.GetRedis()
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// PresenceLookup checks whether the user is online
func PresenceLookup(user string) (nodeID string, online bool, err error) {
	rdb := redis2.GetRedis()
	if rdb == nil {
		return "", false, errors.New("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
