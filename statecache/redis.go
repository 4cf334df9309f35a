package statecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vachub/mapdata"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func stateKey(robotID string) string {
	return fmt.Sprintf("vachub:robot:%s:state", robotID)
}

func mapKey(robotID string) string {
	return fmt.Sprintf("vachub:robot:%s:map", robotID)
}

func seenKey(robotID string) string {
	return fmt.Sprintf("vachub:robot:%s:seen", robotID)
}

const allRobotsKey = "vachub:robots"

func (r *RedisStore) SetState(ctx context.Context, robotID string, st *RobotState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, stateKey(robotID), data, 0)
	pipe.SAdd(ctx, allRobotsKey, robotID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetState(ctx context.Context, robotID string) (*RobotState, error) {
	data, err := r.client.Get(ctx, stateKey(robotID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st RobotState
	return &st, json.Unmarshal(data, &st)
}

func (r *RedisStore) SetMap(ctx context.Context, robotID string, m *mapdata.Map) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, mapKey(robotID), data, 0)
	pipe.SAdd(ctx, allRobotsKey, robotID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetMap(ctx context.Context, robotID string) (*mapdata.Map, error) {
	data, err := r.client.Get(ctx, mapKey(robotID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m mapdata.Map
	return &m, json.Unmarshal(data, &m)
}

func (r *RedisStore) SetLastSeen(ctx context.Context, robotID string, t time.Time) error {
	return r.client.Set(ctx, seenKey(robotID), t.Format(time.RFC3339Nano), 0).Err()
}

func (r *RedisStore) GetLastSeen(ctx context.Context, robotID string) (time.Time, error) {
	val, err := r.client.Get(ctx, seenKey(robotID)).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

func (r *RedisStore) AllRobotIDs(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, allRobotsKey).Result()
}

func (r *RedisStore) RemoveRobot(ctx context.Context, robotID string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, stateKey(robotID), mapKey(robotID), seenKey(robotID))
	pipe.SRem(ctx, allRobotsKey, robotID)
	_, err := pipe.Exec(ctx)
	return err
}
