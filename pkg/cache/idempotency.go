package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	inFlightMarker = "in_flight"
	// 占位的最长存活时间，结果写入失败时占位在此之后自动失效
	maxInFlightTTL = 2 * time.Minute
)

// IdempotencyStore 基于 Redis 的下单幂等记录
// key 首次出现时占位，成功后写入订单 ID，失败则删除占位允许重试
type IdempotencyStore struct {
	client      *redis.Client
	ttl         time.Duration // 成功结果的保留时间
	inFlightTTL time.Duration
}

// NewIdempotencyStore 创建幂等存储
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	inFlight := maxInFlightTTL
	if ttl < inFlight {
		inFlight = ttl
	}
	return &IdempotencyStore{client: client, ttl: ttl, inFlightTTL: inFlight}
}

func checkoutKey(buyerID int64, key string) string {
	return fmt.Sprintf("idem:checkout:%d:%s", buyerID, key)
}

// Begin 占位。fresh=true 表示首次请求；否则 orderIDs 为上次成功的结果，
// orderIDs 为空说明上一次请求仍在处理中
func (s *IdempotencyStore) Begin(ctx context.Context, buyerID int64, key string) (orderIDs []int64, fresh bool, err error) {
	k := checkoutKey(buyerID, key)
	ok, err := s.client.SetNX(ctx, k, inFlightMarker, s.inFlightTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if ok {
		return nil, true, nil
	}

	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// 占位刚好过期，重新抢占
		ok, err = s.client.SetNX(ctx, k, inFlightMarker, s.inFlightTTL).Result()
		return nil, ok, err
	}
	if err != nil {
		return nil, false, err
	}
	if val == inFlightMarker {
		return nil, false, nil
	}
	if err := json.Unmarshal([]byte(val), &orderIDs); err != nil {
		return nil, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return orderIDs, false, nil
}

// Complete 记录成功结果
func (s *IdempotencyStore) Complete(ctx context.Context, buyerID int64, key string, orderIDs []int64) error {
	data, err := json.Marshal(orderIDs)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, checkoutKey(buyerID, key), data, s.ttl).Err()
}

// Abort 删除占位
func (s *IdempotencyStore) Abort(ctx context.Context, buyerID int64, key string) error {
	return s.client.Del(ctx, checkoutKey(buyerID, key)).Err()
}
