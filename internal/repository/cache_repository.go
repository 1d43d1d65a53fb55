package repository

import (
	"context"
	"errors"
	"quiz_arena_backend/internal/util"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	reportKeyPrefix  = "quiz_arena:report:"
	revokedKeyPrefix = "quiz_arena:revoked:"
)

// ReportCacheRepository 在 redis 中缓存成绩报告
type ReportCacheRepository struct {
	RDB *redis.Client
}

func NewReportCacheRepository(rdb *redis.Client) *ReportCacheRepository {
	return &ReportCacheRepository{RDB: rdb}
}

// Get 未命中时返回 nil 且不报错
func (r *ReportCacheRepository) Get(ctx context.Context, quizID string) ([]byte, error) {
	data, err := r.RDB.Get(ctx, reportKeyPrefix+quizID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, util.Unavailable(err)
	}
	return data, nil
}

func (r *ReportCacheRepository) Set(ctx context.Context, quizID string, data []byte, ttl time.Duration) error {
	return util.Unavailable(r.RDB.Set(ctx, reportKeyPrefix+quizID, data, ttl).Err())
}

func (r *ReportCacheRepository) Delete(ctx context.Context, quizID string) error {
	return util.Unavailable(r.RDB.Del(ctx, reportKeyPrefix+quizID).Err())
}

// TokenRepository 刷新令牌黑名单，条目与令牌同时过期
type TokenRepository struct {
	RDB *redis.Client
}

func NewTokenRepository(rdb *redis.Client) *TokenRepository {
	return &TokenRepository{RDB: rdb}
}

func (r *TokenRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return util.Unavailable(r.RDB.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err())
}

func (r *TokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.RDB.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, util.Unavailable(err)
	}
	return n > 0, nil
}
