package services

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/pkg/models"
)

// RateLimitService enforces the per-user generation quota over a sliding
// window kept in a Redis sorted set. Every authenticated user gets the same
// quota; plan-based quotas belong to the account service, not the engine.
// Redis being down fails open: the quota must not take the API down with it.
type RateLimitService struct {
	cfg    *config.RateLimitConfig
	logger *logrus.Logger
	client *redis.Client // optional
}

func NewRateLimitService(cfg *config.Config, logger *logrus.Logger, redisClient *redis.Client) *RateLimitService {
	return &RateLimitService{
		cfg:    &cfg.Auth.RateLimit,
		logger: logger,
		client: redisClient,
	}
}

func quotaKey(userID uuid.UUID) string {
	return "quota:outfits:" + userID.String()
}

// Allow records one request and reports whether the user is still inside the
// window's quota.
func (s *RateLimitService) Allow(ctx context.Context, userID uuid.UUID) (bool, *models.RateLimitInfo, error) {
	now := time.Now()
	info := &models.RateLimitInfo{
		Limit:   s.cfg.Requests,
		ResetAt: now.Add(s.cfg.Window).Unix(),
	}

	if s.client == nil {
		info.Remaining = s.cfg.Requests
		return true, info, nil
	}

	key := quotaKey(userID)
	windowStart := now.Add(-s.cfg.Window)

	pipe := s.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart.UnixNano(), 10))
	usedCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, s.cfg.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WithError(err).Error("Quota check failed, allowing request")
		info.Remaining = s.cfg.Requests
		return true, info, nil
	}

	used := int(usedCmd.Val())
	info.Remaining = s.cfg.Requests - used - 1
	if info.Remaining < 0 {
		info.Remaining = 0
	}

	return used < s.cfg.Requests, info, nil
}
