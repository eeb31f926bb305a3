package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultFriendRequestLimit  = 3
	DefaultFriendRequestWindow = 60 * time.Second
)

// RateLimiter 好友请求滑动窗口限流
//
// 不单独维护计数器：每次发送前直接统计 store 中 [now-window, now] 内该用户创建的请求数，
// 因此与已落库的历史始终一致。
type RateLimiter struct {
	limit  int
	window time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultFriendRequestLimit
	}
	if window <= 0 {
		window = DefaultFriendRequestWindow
	}
	return &RateLimiter{limit: limit, window: window}
}

func (l *RateLimiter) Limit() int { return l.limit }

func (l *RateLimiter) Window() time.Duration { return l.window }

// Check 窗口内已创建数 >= limit 时返回 ErrRateLimitExceeded
func (l *RateLimiter) Check(ctx context.Context, store FriendRequestStore, requesterID uuid.UUID, now time.Time) error {
	count, err := store.CountRecentByRequester(ctx, requesterID, now.Add(-l.window))
	if err != nil {
		return err
	}
	if count >= int64(l.limit) {
		return ErrRateLimitExceeded
	}
	return nil
}
