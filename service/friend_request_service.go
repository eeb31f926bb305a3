package service

import (
	"context"
	"fmt"
	"time"

	"social_network/model"
	"social_network/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FriendRequestService 好友请求状态机：pending -> accepted | rejected
type FriendRequestService struct {
	store   FriendRequestStore
	users   *UserService
	limiter *RateLimiter
	friends *FriendsQuery
	rdb     *redis.Client
	now     func() time.Time
}

// NewFriendRequestService 无 Redis 时限流为尽力而为（检查与插入之间存在竞争窗口）
func NewFriendRequestService(store FriendRequestStore, users *UserService, limiter *RateLimiter, friends *FriendsQuery) *FriendRequestService {
	return &FriendRequestService{
		store:   store,
		users:   users,
		limiter: limiter,
		friends: friends,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewFriendRequestServiceWithRedis 同一发送者的发送操作由 Redis 锁串行化，限流严格生效
func NewFriendRequestServiceWithRedis(store FriendRequestStore, users *UserService, limiter *RateLimiter, friends *FriendsQuery, rdb *redis.Client) *FriendRequestService {
	s := NewFriendRequestService(store, users, limiter, friends)
	s.rdb = rdb
	return s
}

// SetClock 注入时钟（测试用）
func (s *FriendRequestService) SetClock(now func() time.Time) {
	s.now = now
}

// Send 发送好友请求
func (s *FriendRequestService) Send(ctx context.Context, requesterID, targetID uuid.UUID) (*model.FriendRequest, error) {
	if requesterID == targetID {
		return nil, ErrSelfRequest
	}

	// 1. 目标用户必须存在
	exists, err := s.users.Exists(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	// 2. 同一发送者串行化：计数与插入之间不会被并发请求插队
	if s.rdb != nil {
		lockKey := sendLockKey(requesterID)
		token, err := s.acquireLock(ctx, lockKey)
		if err != nil {
			return nil, err
		}
		defer s.releaseLock(context.WithoutCancel(ctx), lockKey, token)
	}

	// 3. 限流检查 + 插入放在同一事务
	var created *model.FriendRequest
	err = s.store.Transaction(ctx, func(store FriendRequestStore) error {
		now := s.now()
		if err := s.limiter.Check(ctx, store, requesterID, now); err != nil {
			return err
		}
		req, err := store.Create(ctx, requesterID, targetID, now)
		if err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.Info("friend request sent",
		zap.String("request_id", created.ID.String()),
		zap.String("from_user_id", requesterID.String()),
		zap.String("to_user_id", targetID.String()),
	)
	return created, nil
}

// Accept 接收方同意请求
func (s *FriendRequestService) Accept(ctx context.Context, requestID, actingUserID uuid.UUID) (*model.FriendRequest, error) {
	return s.respond(ctx, requestID, actingUserID, model.FriendRequestAccepted)
}

// Reject 接收方拒绝请求
func (s *FriendRequestService) Reject(ctx context.Context, requestID, actingUserID uuid.UUID) (*model.FriendRequest, error) {
	return s.respond(ctx, requestID, actingUserID, model.FriendRequestRejected)
}

func (s *FriendRequestService) respond(ctx context.Context, requestID, actingUserID uuid.UUID, status model.FriendRequestStatus) (*model.FriendRequest, error) {
	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.ToUserID != actingUserID {
		return nil, ErrForbidden
	}
	if req.Status.IsTerminal() {
		return nil, ErrInvalidState
	}

	// 条件更新（status = pending），并发处理同一请求时只有一个成功
	now := s.now()
	affected, err := s.store.Transition(ctx, requestID, status, now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInvalidState
	}

	req.Status = status
	req.RespondedAt = &now

	if status == model.FriendRequestAccepted && s.friends != nil {
		s.friends.Invalidate(ctx, req.FromUserID, req.ToUserID)
	}

	utils.Info("friend request answered",
		zap.String("request_id", req.ID.String()),
		zap.String("status", string(status)),
		zap.String("acting_user_id", actingUserID.String()),
	)
	return req, nil
}

// ListPending 收到的待处理请求，按创建时间正序分页
func (s *FriendRequestService) ListPending(ctx context.Context, recipientID uuid.UUID, page, pageSize int) ([]model.FriendRequest, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	total, err := s.store.CountPendingForRecipient(ctx, recipientID)
	if err != nil {
		return nil, 0, err
	}
	requests, err := s.store.ListPendingForRecipient(ctx, recipientID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

const sendLockTTL = 5 * time.Second

// releaseLockScript 只删除自己持有的锁（值等于 token）
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func sendLockKey(requesterID uuid.UUID) string {
	return fmt.Sprintf("lock:send_friend_request:%s", requesterID)
}

// acquireLock 最多重试 3 次，成功时返回本次持有者的 token
func (s *FriendRequestService) acquireLock(ctx context.Context, lockKey string) (string, error) {
	token := uuid.NewString()
	for i := 0; i < 3; i++ {
		ok, err := s.rdb.SetNX(ctx, lockKey, token, sendLockTTL).Result()
		if err != nil {
			return "", fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return "", ErrBusy
}

// releaseLock 锁已过期并被他人持有时不做任何事
func (s *FriendRequestService) releaseLock(ctx context.Context, lockKey, token string) {
	if err := releaseLockScript.Run(ctx, s.rdb, []string{lockKey}, token).Err(); err != nil {
		utils.Warn("failed to release lock", zap.String("key", lockKey), zap.Error(err))
	}
}
