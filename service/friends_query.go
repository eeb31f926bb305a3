package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"social_network/model"
	"social_network/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// FriendsQuery 由 accepted 的有向请求推导出对称的好友集合
type FriendsQuery struct {
	store FriendRequestStore
	users *UserService
	rdb   *redis.Client
	ttl   time.Duration
}

func NewFriendsQuery(store FriendRequestStore, users *UserService) *FriendsQuery {
	return &FriendsQuery{store: store, users: users}
}

// NewFriendsQueryWithRedis 好友 ID 列表缓存到 Redis
func NewFriendsQueryWithRedis(store FriendRequestStore, users *UserService, rdb *redis.Client, ttl time.Duration) *FriendsQuery {
	return &FriendsQuery{store: store, users: users, rdb: rdb, ttl: ttl}
}

func friendsCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("friends:%s", userID)
}

// friendsVersionKey 每次好友关系变化自增，用于丢弃基于旧数据的回填
func friendsVersionKey(userID uuid.UUID) string {
	return fmt.Sprintf("friends_ver:%s", userID)
}

// FriendIDs 好友 ID，去重后按 ID 升序（分页需要稳定顺序）
func (q *FriendsQuery) FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	key := friendsCacheKey(userID)
	var version int64
	cacheable := q.rdb != nil
	if cacheable {
		if data, err := q.rdb.Get(ctx, key).Bytes(); err == nil {
			var ids []uuid.UUID
			if uErr := json.Unmarshal(data, &ids); uErr == nil {
				return ids, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			utils.Warn("friends cache read failed", zap.String("user_id", userID.String()), zap.Error(err))
		}

		// 版本号必须在查库之前读取
		v, err := q.readVersion(ctx, userID)
		if err != nil {
			utils.Warn("friends cache version read failed", zap.String("user_id", userID.String()), zap.Error(err))
			cacheable = false
		}
		version = v
	}

	accepted, err := q.store.ListAcceptedInvolving(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(accepted))
	ids := make([]uuid.UUID, 0, len(accepted))
	for _, req := range accepted {
		other := req.ToUserID
		if other == userID {
			other = req.FromUserID
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		ids = append(ids, other)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	if cacheable {
		q.fillCache(ctx, userID, version, ids)
	}
	return ids, nil
}

func (q *FriendsQuery) readVersion(ctx context.Context, userID uuid.UUID) (int64, error) {
	v, err := q.rdb.Get(ctx, friendsVersionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// fillCache 仅当版本号未变时写缓存；期间发生过 Invalidate 则放弃本次回填
func (q *FriendsQuery) fillCache(ctx context.Context, userID uuid.UUID, version int64, ids []uuid.UUID) {
	payload, err := json.Marshal(ids)
	if err != nil {
		return
	}

	verKey := friendsVersionKey(userID)
	err = q.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, verKey).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != version {
			return errStaleFriends
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, friendsCacheKey(userID), payload, q.ttl)
			return nil
		})
		return err
	}, verKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleFriends), errors.Is(err, redis.TxFailedErr):
		utils.Debug("friends cache fill skipped, relation changed", zap.String("user_id", userID.String()))
	default:
		utils.Warn("friends cache write failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

var errStaleFriends = errors.New("friends list changed during load")

// ListFriends 分页返回好友用户
func (q *FriendsQuery) ListFriends(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]model.User, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	ids, err := q.FriendIDs(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(ids))

	offset := (page - 1) * pageSize
	if offset >= len(ids) {
		return []model.User{}, total, nil
	}
	end := offset + pageSize
	if end > len(ids) {
		end = len(ids)
	}

	users, err := q.users.ListByIDs(ctx, ids[offset:end], 0, 0)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Invalidate 好友关系变化后清除缓存，同时递增版本号让进行中的回填失效
func (q *FriendsQuery) Invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	if q.rdb == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range userIDs {
			keys[i] = friendsCacheKey(id)
			pipe.Incr(ctx, friendsVersionKey(id))
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		utils.Warn("friends cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
