package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social_network/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FriendRequestStore 好友请求持久化
type FriendRequestStore interface {
	Create(ctx context.Context, fromUserID, toUserID uuid.UUID, createdAt time.Time) (*model.FriendRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*model.FriendRequest, error)
	CountRecentByRequester(ctx context.Context, fromUserID uuid.UUID, since time.Time) (int64, error)
	ListPendingForRecipient(ctx context.Context, toUserID uuid.UUID, offset, limit int) ([]model.FriendRequest, error)
	CountPendingForRecipient(ctx context.Context, toUserID uuid.UUID) (int64, error)
	ListAcceptedInvolving(ctx context.Context, userID uuid.UUID) ([]model.FriendRequest, error)
	Transition(ctx context.Context, id uuid.UUID, status model.FriendRequestStatus, at time.Time) (int64, error)
	WithTx(tx *gorm.DB) FriendRequestStore
	Transaction(ctx context.Context, fn func(store FriendRequestStore) error) error
}

type friendRequestStore struct {
	db *gorm.DB
}

func NewFriendRequestStore(db *gorm.DB) FriendRequestStore {
	return &friendRequestStore{db: db}
}

// Create 插入 pending 记录；有序对已存在时返回 ErrDuplicateRequest（由唯一索引判定）
func (r *friendRequestStore) Create(ctx context.Context, fromUserID, toUserID uuid.UUID, createdAt time.Time) (*model.FriendRequest, error) {
	req := &model.FriendRequest{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     model.FriendRequestPending,
		CreatedAt:  createdAt,
	}
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateRequest
		}
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}
	return req, nil
}

func (r *friendRequestStore) Get(ctx context.Context, id uuid.UUID) (*model.FriendRequest, error) {
	var req model.FriendRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to query friend request: %w", err)
	}
	return &req, nil
}

// CountRecentByRequester created_at >= since（含边界）
func (r *friendRequestStore) CountRecentByRequester(ctx context.Context, fromUserID uuid.UUID, since time.Time) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.FriendRequest{}).
		Where("from_user_id = ? AND created_at >= ?", fromUserID, since).
		Count(&cnt).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count recent friend requests: %w", err)
	}
	return cnt, nil
}

// ListPendingForRecipient 按创建时间正序；limit <= 0 时不分页
func (r *friendRequestStore) ListPendingForRecipient(ctx context.Context, toUserID uuid.UUID, offset, limit int) ([]model.FriendRequest, error) {
	res := []model.FriendRequest{}
	query := r.db.WithContext(ctx).
		Preload("FromUser").
		Where("to_user_id = ? AND status = ?", toUserID, model.FriendRequestPending).
		Order("created_at ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	if err := query.Find(&res).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending friend requests: %w", err)
	}
	return res, nil
}

func (r *friendRequestStore) CountPendingForRecipient(ctx context.Context, toUserID uuid.UUID) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.FriendRequest{}).
		Where("to_user_id = ? AND status = ?", toUserID, model.FriendRequestPending).
		Count(&cnt).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending friend requests: %w", err)
	}
	return cnt, nil
}

func (r *friendRequestStore) ListAcceptedInvolving(ctx context.Context, userID uuid.UUID) ([]model.FriendRequest, error) {
	res := []model.FriendRequest{}
	err := r.db.WithContext(ctx).
		Where("status = ? AND (from_user_id = ? OR to_user_id = ?)", model.FriendRequestAccepted, userID, userID).
		Find(&res).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted friend requests: %w", err)
	}
	return res, nil
}

// Transition 条件更新：只有 pending 的记录会被修改，返回受影响行数
func (r *friendRequestStore) Transition(ctx context.Context, id uuid.UUID, status model.FriendRequestStatus, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.FriendRequest{}).
		Where("id = ? AND status = ?", id, model.FriendRequestPending).
		Updates(map[string]interface{}{
			"status":       status,
			"responded_at": at,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update friend request: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *friendRequestStore) WithTx(tx *gorm.DB) FriendRequestStore {
	return &friendRequestStore{db: tx}
}

func (r *friendRequestStore) Transaction(ctx context.Context, fn func(store FriendRequestStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
