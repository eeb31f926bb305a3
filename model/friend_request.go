package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FriendRequestStatus 好友请求状态
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// IsTerminal accepted / rejected 之后不允许再流转
func (s FriendRequestStatus) IsTerminal() bool {
	return s == FriendRequestAccepted || s == FriendRequestRejected
}

// FriendRequest 好友请求表（有向：from -> to）
// 同一有序对 (from_user_id, to_user_id) 只允许一条记录，由唯一索引保证
type FriendRequest struct {
	ID          uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	FromUserID  uuid.UUID           `json:"from_user_id" gorm:"type:uuid;not null;uniqueIndex:ux_friend_request_pair,priority:1;index:idx_friend_request_from_created,priority:1"`
	ToUserID    uuid.UUID           `json:"to_user_id" gorm:"type:uuid;not null;uniqueIndex:ux_friend_request_pair,priority:2;index:idx_friend_request_to_status,priority:1"`
	Status      FriendRequestStatus `json:"status" gorm:"type:varchar(10);not null;default:'pending';index:idx_friend_request_to_status,priority:2"`
	CreatedAt   time.Time           `json:"created_at" gorm:"not null;index:idx_friend_request_from_created,priority:2"`
	RespondedAt *time.Time          `json:"responded_at,omitempty"`

	FromUser *User `json:"from_user,omitempty" gorm:"foreignKey:FromUserID"`
	ToUser   *User `json:"to_user,omitempty" gorm:"foreignKey:ToUserID"`
}

func (FriendRequest) TableName() string {
	return "friend_requests"
}

func (r *FriendRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = FriendRequestPending
	}
	return nil
}

// AllModels AutoMigrate 使用的模型列表
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&FriendRequest{},
	}
}
