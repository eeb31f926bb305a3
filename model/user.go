package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 用户表（邮箱即登录名）
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"` // 统一小写存储
	FirstName    string    `json:"first_name" gorm:"type:varchar(150);not null;default:''"`
	LastName     string    `json:"last_name" gorm:"type:varchar(150);not null;default:''"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate 生成主键（不依赖数据库的 gen_random_uuid，便于 sqlite 开发环境）
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
