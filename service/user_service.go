package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social_network/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SearchPageSize 用户搜索固定每页条数
const SearchPageSize = 10

// UserService 用户目录：注册、登录校验、查询与搜索
type UserService struct {
	db         *gorm.DB
	bcryptCost int
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, bcryptCost: bcrypt.DefaultCost}
}

// SetBcryptCost 测试中调低哈希成本
func (s *UserService) SetBcryptCost(cost int) {
	s.bcryptCost = cost
}

// Register 注册用户（邮箱统一小写，唯一）
func (s *UserService) Register(ctx context.Context, email, password, firstName, lastName string) (*model.User, error) {
	email = normalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		PasswordHash: string(hash),
	}

	// 依赖唯一索引判重，避免并发注册同一邮箱
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate 校验邮箱和密码
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetByID 按 ID 查询用户
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// GetByEmail 按邮箱查询（不区分大小写）
func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// Exists 用户是否存在
func (s *UserService) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return count > 0, nil
}

// SearchByName 名或姓包含 substring（不区分大小写）
func (s *UserService) SearchByName(ctx context.Context, substring string, offset, limit int) ([]model.User, int64, error) {
	pattern := "%" + escapeLike(strings.ToLower(substring)) + "%"
	query := s.db.WithContext(ctx).Model(&model.User{}).
		Where(`LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\'`, pattern, pattern)
	return s.page(query, offset, limit)
}

// Search 关键字含 @ 时按邮箱精确匹配，否则按名字子串匹配；每页 SearchPageSize 条
func (s *UserService) Search(ctx context.Context, keyword string, page int) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * SearchPageSize

	if strings.Contains(keyword, "@") {
		// 与存储格式一致只做小写，不去空白：精确匹配
		query := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", strings.ToLower(keyword))
		return s.page(query, offset, SearchPageSize)
	}
	return s.SearchByName(ctx, keyword, offset, SearchPageSize)
}

// ListByIDs 按 ID 升序分页加载用户
func (s *UserService) ListByIDs(ctx context.Context, ids []uuid.UUID, offset, limit int) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	var users []model.User
	query := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return users, nil
}

func (s *UserService) page(query *gorm.DB, offset, limit int) ([]model.User, int64, error) {
	// Count 和 Find 复用同一查询条件
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	users := []model.User{}
	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to search users: %w", err)
	}
	return users, total, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// isUniqueViolation TranslateError 开启时 postgres / sqlite 都会返回 gorm.ErrDuplicatedKey
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
