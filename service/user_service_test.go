package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(t *testing.T) *UserService {
	t.Helper()
	svc := NewUserService(setupTestDB(t))
	svc.SetBcryptCost(bcrypt.MinCost)
	return svc
}

func TestRegister_NormalizesEmailAndHashesPassword(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "  Alice@Example.COM ", "password1", " Alice ", "Smith")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.FirstName)
	assert.NotEqual(t, "password1", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password1")))
}

func TestRegister_EmailTakenCaseInsensitive(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password1", "Alice", "Smith")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ALICE@example.com", "password2", "Other", "Alice")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "password1", "Alice", "Smith")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "Alice@Example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetByID(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "password1", "Alice", "Smith")
	require.NoError(t, err)

	user, err := svc.GetByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	_, err = svc.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)

	ok, err := svc.Exists(ctx, registered.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func seedSearchUsers(t *testing.T, svc *UserService) {
	t.Helper()
	ctx := context.Background()
	users := []struct{ email, first, last string }{
		{"alice@example.com", "Alice", "Smith"},
		{"bob@example.com", "Bob", "Kalinowski"},
		{"natalie@example.com", "Natalie", "Jones"},
		{"ali.baba@example.com", "Baba", "Thief"},
		{"percent@example.com", "100%", "Real"},
	}
	for _, u := range users {
		_, err := svc.Register(ctx, u.email, "password1", u.first, u.last)
		require.NoError(t, err)
	}
}

func TestSearch_ExactEmailWhenKeywordHasAt(t *testing.T) {
	svc := newTestUserService(t)
	seedSearchUsers(t, svc)

	users, total, err := svc.Search(context.Background(), "ALICE@example.com", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "alice@example.com", users[0].Email)

	// 邮箱只做精确匹配，不做子串匹配
	users, total, err = svc.Search(context.Background(), "@example.com", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, users)

	// 带空白的关键字不等于任何已存邮箱
	users, total, err = svc.Search(context.Background(), " alice@example.com ", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, users)
}

func TestSearch_NameSubstringCaseInsensitive(t *testing.T) {
	svc := newTestUserService(t)
	seedSearchUsers(t, svc)

	users, total, err := svc.Search(context.Background(), "ali", 1)
	require.NoError(t, err)

	emails := []string{}
	for _, u := range users {
		emails = append(emails, u.Email)
	}
	// Alice（名）、Kalinowski（姓）、Natalie（名）命中；ali.baba 只是邮箱包含，不命中
	assert.Equal(t, int64(3), total)
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com", "natalie@example.com"}, emails)
}

func TestSearch_EscapesWildcards(t *testing.T) {
	svc := newTestUserService(t)
	seedSearchUsers(t, svc)

	users, _, err := svc.Search(context.Background(), "0%", 1)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "percent@example.com", users[0].Email)

	users, _, err = svc.Search(context.Background(), "_", 1)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSearch_PagesOfTen(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()
	for i := 0; i < 23; i++ {
		_, err := svc.Register(ctx, fmt.Sprintf("user%02d@example.com", i), "password1", "Sam", fmt.Sprintf("Member%02d", i))
		require.NoError(t, err)
	}

	page1, total, err := svc.Search(ctx, "sam", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(23), total)
	assert.Len(t, page1, SearchPageSize)

	page3, _, err := svc.Search(ctx, "sam", 3)
	require.NoError(t, err)
	assert.Len(t, page3, 3)

	// 页码非法时按第 1 页处理
	page0, _, err := svc.Search(ctx, "sam", 0)
	require.NoError(t, err)
	assert.Equal(t, page1, page0)

	seen := map[uuid.UUID]bool{}
	for p := 1; p <= 3; p++ {
		users, _, err := svc.Search(ctx, "sam", p)
		require.NoError(t, err)
		for _, u := range users {
			assert.False(t, seen[u.ID], "user returned twice across pages")
			seen[u.ID] = true
		}
	}
	assert.Len(t, seen, 23)
}
