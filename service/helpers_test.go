package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"social_network/model"
	"social_network/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := utils.OpenDB("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// testEnv 组装好的好友服务
type testEnv struct {
	db      *gorm.DB
	rdb     *redis.Client
	mr      *miniredis.Miniredis
	clock   *fakeClock
	users   *UserService
	store   FriendRequestStore
	friends *FriendsQuery
	svc     *FriendRequestService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	mr, rdb := setupTestRedis(t)

	users := NewUserService(db)
	users.SetBcryptCost(bcrypt.MinCost)
	store := NewFriendRequestStore(db)
	friends := NewFriendsQueryWithRedis(store, users, rdb, time.Minute)
	svc := NewFriendRequestServiceWithRedis(store, users, NewRateLimiter(3, 60*time.Second), friends, rdb)

	clock := newFakeClock()
	svc.SetClock(clock.Now)

	return &testEnv{db: db, rdb: rdb, mr: mr, clock: clock, users: users, store: store, friends: friends, svc: svc}
}

var userSeq int
var userSeqMu sync.Mutex

func (e *testEnv) createUser(t *testing.T, firstName, lastName string) *model.User {
	t.Helper()
	userSeqMu.Lock()
	userSeq++
	email := fmt.Sprintf("%s.%d@example.com", firstName, userSeq)
	userSeqMu.Unlock()

	u, err := e.users.Register(context.Background(), email, "password1", firstName, lastName)
	require.NoError(t, err)
	return u
}
