package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBlacklist(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	bl := NewTokenBlacklist(rdb)
	ctx := context.Background()

	revoked, err := bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "jti-1", time.Minute))
	revoked, err = bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// token 自身过期后记录也随之过期
	mr.FastForward(2 * time.Minute)
	revoked, err = bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenBlacklist_ExpiredTokenNotStored(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	bl := NewTokenBlacklist(rdb)

	require.NoError(t, bl.Revoke(context.Background(), "jti-2", -time.Second))
	assert.False(t, mr.Exists(revokedTokenKey("jti-2")))
}
