package service

import "errors"

// 业务错误：调用方可恢复，由 handler 映射为不同的 HTTP 状态码
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrRequestNotFound   = errors.New("friend request not found")
	ErrDuplicateRequest  = errors.New("friend request already sent")
	ErrRateLimitExceeded = errors.New("rate limit exceeded, please wait a moment before sending more requests")
	ErrInvalidState      = errors.New("friend request is no longer pending")
	ErrForbidden         = errors.New("only the recipient can respond to this friend request")
	ErrSelfRequest       = errors.New("cannot send a friend request to yourself")

	ErrBusy = errors.New("too many concurrent operations, please try again")
)
