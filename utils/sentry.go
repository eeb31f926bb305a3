package utils

import (
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

var sentryEnabled bool

// InitSentry DSN 为空时不启用
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	}); err != nil {
		return err
	}
	sentryEnabled = true
	Info("sentry enabled", zap.String("environment", environment))
	return nil
}

// SentryEnabled 是否启用了 sentry 上报
func SentryEnabled() bool {
	return sentryEnabled
}

// CaptureError 上报错误（未启用时忽略）
func CaptureError(err error) {
	if err == nil {
		return
	}
	if sentryEnabled {
		sentry.CaptureException(err)
	}
}

// FlushSentry 退出前刷新未发送的事件
func FlushSentry() {
	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}
