package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/txn_ingest/internal/middleware"
)

// BaseService is embedded by every service for request-scoped logging and
// a pinnable clock.
type BaseService struct {
	Now func() time.Time
}

// GetLogger returns the logger carried by ctx, or slog.Default.
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs msg at error level with err attached first.
func (s *BaseService) LogError(ctx context.Context, err error, msg string, attrs ...any) {
	s.GetLogger(ctx).Error(msg, append([]any{slog.String("error", err.Error())}, attrs...)...)
}

func (s *BaseService) LogWarn(ctx context.Context, msg string, attrs ...any) {
	s.GetLogger(ctx).Warn(msg, attrs...)
}

func (s *BaseService) LogInfo(ctx context.Context, msg string, attrs ...any) {
	s.GetLogger(ctx).Info(msg, attrs...)
}

// CurrentTime is the service clock in UTC.
func (s *BaseService) CurrentTime() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC()
}
