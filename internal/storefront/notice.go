package storefront

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/google/uuid"
)

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-facing announcement of a cart or wishlist outcome.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	UserID  uuid.UUID   `json:"-"`
}

// Notifier delivers notices. Implementations must not block for long; they
// are called while the manager lock is held.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, notice Notice)

func (f NotifierFunc) Notify(ctx context.Context, notice Notice) {
	f(ctx, notice)
}

// LogNotifier writes notices to the structured log.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Notify(ctx context.Context, notice Notice) {
	if n == nil || n.logg == nil {
		return
	}
	ctx = n.logg.WithFields(ctx, map[string]any{
		"notice_level":   string(notice.Level),
		"notice_title":   notice.Title,
		"notice_message": notice.Message,
	})
	if notice.UserID != uuid.Nil {
		ctx = n.logg.WithUserID(ctx, notice.UserID.String())
	}
	if notice.Level == NoticeError {
		n.logg.Warn(ctx, "storefront.notice")
		return
	}
	n.logg.Info(ctx, "storefront.notice")
}
