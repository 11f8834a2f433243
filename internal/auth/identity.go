package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// IdentityChange describes a sign-in or sign-out of UserID.
type IdentityChange struct {
	UserID   uuid.UUID
	SignedIn bool
}

// IdentityListener is called synchronously after every identity change.
type IdentityListener func(ctx context.Context, change IdentityChange)

type listeners struct {
	mu   sync.RWMutex
	subs []IdentityListener
}

func (l *listeners) add(fn IdentityListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.subs = append(l.subs, fn)
	l.mu.Unlock()
}

func (l *listeners) publish(ctx context.Context, change IdentityChange) {
	l.mu.RLock()
	subs := make([]IdentityListener, len(l.subs))
	copy(subs, l.subs)
	l.mu.RUnlock()

	for _, fn := range subs {
		fn(ctx, change)
	}
}
