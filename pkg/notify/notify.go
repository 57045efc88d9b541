// Package notify delivers fire-and-forget user notifications. Dispatch never
// blocks the caller and never returns an error; delivery failures are logged
// and dropped.
package notify

import "context"

type Notification struct {
	UserID    int64          `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	ActionURL string         `json:"action_url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type Dispatcher interface {
	Notify(ctx context.Context, n Notification)
}

// Multi fans one notification out to several dispatchers.
type Multi []Dispatcher

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, d := range m {
		d.Notify(ctx, n)
	}
}

// Nop discards notifications; useful in tests.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) {}
