package domain

import "context"

// Notifier delivers a rendered reminder to a channel reference
// (infrastructure port). The scheduler is its only caller.
type Notifier interface {
	Send(ctx context.Context, channelRef, message string) error
}
