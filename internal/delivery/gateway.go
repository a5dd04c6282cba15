package delivery

import (
	"context"

	"github.com/yuehengyu/Lunara/internal/domain"
)

// Payload is the batched notification handed to a delivery target.
type Payload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	DedupeTag string `json:"dedupe_tag,omitempty"`
}

// Result classifies one delivery attempt. Terminal means the target is
// permanently unusable (gone, credentials no longer match) and must be
// invalidated; anything else is transient and simply waits for the
// next evaluation pass.
type Result struct {
	Delivered bool
	Terminal  bool
	Err       error
}

// Gateway is the external delivery collaborator.
type Gateway interface {
	Send(ctx context.Context, target domain.Subscription, p Payload) Result
	Invalidate(ctx context.Context, target domain.Subscription) error
}
