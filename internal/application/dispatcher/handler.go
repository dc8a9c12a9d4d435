package dispatcher

import (
	"context"

	"github.com/garyjia/record-review/internal/domain/event"
)

// Handler delivers one record event to a notification channel
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	EventType   event.Type // empty for handlers subscribed to every type
	Handler     Handler
	Description string
}
