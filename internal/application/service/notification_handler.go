package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/record-review/internal/domain/event"
	"github.com/garyjia/record-review/pkg/utils"
)

// NewNotificationHandler returns the default notification collaborator. It
// writes one structured line per event; terminal outcomes are flagged for the owner.
func NewNotificationHandler(logger *zap.Logger) func(ctx context.Context, evt *event.Event) error {
	return func(ctx context.Context, evt *event.Event) error {
		fields := append(utils.RecordFields(evt.RecordID, string(evt.RecordType), string(evt.NewStatus)),
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type.String()),
			zap.String("actor_id", evt.Actor.ID),
			zap.Time("timestamp", evt.Timestamp),
		)
		if evt.Type == event.TypeRecordTransitioned {
			fields = append(fields,
				zap.String("previous_status", string(evt.PreviousStatus)),
				zap.String("action", evt.Action),
			)
		}
		if evt.Type == event.TypeRecordDueSoon {
			fields = append(fields,
				zap.String("due_at", evt.GetPayloadString("due_at")),
				zap.Any("overdue", evt.Payload["overdue"]),
			)
			logger.Info("Remind reviewers of due record", fields...)
			return nil
		}
		if evt.Comment != "" {
			fields = append(fields, zap.String("comment", evt.Comment))
		}

		if evt.Type == event.TypeRecordTransitioned && evt.IsTerminal() {
			logger.Info("Notify owner of final decision", fields...)
			return nil
		}
		logger.Info("Record event", fields...)
		return nil
	}
}
