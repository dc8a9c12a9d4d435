package rollup

import (
	"sort"
	"time"

	"github.com/garyjia/record-review/internal/domain/entity"
)

// DueItem is a live record whose due date falls inside the window
type DueItem struct {
	RecordID string            `json:"record_id"`
	Type     entity.RecordType `json:"record_type"`
	Title    string            `json:"title,omitempty"`
	Status   entity.Status     `json:"status"`
	DueAt    time.Time         `json:"due_at"`
	Overdue  bool              `json:"overdue"`
}

// DueSoon lists non-terminal records due before now+window, earliest first.
// Overdue records are included and flagged.
func DueSoon(records []*entity.Record, now time.Time, window time.Duration, filters ...Filter) []DueItem {
	limit := now.Add(window)
	items := make([]DueItem, 0)

	for _, rec := range apply(records, filters) {
		if rec.DueAt == nil || rec.Status.IsTerminal() || rec.DueAt.After(limit) {
			continue
		}
		items = append(items, DueItem{
			RecordID: rec.ID,
			Type:     rec.Type,
			Title:    rec.Title,
			Status:   rec.Status,
			DueAt:    *rec.DueAt,
			Overdue:  rec.DueAt.Before(now),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DueAt.Before(items[j].DueAt)
	})
	return items
}
