package models

import (
	"context"
	"time"

	"github.com/mizanpos/pos_backend/config"
	"github.com/mizanpos/pos_backend/utils"
)

type ChangeAction string

const (
	ChangeActionInsert ChangeAction = "INSERT"
	ChangeActionUpdate ChangeAction = "UPDATE"
	ChangeActionDelete ChangeAction = "DELETE"
)

const ChangeFeedChannel = "change_feed"

// ChangeEvent is broadcast after a committed write so that open dashboards
// refresh the affected table without polling.
type ChangeEvent struct {
	Table     string       `json:"table"`
	EventType ChangeAction `json:"event_type"`
	New       interface{}  `json:"new,omitempty"`
	Old       interface{}  `json:"old,omitempty"`
	At        time.Time    `json:"at"`
}

// PublishChange fans the event out over redis, and mirrors it to the
// Pub/Sub topic when one is configured. Failures are logged, never
// surfaced; the database write already committed.
func PublishChange(ctx context.Context, table string, action ChangeAction, newRow interface{}, oldRow interface{}) {
	logger := config.GetLogger()

	event := ChangeEvent{
		Table:     table,
		EventType: action,
		New:       newRow,
		Old:       oldRow,
		At:        time.Now().UTC(),
	}

	payload, err := utils.MarshalToJSON(event)
	if err != nil {
		config.LogError(logger, "changeEvent", "PublishChange", table, event, err)
		return
	}

	if err := config.PublishRedis(ctx, ChangeFeedChannel, []byte(payload)); err != nil {
		config.LogError(logger, "changeEvent", "PublishChange", "redis publish", payload, err)
	}

	if err := config.PublishChangeFeed(ctx, []byte(payload)); err != nil {
		config.LogError(logger, "changeEvent", "PublishChange", "pubsub publish", payload, err)
	}
}
