package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	TaskCreated          = "task.created"
	TaskUpdated          = "task.updated"
	TaskDeleted          = "task.deleted"
	CommentAdded         = "comment.added"
	CommentUpdated       = "comment.updated"
	DocumentAdded        = "document.added"
	DocumentVersionAdded = "document.version_added"
	PersonaChanged       = "persona.changed"
	StateReset           = "state.reset"
	StateCleared         = "state.cleared"
)

type EventPayload map[string]any

// Event describes one committed repository change.
type Event struct {
	ID         int64        `json:"id,omitempty"`
	TS         string       `json:"ts"`
	Type       string       `json:"type"`
	Namespace  string       `json:"namespace"`
	EntityKind string       `json:"entityKind"`
	EntityID   string       `json:"entityId,omitempty"`
	ActorID    string       `json:"actorId,omitempty"`
	Payload    EventPayload `json:"payload,omitempty"`
}

// Writer appends events to the workspace events table.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, evt Event) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := evt.TS
	if ts == "" {
		ts = w.Now().UTC().Format(time.RFC3339)
	}
	payload := evt.Payload
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO events(ts,type,namespace,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, evt.Type, evt.Namespace, evt.EntityKind, nullable(evt.EntityID), nullable(evt.ActorID), string(data))
	return err
}

// Filter narrows Latest. Empty fields match everything.
type Filter struct {
	Type       string
	EntityKind string
	EntityID   string
	Namespace  string
}

// Latest returns up to limit events, newest first.
func Latest(ctx context.Context, db *sql.DB, limit int, f Filter) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var where []string
	var args []any
	for col, v := range map[string]string{"type": f.Type, "entity_kind": f.EntityKind, "entity_id": f.EntityID, "namespace": f.Namespace} {
		if v != "" {
			where = append(where, col+"=?")
			args = append(args, v)
		}
	}
	q := `SELECT id,ts,type,namespace,entity_kind,entity_id,actor_id,payload_json FROM events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var evt Event
		var entityID, actorID sql.NullString
		var payload string
		if err := rows.Scan(&evt.ID, &evt.TS, &evt.Type, &evt.Namespace, &evt.EntityKind, &entityID, &actorID, &payload); err != nil {
			return nil, err
		}
		evt.EntityID = entityID.String
		evt.ActorID = actorID.String
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &evt.Payload); err != nil {
				return nil, fmt.Errorf("decode event %d payload: %w", evt.ID, err)
			}
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
