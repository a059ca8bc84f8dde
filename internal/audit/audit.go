package audit

import (
	"context"
	"encoding/json"
	"time"

	"table-service/internal/common/db"
	"table-service/internal/common/logger"
	"table-service/internal/domain"
)

// Event is one appended row of the audit trail: which mutation hit which
// table, and the table's state right after it.
type Event struct {
	TableID    string
	EventKind  domain.EventKind
	ItemCount  int
	TableState []byte
	OccurredAt time.Time
}

type EventRepository interface {
	AppendEvent(ctx context.Context, ev Event) error
}

type pgRepository struct{ conn *db.Conn }

func NewPGRepository(conn *db.Conn) EventRepository {
	return &pgRepository{conn: conn}
}

func (r *pgRepository) AppendEvent(ctx context.Context, ev Event) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO table_events (table_id, event_kind, item_count, table_state, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ev.TableID, string(ev.EventKind), ev.ItemCount, ev.TableState, ev.OccurredAt)
	return err
}

// Recorder turns tagged sync snapshots into audit rows. Untagged snapshots
// (serve, increment, decrement) are skipped. The trail is read-only: it
// never feeds state back to any client.
type Recorder struct {
	repo EventRepository
	lg   *logger.Logger
}

func NewRecorder(repo EventRepository, lg *logger.Logger) *Recorder {
	return &Recorder{repo: repo, lg: lg}
}

// Handle is the sync-bus subscription callback.
func (rec *Recorder) Handle(msg domain.SyncMessage) {
	if msg.EventKind == "" {
		return
	}
	t := msg.Tables[msg.TableID]
	state, err := json.Marshal(t)
	if err != nil {
		rec.lg.Error("audit_marshal_failed", err, map[string]any{"table_id": msg.TableID})
		return
	}
	ev := Event{
		TableID:    msg.TableID,
		EventKind:  msg.EventKind,
		ItemCount:  len(t.Items),
		TableState: state,
		OccurredAt: time.Now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rec.repo.AppendEvent(ctx, ev); err != nil {
		rec.lg.Error("audit_append_failed", err, map[string]any{
			"table_id": msg.TableID, "event_kind": string(msg.EventKind),
		})
		return
	}
	rec.lg.Debug("audit_event_recorded", map[string]any{
		"table_id": msg.TableID, "event_kind": string(msg.EventKind), "item_count": ev.ItemCount,
	})
}
