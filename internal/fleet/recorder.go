package fleet

import (
	"context"
	"log/slog"

	"github.com/queryshield/a2sproxy/internal/storage"
)

// dbRecorder adapts *storage.DB's context/error-returning API to the
// fire-and-forget HealthEventRecorder interface the refresh-loop callbacks
// need: health transitions must never block on a database write, and a
// write failure is a logging concern, not something a refresh loop should
// propagate.
type dbRecorder struct {
	db  *storage.DB
	log *slog.Logger
}

// NewDBRecorder wraps db as a Recorder.
func NewDBRecorder(db *storage.DB, log *slog.Logger) Recorder {
	return &dbRecorder{db: db, log: log}
}

func (r *dbRecorder) Record(serverName string, t storage.Transition) {
	if err := r.db.RecordHealthEvent(context.Background(), serverName, t); err != nil {
		r.log.Warn("failed to persist health event", "server", serverName, "transition", t, "error", err)
	}
}

func (r *dbRecorder) Recent(ctx context.Context, serverName string, limit int) ([]storage.HealthEvent, error) {
	return r.db.RecentHealthEvents(ctx, serverName, limit)
}

// ringRecorder adapts *storage.Ring to Recorder.
type ringRecorder struct {
	ring *storage.Ring
}

// NewRingRecorder wraps ring as a Recorder.
func NewRingRecorder(ring *storage.Ring) Recorder {
	return &ringRecorder{ring: ring}
}

func (r *ringRecorder) Record(serverName string, t storage.Transition) {
	r.ring.Record(serverName, t)
}

func (r *ringRecorder) Recent(_ context.Context, serverName string, limit int) ([]storage.HealthEvent, error) {
	return r.ring.Recent(serverName, limit), nil
}
