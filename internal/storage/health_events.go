package storage

import (
	"context"
	"fmt"
	"time"
)

// Transition is the kind of health change a HealthEvent records.
type Transition string

const (
	TransitionOnline  Transition = "online"
	TransitionOffline Transition = "offline"
)

// HealthEvent is one recorded online/offline transition for a server.
type HealthEvent struct {
	ID         int64
	ServerName string
	Transition Transition
	OccurredAt time.Time
}

// RecordHealthEvent appends one transition for serverName.
func (db *DB) RecordHealthEvent(ctx context.Context, serverName string, t Transition) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO health_events (server_name, transition, occurred_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, serverName, string(t))
	if err != nil {
		return fmt.Errorf("storage: record health event for %s: %w", serverName, err)
	}
	return nil
}

// RecentHealthEvents returns up to limit most-recent events for serverName,
// newest first.
func (db *DB) RecentHealthEvents(ctx context.Context, serverName string, limit int) ([]HealthEvent, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, server_name, transition, occurred_at
		FROM health_events
		WHERE server_name = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, serverName, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: query health events for %s: %w", serverName, err)
	}
	defer rows.Close()

	var out []HealthEvent
	for rows.Next() {
		var e HealthEvent
		var transition string
		if err := rows.Scan(&e.ID, &e.ServerName, &transition, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("storage: scan health event: %w", err)
		}
		e.Transition = Transition(transition)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate health events: %w", err)
	}
	return out, nil
}
