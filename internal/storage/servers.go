package storage

import (
	"context"
	"fmt"
)

// ServerRow mirrors the subset of config.ServerConfig the management API
// needs to list without holding a reference to the live fleet config.
type ServerRow struct {
	Name       string
	ServerIP   string
	ServerPort int
	BindIP     string
	BindPort   int
}

// UpsertServer records or updates one server's addressing info.
func (db *DB) UpsertServer(ctx context.Context, s ServerRow) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	query := `
		INSERT INTO servers (name, server_ip, server_port, bind_ip, bind_port, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			server_ip = excluded.server_ip,
			server_port = excluded.server_port,
			bind_ip = excluded.bind_ip,
			bind_port = excluded.bind_port,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := db.conn.ExecContext(ctx, query, s.Name, s.ServerIP, s.ServerPort, s.BindIP, s.BindPort)
	if err != nil {
		return fmt.Errorf("storage: upsert server %s: %w", s.Name, err)
	}
	return nil
}

// ListServers returns every recorded server, ordered by name.
func (db *DB) ListServers(ctx context.Context) ([]ServerRow, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT name, server_ip, server_port, bind_ip, bind_port
		FROM servers
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("storage: list servers: %w", err)
	}
	defer rows.Close()

	var out []ServerRow
	for rows.Next() {
		var s ServerRow
		if err := rows.Scan(&s.Name, &s.ServerIP, &s.ServerPort, &s.BindIP, &s.BindPort); err != nil {
			return nil, fmt.Errorf("storage: scan server row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate servers: %w", err)
	}
	return out, nil
}
