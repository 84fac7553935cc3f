package models

import "time"

// CacheStatus reports how stale one cached response kind is.
type CacheStatus struct {
	Key       string `json:"key"`
	Populated bool   `json:"populated"`
	AgeMs     int64  `json:"age_ms,omitempty"`
}

// ServerStatus is one configured game server's current state.
type ServerStatus struct {
	Name             string        `json:"name"`
	Online           bool          `json:"online"`
	ConsecutiveFails int           `json:"consecutive_fails"`
	Caches           []CacheStatus `json:"caches"`
}

// ServerListResponse is the body of GET /servers.
type ServerListResponse struct {
	Servers []ServerStatus `json:"servers"`
}

// HealthEventEntry is one recorded online/offline transition.
type HealthEventEntry struct {
	Transition string    `json:"transition"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ServerHistoryResponse is the body of GET /servers/:name/history.
type ServerHistoryResponse struct {
	Name   string             `json:"name"`
	Events []HealthEventEntry `json:"events"`
}

// RefreshResponse is the body of POST /servers/:name/refresh.
type RefreshResponse struct {
	Name         string `json:"name"`
	Acknowledged bool   `json:"acknowledged"`
}
