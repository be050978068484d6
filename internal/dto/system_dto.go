package dto

import "time"

// Log ids are MD5 hashes of the log line, not UUIDs.
type LogListResponse struct {
	Id        string    `json:"id"`
	Level     string    `json:"level"`
	Module    string    `json:"module"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type LogDetailResponse struct {
	LogListResponse
	Details map[string]interface{} `json:"details"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	StoreDriver    string `json:"store_driver"`
	OpenSessions   int    `json:"open_sessions"`
	LocalModel     string `json:"local_model,omitempty"`
	LocalBusy      bool   `json:"local_busy"`
	SearchProvider string `json:"search_provider"`
}
