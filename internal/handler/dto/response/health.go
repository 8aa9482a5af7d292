package response

import "time"

type BackendHealth struct {
	Backend string `json:"backend"`
	Status  string `json:"status"`
	Durable bool   `json:"durable"`
	Held    int    `json:"held,omitempty"`
}

type HealthResponse struct {
	Status      string        `json:"status"`
	Durable     bool          `json:"durable"`
	RecordStore BackendHealth `json:"recordStore"`
	Queue       BackendHealth `json:"queue"`
	Timestamp   time.Time     `json:"timestamp"`
}
