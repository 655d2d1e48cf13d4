package models

import "time"

// ExportMetricsSnapshot summarises process-level export counters.
type ExportMetricsSnapshot struct {
	RequestsTotal   uint64    `json:"requestsTotal"`
	ExportsTotal    uint64    `json:"exportsTotal"`
	ExportsFailed   uint64    `json:"exportsFailed"`
	ExportsEmpty    uint64    `json:"exportsEmpty"`
	RecordsExported uint64    `json:"recordsExported"`
	InFlight        int64     `json:"inFlight"`
	Goroutines      int       `json:"goroutines"`
	GeneratedAt     time.Time `json:"generatedAt"`
}
