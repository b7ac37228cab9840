package model

import "time"

// PendencySummary is the per-contract compliance overview rendered by the
// XLSX and PDF exporters.
type PendencySummary struct {
	Contract    Contract
	GeneratedAt time.Time
	Counters    StatusCounters
	Items       []Pendency
}
