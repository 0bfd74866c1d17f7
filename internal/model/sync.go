package model

import "time"

// SyncRequest is the payload the CLI posts after a scan run with --sync.
type SyncRequest struct {
	Tool      ToolID      `json:"tool" validate:"required"`
	Provider  string      `json:"provider" validate:"required"`
	Region    string      `json:"region,omitempty"`
	Status    ScanStatus  `json:"status,omitempty"`
	Summary   ScanSummary `json:"summary"`
	Findings  []Finding   `json:"findings" validate:"dive"`
	ProjectID string      `json:"project_id,omitempty"`
	Timestamp *time.Time  `json:"timestamp,omitempty"`
}

type SyncResponse struct {
	ScanID       string `json:"scan_id" validate:"required"`
	Message      string `json:"message"`
	DashboardURL string `json:"dashboard_url"`
}
