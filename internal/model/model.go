package model

import "time"

// Tier is a subscription level. The tools each tier unlocks live in the tier catalog.
type Tier string

const (
	TierTrial      Tier = "trial"
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierTeam       Tier = "team"
	TierEnterprise Tier = "enterprise"
	TierBeta       Tier = "beta"
)

// ToolID identifies one product module gated by tier.
type ToolID string

const (
	ToolVerify   ToolID = "verify"
	ToolMigrate  ToolID = "migrate"
	ToolCodify   ToolID = "codify"
	ToolComply   ToolID = "comply"
	ToolDataIQ   ToolID = "dataiq"
	ToolSecureIQ ToolID = "secureiq"
	ToolTessera  ToolID = "tessera"
)

// Tools lists every tool in catalog order.
var Tools = []ToolID{
	ToolVerify,
	ToolMigrate,
	ToolCodify,
	ToolComply,
	ToolDataIQ,
	ToolSecureIQ,
	ToolTessera,
}

func (t ToolID) Valid() bool {
	for _, id := range Tools {
		if id == t {
			return true
		}
	}
	return false
}

type ScanStatus string

const (
	ScanStatusInProgress ScanStatus = "in_progress"
	ScanStatusCompleted  ScanStatus = "completed"
	ScanStatusFailed     ScanStatus = "failed"
)

func (s ScanStatus) Valid() bool {
	switch s {
	case ScanStatusInProgress, ScanStatusCompleted, ScanStatusFailed:
		return true
	}
	return false
}

type ScanSummary struct {
	ResourcesScanned int `json:"resources_scanned" validate:"gte=0"`
	IssuesFound      int `json:"issues_found" validate:"gte=0"`
	Critical         int `json:"critical" validate:"gte=0"`
	High             int `json:"high" validate:"gte=0"`
	Medium           int `json:"medium" validate:"gte=0"`
	Low              int `json:"low" validate:"gte=0"`
}

type Finding struct {
	ID           string `json:"id" validate:"required"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Issue        string `json:"issue" validate:"required"`
	Severity     string `json:"severity" validate:"required,oneof=critical high medium low info"`
	Remediation  string `json:"remediation"`
}

type Scan struct {
	ID        string      `json:"id" validate:"required"`
	UserID    string      `json:"user_id,omitempty"`
	Tool      ToolID      `json:"tool" validate:"required"`
	Provider  string      `json:"provider"`
	Region    string      `json:"region,omitempty"`
	Status    ScanStatus  `json:"status" validate:"required,oneof=in_progress completed failed"`
	Summary   ScanSummary `json:"summary"`
	Findings  []Finding   `json:"findings" validate:"dive"`
	ProjectID string      `json:"project_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Project struct {
	ID          string    `json:"id" validate:"required"`
	UserID      string    `json:"user_id,omitempty"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ComplianceStatus struct {
	Framework string `json:"framework" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=compliant non_compliant partial"`
}

// DashboardStats aggregates a user's scans from the last seven days.
type DashboardStats struct {
	ResourcesMonitored int                `json:"resources_monitored" validate:"gte=0"`
	IssuesFound        int                `json:"issues_found" validate:"gte=0"`
	CriticalIssues     int                `json:"critical_issues" validate:"gte=0"`
	SecurityScore      int                `json:"security_score" validate:"gte=0,lte=100"`
	SecurityGrade      string             `json:"security_grade" validate:"required"`
	ComplianceStatus   []ComplianceStatus `json:"compliance_status" validate:"dive"`
	ActiveMigrations   int                `json:"active_migrations" validate:"gte=0"`
	ScansThisWeek      int                `json:"scans_this_week" validate:"gte=0"`
	IssuesResolved     int                `json:"issues_resolved" validate:"gte=0"`
}

type Recommendation struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Tool        ToolID `json:"tool"`
	ActionURL   string `json:"action_url"`
}
