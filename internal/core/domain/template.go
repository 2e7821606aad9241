package domain

import "time"

// ImportTemplate is a remembered column mapping keyed by file structure.
type ImportTemplate struct {
	TemplateID  string        `json:"templateID"`
	UserID      string        `json:"userID"`
	AccountID   string        `json:"accountID"`
	Fingerprint string        `json:"fingerprint"` // Structural signature of column count and header text
	Name        string        `json:"name"`
	Mapping     ColumnMapping `json:"mapping"`
	UsageCount  int           `json:"usageCount"`
	LastUsedAt  *time.Time    `json:"lastUsedAt,omitempty"`
	AuditFields
}
