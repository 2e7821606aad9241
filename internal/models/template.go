package models

import "time"

// ImportTemplate is a row of import_templates. Mapping is stored as JSONB.
type ImportTemplate struct {
	TemplateID  string     `json:"templateID"`
	UserID      string     `json:"userID"`
	AccountID   string     `json:"accountID"`
	Fingerprint string     `json:"fingerprint"`
	Name        string     `json:"name"`
	Mapping     []byte     `json:"mapping"`
	UsageCount  int        `json:"usageCount"`
	LastUsedAt  *time.Time `json:"lastUsedAt"`
	AuditFields
}
