package models

import "time"

// ImportSetup is a row of import_setups.
type ImportSetup struct {
	SetupID          string     `json:"setupID"`
	UserID           string     `json:"userID"`
	AccountID        string     `json:"accountID"`
	Kind             string     `json:"kind"`
	DisplayName      string     `json:"displayName"`
	ExternalRef      string     `json:"externalRef"`
	WebhookTokenHash string     `json:"-"`
	SyncCursor       *string    `json:"syncCursor"`
	LastSyncedAt     *time.Time `json:"lastSyncedAt"`
	IsActive         bool       `json:"isActive"`
	AuditFields
}
