package domain

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // UserID Reference
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // UserID Reference
}

// NewAuditFields stamps a new entity as created and last updated by actor at at.
func NewAuditFields(actor string, at time.Time) AuditFields {
	return AuditFields{CreatedAt: at, CreatedBy: actor, LastUpdatedAt: at, LastUpdatedBy: actor}
}

// Touch records an update by actor.
func (a *AuditFields) Touch(actor string, at time.Time) {
	a.LastUpdatedAt = at
	a.LastUpdatedBy = actor
}

var validate = validator.New()
