package mapping

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/SscSPs/txn_ingest/internal/models"
)

// DateToTime converts a calendar date to midnight UTC for DATE columns.
func DateToTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// TimeToDate converts a scanned DATE column back to a calendar date.
func TimeToDate(t time.Time) civil.Date {
	return civil.DateOf(t.UTC())
}

// ToModelTemplate converts a domain ImportTemplate to a model ImportTemplate
func ToModelTemplate(d domain.ImportTemplate) (models.ImportTemplate, error) {
	raw, err := json.Marshal(d.Mapping)
	if err != nil {
		return models.ImportTemplate{}, fmt.Errorf("failed to encode column mapping: %w", err)
	}
	return models.ImportTemplate{
		TemplateID:  d.TemplateID,
		UserID:      d.UserID,
		AccountID:   d.AccountID,
		Fingerprint: d.Fingerprint,
		Name:        d.Name,
		Mapping:     raw,
		UsageCount:  d.UsageCount,
		LastUsedAt:  d.LastUsedAt,
		AuditFields: toModelAudit(d.AuditFields),
	}, nil
}

// ToDomainTemplate converts a model ImportTemplate to a domain ImportTemplate
func ToDomainTemplate(m models.ImportTemplate) (domain.ImportTemplate, error) {
	var cm domain.ColumnMapping
	if err := json.Unmarshal(m.Mapping, &cm); err != nil {
		return domain.ImportTemplate{}, fmt.Errorf("failed to decode column mapping of template %s: %w", m.TemplateID, err)
	}
	return domain.ImportTemplate{
		TemplateID:  m.TemplateID,
		UserID:      m.UserID,
		AccountID:   m.AccountID,
		Fingerprint: m.Fingerprint,
		Name:        m.Name,
		Mapping:     cm,
		UsageCount:  m.UsageCount,
		LastUsedAt:  m.LastUsedAt,
		AuditFields: toDomainAudit(m.AuditFields),
	}, nil
}

// ToModelCommitted converts a domain CommittedTransaction to a model CommittedTransaction
func ToModelCommitted(d domain.CommittedTransaction) models.CommittedTransaction {
	return models.CommittedTransaction{
		CommittedID: d.CommittedID,
		AccountID:   d.AccountID,
		Hash:        d.Hash,
		TxnDate:     DateToTime(d.Date),
		Description: d.Description,
		Amount:      d.Amount,
		Direction:   string(d.Direction),
		Forced:      d.Forced,
		LedgerRef:   d.LedgerRef,
		CommittedAt: d.CommittedAt,
		CommittedBy: d.CommittedBy,
	}
}

// ToModelQueueItem converts a domain QueuedImportItem to a model QueueItem
func ToModelQueueItem(d domain.QueuedImportItem) (models.QueueItem, error) {
	payload, err := json.Marshal(d.Transaction)
	if err != nil {
		return models.QueueItem{}, fmt.Errorf("failed to encode queued transaction: %w", err)
	}
	return models.QueueItem{
		ItemID:      d.ItemID,
		BatchID:     d.BatchID,
		SetupID:     d.SetupID,
		AccountID:   d.AccountID,
		Hash:        d.Transaction.Hash,
		TxnDate:     DateToTime(d.Transaction.Date),
		Amount:      d.Transaction.Amount,
		Source:      string(d.Transaction.Source),
		Payload:     payload,
		Status:      string(d.Status),
		ReviewedBy:  d.ReviewedBy,
		ReviewedAt:  d.ReviewedAt,
		ReviewNotes: d.ReviewNotes,
		LedgerRef:   d.LedgerRef,
		AuditFields: toModelAudit(d.AuditFields),
	}, nil
}

// ToDomainQueueItem converts a model QueueItem to a domain QueuedImportItem
func ToDomainQueueItem(m models.QueueItem) (domain.QueuedImportItem, error) {
	var txn domain.CanonicalTransaction
	if err := json.Unmarshal(m.Payload, &txn); err != nil {
		return domain.QueuedImportItem{}, fmt.Errorf("failed to decode queued transaction %s: %w", m.ItemID, err)
	}
	return domain.QueuedImportItem{
		ItemID:      m.ItemID,
		BatchID:     m.BatchID,
		SetupID:     m.SetupID,
		AccountID:   m.AccountID,
		Transaction: txn,
		Status:      domain.QueueStatus(m.Status),
		ReviewedBy:  m.ReviewedBy,
		ReviewedAt:  m.ReviewedAt,
		ReviewNotes: m.ReviewNotes,
		LedgerRef:   m.LedgerRef,
		AuditFields: toDomainAudit(m.AuditFields),
	}, nil
}

// ToDomainBatches folds per-status counts into batch views, keeping the
// order in which batches first appear.
func ToDomainBatches(counts []models.BatchStatusCount) []domain.ImportBatch {
	batches := []domain.ImportBatch{}
	index := make(map[string]int)
	for _, c := range counts {
		i, ok := index[c.BatchID]
		if !ok {
			i = len(batches)
			index[c.BatchID] = i
			batches = append(batches, domain.ImportBatch{
				BatchID:      c.BatchID,
				AccountID:    c.AccountID,
				SetupID:      c.SetupID,
				StatusCounts: make(map[domain.QueueStatus]int),
				CreatedAt:    c.CreatedAt,
			})
		}
		b := &batches[i]
		b.StatusCounts[domain.QueueStatus(c.Status)] += c.Count
		b.ItemCount += c.Count
		if c.CreatedAt.Before(b.CreatedAt) {
			b.CreatedAt = c.CreatedAt
		}
	}
	return batches
}

// ToModelSetup converts a domain ImportSetup to a model ImportSetup
func ToModelSetup(d domain.ImportSetup) models.ImportSetup {
	return models.ImportSetup{
		SetupID:          d.SetupID,
		UserID:           d.UserID,
		AccountID:        d.AccountID,
		Kind:             string(d.Kind),
		DisplayName:      d.DisplayName,
		ExternalRef:      d.ExternalRef,
		WebhookTokenHash: d.WebhookTokenHash,
		SyncCursor:       d.SyncCursor,
		LastSyncedAt:     d.LastSyncedAt,
		IsActive:         d.IsActive,
		AuditFields:      toModelAudit(d.AuditFields),
	}
}

// ToDomainSetup converts a model ImportSetup to a domain ImportSetup
func ToDomainSetup(m models.ImportSetup) domain.ImportSetup {
	return domain.ImportSetup{
		SetupID:          m.SetupID,
		UserID:           m.UserID,
		AccountID:        m.AccountID,
		Kind:             domain.SourceKind(m.Kind),
		DisplayName:      m.DisplayName,
		ExternalRef:      m.ExternalRef,
		WebhookTokenHash: m.WebhookTokenHash,
		SyncCursor:       m.SyncCursor,
		LastSyncedAt:     m.LastSyncedAt,
		IsActive:         m.IsActive,
		AuditFields:      toDomainAudit(m.AuditFields),
	}
}

// ToModelLedger builds the journal and its lines for a committed entry.
func ToModelLedger(entry domain.LedgerEntry, journalID string, lineIDs []string, at time.Time) (models.LedgerJournal, []models.LedgerJournalLine) {
	audit := toModelAudit(domain.NewAuditFields(entry.CommittedBy, at))
	txn := entry.Transaction
	var sourceRef *string
	if txn.SourceRef != "" {
		ref := txn.SourceRef
		sourceRef = &ref
	}
	journal := models.LedgerJournal{
		JournalID:   journalID,
		CommittedID: entry.CommittedID,
		AccountID:   entry.AccountID,
		JournalDate: DateToTime(txn.Date),
		Description: txn.Description,
		Merchant:    txn.Merchant,
		Amount:      txn.SignedAmount(),
		Direction:   string(txn.Direction),
		Source:      string(txn.Source),
		SourceRef:   sourceRef,
		AuditFields: audit,
	}
	lines := make([]models.LedgerJournalLine, len(entry.Splits))
	for i, s := range entry.Splits {
		lines[i] = models.LedgerJournalLine{
			LineID:      lineIDs[i],
			JournalID:   journalID,
			Category:    s.Category,
			Amount:      s.Amount,
			AuditFields: audit,
		}
	}
	return journal, lines
}

func toModelAudit(d domain.AuditFields) models.AuditFields {
	return models.AuditFields(d)
}

func toDomainAudit(m models.AuditFields) domain.AuditFields {
	return domain.AuditFields(m)
}
