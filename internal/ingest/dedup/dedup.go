// Package dedup computes transaction identity hashes and classifies a batch of
// transactions against three tiers: the batch itself, the committed store and
// the pending review queue. Duplicates are flagged, never removed.
package dedup

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

const fieldSep = "\x1f"

// Hash returns the identity of a transaction: a 64-bit xxhash over the
// normalized date, the whitespace-collapsed description, the absolute amount
// and the verbatim raw row. The sign never affects the result; the raw row does.
func Hash(date civil.Date, description string, amount decimal.Decimal, rawRow string) string {
	var b strings.Builder
	b.WriteString(date.String())
	b.WriteString(fieldSep)
	b.WriteString(NormalizeDescription(description))
	b.WriteString(fieldSep)
	b.WriteString(amount.Abs().StringFixed(2))
	b.WriteString(fieldSep)
	b.WriteString(rawRow)
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}

// HashTransaction sets and returns the hash of txn.
func HashTransaction(txn *domain.CanonicalTransaction) string {
	txn.Hash = Hash(txn.Date, txn.Description, txn.Amount, txn.RawRow)
	return txn.Hash
}

// NormalizeDescription trims and collapses internal whitespace.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HashLookup answers which of the given hashes already exist for an account.
// The committed-hash store and the pending queue both implement it.
type HashLookup interface {
	ExistingHashes(ctx context.Context, accountID string, hashes []string) (map[string]struct{}, error)
}

// Summary counts the outcome of Classify.
type Summary = domain.DedupSummary

// MarkWithinBatch flags every repeat of an already seen hash. The first
// occurrence stays unique. Transactions without a hash get one.
func MarkWithinBatch(txns []domain.CanonicalTransaction, seen map[string]struct{}) {
	for i := range txns {
		if txns[i].Hash == "" {
			HashTransaction(&txns[i])
		}
		if _, dup := seen[txns[i].Hash]; dup {
			txns[i].DedupStatus = domain.DedupDuplicateWithinFile
			continue
		}
		seen[txns[i].Hash] = struct{}{}
		txns[i].DedupStatus = domain.DedupUnique
	}
}

// Classify runs the three tiers in order. committed or pending may be nil to
// skip that tier. The slice is updated in place.
func Classify(ctx context.Context, accountID string, txns []domain.CanonicalTransaction, committed, pending HashLookup) (Summary, error) {
	MarkWithinBatch(txns, make(map[string]struct{}, len(txns)))

	tiers := []struct {
		lookup HashLookup
		status domain.DedupStatus
		name   string
	}{
		{committed, domain.DedupDuplicateDatabase, "committed"},
		{pending, domain.DedupDuplicatePending, "pending"},
	}
	for _, tier := range tiers {
		if tier.lookup == nil {
			continue
		}
		hashes := uniqueHashes(txns)
		if len(hashes) == 0 {
			break
		}
		existing, err := tier.lookup.ExistingHashes(ctx, accountID, hashes)
		if err != nil {
			return Summary{}, fmt.Errorf("check %s hashes: %w", tier.name, err)
		}
		for i := range txns {
			if txns[i].DedupStatus != domain.DedupUnique {
				continue
			}
			if _, ok := existing[txns[i].Hash]; ok {
				txns[i].DedupStatus = tier.status
			}
		}
	}
	return Summarize(txns), nil
}

// Summarize counts dedup statuses.
func Summarize(txns []domain.CanonicalTransaction) Summary {
	var s Summary
	for _, t := range txns {
		switch t.DedupStatus {
		case domain.DedupDuplicateWithinFile:
			s.DuplicateWithinFile++
		case domain.DedupDuplicateDatabase:
			s.DuplicateDatabase++
		case domain.DedupDuplicatePending:
			s.DuplicatePending++
		default:
			s.Unique++
		}
	}
	return s
}

// Selected returns the transactions that should be committed: unique ones plus
// any duplicate whose hash is listed in forceInclude.
func Selected(txns []domain.CanonicalTransaction, forceInclude map[string]bool) []domain.CanonicalTransaction {
	out := make([]domain.CanonicalTransaction, 0, len(txns))
	for _, t := range txns {
		if !t.DedupStatus.IsDuplicate() || forceInclude[t.Hash] {
			out = append(out, t)
		}
	}
	return out
}

func uniqueHashes(txns []domain.CanonicalTransaction) []string {
	out := make([]string, 0, len(txns))
	for _, t := range txns {
		if t.DedupStatus == domain.DedupUnique {
			out = append(out, t.Hash)
		}
	}
	return out
}
