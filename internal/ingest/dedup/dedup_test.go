package dedup_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/SscSPs/txn_ingest/internal/ingest/dedup"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockHashLookup struct {
	mock.Mock
}

func (m *MockHashLookup) ExistingHashes(ctx context.Context, accountID string, hashes []string) (map[string]struct{}, error) {
	args := m.Called(ctx, accountID, hashes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

var day = civil.Date{Year: 2024, Month: time.March, Day: 4}

func txn(desc, amount, raw string) domain.CanonicalTransaction {
	t := domain.CanonicalTransaction{
		Date:        day,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Direction:   domain.Expense,
		RawRow:      raw,
	}
	dedup.HashTransaction(&t)
	return t
}

func TestHash_Properties(t *testing.T) {
	base := dedup.Hash(day, "COFFEE SHOP", decimal.RequireFromString("52.10"), "03/04/2024,-52.10,COFFEE SHOP")

	assert.Len(t, base, 16)
	assert.Equal(t, base, dedup.Hash(day, "COFFEE SHOP", decimal.RequireFromString("52.10"), "03/04/2024,-52.10,COFFEE SHOP"), "deterministic")
	assert.Equal(t, base, dedup.Hash(day, "COFFEE SHOP", decimal.RequireFromString("-52.10"), "03/04/2024,-52.10,COFFEE SHOP"), "sign invariant")
	assert.Equal(t, base, dedup.Hash(day, "  COFFEE   SHOP ", decimal.RequireFromString("52.1"), "03/04/2024,-52.10,COFFEE SHOP"), "whitespace and scale normalized")
	assert.NotEqual(t, base, dedup.Hash(day, "COFFEE SHOP", decimal.RequireFromString("52.10"), "03/04/2024,-52.10,COFFEE SHOP "), "raw row sensitive")
	assert.NotEqual(t, base, dedup.Hash(day.AddDays(1), "COFFEE SHOP", decimal.RequireFromString("52.10"), "03/04/2024,-52.10,COFFEE SHOP"))
	assert.NotEqual(t, base, dedup.Hash(day, "COFFEE SHOP", decimal.RequireFromString("52.11"), "03/04/2024,-52.10,COFFEE SHOP"))
}

func TestMarkWithinBatch_FirstOccurrenceWins(t *testing.T) {
	txns := []domain.CanonicalTransaction{
		txn("A", "1.00", "r1"),
		txn("A", "1.00", "r1"),
		txn("B", "2.00", "r2"),
	}
	dedup.MarkWithinBatch(txns, map[string]struct{}{})

	assert.Equal(t, domain.DedupUnique, txns[0].DedupStatus)
	assert.Equal(t, domain.DedupDuplicateWithinFile, txns[1].DedupStatus)
	assert.Equal(t, domain.DedupUnique, txns[2].DedupStatus)
}

func TestClassify_ThreeTiers(t *testing.T) {
	ctx := context.Background()
	fresh := txn("FRESH", "1.00", "r1")
	repeat := txn("FRESH", "1.00", "r1")
	committedTxn := txn("OLD", "2.00", "r2")
	pendingTxn := txn("QUEUED", "3.00", "r3")
	txns := []domain.CanonicalTransaction{fresh, repeat, committedTxn, pendingTxn}

	committed := new(MockHashLookup)
	committed.On("ExistingHashes", ctx, "acct-1", []string{fresh.Hash, committedTxn.Hash, pendingTxn.Hash}).
		Return(map[string]struct{}{committedTxn.Hash: {}}, nil).Once()
	pending := new(MockHashLookup)
	pending.On("ExistingHashes", ctx, "acct-1", []string{fresh.Hash, pendingTxn.Hash}).
		Return(map[string]struct{}{pendingTxn.Hash: {}}, nil).Once()

	summary, err := dedup.Classify(ctx, "acct-1", txns, committed, pending)
	require.NoError(t, err)

	assert.Equal(t, domain.DedupUnique, txns[0].DedupStatus)
	assert.Equal(t, domain.DedupDuplicateWithinFile, txns[1].DedupStatus)
	assert.Equal(t, domain.DedupDuplicateDatabase, txns[2].DedupStatus)
	assert.Equal(t, domain.DedupDuplicatePending, txns[3].DedupStatus)
	assert.Equal(t, dedup.Summary{Unique: 1, DuplicateWithinFile: 1, DuplicateDatabase: 1, DuplicatePending: 1}, summary)
	assert.Equal(t, 3, summary.Duplicates())
	assert.Len(t, txns, 4, "duplicates are flagged, not removed")

	committed.AssertExpectations(t)
	pending.AssertExpectations(t)
}

func TestClassify_LookupErrorPropagates(t *testing.T) {
	ctx := context.Background()
	txns := []domain.CanonicalTransaction{txn("A", "1.00", "r1")}
	committed := new(MockHashLookup)
	committed.On("ExistingHashes", ctx, "acct-1", mock.Anything).Return(nil, assert.AnError).Once()

	_, err := dedup.Classify(ctx, "acct-1", txns, committed, nil)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSelected_ForceInclude(t *testing.T) {
	a := txn("A", "1.00", "r1")
	b := txn("B", "2.00", "r2")
	b.DedupStatus = domain.DedupDuplicateDatabase
	c := txn("C", "3.00", "r3")
	c.DedupStatus = domain.DedupDuplicatePending
	a.DedupStatus = domain.DedupUnique

	selected := dedup.Selected([]domain.CanonicalTransaction{a, b, c}, nil)
	require.Len(t, selected, 1)
	assert.Equal(t, "A", selected[0].Description)

	selected = dedup.Selected([]domain.CanonicalTransaction{a, b, c}, map[string]bool{b.Hash: true})
	assert.Len(t, selected, 2)
}
