package pgsql

import (
	portsrepo "github.com/SscSPs/txn_ingest/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TemplateRepo:  newPgxTemplateRepository(dbPool),
		CommittedRepo: newPgxCommittedRepository(dbPool),
		QueueRepo:     newPgxQueueRepository(dbPool),
		SetupRepo:     newPgxSetupRepository(dbPool),
		LedgerRepo:    newPgxLedgerRepository(dbPool),
	}
}
