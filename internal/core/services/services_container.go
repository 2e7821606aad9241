package services

import (
	portsrepo "github.com/SscSPs/txn_ingest/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/platform/config"
)

// Collaborators are the external systems the services call. Any of them may
// be nil; the matching ingestion path then reports itself as not configured.
type Collaborators struct {
	Text        portssvc.TextExtractor
	Vision      portssvc.VisionExtractor
	Categorizer portssvc.Categorizer
	Archive     portssvc.DocumentArchive
	BankFeed    portssvc.BankFeedClient
	Mailbox     portssvc.Mailbox
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, collab Collaborators) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Template store first since both the manual and the email flow resolve templates
	container.Template = NewTemplateService(repos.TemplateRepo, WithTemplateMinConfidence(cfg.TemplateMinConfidence))

	container.Import = NewImportService(
		container.Template,
		repos.CommittedRepo,
		repos.QueueRepo,
		repos.LedgerRepo,
		WithTextExtractor(collab.Text),
		WithVisionExtractor(collab.Vision),
		WithCategorizer(collab.Categorizer),
		WithDocumentArchive(collab.Archive),
		WithRemoteTimeout(cfg.RemoteTimeout),
	)

	container.Queue = NewQueueService(repos.QueueRepo, repos.CommittedRepo, repos.LedgerRepo, repos.SetupRepo)
	container.Setup = NewSetupService(repos.SetupRepo)
	container.Maintenance = NewMaintenanceService(repos.CommittedRepo)

	if collab.BankFeed != nil {
		container.BankSync = NewBankSyncService(
			collab.BankFeed,
			container.Queue,
			repos.SetupRepo,
			WithBankSyncTimeout(cfg.RemoteTimeout),
			WithBankSyncCategorizer(collab.Categorizer),
		)
	}
	if collab.Mailbox != nil {
		container.EmailIngest = NewEmailIngestService(
			collab.Mailbox,
			container.Queue,
			container.Template,
			WithEmailTextExtractor(collab.Text),
			WithEmailVisionExtractor(collab.Vision),
			WithEmailCategorizer(collab.Categorizer),
			WithEmailArchive(collab.Archive),
			WithEmailTimeout(cfg.RemoteTimeout),
		)
	}

	return container
}
