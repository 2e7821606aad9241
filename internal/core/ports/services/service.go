package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers.
type ServiceContainer struct {
	Import      ImportSvc
	Queue       QueueSvcFacade
	Template    TemplateSvc
	Setup       SetupSvc
	BankSync    BankSyncSvc
	EmailIngest EmailIngestSvc
	Maintenance MaintenanceSvc
}
