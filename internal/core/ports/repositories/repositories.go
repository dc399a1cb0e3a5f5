package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// Each storage backend builds one of these.
type RepositoryProvider struct {
	AccountRepo     AccountRepositoryFacade
	TransactionRepo TransactionReader
	UnitOfWork      UnitOfWork
}
