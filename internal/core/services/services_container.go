package services

import (
	"github.com/SscSPs/bank_ledger/internal/core/policy"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// cache and publisher may be nil.
func NewServiceContainer(repos portsrepo.RepositoryProvider, p policy.Policy, cache portssvc.BalanceCache, publisher portssvc.EventPublisher) *portssvc.ServiceContainer {
	return &portssvc.ServiceContainer{
		Account: NewAccountService(
			repos.AccountRepo,
			WithAccountBalanceCache(cache),
			WithAccountEventPublisher(publisher),
		),
		Ledger: NewLedgerService(
			repos,
			WithPolicy(p),
			WithBalanceCache(cache),
			WithEventPublisher(publisher),
		),
		Query: NewQueryService(repos, WithQueryBalanceCache(cache)),
	}
}
