package domain

import (
	"github.com/akeren/cv99x-waitlist/config"
	"github.com/akeren/cv99x-waitlist/domain/monitoring"
	"github.com/akeren/cv99x-waitlist/domain/waitlist"
)

// NewWaitlistRepository picks the repository implementation matching the opened store.
func NewWaitlistRepository(store *config.Store) waitlist.WaitlistRepository {
	if store.IsSQL() {
		return waitlist.NewWaitlistRepository(store.DB)
	}
	return waitlist.NewRESTWaitlistRepository(store.Supabase, store.Breaker, store.Table)
}

func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	waitlistFactory := waitlist.NewWaitlistServiceFactory(
		NewWaitlistRepository(appConfig.Store),
		appConfig.Logger,
		&waitlist.ServiceConfig{
			DefaultSource: appConfig.Config.DefaultSource,
			StoreTimeout:  appConfig.Config.StoreTimeout,
		},
	)

	appConfig.RouterService.MountController(monitoring.NewMonitoringControllerFactory(waitlistFactory.Repository(), appConfig.Logger).CreateController())
	appConfig.RouterService.MountController(waitlistFactory.CreateController())
}
