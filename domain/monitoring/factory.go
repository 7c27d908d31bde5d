package monitoring

import (
	"github.com/akeren/cv99x-waitlist/config/router"
	"github.com/akeren/cv99x-waitlist/internal/log"
)

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	store  Pinger
	logger *log.Logger
}

func NewMonitoringControllerFactory(store Pinger, logger *log.Logger) MonitoringControllerFactory {
	return &DefaultMonitoringControllerFactory{
		store:  store,
		logger: logger,
	}
}

func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	return NewMonitoringController(f.store, f.logger)
}
