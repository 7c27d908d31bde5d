package waitlist

import (
	"github.com/akeren/cv99x-waitlist/config/router"
	"github.com/akeren/cv99x-waitlist/internal/log"
)

type WaitlistServiceFactory interface {
	CreateService() WaitlistService
	CreateController() *router.RESTController
	Repository() WaitlistRepository
}

type DefaultWaitlistServiceFactory struct {
	repository WaitlistRepository
	logger     *log.Logger
	config     *ServiceConfig
}

func NewWaitlistServiceFactory(repository WaitlistRepository, logger *log.Logger, cfg *ServiceConfig) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{
		repository: repository,
		logger:     logger,
		config:     cfg,
	}
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	return NewWaitlistService(f.logger, f.repository, f.config)
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewWaitlistController(f.repository, f.logger, f.config)
}

func (f *DefaultWaitlistServiceFactory) Repository() WaitlistRepository {
	return f.repository
}
