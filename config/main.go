package config

import (
	"context"
	"time"

	"github.com/akeren/cv99x-waitlist/config/router"
	"github.com/akeren/cv99x-waitlist/internal/log"
	"github.com/akeren/cv99x-waitlist/internal/models"
	"github.com/akeren/cv99x-waitlist/pkg/constants"
	"github.com/akeren/cv99x-waitlist/pkg/utils"
)

type ApplicationConfig struct {
	Store           *Store
	RouterService   *router.RouterService
	Logger          *log.Logger
	Config          *AppConfig
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RequestTimeout time.Duration
	StoreTimeout   time.Duration
	DefaultSource  string
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		RequestTimeout: utils.GetEnvDurationOrDefault("REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
		StoreTimeout:   utils.GetEnvDurationOrDefault("STORE_TIMEOUT", constants.DefaultStoreTimeout),
		DefaultSource:  utils.GetEnvTrimmedOrDefault("WAITLIST_DEFAULT_SOURCE", constants.DefaultWaitlistSource),
	}
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	ac.Store.Close(ac.Logger)

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	appConfig := NewAppConfig()

	tracingShutdown, err := SetupTracing(logger)
	if err != nil {
		return nil, err
	}

	store, err := NewStoreConfig().OpenStore(logger, appConfig.StoreTimeout)
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if !store.IsSQL() {
			logger.Warn("--auto-migrate ignored: the hosted store manages its own schema", "driver", store.Driver)
		} else if err := AutoMigrate(logger, store.DB, models.ModelRegistry...); err != nil {
			store.Close(logger)
			return nil, err
		}
	}

	routerService := router.CreateRouterService(logger, &router.RouterConfig{
		RequestTimeout: appConfig.RequestTimeout,
	})

	logger.Info("Application configuration loaded successfully", "store_driver", store.Driver)

	return &ApplicationConfig{
		Store:           store,
		RouterService:   routerService,
		Logger:          logger,
		Config:          appConfig,
		TracingShutdown: tracingShutdown,
	}, nil
}
