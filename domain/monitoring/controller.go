package monitoring

import (
	"context"
	"time"

	"github.com/akeren/cv99x-waitlist/config/router"
	"github.com/akeren/cv99x-waitlist/internal/log"
)

const storeCheckTimeout = 3 * time.Second

// Pinger is anything whose reachability the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Store  int `json:"store"`  // 1 = reachable, 0 = unreachable
	Uptime int `json:"uptime"` // uptime in seconds
}

type MonitoringController struct {
	store     Pinger
	logger    *log.Logger
	startTime time.Time
}

func NewMonitoringController(store Pinger, logger *log.Logger) *router.RESTController {
	ctrl := &MonitoringController{
		store:     store,
		logger:    logger,
		startTime: time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(routerService *router.RouterService, controller *router.RESTController) {
			routerService.AddGetHandler(controller, "health", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthCheck(routerService, c)
			})
		},
	)
}

func (ctrl *MonitoringController) healthCheck(
	routerService *router.RouterService,
	c *router.RequestContext,
) *router.ServiceResult {
	logger := routerService.GetLogger(c)
	logger.Debug("Health check endpoint called")

	return router.OKResult(ctrl.performHealthChecks(c.Request.Context(), logger))
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		Uptime: int(time.Since(ctrl.startTime).Seconds()),
	}

	checkStoreConnectivity(ctx, ctrl, &status, logger)

	return status
}

func checkStoreConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.store == nil {
		logger.Warn("Store not configured, store health check skipped")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, storeCheckTimeout)
	defer cancel()

	if err := ctrl.store.Ping(ctx); err != nil {
		status.Store = 0
		logger.Error("Store health check failed", "error", err)
		return
	}

	status.Store = 1
}
