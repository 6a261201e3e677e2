package health

import (
	"context"
	"errors"
	"time"

	"github.com/leadscout/backend/internal/database"
	"github.com/leadscout/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusDisabled  = "disabled"

	checkTimeout = 5 * time.Second
)

// HealthChecker manages health checks for the service dependencies
type HealthChecker struct {
	dbManager *database.Manager
	cache     *database.Cache
	logger    *logrus.Logger
	started   time.Time
	cacheTTL  time.Duration
}

func NewHealthChecker(dbManager *database.Manager, cache *database.Cache, logger *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		dbManager: dbManager,
		cache:     cache,
		logger:    logger,
		started:   time.Now(),
		cacheTTL:  time.Minute,
	}
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string                 `json:"status"`
	Services []models.ServiceHealth `json:"services"`
	Uptime   string                 `json:"uptime"`
	Cached   bool                   `json:"cached"`
}

func (h *HealthChecker) check(ctx context.Context, name string, ping func(context.Context) error) models.ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	result := models.ServiceHealth{
		Name:         name,
		Status:       StatusHealthy,
		ResponseTime: int(time.Since(start).Milliseconds()),
		LastChecked:  time.Now().UTC().Format(time.RFC3339),
	}

	switch {
	case errors.Is(err, database.ErrCacheDisabled):
		result.Status = StatusDisabled
	case err != nil:
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		h.logger.WithError(err).WithField("service", name).Error("Health check failed")
	}
	return result
}

// CheckPostgreSQL checks PostgreSQL database health
func (h *HealthChecker) CheckPostgreSQL(ctx context.Context) models.ServiceHealth {
	return h.check(ctx, "postgresql", h.dbManager.PingDatabase)
}

// CheckRedis checks the cache; a service without redis reports it disabled.
func (h *HealthChecker) CheckRedis(ctx context.Context) models.ServiceHealth {
	return h.check(ctx, "redis", h.dbManager.PingRedis)
}

// CheckAll performs health checks on all services. The database is
// required; a failing cache only degrades the service.
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	services := []models.ServiceHealth{
		h.CheckPostgreSQL(ctx),
		h.CheckRedis(ctx),
	}
	return h.summarize(services, false)
}

func (h *HealthChecker) summarize(services []models.ServiceHealth, cached bool) OverallHealth {
	overall := StatusHealthy
	for _, service := range services {
		if service.Status != StatusUnhealthy {
			continue
		}
		if service.Name == "postgresql" {
			overall = StatusUnhealthy
			break
		}
		overall = StatusDegraded
	}

	return OverallHealth{
		Status:   overall,
		Services: services,
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		Cached:   cached,
	}
}

// CheckCached returns cached health status if available
func (h *HealthChecker) CheckCached(ctx context.Context) (*OverallHealth, error) {
	services, err := h.cache.GetCachedSystemHealth(ctx)
	if err != nil {
		return nil, err
	}
	overall := h.summarize(services, true)
	return &overall, nil
}

// Detailed serves the cached report when present and otherwise runs the
// checks and caches the result.
func (h *HealthChecker) Detailed(ctx context.Context) OverallHealth {
	if cached, err := h.CheckCached(ctx); err == nil {
		return *cached
	}
	return h.refresh(ctx, h.cacheTTL)
}

func (h *HealthChecker) refresh(ctx context.Context, ttl time.Duration) OverallHealth {
	health := h.CheckAll(ctx)
	if err := h.cache.CacheSystemHealth(ctx, health.Services, ttl); err != nil {
		h.logger.WithError(err).Error("Failed to cache health status")
	}
	return health
}

// PeriodicHealthCheck runs health checks periodically until ctx is done
func (h *HealthChecker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := h.refresh(ctx, 2*interval)
			h.logger.WithField("status", health.Status).Debug("Periodic health check completed")
		}
	}
}
