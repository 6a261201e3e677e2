package services

import (
	"context"
	"strings"
	"time"

	"github.com/leadscout/backend/internal/config"
	"github.com/leadscout/backend/internal/metrics"
	"github.com/leadscout/backend/internal/models"
	"github.com/leadscout/backend/internal/n8n"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const webhookNotConfigured = "Webhook URL not configured"

// WorkflowTrigger starts a workflow run for one platform.
type WorkflowTrigger interface {
	TriggerWorkflow(ctx context.Context, webhookURL string, payload n8n.TriggerPayload) error
}

// Dispatcher fans a new search out to the workflow of every selected
// platform. A platform whose trigger fails is marked failed; the search
// itself is never failed here unless no selected platform remains running.
type Dispatcher struct {
	trigger   WorkflowTrigger
	n8nConfig config.N8NConfig
	platforms models.PlatformRepository
	searches  models.SearchRepository
	logger    *logrus.Logger
}

func NewDispatcher(
	trigger WorkflowTrigger,
	n8nConfig config.N8NConfig,
	platforms models.PlatformRepository,
	searches models.SearchRepository,
	logger *logrus.Logger,
) *Dispatcher {
	return &Dispatcher{
		trigger:   trigger,
		n8nConfig: n8nConfig,
		platforms: platforms,
		searches:  searches,
		logger:    logger,
	}
}

// Dispatch triggers all selected platforms concurrently and waits for them.
// It ignores cancellation of ctx: once the search is stored, every selected
// platform has to end up triggered or marked failed.
func (d *Dispatcher) Dispatch(ctx context.Context, search *models.Search, selected []models.PlatformName) {
	ctx = context.WithoutCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range selected {
		name := name
		g.Go(func() error {
			d.dispatchOne(gctx, search, name)
			return nil
		})
	}
	_ = g.Wait()

	status, changed, err := d.searches.Finalize(ctx, search.ID)
	if err != nil {
		d.logger.WithError(err).WithField("search_id", search.ID).Error("Failed to reconcile search status after dispatch")
		return
	}
	if changed {
		metrics.SearchesFinishedTotal.WithLabelValues(string(status)).Inc()
		d.logger.WithFields(logrus.Fields{
			"search_id": search.ID,
			"status":    status,
		}).Warn("Search finished during dispatch")
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, search *models.Search, name models.PlatformName) {
	log := d.logger.WithFields(logrus.Fields{
		"search_id": search.ID,
		"platform":  name,
	})

	webhookURL := d.n8nConfig.WebhookURL(string(name))
	if webhookURL == "" {
		log.Warn("Webhook URL not configured for platform")
		metrics.DispatchTotal.WithLabelValues(string(name), "unconfigured").Inc()
		d.markFailed(ctx, search.ID, name, webhookNotConfigured)
		return
	}

	start := time.Now()
	err := d.trigger.TriggerWorkflow(ctx, webhookURL, n8n.TriggerPayload{
		SearchID:   search.ID,
		ProductURL: search.ProductURL,
		UserID:     search.UserID,
		Platform:   strings.ToLower(string(name)),
	})
	metrics.DispatchDuration.WithLabelValues(string(name)).Observe(time.Since(start).Seconds())

	if err != nil {
		log.WithError(err).Error("Failed to trigger workflow")
		metrics.DispatchTotal.WithLabelValues(string(name), "error").Inc()
		d.markFailed(ctx, search.ID, name, err.Error())
		return
	}

	metrics.DispatchTotal.WithLabelValues(string(name), "ok").Inc()
	log.Info("Workflow triggered")
}

func (d *Dispatcher) markFailed(ctx context.Context, searchID string, name models.PlatformName, message string) {
	if err := d.platforms.MarkFailed(ctx, searchID, name, message); err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"search_id": searchID,
			"platform":  name,
		}).Error("Failed to mark platform as failed")
	}
}
