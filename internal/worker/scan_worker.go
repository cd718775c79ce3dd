package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finboard/internal/alerts"
	"finboard/internal/core"
	"finboard/internal/engine"
)

// SnapshotSource provides the ledger data the scan needs.
type SnapshotSource interface {
	ListProjects(ctx context.Context) ([]core.Project, error)
	LoadProjectSnapshot(ctx context.Context, projectID string) (core.Snapshot, error)
}

// AlertPublisher delivers one alert message per detected warning.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, msg *alerts.ProjectAlertMessage) error
}

// ScanWorker periodically recomputes project financials and publishes an
// alert for every early warning it detects. Only active projects are
// scanned; completed, on-hold, and archived ones are skipped.
type ScanWorker struct {
	source    SnapshotSource
	publisher AlertPublisher
	interval  time.Duration
}

func NewScanWorker(source SnapshotSource, publisher AlertPublisher, interval time.Duration) *ScanWorker {
	return &ScanWorker{
		source:    source,
		publisher: publisher,
		interval:  interval,
	}
}

// Run scans immediately, then on every tick until the context is done.
func (w *ScanWorker) Run(ctx context.Context) error {
	if err := w.ScanOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial warning scan failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping warning scan worker", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.ScanOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "Warning scan failed", "error", err)
			}
		}
	}
}

// ScanOnce runs a single pass over all projects. A failure on one project
// does not stop the scan of the others.
func (w *ScanWorker) ScanOnce(ctx context.Context) error {
	projects, err := w.source.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	scanned := 0
	published := 0

	for _, project := range projects {
		if project.Status != core.ProjectActive {
			continue
		}

		snap, err := w.source.LoadProjectSnapshot(ctx, project.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load project snapshot",
				"project_id", project.ID, "error", err)
			continue
		}
		scanned++

		detail := engine.ComputeProjectFinancials(project, snap.Invoices, snap.Expenses, snap.Payables, snap.CreditNotes)
		warnings := engine.DetectEarlyWarnings(detail)
		if len(warnings) == 0 {
			continue
		}

		health := engine.ComputeHealthScore(detail)

		for _, warning := range warnings {
			msg := alerts.NewProjectAlertMessage(project.ID, project.Name, health.Score, warning)
			if err := w.publisher.PublishAlert(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to publish alert",
					"project_id", project.ID,
					"type", msg.Type,
					"error", err)
				continue
			}
			published++
		}
	}

	slog.InfoContext(ctx, "Warning scan completed",
		"projects", scanned,
		"alerts", published)

	return nil
}
