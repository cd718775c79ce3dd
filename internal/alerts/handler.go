package alerts

import (
	"context"
	"log/slog"

	"finboard/internal/engine"
)

// LogHandler returns a consume handler that records each alert in the
// service log. The alert's severity picks the log level so downstream
// log routing can escalate high-severity alerts.
func LogHandler(logger *slog.Logger) func(*ProjectAlertMessage) error {
	return func(msg *ProjectAlertMessage) error {
		level := slog.LevelInfo
		switch msg.Severity {
		case string(engine.SeverityHigh):
			level = slog.LevelError
		case string(engine.SeverityMedium):
			level = slog.LevelWarn
		}

		logger.LogAttrs(context.Background(), level, "Project alert received",
			slog.String("project_id", msg.ProjectID),
			slog.String("project_name", msg.ProjectName),
			slog.String("type", msg.Type),
			slog.String("severity", msg.Severity),
			slog.Int("health_score", msg.HealthScore),
			slog.String("message", msg.Message),
			slog.String("recommendation", msg.Recommendation),
		)
		return nil
	}
}
