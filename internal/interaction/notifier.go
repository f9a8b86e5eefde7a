package interaction

import (
	"log/slog"

	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/couchcryptid/flowmap-core/internal/pipeline"
)

// Notifier shows user facing messages.
type Notifier interface {
	Notify(message string)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(message string) {
	n.Logger.Warn("flow map notification", "message", message)
}

// ReportDiagnostics sends one notification per diagnostic message unless
// the dataset config asks to ignore errors. It returns the number sent.
func ReportDiagnostics(n Notifier, cfg domain.Config, d pipeline.Diagnostics) int {
	if cfg.IgnoreErrors() {
		return 0
	}
	msgs := d.Messages()
	for _, msg := range msgs {
		n.Notify(msg)
	}
	return len(msgs)
}
