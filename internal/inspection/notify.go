package inspection

import (
	"context"

	"github.com/vistoria/inspection/internal/models"
	"go.uber.org/zap"
)

// Notification is the user-visible confirmation emitted after a submit.
type Notification struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	InspectionID string `json:"inspectionId"`
}

// Confirmation builds the notification for a saved record.
func Confirmation(record models.Inspection) Notification {
	return Notification{
		Title:        "Vistoria salva",
		Description:  "A vistoria foi salva com sucesso.",
		InspectionID: record.ID,
	}
}

// Notifier delivers submit confirmations.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (fn NotifierFunc) Notify(ctx context.Context, n Notification) { fn(ctx, n) }

// Multi fans a notification out to every non-nil notifier.
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, n Notification) {
		for _, nt := range notifiers {
			if nt != nil {
				nt.Notify(ctx, n)
			}
		}
	})
}

// LogNotifier writes confirmations to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger discards output.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) {
	l.logger.Info(n.Description,
		zap.String("title", n.Title),
		zap.String("inspection_id", n.InspectionID),
	)
}
