package events

import (
	"context"

	"github.com/xxxsen/readiness/internal/model"
)

// Event is published on every session status change.
type Event struct {
	SessionID   string       `json:"session_id"`
	Status      model.Status `json:"status"`
	ProgressPct int          `json:"progress_pct"`
	CurrentStep string       `json:"current_step"`
	Partial     bool         `json:"partial"`
	ReportID    string       `json:"report_id,omitempty"`
	Error       string       `json:"error,omitempty"`
	Time        int64        `json:"time"`
}

type Notifier interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type noopNotifier struct{}

func NewNoop() Notifier {
	return noopNotifier{}
}

func (noopNotifier) Publish(ctx context.Context, ev Event) error {
	return nil
}

func (noopNotifier) Close() error {
	return nil
}
