package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type natsNotifier struct {
	nc      *nats.Conn
	subject string
}

// NewNATSNotifier publishes events to "<subject>.<status>".
func NewNATSNotifier(url string, subject string) (Notifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("readiness"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &natsNotifier{nc: nc, subject: subject}, nil
}

func (n *natsNotifier) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	subject := Subject(n.subject, ev)
	if err := n.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (n *natsNotifier) Close() error {
	if n.nc == nil {
		return nil
	}
	err := n.nc.Drain()
	n.nc.Close()
	return err
}

func Subject(base string, ev Event) string {
	return fmt.Sprintf("%s.%s", base, ev.Status)
}
