package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/readiness/internal/model"
)

func TestNoopNotifier(t *testing.T) {
	n := NewNoop()
	require.NoError(t, n.Publish(context.Background(), Event{SessionID: "s1", Status: model.StatusScoring}))
	require.NoError(t, n.Close())
}

func TestSubject(t *testing.T) {
	require.Equal(t, "readiness.sessions.complete", Subject("readiness.sessions", Event{Status: model.StatusComplete}))
}
