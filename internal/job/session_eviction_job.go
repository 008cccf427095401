package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type SessionEvicter interface {
	EvictExpired(ctx context.Context, retention time.Duration) (int, error)
}

// SessionEvictionJob evicts finished sessions, with their vector collections
// and archived files, once they are older than the retention window.
type SessionEvictionJob struct {
	sessions  SessionEvicter
	retention time.Duration
}

func NewSessionEvictionJob(sessions SessionEvicter, retentionHours int) *SessionEvictionJob {
	if retentionHours <= 0 {
		retentionHours = 24
	}
	return &SessionEvictionJob{sessions: sessions, retention: time.Duration(retentionHours) * time.Hour}
}

func (j *SessionEvictionJob) Name() string {
	return "session_eviction"
}

func (j *SessionEvictionJob) Run(ctx context.Context) error {
	n, err := j.sessions.EvictExpired(ctx, j.retention)
	if err != nil {
		return err
	}
	if n > 0 {
		logutil.GetLogger(ctx).Info("expired sessions evicted", zap.Int("count", n))
	}
	return nil
}
