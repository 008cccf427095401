package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/readiness/internal/model"
)

// Store keeps session snapshots. Get returns a copy the caller may mutate;
// changes become visible only through Save.
type Store interface {
	Insert(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Save(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, id string) error
	// ListExpired returns terminal sessions last modified before cutoff,
	// oldest first.
	ListExpired(ctx context.Context, cutoff int64, limit int) ([]string, error)
	Close() error
}

type Options struct {
	Data        interface{}
	MaxSessions int
	DB          *sql.DB
}

type Factory func(opts Options) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(name string, opts Options) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported session store: %s", name)
	}
	return factory(opts)
}

var terminalStatuses = []model.Status{model.StatusComplete, model.StatusError, model.StatusCancelled}

type expiredEntry struct {
	id    string
	mtime int64
}

func oldestFirst(items []expiredEntry, limit int) []string {
	sort.Slice(items, func(i, j int) bool {
		if items[i].mtime != items[j].mtime {
			return items[i].mtime < items[j].mtime
		}
		return items[i].id < items[j].id
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.id)
	}
	return ids
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode session store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode session store config: %w", err)
	}
	return nil
}
