package session

import (
	"context"
	"fmt"

	"github.com/xxxsen/readiness/internal/model"
	"github.com/xxxsen/readiness/internal/repo"
)

const defaultListLimit = 500

type postgresStore struct {
	repo *repo.SessionRepo
}

func init() {
	Register("postgres", func(opts Options) (Store, error) {
		if opts.DB == nil {
			return nil, fmt.Errorf("postgres session store needs a database")
		}
		return NewPostgresStore(repo.NewSessionRepo(opts.DB)), nil
	})
}

func NewPostgresStore(r *repo.SessionRepo) Store {
	return &postgresStore{repo: r}
}

func (p *postgresStore) Insert(ctx context.Context, s *model.Session) error {
	return p.repo.Create(ctx, s)
}

func (p *postgresStore) Get(ctx context.Context, id string) (*model.Session, error) {
	return p.repo.GetByID(ctx, id)
}

func (p *postgresStore) Save(ctx context.Context, s *model.Session) error {
	return p.repo.Update(ctx, s)
}

func (p *postgresStore) Delete(ctx context.Context, id string) error {
	return p.repo.Delete(ctx, id)
}

func (p *postgresStore) ListExpired(ctx context.Context, cutoff int64, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return p.repo.ListIDsBefore(ctx, terminalStatuses, cutoff, uint(limit))
}

func (p *postgresStore) Close() error {
	return nil
}
