package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tulongph/tulong/core"
)

type (
	Repository interface {
		CreateEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) (Entry, error)
		QueryEntries(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Entry, error)
	}

	// Logger records audit entries; satisfied by *Service.
	Logger interface {
		Log(ctx context.Context, actorID, action, entity, entityID, details string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository
	}
)

var _ Logger = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Log(ctx context.Context, actorID, action, entity, entityID, details string, exec ...core.DBExecutor) error {
	_, err := svc.repo.CreateEntry(ctx, Entry{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}, exec...)
	return err
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, filter)
}
