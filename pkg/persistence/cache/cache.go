// Package cache decorates a persistence.Persistence with a redis read-through
// cache for workflow lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/reconcile"
	redis "github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a cached workflow may be served.
const DefaultTTL = 10 * time.Minute

const keyPrefix = "flowcanvas:workflow:"

// Persistence wraps another persistence layer and caches GetByID results in redis.
type Persistence struct {
	inner  persistence.Persistence
	client redis.UniversalClient
	repo   *WorkflowRepository
}

// NewPersistence creates the caching decorator. A non-positive ttl selects DefaultTTL.
func NewPersistence(inner persistence.Persistence, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Persistence {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Persistence{
		inner:  inner,
		client: client,
		repo: &WorkflowRepository{
			inner:  inner.WorkflowRepository(),
			client: client,
			ttl:    ttl,
			logger: logger.With("module", "workflow_cache"),
		},
	}
}

// WorkflowRepository returns the caching workflow repository.
func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.repo
}

// HealthCheck checks the wrapped store and redis.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.inner.HealthCheck(ctx); err != nil {
		return err
	}

	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the wrapped store and the redis client.
func (p *Persistence) Close(ctx context.Context) error {
	innerErr := p.inner.Close(ctx)
	clientErr := p.client.Close()

	return errors.Join(innerErr, clientErr)
}

// WorkflowRepository serves GetByID from redis when possible. Writes go to
// the wrapped repository first and then drop the cached entry. Redis
// failures never fail a request; they are logged and the wrapped repository
// answers instead.
type WorkflowRepository struct {
	inner  persistence.WorkflowRepository
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// Key returns the redis key under which a workflow is cached.
func Key(ownerID, id string) string {
	return keyPrefix + ownerID + ":" + id
}

func (r *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	return r.inner.Create(ctx, workflow)
}

func (r *WorkflowRepository) GetByID(ctx context.Context, ownerID, id string) (*models.WorkflowRecord, error) {
	key := Key(ownerID, id)

	body, err := r.client.Get(ctx, key).Bytes()

	switch {
	case err == nil:
		var record models.WorkflowRecord
		if err := json.Unmarshal(body, &record); err == nil {
			return &record, nil
		}

		r.logger.WarnContext(ctx, "dropping undecodable cache entry", "key", key)
		r.invalidate(ctx, ownerID, id)
	case !errors.Is(err, redis.Nil):
		r.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}

	record, err := r.inner.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	r.store(ctx, record)

	return record, nil
}

func (r *WorkflowRepository) List(ctx context.Context, ownerID string) ([]*models.WorkflowSummary, error) {
	return r.inner.List(ctx, ownerID)
}

func (r *WorkflowRepository) Save(ctx context.Context, ownerID string, changeset *reconcile.Changeset) (*models.WorkflowRecord, error) {
	record, err := r.inner.Save(ctx, ownerID, changeset)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, ownerID, changeset.WorkflowID)

	return record, nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, ownerID, id string) error {
	if err := r.inner.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	r.invalidate(ctx, ownerID, id)

	return nil
}

func (r *WorkflowRepository) Stats(ctx context.Context, ownerID string) (*models.DashboardStats, error) {
	return r.inner.Stats(ctx, ownerID)
}

func (r *WorkflowRepository) store(ctx context.Context, record *models.WorkflowRecord) {
	body, err := json.Marshal(record)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to encode workflow for cache", "workflow_id", record.ID, "error", err)

		return
	}

	if err := r.client.Set(ctx, Key(record.OwnerID, record.ID), body, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "cache write failed", "workflow_id", record.ID, "error", err)
	}
}

func (r *WorkflowRepository) invalidate(ctx context.Context, ownerID, id string) {
	if err := r.client.Del(ctx, Key(ownerID, id)).Err(); err != nil {
		r.logger.WarnContext(ctx, "cache invalidation failed", "workflow_id", id, "error", err)
	}
}
