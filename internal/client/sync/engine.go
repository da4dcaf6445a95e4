// Package sync reconciles the local store with the remote item
// service: it drains the offline queue in one batch, applies the
// server's authoritative item set, and serves the offline-first
// mutation entry points.
package sync

import (
	"context"
	"sync/atomic"

	"github.com/shoplist/server/internal/client/api"
	"github.com/shoplist/server/internal/client/connectivity"
	"github.com/shoplist/server/internal/client/store"
	"github.com/shoplist/server/internal/models"
	"github.com/shoplist/server/internal/observability"
)

// ErrBusyOrOffline is the result error when a sync cannot start
const ErrBusyOrOffline = "offline or sync in progress"

// Result is the outcome of a sync run
type Result struct {
	Success bool
	Error   string
	// Applied and Errors echo the server's per-change outcome on a
	// successful run
	Applied []string
	Errors  []models.ChangeError
}

// Engine drains the pending-change queue against the remote service.
// At most one run is in flight at a time; a call arriving while busy
// is rejected, not deferred.
type Engine struct {
	store   *store.Store
	client  *api.Client
	monitor *connectivity.Monitor
	syncing atomic.Bool

	log     *observability.Logger
	metrics *observability.SyncMetrics
}

// NewEngine creates a sync engine over the given store, remote client,
// and connectivity monitor
func NewEngine(st *store.Store, client *api.Client, monitor *connectivity.Monitor) *Engine {
	engine := &Engine{
		store:   st,
		client:  client,
		monitor: monitor,
		log:     observability.GetLogger().WithField("component", "sync"),
	}
	if metrics, err := observability.NewSyncMetrics(); err == nil {
		engine.metrics = metrics
	}
	return engine
}

// SyncPendingChanges sends the whole queue to the server in one batch
// and replaces local item state with the response. The server is the
// single source of truth once reachable, so the response list fully
// overwrites the cache and the queue is cleared even for changes the
// server reported as errored. On transport or server failure nothing
// local changes; the same queue is re-sent on the next run, which the
// server applies idempotently.
func (e *Engine) SyncPendingChanges(ctx context.Context) Result {
	if !e.monitor.Online() || !e.syncing.CompareAndSwap(false, true) {
		return Result{Success: false, Error: ErrBusyOrOffline}
	}
	defer e.syncing.Store(false)

	ctx, span := observability.StartSyncSpan(ctx, "pending_changes")
	defer span.End()
	if e.metrics != nil {
		e.metrics.RecordAttempt(ctx)
	}

	changes, err := e.store.GetQueuedChanges(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return Result{Success: false, Error: err.Error()}
	}
	if len(changes) == 0 {
		observability.SetSuccess(span)
		return Result{Success: true}
	}

	resp, err := e.client.SyncChanges(ctx, changes)
	if err != nil {
		e.log.WithContext(ctx).Warnf("sync failed, queue kept: %v", err)
		observability.RecordError(span, err)
		if e.metrics != nil {
			e.metrics.RecordFailure(ctx)
		}
		return Result{Success: false, Error: err.Error()}
	}

	items := make([]*models.Item, len(resp.Items))
	for i, a := range resp.Items {
		items[i] = a.ToItem()
	}
	if err := e.store.ReplaceAllItems(ctx, items); err != nil {
		observability.RecordError(span, err)
		return Result{Success: false, Error: err.Error()}
	}
	if err := e.store.ClearQueuedChanges(ctx); err != nil {
		observability.RecordError(span, err)
		return Result{Success: false, Error: err.Error()}
	}
	if err := e.store.SetLastSyncTime(ctx, resp.SyncTimestamp); err != nil {
		observability.RecordError(span, err)
		return Result{Success: false, Error: err.Error()}
	}

	e.log.WithContext(ctx).Infof("synced %d changes, %d errored", len(changes), len(resp.Errors))
	if e.metrics != nil {
		e.metrics.RecordDrained(ctx, len(changes))
	}
	observability.SetSuccess(span)

	return Result{Success: true, Applied: resp.Applied, Errors: resp.Errors}
}

// FetchItemsWithFallback is the read path used at startup and on
// manual refresh: remote list when reachable, cached items otherwise.
// fromCache reports which side answered.
func (e *Engine) FetchItemsWithFallback(ctx context.Context) (items []*models.Item, fromCache bool, err error) {
	if e.monitor.Online() {
		remote, err := e.client.FetchItems(ctx)
		if err == nil {
			if err := e.store.ReplaceAllItems(ctx, remote); err != nil {
				return nil, false, err
			}
			return remote, false, nil
		}
		e.log.WithContext(ctx).Warnf("fetch failed, using cache: %v", err)
	}

	items, err = e.store.GetAllItems(ctx)
	return items, true, err
}
