package source

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"billview/internal/core"
	"billview/internal/log"
)

// Status is the loading state shown next to the dashboard.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

const snapshotKey = "records"

// Snapshot is one immutable fetch result. Version increases with every
// successful fetch.
type Snapshot struct {
	Version          uint64
	Records          []core.Record
	FetchedAt        time.Time
	CoercionFailures int
}

// State describes the last fetch for status endpoints and banners.
type State struct {
	Status    Status
	Version   uint64
	Records   int
	FetchedAt time.Time
	Err       error
}

// Loader caches the record snapshot for a TTL. Concurrent loads share one
// upstream request; sequential refreshes replace the snapshot in the order
// they complete.
type Loader struct {
	src    RecordSource
	cache  *gocache.Cache
	group  singleflight.Group
	logger *log.Logger

	mu      sync.RWMutex
	state   State
	version uint64
}

func NewLoader(src RecordSource, ttl time.Duration, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Wrap(nil)
	}
	return &Loader{
		src:    src,
		cache:  gocache.New(ttl, 2*ttl),
		logger: logger.WithComponent(log.ComponentLoader),
		state:  State{Status: StatusIdle},
	}
}

// Load returns the cached snapshot, fetching when there is none or it expired.
func (l *Loader) Load(ctx context.Context) (Snapshot, error) {
	if v, ok := l.cache.Get(snapshotKey); ok {
		return v.(Snapshot), nil
	}
	return l.fetch(ctx, log.OpFetch)
}

// Refresh always goes upstream.
func (l *Loader) Refresh(ctx context.Context) (Snapshot, error) {
	return l.fetch(ctx, log.OpRefresh)
}

func (l *Loader) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Loader) fetch(ctx context.Context, op string) (Snapshot, error) {
	v, err, shared := l.group.Do(snapshotKey, func() (any, error) {
		if op == log.OpFetch {
			if cached, ok := l.cache.Get(snapshotKey); ok {
				return cached, nil
			}
		}
		l.setStatus(StatusLoading, nil)
		// callers may disconnect; the shared fetch must not die with them
		records, err := l.src.FetchRecords(context.WithoutCancel(ctx))
		if err != nil {
			l.setStatus(StatusFailed, err)
			l.logger.LogError(ctx, "Record fetch failed", op, err,
				log.NewFields().WithComponent(log.ComponentLoader))
			return Snapshot{}, err
		}
		snap := l.store(records)
		fields := log.NewFields().WithSnapshot(snap.Version, len(records), snap.CoercionFailures).WithOperation(op)
		if snap.CoercionFailures > 0 {
			l.logger.WarnContext(ctx, "Snapshot contains unparseable numbers, treated as zero", fields.ToSlice()...)
		} else {
			l.logger.InfoContext(ctx, "Snapshot loaded", fields.ToSlice()...)
		}
		return snap, nil
	})
	if shared {
		l.logger.DebugContext(ctx, "Joined in-flight fetch", log.FieldOperation, op)
	}
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

func (l *Loader) store(records []core.Record) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.version++
	snap := Snapshot{
		Version:          l.version,
		Records:          records,
		FetchedAt:        time.Now(),
		CoercionFailures: core.CountCoercionFailures(records),
	}
	l.cache.Set(snapshotKey, snap, gocache.DefaultExpiration)
	l.state = State{Status: StatusReady, Version: snap.Version, Records: len(records), FetchedAt: snap.FetchedAt}
	return snap
}

func (l *Loader) setStatus(s Status, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Status = s
	l.state.Err = err
}
