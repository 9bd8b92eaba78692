package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// ServerFreshnessWindow bounds staleness for the shared server process.
	ServerFreshnessWindow = 30 * time.Second
	// DevFreshnessWindow favours fewer remote calls while iterating locally.
	DevFreshnessWindow = 5 * time.Minute
)

const (
	opAll    = "all"
	opGet    = "get"
	opExists = "exists"
)

// Config tunes a Service.
type Config struct {
	FreshnessWindow time.Duration
	// Verbose logs every source decision at info instead of debug.
	Verbose bool
}

// DefaultConfig picks the freshness window for the deployment kind.
func DefaultConfig(server bool) Config {
	if server {
		return Config{FreshnessWindow: ServerFreshnessWindow}
	}
	return Config{FreshnessWindow: DevFreshnessWindow, Verbose: true}
}

// StaticSource yields the bundled snapshot; it must never fail.
type StaticSource interface {
	Load() []Product
}

type ServiceDeps struct {
	Remote  Remote
	Static  StaticSource
	Log     *zap.Logger
	Metrics *Metrics
}

// Service serves the catalog from cache, remote store or bundled snapshot,
// in that order, and routes writes to the remote store.
type Service struct {
	remote  Remote
	static  StaticSource
	cache   *Cache
	log     *zap.Logger
	metrics *Metrics
	verbose bool
	newID   func() string
}

func NewService(cfg Config, deps ServiceDeps) *Service {
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = ServerFreshnessWindow
	}
	s := &Service{
		remote:  deps.Remote,
		static:  deps.Static,
		cache:   NewCache(cfg.FreshnessWindow),
		log:     deps.Log,
		metrics: deps.Metrics,
		verbose: cfg.Verbose,
		newID:   uuid.NewString,
	}
	if s.static == nil {
		s.static = NewStatic()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

// Remote reports the remote handle the service was built with.
func (s *Service) Remote() Remote { return s.remote }

// Snapshot is a catalog read together with where it came from.
type Snapshot struct {
	Products []Product
	Source   Source
	Cached   bool
}

// All returns the catalog. It never fails: when the remote store is
// absent, failing or empty, the bundled snapshot is served.
func (s *Service) All(ctx context.Context) []Product {
	return s.Snapshot(ctx).Products
}

func (s *Service) Snapshot(ctx context.Context) Snapshot {
	snap, _ := firstHit(ctx, s.cachedList, s.remoteList, s.staticList)
	return snap
}

func (s *Service) cachedList(context.Context) (Snapshot, bool) {
	list, src, ok := s.cache.Read()
	if !ok {
		return Snapshot{}, false
	}
	s.metrics.read(opAll, SourceCache)
	s.trace("catalog served from cache", zap.String("source", string(src)), zap.Int("count", len(list)))
	return Snapshot{Products: list, Source: src, Cached: true}, true
}

func (s *Service) remoteList(ctx context.Context) (Snapshot, bool) {
	store, ok := s.remote.Store()
	if !ok {
		s.degrade(opAll, reasonUnconfigured, nil)
		return Snapshot{}, false
	}

	list, err := store.ListByName(ctx)
	if err != nil {
		s.degrade(opAll, reasonError, err)
		return Snapshot{}, false
	}
	if len(list) == 0 {
		s.degrade(opAll, reasonEmpty, nil)
		return Snapshot{}, false
	}

	s.cache.Write(list, SourceRemote)
	s.metrics.read(opAll, SourceRemote)
	s.trace("catalog served from remote", zap.Int("count", len(list)))
	return Snapshot{Products: list, Source: SourceRemote}, true
}

func (s *Service) staticList(context.Context) (Snapshot, bool) {
	list := s.static.Load()
	s.cache.Write(list, SourceStatic)
	s.metrics.read(opAll, SourceStatic)
	s.trace("catalog served from bundled snapshot", zap.Int("count", len(list)))
	return Snapshot{Products: list, Source: SourceStatic}, true
}

// ByID looks id up in the cache, then the remote store, then the bundled
// snapshot. ok is false when no source has it.
func (s *Service) ByID(ctx context.Context, id string) (Product, bool) {
	return firstHit(ctx,
		func(context.Context) (Product, bool) {
			list, _, ok := s.cache.Read()
			if !ok {
				return Product{}, false
			}
			p, found := findByID(list, id)
			if found {
				s.metrics.read(opGet, SourceCache)
			}
			return p, found
		},
		func(ctx context.Context) (Product, bool) {
			store, ok := s.remote.Store()
			if !ok {
				s.degrade(opGet, reasonUnconfigured, nil)
				return Product{}, false
			}
			p, found, err := store.GetByID(ctx, id)
			switch {
			case err != nil:
				s.degrade(opGet, reasonError, err, zap.String("id", id))
				return Product{}, false
			case !found:
				s.degrade(opGet, reasonNotFound, nil, zap.String("id", id))
				return Product{}, false
			}
			s.metrics.read(opGet, SourceRemote)
			return p, true
		},
		func(context.Context) (Product, bool) {
			p, found := findByID(s.static.Load(), id)
			if found {
				s.metrics.read(opGet, SourceStatic)
			}
			return p, found
		},
	)
}

// ExistsByName reports whether a product named name exists, ignoring case.
func (s *Service) ExistsByName(ctx context.Context, name string) bool {
	exists, _ := firstHit(ctx,
		func(context.Context) (bool, bool) {
			list, _, ok := s.cache.Read()
			if !ok || !containsName(list, name) {
				return false, false
			}
			s.metrics.read(opExists, SourceCache)
			return true, true
		},
		func(ctx context.Context) (bool, bool) {
			store, ok := s.remote.Store()
			if !ok {
				s.degrade(opExists, reasonUnconfigured, nil)
				return false, false
			}
			exists, err := store.ExistsByName(ctx, name)
			if err != nil {
				s.degrade(opExists, reasonError, err)
				return false, false
			}
			s.metrics.read(opExists, SourceRemote)
			return exists, true
		},
		func(context.Context) (bool, bool) {
			s.metrics.read(opExists, SourceStatic)
			return containsName(s.static.Load(), name), true
		},
	)
	return exists
}

// Create inserts p into the remote store. A missing id is derived from the
// name; a name without letters or digits gets a random id instead.
func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	store, ok := s.remote.Store()
	if !ok {
		return Product{}, ErrRemoteUnconfigured
	}

	if strings.TrimSpace(p.Name) == "" {
		return Product{}, fmt.Errorf("%w: nombre is required", ErrInvalidProduct)
	}
	switch {
	case p.ID == "":
		p.ID = DeriveID(p.Name)
		if p.ID == "" {
			p.ID = s.newID()
		}
	case !validID(p.ID):
		return Product{}, fmt.Errorf("%w: id %q is not path-safe", ErrInvalidProduct, p.ID)
	}

	created, err := store.Insert(ctx, p.normalized())
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}

	s.cache.Invalidate()
	s.log.Info("product created", zap.String("id", created.ID))
	return created, nil
}

// Update applies patch to the remote record id.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (Product, error) {
	store, ok := s.remote.Store()
	if !ok {
		return Product{}, ErrRemoteUnconfigured
	}

	if id == "" {
		return Product{}, fmt.Errorf("%w: id is required", ErrInvalidProduct)
	}
	if patch.IsEmpty() {
		return Product{}, fmt.Errorf("%w: nothing to update", ErrInvalidProduct)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return Product{}, fmt.Errorf("%w: nombre cannot be blank", ErrInvalidProduct)
	}

	updated, err := store.Update(ctx, id, patch)
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}

	s.cache.Invalidate()
	s.log.Info("product updated", zap.String("id", id))
	return updated, nil
}

// Delete removes id from the remote store. Deleting a missing id succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	store, ok := s.remote.Store()
	if !ok {
		return ErrRemoteUnconfigured
	}

	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidProduct)
	}

	if err := store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.cache.Invalidate()
	s.log.Info("product deleted", zap.String("id", id))
	return nil
}

// Ping checks the remote store. An unconfigured remote is healthy: the
// bundled snapshot serves reads.
func (s *Service) Ping(ctx context.Context) error {
	store, ok := s.remote.Store()
	if !ok {
		return nil
	}
	return store.Ping(ctx)
}

func (s *Service) degrade(op, reason string, err error, fields ...zap.Field) {
	s.metrics.fallback(op, reason)

	fields = append(fields, zap.String("op", op), zap.String("reason", reason))
	if err != nil {
		s.log.Warn("remote catalog read failed, falling back", append(fields, zap.Error(err))...)
		return
	}
	s.trace("remote catalog skipped", fields...)
}

func (s *Service) trace(msg string, fields ...zap.Field) {
	if s.verbose {
		s.log.Info(msg, fields...)
		return
	}
	s.log.Debug(msg, fields...)
}

// firstHit runs attempts in order and returns the first that yields.
func firstHit[T any](ctx context.Context, attempts ...func(context.Context) (T, bool)) (T, bool) {
	for _, try := range attempts {
		if v, ok := try(ctx); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func equalFoldName(a, b string) bool {
	return strings.EqualFold(a, b)
}
