package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RemoteStore is the contract of a remote catalog connector. Reads report
// failures as errors for the caller to degrade on; GetByID reports a
// missing row as ok=false, not as an error.
type RemoteStore interface {
	Ping(ctx context.Context) error
	ListByName(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (Product, bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Insert(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id string, patch Patch) (Product, error)
	Delete(ctx context.Context, id string) error
	// Upsert writes p keyed by id, keeping an existing creation time and
	// stamping the modification time with at.
	Upsert(ctx context.Context, p Product, at time.Time) (inserted bool, err error)
}

// Remote is either Configured with a connector or Unconfigured. It is
// resolved once at startup; an unconfigured remote is an expected state.
type Remote struct {
	store RemoteStore
}

func Configured(s RemoteStore) Remote {
	return Remote{store: s}
}

func Unconfigured() Remote { return Remote{} }

// Store returns the connector and whether one is configured.
func (r Remote) Store() (RemoteStore, bool) {
	return r.store, r.store != nil
}

func (r Remote) IsConfigured() bool { return r.store != nil }

// RemoteConfig holds the two values a connector is built from.
type RemoteConfig struct {
	Endpoint  string
	AccessKey string
	Timeout   time.Duration
}

// OpenRemote builds the connector for cfg. It never fails: missing or
// invalid configuration and construction errors yield Unconfigured.
func OpenRemote(ctx context.Context, cfg RemoteConfig, log *zap.Logger) Remote {
	if log == nil {
		log = zap.NewNop()
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	key := strings.TrimSpace(cfg.AccessKey)
	if endpoint == "" || key == "" {
		log.Warn("remote catalog not configured, serving bundled snapshot",
			zap.Bool("endpoint_set", endpoint != ""),
			zap.Bool("key_set", key != ""),
		)
		return Unconfigured()
	}

	s, err := newRemoteStore(ctx, endpoint, key, cfg.Timeout)
	if err != nil {
		log.Warn("remote catalog client construction failed, serving bundled snapshot", zap.Error(err))
		return Unconfigured()
	}

	log.Info("remote catalog configured", zap.String("kind", remoteKind(s)))
	return Configured(s)
}

func newRemoteStore(ctx context.Context, endpoint, key string, timeout time.Duration) (RemoteStore, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return nil, fmt.Errorf("endpoint %q has no host", endpoint)
		}
		return NewRESTStore(endpoint, key, timeout), nil
	case "postgres", "postgresql":
		return OpenPostgresStore(ctx, endpoint, key)
	default:
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
}

func remoteKind(s RemoteStore) string {
	switch s.(type) {
	case *RESTStore:
		return "rest"
	case *PostgresStore:
		return "postgres"
	case *MemStore:
		return "memory"
	default:
		return fmt.Sprintf("%T", s)
	}
}
