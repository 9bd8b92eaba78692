// Package migrate copies the bundled catalog snapshot into the remote store.
package migrate

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"PartsStore/internal/catalog"
)

const defaultConcurrency = 4

var ErrUnconfigured = errors.New("migrate: remote catalog is not configured")

// Upserter is the slice of the remote store the migration needs.
type Upserter interface {
	Upsert(ctx context.Context, p catalog.Product, at time.Time) (inserted bool, err error)
}

type Options struct {
	Concurrency int
	Now         func() time.Time
	Log         *zap.Logger
}

type Summary struct {
	Inserted int
	Updated  int
	Failed   int
	Total    int
}

func (s Summary) OK() bool { return s.Failed == 0 }

// Run upserts every product by id. One failing record is logged and
// counted; it does not stop the others. The returned error is only for
// cancellation.
func Run(ctx context.Context, dst Upserter, products []catalog.Product, opts Options) (Summary, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	var inserted, updated, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, p := range products {
		if err := gctx.Err(); err != nil {
			break
		}
		p := p
		g.Go(func() error {
			ins, err := dst.Upsert(gctx, p, opts.Now())
			switch {
			case err != nil:
				failed.Add(1)
				opts.Log.Error("product migration failed", zap.String("id", p.ID), zap.Error(err))
			case ins:
				inserted.Add(1)
				opts.Log.Info("product created", zap.String("id", p.ID), zap.String("nombre", p.Name))
			default:
				updated.Add(1)
				opts.Log.Info("product updated", zap.String("id", p.ID), zap.String("nombre", p.Name))
			}
			return nil
		})
	}

	_ = g.Wait()

	sum := Summary{
		Inserted: int(inserted.Load()),
		Updated:  int(updated.Load()),
		Failed:   int(failed.Load()),
		Total:    len(products),
	}
	return sum, ctx.Err()
}

// FromRemote picks the upserter out of a remote handle.
func FromRemote(r catalog.Remote) (Upserter, error) {
	store, ok := r.Store()
	if !ok {
		return nil, ErrUnconfigured
	}
	return store, nil
}
