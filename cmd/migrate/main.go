// Command migrate copies the bundled product snapshot into the remote
// catalog, upserting by id.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"PartsStore/internal/catalog"
	"PartsStore/internal/config"
	"PartsStore/internal/migrate"
	"PartsStore/pkg/kit"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		applySchema = flag.Bool("schema", false, "create the products table first (postgres endpoints only)")
		concurrency = flag.Int("concurrency", 4, "parallel upserts")
		timeout     = flag.Duration("timeout", 2*time.Minute, "overall deadline")
		source      = flag.String("from", "", "JSON file to migrate instead of the bundled snapshot")
	)
	flag.Parse()

	log := kit.NewLogger("catalog-migrate", false)
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	remote := catalog.OpenRemote(ctx, cfg.Remote(), log)
	dst, err := migrate.FromRemote(remote)
	if err != nil {
		log.Error("set CATALOG_REMOTE_URL and CATALOG_REMOTE_KEY", zap.Error(err))
		return 1
	}

	if c, ok := dst.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	if *applySchema {
		pg, ok := dst.(*catalog.PostgresStore)
		if !ok {
			log.Error("-schema needs a postgres endpoint")
			return 1
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("apply schema", zap.Error(err))
			return 1
		}
	}

	products, err := loadProducts(*source)
	if err != nil {
		log.Error("load products", zap.Error(err))
		return 1
	}

	sum, err := migrate.Run(ctx, dst, products, migrate.Options{
		Concurrency: *concurrency,
		Log:         log,
	})

	fmt.Printf("migrated: inserted=%d updated=%d failed=%d total=%d\n",
		sum.Inserted, sum.Updated, sum.Failed, sum.Total)

	if err != nil {
		log.Error("migration interrupted", zap.Error(err))
		return 1
	}
	if !sum.OK() {
		return 1
	}
	return 0
}

func loadProducts(path string) ([]catalog.Product, error) {
	if path == "" {
		return catalog.NewStatic().Load(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return catalog.ParseProducts(raw)
}
