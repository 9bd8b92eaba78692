package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"PartsStore/internal/auth"
	"PartsStore/internal/catalog"
	"PartsStore/internal/config"
	"PartsStore/pkg/kit"
)

const remoteOpenTimeout = 5 * time.Second

func main() {
	service := "catalog"

	cfg, err := config.Load()
	if err != nil {
		kit.NewLogger(service, false).Fatal("load config", zap.Error(err))
	}

	catCfg := cfg.Catalog()
	log := kit.NewLogger(service, catCfg.Verbose)
	defer func() { _ = log.Sync() }()

	log.Info("catalog config",
		zap.String("env", cfg.Env),
		zap.Duration("freshness_window", catCfg.FreshnessWindow),
		zap.Bool("verbose", catCfg.Verbose),
	)

	ctx, cancel := context.WithTimeout(context.Background(), remoteOpenTimeout)
	remote := catalog.OpenRemote(ctx, cfg.Remote(), log)
	cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := catalog.NewService(catCfg, catalog.ServiceDeps{
		Remote:  remote,
		Static:  catalog.NewStatic(),
		Log:     log,
		Metrics: catalog.NewMetrics(reg),
	})

	s := &catalog.Server{Catalog: svc, Log: log}
	if cfg.WritesEnabled() {
		s.Auth = &auth.Server{
			Log:          log,
			JWT:          auth.NewTokenMaker(cfg.JWTSecret),
			PasswordHash: []byte(cfg.AdminPasswordHash),
		}
	} else {
		log.Warn("JWT_SECRET or ADMIN_PASSWORD_HASH not set, write endpoints disabled")
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	})

	if err := kit.RunHTTPServer(":"+cfg.Port, h, log, cfg.ShutdownTimeout); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
