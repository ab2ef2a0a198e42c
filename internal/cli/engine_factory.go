package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/stageflow"
	"github.com/aretw0/stageflow/internal/config"
	"github.com/aretw0/stageflow/internal/logging"
	"github.com/aretw0/stageflow/pkg/adapters/loam"
	"github.com/aretw0/stageflow/pkg/adapters/memory"
	"github.com/aretw0/stageflow/pkg/adapters/process"
	"github.com/aretw0/stageflow/pkg/adapters/redis"
	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/navigation"
	"github.com/aretw0/stageflow/pkg/observability"
	"github.com/aretw0/stageflow/pkg/persistence/middleware"
	"github.com/aretw0/stageflow/pkg/policy"
	"github.com/aretw0/stageflow/pkg/ports"
	"github.com/aretw0/stageflow/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Runtime bundles an engine with the resources the CLI must release.
type Runtime struct {
	Engine *stageflow.Engine
	Config config.Config
	Logger *slog.Logger

	// Metrics is nil when metrics are disabled.
	Metrics *prometheus.Registry
	// Redis is set when sessions live in redis.
	Redis *redis.Store

	closers []func(context.Context) error
}

// Close flushes traces and closes store connections.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RuntimeOption tweaks engine construction per command.
type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	navigator ports.Navigator
	tracing   bool
}

// WithNavigator sets the view collaborator (SSE streams, terminal pages).
func WithNavigator(n ports.Navigator) RuntimeOption {
	return func(o *runtimeOptions) {
		o.navigator = n
	}
}

// WithTracing installs the OTLP exporter configured under tracing.*.
func WithTracing() RuntimeOption {
	return func(o *runtimeOptions) {
		o.tracing = true
	}
}

// CreateLogger configures the application logger from log.level/log.format.
func CreateLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format := logging.Format(cfg.Format)
	if format != logging.FormatJSON {
		format = logging.FormatText
	}
	return logging.New(level, format), nil
}

// StageSource resolves the registry setting: empty selects the default pipeline,
// a directory is read through Loam, anything else is a YAML/JSON registry file.
// Exactly one of the returned registry and loader is non-nil.
func StageSource(path string) (*registry.Registry, ports.StageLoader, error) {
	if path == "" {
		return registry.Default(), nil, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("stage source: %w", err)
	}
	if info.IsDir() {
		loader, err := loam.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return nil, loader, nil
	}
	reg, err := registry.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return reg, nil, nil
}

// NewRuntime initializes a Stageflow engine with standard CLI conventions.
func NewRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...RuntimeOption) (*Runtime, error) {
	var o runtimeOptions
	for _, opt := range opts {
		opt(&o)
	}

	rt := &Runtime{Config: cfg, Logger: logger}
	engineOpts := []stageflow.Option{stageflow.WithLogger(logger)}

	// 1. Stage catalog
	reg, loader, err := StageSource(cfg.Registry)
	if err != nil {
		return nil, err
	}
	if loader != nil {
		engineOpts = append(engineOpts, stageflow.WithLoader(loader), stageflow.WithName(filepath.Base(cfg.Registry)))
	} else {
		engineOpts = append(engineOpts, stageflow.WithRegistry(reg))
	}

	// 2. Access policy
	p, err := policy.ByName(cfg.Policy)
	if err != nil {
		return nil, err
	}
	engineOpts = append(engineOpts, stageflow.WithPolicy(p))

	// 3. Observability
	hooks := []domain.LifecycleHooks{observability.AuditHooks(logger)}
	var storeMiddleware []middleware.Middleware
	if cfg.Metrics.Enabled {
		rt.Metrics = prometheus.NewRegistry()
		rt.Metrics.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m, err := observability.NewMetrics(rt.Metrics)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		hooks = append(hooks, m.Hooks())

		instrumented, err := middleware.Instrumented(rt.Metrics)
		if err != nil {
			return nil, fmt.Errorf("register store metrics: %w", err)
		}
		storeMiddleware = append(storeMiddleware, instrumented)
	}
	engineOpts = append(engineOpts, stageflow.WithLifecycleHooks(domain.ComposeHooks(hooks...)))

	if o.tracing {
		shutdown, err := observability.SetupTracing(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("setup tracing: %w", err)
		}
		rt.closers = append(rt.closers, shutdown)
		storeMiddleware = append(storeMiddleware, middleware.Traced())
	}

	// 4. Session store
	var store ports.StateStore = memory.NewStore()
	if cfg.Store.Driver == config.DriverRedis {
		rs := redis.New(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB,
			redis.WithPrefix(cfg.Store.Redis.Prefix),
			redis.WithTTL(cfg.Store.Redis.TTL),
		)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Store.Redis.Addr, err)
		}
		rt.Redis = rs
		rt.closers = append(rt.closers, func(context.Context) error { return rs.Close() })
		store = rs
		engineOpts = append(engineOpts, stageflow.WithLocker(redis.NewLocker(rs.Client(), rs.Prefix()), cfg.Lock.TTL))
		logger.Info("Using redis session store", "addr", cfg.Store.Redis.Addr, "prefix", rs.Prefix())
	}
	engineOpts = append(engineOpts, stageflow.WithStore(middleware.Chain(store, storeMiddleware...)))

	// 5. Navigation
	navigator := o.navigator
	if cfg.Navigator.Commands != "" {
		commands, err := process.LoadConfig(cfg.Navigator.Commands)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
		navigator = navigation.Multi(navigator, process.NewNavigator(
			process.WithConfig(commands),
			process.WithBaseDir(filepath.Dir(cfg.Navigator.Commands)),
			process.WithTimeout(cfg.Navigator.Timeout),
			process.WithLogger(logger),
		))
		logger.Info("Using command navigator", "commands", len(commands.Commands))
	}
	if navigator != nil {
		engineOpts = append(engineOpts, stageflow.WithNavigator(navigator))
	}

	engine, err := stageflow.New(engineOpts...)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	rt.Engine = engine
	return rt, nil
}
