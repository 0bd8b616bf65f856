package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"MicroFrontend-Portal/internal/config"
	"MicroFrontend-Portal/internal/observability/metrics"
)

func newConfigServerCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "config-server",
		Short: "Serve the plugin descriptor list on /config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			return runWithMetrics(ctx, cfg, newConfigServer(cfg, store).Start)
		},
	}
}

func newBundleServerCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "bundle-server",
		Short: "Serve plugin bundles by entry path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			server, err := newBundleServer(cfg)
			if err != nil {
				return err
			}
			return runWithMetrics(cmd.Context(), cfg, server.Start)
		},
	}
}

func newShellCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run the host application that loads every plugin at startup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			bus, err := openBus(ctx, cfg)
			if err != nil {
				return err
			}
			defer bus.Close()
			drainMemoryBus(ctx, bus)

			host, err := newShell(cfg, bus)
			if err != nil {
				return err
			}
			return runWithMetrics(ctx, cfg, host.Start)
		},
	}
}

func newServeCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the config server, bundle server and shell in one process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			bundles, err := newBundleServer(cfg)
			if err != nil {
				return err
			}

			bus, err := openBus(ctx, cfg)
			if err != nil {
				return err
			}
			defer bus.Close()
			drainMemoryBus(ctx, bus)

			host, err := newShell(cfg, bus)
			if err != nil {
				return err
			}

			return runWithMetrics(ctx, cfg,
				newConfigServer(cfg, store).Start,
				bundles.Start,
				func(ctx context.Context) error {
					// 同进程启动时先等待配置服务和插件包服务开始监听，Init 失败后不会重试。
					for _, target := range readinessTargets(cfg) {
						if err := waitReachable(ctx, target, cfg.Shell.RequestTimeout()); err != nil {
							return err
						}
					}
					return host.Start(ctx)
				},
			)
		},
	}
}

// runWithMetrics 并行运行所有服务，任意一个失败时取消其余服务。
func runWithMetrics(ctx context.Context, cfg *config.Config, starts ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, start := range starts {
		g.Go(func() error {
			return ignoreCanceled(start(gctx))
		})
	}
	if cfg.Metrics.Address != "" {
		g.Go(func() error {
			return ignoreCanceled(metrics.StartServer(gctx, cfg.Metrics.Address))
		})
	}
	return g.Wait()
}
