package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"MicroFrontend-Portal/internal/config"
	"MicroFrontend-Portal/pkg/logger"
)

// loadFunc 读取配置并初始化日志，每个子命令在执行时调用一次。
type loadFunc func() (*config.Config, error)

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "mfe",
		Short: "Micro-frontend portal: config server, bundle server and host shell",
		Long: `mfe runs the pieces of a micro-frontend portal.

The config server publishes the list of plugin descriptors, the bundle server
hosts plugin bundles, and the shell fetches both at startup to mount every
plugin route next to its built-in pages.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("配置文件路径，默认读取环境变量 %s", config.EnvConfigPath))

	load := func() (*config.Config, error) {
		cfg, err := config.Resolve(configPath)
		if err != nil {
			return nil, err
		}
		if err := logger.Init(cfg.Logging); err != nil {
			return nil, fmt.Errorf("初始化日志失败: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(
		newConfigServerCommand(load),
		newBundleServerCommand(load),
		newShellCommand(load),
		newServeCommand(load),
		newDescriptorsCommand(load),
		newEventsCommand(load),
	)
	return root
}
