package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"MicroFrontend-Portal/internal/descriptor"
	"MicroFrontend-Portal/pkg/logger"
	"MicroFrontend-Portal/pkg/plugin"
)

func newDescriptorsCommand(load loadFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "descriptors",
		Short: "Inspect or replace the stored plugin descriptors",
	}
	cmd.AddCommand(newDescriptorsListCommand(load), newDescriptorsImportCommand(load))
	return cmd
}

func newDescriptorsListCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the descriptors exactly as the config server would return them",
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

			items, err := store.List(ctx)
			if err != nil {
				return err
			}
			out := make([]plugin.Descriptor, 0, len(items))
			for _, d := range items {
				out = append(out, d.WithOrigin(cfg.ConfigServer.Origin))
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func newDescriptorsImportCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the stored descriptors with the list in a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver == "memory" {
				return errors.New("memory 存储不持久化，导入需要 mysql 驱动")
			}
			items, err := descriptor.LoadFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			writer, ok := store.(descriptor.Writer)
			if !ok {
				return fmt.Errorf("存储驱动 %s 不支持写入", cfg.Storage.Driver)
			}
			if err := writer.Save(ctx, items); err != nil {
				return err
			}
			logger.Named("descriptors").Info("描述符已导入", "file", args[0], "count", len(items))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d descriptors\n", len(items))
			return nil
		},
	}
}
