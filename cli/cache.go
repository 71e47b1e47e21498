package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mensylisir/xmrecipe/httpcache"
	"github.com/mensylisir/xmrecipe/runtime"
)

func newCacheCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the HTTP page cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache size",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cache, err := root.diskCache()
				if err != nil {
					return err
				}
				stats, err := cache.Stats()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Dir:     %s\n", stats.Dir)
				fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
				fmt.Fprintf(out, "Errors:  %d\n", stats.Errors)
				fmt.Fprintf(out, "Bytes:   %d\n", stats.Bytes)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached page",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cache, err := root.diskCache()
				if err != nil {
					return err
				}
				n, err := cache.Clear()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d files from %s\n", n, cache.Dir())
				return nil
			},
		},
	)
	return cmd
}

func (o *rootOptions) diskCache() (*httpcache.DiskCache, error) {
	cfg, err := o.loadConfig(runtime.NewCliArgs())
	if err != nil {
		return nil, err
	}
	return httpcache.NewDiskCache(cfg.Spec.Cache.Dir, cfg.Spec.Cache.MaxAge), nil
}
