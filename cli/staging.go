package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmrecipe/logger"
	"github.com/mensylisir/xmrecipe/runtime"
	"github.com/mensylisir/xmrecipe/staging"
	"github.com/mensylisir/xmrecipe/util"
)

func newStagingCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and manage staged pages",
	}
	cmd.AddCommand(
		newStagingImportCommand(root),
		newStagingListCommand(root),
		newStagingClearCommand(root),
	)
	return cmd
}

func (o *rootOptions) stagingStore() (*staging.Store, error) {
	cfg, err := o.loadConfig(runtime.NewCliArgs())
	if err != nil {
		return nil, err
	}
	return staging.NewStore(cfg.Spec.Staging.Dir), nil
}

func newStagingImportCommand(root *rootOptions) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "import --url URL PATH",
		Short: "Stage a saved HTML file for a URL",
		Long: `Stage a page saved by hand, for sites that block automated fetches.
PATH is an HTML file or a directory, in which case its newest .html or
.htm file is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := root.stagingStore()
			if err != nil {
				return err
			}
			path, err := store.Import(args[0], url, root.buildID)
			if err != nil {
				return err
			}
			logger.Log.InfoURL(url, "page staged", logrus.Fields{"path": path, "build_id": root.buildID.String()})
			fmt.Fprintf(cmd.OutOrStdout(), "Staged %s -> %s\n", url, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "URL the page belongs to")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newStagingListCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staged pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := root.stagingStore()
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				state := "current"
				if e.BuildID != root.buildID {
					state = "stale"
				}
				fmt.Fprintf(out, "%-7s %s  %s\n", state, e.StagedAt.Local().Format("2006-01-02 15:04"), util.TruncateString(e.URL, 100, "..."))
			}
			fmt.Fprintf(out, "%d staged pages in %s\n", len(entries), store.Dir())
			return nil
		},
	}
}

func newStagingClearCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every staged page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := root.stagingStore()
			if err != nil {
				return err
			}
			n, err := store.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d files from %s\n", n, store.Dir())
			return nil
		},
	}
}
