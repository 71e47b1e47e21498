// Package cli is the xmrecipe command tree.
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmrecipe/buildid"
	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/config"
	"github.com/mensylisir/xmrecipe/logger"
	"github.com/mensylisir/xmrecipe/runtime"
	"github.com/mensylisir/xmrecipe/step"
	"github.com/mensylisir/xmrecipe/step/recipe"
)

// rootOptions are the persistent flags plus state computed once per process.
type rootOptions struct {
	configFile string
	verbose    bool
	logDir     string

	buildID buildid.ID
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   common.AppName,
		Short: "xmrecipe - recipe extraction pipeline",
		Long: `xmrecipe fetches recipe pages, extracts structured recipes and saves
them to a sink. Pages are cached on disk and can be staged ahead of a run.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.InitGlobalLogger(opts.logDir, opts.verbose, logrus.InfoLevel); err != nil {
				return err
			}
			opts.buildID = buildid.Compute()
			logger.Log.DebugPipeline(common.AppName, "starting", logrus.Fields{"build_id": opts.buildID.String()})
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to a PipelineConfig YAML file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&opts.logDir, "log-dir", "", "Write logs to a daily rotated file in this directory")

	cmd.AddCommand(
		newPipelineTestCommand(opts),
		newPipelineStepCommand(opts),
		newStageCommand(opts),
		newStagingCommand(opts),
		newCacheCommand(opts),
		newRecipesCommand(opts),
		newExtractCommand(),
	)
	return cmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig reads --config, applies environment overrides and defaults,
// then the command's flags.
func (o *rootOptions) loadConfig(args *runtime.CliArgs) (*config.PipelineConfig, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	args.Apply(&cfg.Spec)
	return cfg, nil
}

func (o *rootOptions) newRuntime(ctx context.Context, cfg *config.PipelineConfig) (runtime.Runtime, error) {
	return runtime.FromConfig(ctx, cfg, o.buildID, o.verbose)
}

func registryFor(cfg *config.PipelineConfig) *step.Registry {
	return recipe.NewRegistry(recipe.Options{FetchImages: cfg.Spec.Photos.Enabled})
}

func closeRuntime(rt runtime.Runtime) {
	if err := rt.Close(); err != nil {
		logger.Log.WarnfPipeline(common.AppName, "failed to close runtime: %v", err)
	}
}
