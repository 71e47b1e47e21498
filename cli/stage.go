package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmrecipe/orchestrator"
	"github.com/mensylisir/xmrecipe/runtime"
)

func newStageCommand(root *rootOptions) *cobra.Command {
	args := runtime.NewCliArgs()
	cmd := &cobra.Command{
		Use:   "stage URLS_FILE",
		Short: "Fetch pages into the staging directory ahead of a run",
		Long: `Fetch every URL in URLS_FILE and store the page in the staging directory
under the current build id. Later runs of this binary read staged pages
instead of fetching. URLs already staged by this build are skipped unless
--force-fetch is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			cfg, err := root.loadConfig(args)
			if err != nil {
				return err
			}
			inputs, err := orchestrator.LoadInputs(argv[0], cfg.Spec.Run.Site, cfg.Spec.Run.Limit)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return errors.Errorf("no URLs to stage in %s", argv[0])
			}
			rt, err := root.newRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeRuntime(rt)

			runCfg := orchestrator.ConfigFromSpec(cfg.Spec.Run)
			runCfg.Out = cmd.OutOrStdout()
			_, err = orchestrator.New(runCfg, rt, registryFor(cfg)).Stage(cmd.Context(), inputs)
			return err
		},
	}
	addRunFlags(cmd, args)
	return cmd
}
