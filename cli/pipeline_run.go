package cli

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/logger"
	"github.com/mensylisir/xmrecipe/orchestrator"
	"github.com/mensylisir/xmrecipe/runtime"
)

type pipelineTestOptions struct {
	args            *runtime.CliArgs
	startStep       string
	deadline        time.Duration
	shuffle         bool
	saveStepOutputs bool
}

func newPipelineTestCommand(root *rootOptions) *cobra.Command {
	o := &pipelineTestOptions{args: runtime.NewCliArgs()}
	cmd := &cobra.Command{
		Use:   "pipeline-test URLS_FILE",
		Short: "Run the recipe chain over a list of URLs",
		Long: `Run the recipe chain for every URL in URLS_FILE with bounded concurrency.

URLS_FILE is either plain text with one URL per line or JSON shaped like
{"sites":[{"domain":"example.com","urls":["https://example.com/r/1"]}]}.
A run directory with manifest.json and results.json is written under the
output directory.

Example:
  xmrecipe pipeline-test urls.json --concurrency 8 --site seriouseats --limit 50
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, root, args[0])
		},
	}
	addRunFlags(cmd, o.args)
	flags := cmd.Flags()
	flags.StringVar(&o.startStep, "start-step", common.StepFetchHTML, "Step every chain starts from")
	flags.DurationVar(&o.deadline, "deadline", 0, "Stop starting new URLs after this long")
	flags.BoolVar(&o.shuffle, "shuffle", false, "Shuffle URL order before running")
	flags.BoolVar(&o.saveStepOutputs, "save-step-outputs", false, "Write every step output under the run directory")
	return cmd
}

func addRunFlags(cmd *cobra.Command, args *runtime.CliArgs) {
	flags := cmd.Flags()
	flags.IntVarP(&args.Concurrency, "concurrency", "c", 0, "Number of chains running at once")
	flags.IntVar(&args.Limit, "limit", 0, "Process at most this many URLs")
	flags.StringVar(&args.Site, "site", "", "Only process URLs whose site contains this string")
	flags.StringVarP(&args.OutputDir, "output-dir", "o", "", "Directory for run artifacts")
	flags.BoolVar(&args.ForceFetch, "force-fetch", false, "Ignore staged pages and the HTTP cache")
	flags.BoolVar(&args.Offline, "offline", false, "Never touch the network; cache misses fail")
	flags.BoolVar(&args.NoShuffle, "no-shuffle", false, "Keep URL order even when the config shuffles")
}

func (o *pipelineTestOptions) run(cmd *cobra.Command, root *rootOptions, urlsFile string) error {
	o.args.Debug = root.verbose
	cfg, err := root.loadConfig(o.args)
	if err != nil {
		return err
	}
	spec := cfg.Spec
	if o.deadline > 0 {
		spec.Run.Deadline = o.deadline
	}
	if o.shuffle && !o.args.NoShuffle {
		spec.Run.Shuffle = true
	}
	if o.saveStepOutputs {
		spec.Run.SaveStepOutputs = true
	}
	cfg.Spec = spec

	registry := registryFor(cfg)
	if _, err := registry.Lookup(o.startStep); err != nil {
		return err
	}

	inputs, err := orchestrator.LoadInputs(urlsFile, spec.Run.Site, spec.Run.Limit)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return errors.Errorf("no URLs to process in %s", urlsFile)
	}
	logger.Log.InfofPipeline(cfg.Metadata.Name, "loaded %d URLs from %s", len(inputs), urlsFile)

	rt, err := root.newRuntime(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	runCfg := orchestrator.ConfigFromSpec(spec.Run)
	runCfg.StartStep = o.startStep
	runCfg.InputsFile = urlsFile
	runCfg.Out = cmd.OutOrStdout()
	_, err = orchestrator.New(runCfg, rt, registry).Run(cmd.Context(), inputs)
	return err
}
