package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/orchestrator"
	"github.com/mensylisir/xmrecipe/pipeline"
	"github.com/mensylisir/xmrecipe/runtime"
	"github.com/mensylisir/xmrecipe/step"
	"github.com/mensylisir/xmrecipe/timeutil"
)

type pipelineStepOptions struct {
	args      *runtime.CliArgs
	url       string
	startStep string
	htmlFile  string
	asJSON    bool
}

func newPipelineStepCommand(root *rootOptions) *cobra.Command {
	o := &pipelineStepOptions{args: runtime.NewCliArgs()}
	cmd := &cobra.Command{
		Use:   "pipeline-step",
		Short: "Run one chain for a single URL from a named step",
		Example: `  xmrecipe pipeline-step --url https://example.com/r/1
  xmrecipe pipeline-step --url https://example.com/r/1 --html saved.html --step fetch_html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd, root)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&o.url, "url", "", "Recipe page URL")
	flags.StringVar(&o.startStep, "step", common.StepFetchHTML, "Step to start from")
	flags.StringVar(&o.htmlFile, "html", "", "Read the page from this file instead of fetching it")
	flags.BoolVar(&o.asJSON, "json", false, "Print the URL report as JSON")
	flags.BoolVar(&o.args.ForceFetch, "force-fetch", false, "Ignore staged pages and the HTTP cache")
	flags.BoolVar(&o.args.Offline, "offline", false, "Never touch the network; cache misses fail")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func (o *pipelineStepOptions) run(cmd *cobra.Command, root *rootOptions) error {
	cfg, err := root.loadConfig(o.args)
	if err != nil {
		return err
	}
	registry := registryFor(cfg)
	if _, err := registry.Lookup(o.startStep); err != nil {
		return err
	}

	rt, err := root.newRuntime(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	sc := step.NewContext(o.url, rt)
	sc.StagedPath = o.htmlFile
	sc.ForceFetch = cfg.Spec.Run.ForceFetch
	res := pipeline.RunPipeline(cmd.Context(), registry, o.startStep, sc)

	out := cmd.OutOrStdout()
	if o.asJSON {
		report := orchestrator.NewURLReport(orchestrator.InputsFromURLs(o.url)[0], res)
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		printChain(out, res)
		if names := sc.Outputs.Steps(); len(names) > 0 {
			fmt.Fprintf(out, "outputs: %s\n", strings.Join(names, ", "))
		}
	}

	status := res.Status()
	if status.IsFailed() {
		return errors.Errorf("chain for %s ended with %s", o.url, status)
	}
	return nil
}

func printChain(w io.Writer, res *pipeline.AllStepsResult) {
	for _, r := range res.Results {
		mark := "ok"
		if !r.Success {
			mark = "FAIL"
		}
		line := fmt.Sprintf("[%-4s] %-16s %8s", mark, r.StepName, timeutil.FormatMillis(r.DurationMs))
		if r.Cached {
			line += "  (cached)"
		}
		if r.Error != "" {
			line += "  " + r.Error
		}
		fmt.Fprintln(w, line)
	}
	if res.Aborted {
		fmt.Fprintf(w, "aborted: %s\n", res.AbortReason)
	}
	fmt.Fprintf(w, "status: %s (%s)\n", res.Status(), timeutil.FormatMillis(res.TotalDurationMs))
}
