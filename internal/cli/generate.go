package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lscgrid/pkg/config"
	"github.com/matzehuels/lscgrid/pkg/lsc2/tabu"
	"github.com/matzehuels/lscgrid/pkg/metrics"
	"github.com/matzehuels/lscgrid/pkg/observability"
	"github.com/matzehuels/lscgrid/pkg/pipeline"
	"github.com/matzehuels/lscgrid/pkg/zones"
)

// generateOptions holds the generate flags. Stretch values only replace
// the configuration when the flag was given explicitly.
type generateOptions struct {
	configPath string
	output     string
	summary    string
	noCache    bool
	refresh    bool
	redis      string
	metrics    string

	theta, b, hc, eta float64
}

// generateCommand creates the generate command that writes vgrid.in.
func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOptions
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "generate [hgrid.gr3]",
		Short: "Generate an LSC2 vgrid.in for a mesh",
		Long: `Generate an LSC2 vertical grid for a SCHISM horizontal mesh.

Initial layer counts are estimated from depth and the per-node bounds of the
configuration's zones. A tabu search then lowers the layer-count mismatch
between neighbouring nodes of similar depth, and the builder turns the
result into sigma levels written as vgrid.in (ivcor=1).

Layer counts and grids are cached, so changing only the stretching
parameters reuses the optimized layer counts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if err := opts.apply(cfg, cmd.Flags().Changed); err != nil {
				return err
			}
			return c.runGenerate(cmd.Context(), args[0], cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (TOML or YAML)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", defaultOutput, "output vgrid file")
	cmd.Flags().StringVar(&opts.summary, "summary", "", "write a JSON run summary to this file")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute and overwrite cached results")
	cmd.Flags().StringVar(&opts.redis, "redis", "", "redis address for the result cache (host:port)")
	cmd.Flags().StringVar(&opts.metrics, "metrics", "", "write Prometheus metrics to this textfile")

	cmd.Flags().Float64Var(&opts.theta, "theta", def.Stretch.Theta, "surface stretching theta")
	cmd.Flags().Float64Var(&opts.b, "b", def.Stretch.B, "bottom stretching b")
	cmd.Flags().Float64Var(&opts.hc, "hc", def.Stretch.Hc, "critical depth hc")
	cmd.Flags().Float64Var(&opts.eta, "eta", def.Stretch.Eta, "reference water level")

	return cmd
}

// apply copies explicitly set flags over cfg and revalidates it.
func (o *generateOptions) apply(cfg *config.Config, changed func(string) bool) error {
	if changed("theta") {
		cfg.Stretch.Theta = o.theta
	}
	if changed("b") {
		cfg.Stretch.B = o.b
	}
	if changed("hc") {
		cfg.Stretch.Hc = o.hc
	}
	if changed("eta") {
		cfg.Stretch.Eta = o.eta
	}
	if o.redis != "" {
		cfg.Cache.Redis = o.redis
	}
	if o.metrics != "" {
		cfg.Metrics.Textfile = o.metrics
	}
	return cfg.Validate()
}

// runGenerate loads the mesh, runs the pipeline, and writes the outputs.
func (c *CLI) runGenerate(ctx context.Context, input string, cfg *config.Config, opts generateOptions) error {
	var reg *metrics.Registry
	if cfg.Metrics.Textfile != "" {
		reg = metrics.NewRegistry()
		defer observability.Register(reg)()
	}

	prog := newProgress(c.Logger)
	in, report, err := loadInput(cfg, input)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Loaded %d nodes", in.Mesh.NodeCount()))
	c.logZones(report)

	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	popts := c.pipelineOptions(cfg)
	popts.Refresh = opts.refresh

	spinner := newSpinnerWithContext(ctx, "Generating vertical grid...")
	spinner.Start()
	popts.OnProgress = func(pr tabu.Progress) {
		spinner.SetMessage("Optimizing layer counts... iteration %d, objective %g", pr.Iteration, pr.Best)
	}

	res, err := runner.Execute(ctx, in, popts)
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return err
		}
		spinner.StopWithError("Generation failed: " + describeError(err))
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := runner.Write(ctx, res, opts.output, opts.summary); err != nil {
		return err
	}

	if reg != nil {
		if err := reg.WriteToTextfile(cfg.Metrics.Textfile); err != nil {
			c.Logger.Warn("write metrics", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	printSuccess("Vertical grid complete")
	printFile(opts.output)
	if opts.summary != "" {
		printFile(opts.summary)
	}
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.CacheInfo.GridHit)
	printGridSummary(res)
	return nil
}

// printGridSummary prints the objective and level statistics of a run.
func printGridSummary(res *pipeline.Result) {
	printKeyValue("run", res.RunID)
	printKeyValue("nvrt", fmt.Sprint(res.Grid.Sigma.MaxLevel()))
	if opt := res.Optimizer; opt != nil {
		printKeyValue("objective", fmt.Sprintf("%g %s %g", opt.Initial, iconArrow, opt.Best))
		printKeyValue("iterations", fmt.Sprint(opt.Iterations))
	} else {
		printKeyValue("objective", StyleDim.Render("optimizer disabled"))
	}
	var notes []string
	if n := res.Grid.Linear; n > 0 {
		notes = append(notes, fmt.Sprintf("%d linear", n))
	}
	if n := res.Grid.Collapsed; n > 0 {
		notes = append(notes, fmt.Sprintf("%d collapsed", n))
	}
	if n := res.Grid.Flattened; n > 0 {
		notes = append(notes, fmt.Sprintf("%d flattened", n))
	}
	if len(notes) > 0 {
		printKeyValue("columns", strings.Join(notes, ", "))
	}
}

// logZones reports how many nodes each zone claimed.
func (c *CLI) logZones(r zones.Report) {
	for i, name := range r.Zones {
		c.Logger.Debug("zone", "name", name, "nodes", r.Counts[i])
		if r.Counts[i] == 0 {
			c.Logger.Warn("zone contains no nodes", "name", name)
		}
	}
}
