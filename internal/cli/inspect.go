package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lscgrid/pkg/config"
	"github.com/matzehuels/lscgrid/pkg/lsc2"
	"github.com/matzehuels/lscgrid/pkg/lsc2/tabu"
	"github.com/matzehuels/lscgrid/pkg/pipeline"
	"github.com/matzehuels/lscgrid/pkg/render/nodelink"
)

// inspectCommand creates the inspect command, which runs the estimate and
// optimize stages and reports the layer-count mismatch without building
// a grid.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		configPath   string
		dotPath      string
		svgPath      string
		noCache      bool
		mismatchOnly bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [hgrid.gr3]",
		Short: "Report the layer-count optimization for a mesh",
		Long: `Report the layer-count optimization for a mesh.

Runs the estimator and the tabu search only, then prints the objective before
and after optimization, how many nodes could gain a layer, and how many edges
are penalized. Use --dot or --svg to draw the penalized edges at their mesh
coordinates.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return c.runInspect(cmd.Context(), args[0], cfg, inspectOutputs{
				dot:          dotPath,
				svg:          svgPath,
				noCache:      noCache,
				mismatchOnly: mismatchOnly,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file (TOML or YAML)")
	cmd.Flags().StringVar(&dotPath, "dot", "", "write the mismatch diagram as Graphviz DOT")
	cmd.Flags().StringVar(&svgPath, "svg", "", "render the mismatch diagram to SVG")
	cmd.Flags().BoolVar(&mismatchOnly, "mismatch-only", true, "draw only edges with a penalty")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

type inspectOutputs struct {
	dot, svg     string
	noCache      bool
	mismatchOnly bool
}

func (c *CLI) runInspect(ctx context.Context, input string, cfg *config.Config, out inspectOutputs) error {
	in, report, err := loadInput(cfg, input)
	if err != nil {
		return err
	}
	c.logZones(report)

	runner, err := c.newRunner(ctx, cfg, out.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := c.pipelineOptions(cfg)
	opts.SkipOptimize = false

	spinner := newSpinnerWithContext(ctx, "Optimizing layer counts...")
	spinner.Start()
	opts.OnProgress = func(pr tabu.Progress) {
		spinner.SetMessage("Optimizing layer counts... iteration %d, objective %g", pr.Iteration, pr.Best)
	}

	res, err := runner.Layers(ctx, in, opts)
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return err
		}
		spinner.StopWithError("Optimization failed: " + describeError(err))
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	prob, err := tabu.NewProblem(in.Mesh, lsc2.EffectiveDepth(in.Eta, in.Mesh.Depths()), res.NLayer0, in.Bounds, opts.Problem)
	if err != nil {
		return err
	}

	printSuccess("Layer counts optimized")
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.CacheInfo.LayersHit)
	printInspectSummary(res, prob)
	printHistogram("layer counts", res.NLayer)

	if out.dot == "" && out.svg == "" {
		return nil
	}
	dot := nodelink.ToDOT(in.Mesh, prob, res.NLayer, nodelink.Options{MismatchOnly: out.mismatchOnly})
	if out.dot != "" {
		if err := os.WriteFile(out.dot, []byte(dot), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out.dot, err)
		}
		printFile(out.dot)
	}
	if out.svg != "" {
		svg, err := nodelink.RenderSVG(ctx, dot)
		if err != nil {
			return fmt.Errorf("render %s: %w", out.svg, err)
		}
		if err := os.WriteFile(out.svg, svg, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out.svg, err)
		}
		printFile(out.svg)
	}
	return nil
}

// printInspectSummary prints the objective before and after the search
// and the number of penalized edges.
func printInspectSummary(res *pipeline.Result, prob *tabu.Problem) {
	opt := res.Optimizer
	printKeyValue("objective", fmt.Sprintf("%g %s %g", opt.Initial, iconArrow, opt.Best))
	printKeyValue("iterations", fmt.Sprint(opt.Iterations))
	printKeyValue("changeable", fmt.Sprintf("%d of %d nodes", opt.Changeable, res.Stats.NodeCount))
	printKeyValue("eligible", fmt.Sprintf("%d edges", opt.Eligible))

	before, after := 0, 0
	initial := prob.EdgePenalties(res.NLayer0)
	for k, p := range prob.EdgePenalties(res.NLayer) {
		if initial[k] > 0 {
			before++
		}
		if p > 0 {
			after++
		}
	}
	printKeyValue("penalized", fmt.Sprintf("%d %s %d edges", before, iconArrow, after))
	if !opt.Improved() {
		printDetail("no improvement over the depth estimate")
	}
}
