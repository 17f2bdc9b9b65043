// Package cli implements the lscgrid command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/lscgrid/pkg/buildinfo"
	"github.com/matzehuels/lscgrid/pkg/cache"
	"github.com/matzehuels/lscgrid/pkg/config"
	"github.com/matzehuels/lscgrid/pkg/errors"
	"github.com/matzehuels/lscgrid/pkg/mesh"
	"github.com/matzehuels/lscgrid/pkg/pipeline"
	"github.com/matzehuels/lscgrid/pkg/zones"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "lscgrid"

	// defaultOutput is the vgrid file written when --output is not given.
	defaultOutput = "vgrid.in"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "lscgrid generates LSC2 vertical grids for SCHISM meshes",
		Long: `lscgrid builds localized sigma coordinates with shaved cells (LSC2) for an
unstructured SCHISM mesh. Layer counts are estimated from depth, smoothed across
neighbouring nodes by a tabu search, and turned into a vgrid.in file.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	backend, err := c.newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.Cache.Prefix)
	return pipeline.NewRunner(backend, keyer, c.Logger), nil
}

// newCache picks Redis when an address is configured and the file cache
// otherwise. An unreachable Redis falls back to the file cache.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache || !cfg.Cache.Enabled {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.Redis != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Redis,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err == nil {
			c.Logger.Debug("using redis cache", "addr", cfg.Cache.Redis)
			return rc, nil
		}
		c.Logger.Warn("redis unavailable, using file cache", "error", err)
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the per-user one
// (~/.cache/lscgrid/ on Linux, honouring XDG_CACHE_HOME).
func cacheDir(cfg *config.Config) (string, error) {
	if cfg != nil && cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return cache.DefaultDir()
}

// =============================================================================
// Input Helpers
// =============================================================================

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// loadInput reads the mesh and assigns per-node layer bounds from the
// configured zones.
func loadInput(cfg *config.Config, meshPath string) (pipeline.Input, zones.Report, error) {
	m, err := mesh.ReadGR3File(meshPath)
	if err != nil {
		code := errors.ErrCodeInvalidMesh
		if os.IsNotExist(err) {
			code = errors.ErrCodeFileNotFound
		}
		return pipeline.Input{}, zones.Report{}, errors.Wrap(code, err, "load mesh %s", meshPath)
	}
	zs, err := cfg.ZoneList()
	if err != nil {
		return pipeline.Input{}, zones.Report{}, err
	}
	bounds, report, err := zones.Assign(m, cfg.ZoneDefaults(), zs)
	if err != nil {
		return pipeline.Input{}, zones.Report{}, err
	}
	return pipeline.Input{Mesh: m, Eta: cfg.Surface(), Bounds: bounds}, report, nil
}

// pipelineOptions maps the configuration onto runner options.
func (c *CLI) pipelineOptions(cfg *config.Config) pipeline.Options {
	s := cfg.Search()
	return pipeline.Options{
		Reference:        cfg.Reference(),
		SkipOptimize:     !cfg.Optimizer.Enabled,
		Problem:          cfg.TabuParams(),
		TabuLength:       s.TabuLength,
		MaxStall:         s.MaxStall,
		Build:            cfg.BuildParams(),
		Workers:          s.Workers,
		ProgressInterval: s.ProgressInterval,
		GridTTL:          cfg.CacheTTL(),
		Logger:           c.Logger,
	}
}

// describeError returns the message of err without its code, plus the
// total count when several nodes are at fault.
func describeError(err error) string {
	msg := errors.UserMessage(err)
	if n := len(errors.Nodes(err)); n > 1 {
		msg += fmt.Sprintf(" (%d nodes)", n)
	}
	return msg
}
