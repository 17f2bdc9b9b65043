// Package config loads and validates lscgrid run configuration.
//
// A configuration file is TOML or YAML, chosen by extension. Missing
// sections and keys keep the values from [Default], so a file only needs
// the settings it changes:
//
//	[stretch]
//	theta = 3.0
//	hc = 5.0
//
//	[defaults]
//	min_layer = 1
//	max_layer = 40
//	dz_target = 1.0
//
//	[[zones]]
//	name = "harbour"
//	polygon = [[0, 0], [500, 0], [500, 300], [0, 300]]
//	max_layer = 12
//
// Struct tags are checked with go-playground/validator; cross-field rules
// (min below max and similar) are checked afterwards. All failures carry
// the INVALID_CONFIG code.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/lscgrid/pkg/cache"
	"github.com/matzehuels/lscgrid/pkg/errors"
	"github.com/matzehuels/lscgrid/pkg/lsc2"
	"github.com/matzehuels/lscgrid/pkg/lsc2/tabu"
	"github.com/matzehuels/lscgrid/pkg/mesh"
	"github.com/matzehuels/lscgrid/pkg/zones"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Config is the complete run configuration.
type Config struct {
	Stretch   Stretch   `toml:"stretch" yaml:"stretch"`
	Estimator Estimator `toml:"estimator" yaml:"estimator"`
	Optimizer Optimizer `toml:"optimizer" yaml:"optimizer"`
	Smoother  Smoother  `toml:"smoother" yaml:"smoother"`
	Builder   Builder   `toml:"builder" yaml:"builder"`
	Defaults  Defaults  `toml:"defaults" yaml:"defaults"`
	Zones     []Zone    `toml:"zones" yaml:"zones" validate:"dive"`
	Cache     Cache     `toml:"cache" yaml:"cache"`
	Metrics   Metrics   `toml:"metrics" yaml:"metrics"`
}

// Stretch is the S-coordinate used for the surface part of each column,
// plus the reference water level.
type Stretch struct {
	Theta float64 `toml:"theta" yaml:"theta" validate:"gt=0,lte=20"`
	B     float64 `toml:"b" yaml:"b" validate:"gte=0,lte=1"`
	Hc    float64 `toml:"hc" yaml:"hc" validate:"gte=0"`
	Eta   float64 `toml:"eta" yaml:"eta"`
}

// Estimator configures the reference table behind the initial layer counts.
type Estimator struct {
	NCutoff int     `toml:"ncutoff" yaml:"ncutoff" validate:"min=2,max=1000"`
	HCut    float64 `toml:"hcut" yaml:"hcut" validate:"gt=0"`
	Theta   float64 `toml:"theta" yaml:"theta" validate:"gt=0,lte=20"`
	B       float64 `toml:"b" yaml:"b" validate:"gte=0,lte=1"`
	Hc      float64 `toml:"hc" yaml:"hc" validate:"gte=0"`
}

// Optimizer configures the tabu search.
type Optimizer struct {
	Enabled          bool    `toml:"enabled" yaml:"enabled"`
	TabuLength       int     `toml:"tabu_length" yaml:"tabu_length" validate:"min=0"`
	MaxStall         int     `toml:"max_stall" yaml:"max_stall" validate:"min=1"`
	Multiplier       float64 `toml:"multiplier" yaml:"multiplier" validate:"gt=0"`
	MinDepth         float64 `toml:"min_depth" yaml:"min_depth" validate:"gte=0"`
	Workers          int     `toml:"workers" yaml:"workers" validate:"min=0"`
	ProgressInterval int     `toml:"progress_interval" yaml:"progress_interval" validate:"min=0"`
}

// Smoother configures the graph diffusion used by the builder.
type Smoother struct {
	Kappa      float64 `toml:"kappa" yaml:"kappa" validate:"gt=0"`
	Dt         float64 `toml:"dt" yaml:"dt" validate:"gt=0"`
	Iterations int     `toml:"iterations" yaml:"iterations" validate:"min=1"`
	Workers    int     `toml:"workers" yaml:"workers" validate:"min=0"`
}

// Builder holds the sigma construction constants. See [lsc2.BuildParams].
type Builder struct {
	MinDz               float64 `toml:"min_dz" yaml:"min_dz" validate:"gte=0"`
	DzGain              float64 `toml:"dz_gain" yaml:"dz_gain" validate:"gt=0"`
	DeepStart           float64 `toml:"deep_start" yaml:"deep_start" validate:"gte=0"`
	DeepSpan            float64 `toml:"deep_span" yaml:"deep_span" validate:"gte=0"`
	DeepScale           float64 `toml:"deep_scale" yaml:"deep_scale" validate:"gt=0"`
	BoundaryFraction    float64 `toml:"boundary_fraction" yaml:"boundary_fraction" validate:"gt=0,lt=1"`
	SnapMin             float64 `toml:"snap_min" yaml:"snap_min" validate:"gte=0"`
	SnapFrac            float64 `toml:"snap_frac" yaml:"snap_frac" validate:"gte=0,lt=1"`
	FlattenDepth        float64 `toml:"flatten_depth" yaml:"flatten_depth" validate:"gte=0"`
	ScaleOffset         float64 `toml:"scale_offset" yaml:"scale_offset"`
	ScaleSpan           float64 `toml:"scale_span" yaml:"scale_span" validate:"gt=0"`
	ScaleMin            float64 `toml:"scale_min" yaml:"scale_min" validate:"gt=0"`
	ScaleMax            float64 `toml:"scale_max" yaml:"scale_max" validate:"gt=0"`
	RatioMin            float64 `toml:"ratio_min" yaml:"ratio_min" validate:"gt=0"`
	RatioMax            float64 `toml:"ratio_max" yaml:"ratio_max" validate:"gt=0"`
	LinearDepth         float64 `toml:"linear_depth" yaml:"linear_depth" validate:"gte=0"`
	MaxBoundaryFraction float64 `toml:"max_boundary_fraction" yaml:"max_boundary_fraction" validate:"gt=0,lte=1"`
}

// Defaults are the layer bounds of nodes outside every zone.
type Defaults struct {
	MinLayer int     `toml:"min_layer" yaml:"min_layer" validate:"min=1"`
	MaxLayer int     `toml:"max_layer" yaml:"max_layer" validate:"min=1"`
	DzTarget float64 `toml:"dz_target" yaml:"dz_target" validate:"gt=0"`
}

// Zone overrides the defaults inside a polygon.
type Zone struct {
	Name     string      `toml:"name" yaml:"name" validate:"required"`
	Polygon  [][]float64 `toml:"polygon" yaml:"polygon" validate:"min=3,dive,len=2"`
	MinLayer *int        `toml:"min_layer,omitempty" yaml:"min_layer,omitempty" validate:"omitempty,min=1"`
	MaxLayer *int        `toml:"max_layer,omitempty" yaml:"max_layer,omitempty" validate:"omitempty,min=1"`
	DzTarget *float64    `toml:"dz_target,omitempty" yaml:"dz_target,omitempty" validate:"omitempty,gt=0"`
}

// Cache selects where pipeline results are cached. An empty Redis address
// means the file cache in Dir (or the user cache directory).
type Cache struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	Dir      string `toml:"dir" yaml:"dir"`
	Redis    string `toml:"redis" yaml:"redis" validate:"omitempty,hostname_port"`
	Password string `toml:"password" yaml:"password"`
	DB       int    `toml:"db" yaml:"db" validate:"min=0,max=15"`
	Prefix   string `toml:"prefix" yaml:"prefix"`
	TTLHours int    `toml:"ttl_hours" yaml:"ttl_hours" validate:"min=0"`
}

// Metrics configures the Prometheus textfile export. Empty disables it.
type Metrics struct {
	Textfile string `toml:"textfile" yaml:"textfile"`
}

// Default returns the standard configuration.
func Default() *Config {
	st := lsc2.DefaultStretch()
	ref := lsc2.DefaultReference()
	sm := mesh.DefaultSmoother()
	bp := lsc2.DefaultBuildParams()
	tp := tabu.DefaultParams()

	return &Config{
		Stretch: Stretch{Theta: st.Theta, B: st.B, Hc: st.Hc},
		Estimator: Estimator{
			NCutoff: ref.NCutoff,
			HCut:    ref.HCut,
			Theta:   ref.Stretch.Theta,
			B:       ref.Stretch.B,
			Hc:      ref.Stretch.Hc,
		},
		Optimizer: Optimizer{
			Enabled:          true,
			TabuLength:       tabu.DefaultTabuLength,
			MaxStall:         tabu.DefaultMaxStall,
			Multiplier:       tp.Multiplier,
			MinDepth:         tp.MinDepth,
			ProgressInterval: tabu.DefaultProgressInterval,
		},
		Smoother: Smoother{Kappa: sm.Kappa, Dt: sm.Dt, Iterations: sm.Iterations},
		Builder: Builder{
			MinDz:               bp.MinDz,
			DzGain:              bp.DzGain,
			DeepStart:           bp.DeepStart,
			DeepSpan:            bp.DeepSpan,
			DeepScale:           bp.DeepScale,
			BoundaryFraction:    bp.BoundaryFraction,
			SnapMin:             bp.SnapMin,
			SnapFrac:            bp.SnapFrac,
			FlattenDepth:        bp.FlattenDepth,
			ScaleOffset:         bp.ScaleOffset,
			ScaleSpan:           bp.ScaleSpan,
			ScaleMin:            bp.ScaleMin,
			ScaleMax:            bp.ScaleMax,
			RatioMin:            bp.RatioMin,
			RatioMax:            bp.RatioMax,
			LinearDepth:         bp.LinearDepth,
			MaxBoundaryFraction: bp.MaxBoundaryFraction,
		},
		Defaults: Defaults{MinLayer: 1, MaxLayer: 40, DzTarget: 1},
		Cache: Cache{
			Enabled:  true,
			Prefix:   "lscgrid:",
			TTLHours: int(cache.TTLGrid / time.Hour),
		},
	}
}

// Load reads a configuration file over the defaults and validates it.
// Files ending in .yaml or .yml are YAML; everything else is TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		_, err = toml.Decode(string(data), cfg)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	switch {
	case c.Defaults.MinLayer > c.Defaults.MaxLayer:
		return errors.New(errors.ErrCodeInvalidConfig, "defaults: min_layer(%d) > max_layer(%d)", c.Defaults.MinLayer, c.Defaults.MaxLayer)
	case c.Builder.ScaleMin > c.Builder.ScaleMax:
		return errors.New(errors.ErrCodeInvalidConfig, "builder: scale_min > scale_max")
	case c.Builder.RatioMin > c.Builder.RatioMax:
		return errors.New(errors.ErrCodeInvalidConfig, "builder: ratio_min > ratio_max")
	case c.Estimator.HCut >= float64(c.Estimator.NCutoff):
		return errors.New(errors.ErrCodeInvalidConfig, "estimator: hcut(%g) must be below ncutoff(%d)", c.Estimator.HCut, c.Estimator.NCutoff)
	case c.Smoother.Dt*c.Smoother.Kappa > 1:
		return errors.New(errors.ErrCodeInvalidConfig, "smoother: dt*kappa(%g) > 1 is unstable", c.Smoother.Dt*c.Smoother.Kappa)
	}

	seen := make(map[string]bool, len(c.Zones))
	for _, z := range c.Zones {
		if seen[z.Name] {
			return errors.New(errors.ErrCodeInvalidConfig, "zones: duplicate name %q", z.Name)
		}
		seen[z.Name] = true
		if z.MinLayer != nil && z.MaxLayer != nil && *z.MinLayer > *z.MaxLayer {
			return errors.New(errors.ErrCodeInvalidConfig, "zone %q: min_layer(%d) > max_layer(%d)", z.Name, *z.MinLayer, *z.MaxLayer)
		}
	}
	return nil
}

// formatValidationError reports the first failed struct tag.
func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "validate config")
	}

	e := verrs[0]
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "required":
		return errors.New(errors.ErrCodeInvalidConfig, "%s: field is required", field)
	case "min", "gte":
		return errors.New(errors.ErrCodeInvalidConfig, "%s: must be at least %s", field, e.Param())
	case "max", "lte":
		return errors.New(errors.ErrCodeInvalidConfig, "%s: must not exceed %s", field, e.Param())
	case "gt":
		return errors.New(errors.ErrCodeInvalidConfig, "%s: must be greater than %s", field, e.Param())
	case "lt":
		return errors.New(errors.ErrCodeInvalidConfig, "%s: must be less than %s", field, e.Param())
	case "len":
		return errors.New(errors.ErrCodeInvalidConfig, "%s: must have %s entries", field, e.Param())
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "%s: validation failed (%s)", field, e.Tag())
	}
}

// WriteTOML writes the configuration as TOML to path.
func (c *Config) WriteTOML(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Surface returns the reference water level as a uniform surface.
func (c *Config) Surface() lsc2.Surface { return lsc2.Level(c.Stretch.Eta) }

// Reference returns the estimator's reference table parameters.
func (c *Config) Reference() lsc2.Reference {
	return lsc2.Reference{
		NCutoff: c.Estimator.NCutoff,
		HCut:    c.Estimator.HCut,
		Stretch: lsc2.Stretch{Theta: c.Estimator.Theta, B: c.Estimator.B, Hc: c.Estimator.Hc},
	}
}

// SmootherParams returns the graph smoother.
func (c *Config) SmootherParams() mesh.Smoother {
	return mesh.Smoother{
		Kappa:      c.Smoother.Kappa,
		Dt:         c.Smoother.Dt,
		Iterations: c.Smoother.Iterations,
		Workers:    c.Smoother.Workers,
	}
}

// BuildParams returns the builder parameters.
func (c *Config) BuildParams() lsc2.BuildParams {
	b := c.Builder
	return lsc2.BuildParams{
		Stretch:             lsc2.Stretch{Theta: c.Stretch.Theta, B: c.Stretch.B, Hc: c.Stretch.Hc},
		Reference:           c.Reference(),
		Smoother:            c.SmootherParams(),
		MinDz:               b.MinDz,
		DzGain:              b.DzGain,
		DeepStart:           b.DeepStart,
		DeepSpan:            b.DeepSpan,
		DeepScale:           b.DeepScale,
		BoundaryFraction:    b.BoundaryFraction,
		SnapMin:             b.SnapMin,
		SnapFrac:            b.SnapFrac,
		FlattenDepth:        b.FlattenDepth,
		ScaleOffset:         b.ScaleOffset,
		ScaleSpan:           b.ScaleSpan,
		ScaleMin:            b.ScaleMin,
		ScaleMax:            b.ScaleMax,
		RatioMin:            b.RatioMin,
		RatioMax:            b.RatioMax,
		LinearDepth:         b.LinearDepth,
		MaxBoundaryFraction: b.MaxBoundaryFraction,
	}
}

// TabuParams returns the optimizer problem parameters.
func (c *Config) TabuParams() tabu.Params {
	return tabu.Params{Multiplier: c.Optimizer.Multiplier, MinDepth: c.Optimizer.MinDepth}
}

// Search returns a tabu search configured from the optimizer section.
func (c *Config) Search() *tabu.Search {
	return &tabu.Search{
		TabuLength:       c.Optimizer.TabuLength,
		MaxStall:         c.Optimizer.MaxStall,
		Workers:          c.Optimizer.Workers,
		ProgressInterval: c.Optimizer.ProgressInterval,
	}
}

// ZoneDefaults returns the bounds of nodes outside every zone.
func (c *Config) ZoneDefaults() zones.Defaults {
	return zones.Defaults{
		MinLayer: c.Defaults.MinLayer,
		MaxLayer: c.Defaults.MaxLayer,
		DzTarget: c.Defaults.DzTarget,
	}
}

// ZoneList converts the configured zones in file order.
func (c *Config) ZoneList() ([]zones.Zone, error) {
	out := make([]zones.Zone, 0, len(c.Zones))
	for _, zc := range c.Zones {
		ring := make([][2]float64, len(zc.Polygon))
		for i, v := range zc.Polygon {
			if len(v) != 2 {
				return nil, errors.New(errors.ErrCodeInvalidConfig, "zone %q: vertex %d needs 2 coordinates", zc.Name, i)
			}
			ring[i] = [2]float64{v[0], v[1]}
		}
		z, err := zones.NewZone(zc.Name, ring)
		if err != nil {
			return nil, err
		}
		z.MinLayer, z.MaxLayer, z.DzTarget = zc.MinLayer, zc.MaxLayer, zc.DzTarget
		out = append(out, z)
	}
	return out, nil
}

// CacheTTL returns the configured result lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}
