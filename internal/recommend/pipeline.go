package recommend

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/plantrec/plantrec/internal/catalog"
	"github.com/plantrec/plantrec/internal/cluster"
	"github.com/plantrec/plantrec/internal/dataset"
	"github.com/plantrec/plantrec/internal/metrics"
	"github.com/plantrec/plantrec/internal/normalize"
	"github.com/plantrec/plantrec/internal/query"
	"github.com/plantrec/plantrec/internal/scale"
)

// DefaultTimeout bounds a single pipeline run.
const DefaultTimeout = 60 * time.Second

// Config contains all configuration for the recommendation pipeline.
type Config struct {
	// Cluster holds the spectral clustering parameters.
	Cluster cluster.Config

	// ScalingPolicy is scale.PolicyJoint or scale.PolicyBase.
	ScalingPolicy string

	// Seed drives clustering initialization and sampling.
	// If zero, every run picks a fresh seed and reports it in the result.
	Seed uint64

	// Timeout bounds a run. Zero disables the bound.
	Timeout time.Duration

	// Placeholder is the identity given to the query row.
	Placeholder dataset.Identity
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Cluster:       cluster.DefaultConfig(),
		ScalingPolicy: scale.PolicyJoint,
		Timeout:       DefaultTimeout,
		Placeholder:   dataset.Identity{ID: query.PlaceholderID, Name: query.PlaceholderName},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Cluster.Validate(); err != nil {
		return err
	}
	if !scale.ValidPolicy(c.ScalingPolicy) {
		return fmt.Errorf("unknown scaling policy %q (want %s or %s)", c.ScalingPolicy, scale.PolicyJoint, scale.PolicyBase)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.Placeholder.ID == "" {
		return errors.New("placeholder id must not be empty")
	}
	return nil
}

// Result is the outcome of one pipeline run.
type Result struct {
	Recommendations []dataset.Identity `json:"recommendations"`
	Cluster         int                `json:"cluster"`
	ClusterSize     int                `json:"cluster_size"`
	Seed            uint64             `json:"seed"`
	Silhouette      float64            `json:"silhouette,omitempty"`
	Degenerate      []string           `json:"degenerate_columns,omitempty"`
}

// Pipeline recommends species for a set of preferences. It holds no mutable
// state and is safe for concurrent use.
type Pipeline struct {
	cat    *catalog.Catalog
	base   *dataset.Table
	cfg    Config
	logger zerolog.Logger
}

// NewPipeline validates cfg and checks base against the catalog. The pipeline
// keeps its own copy of base.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPipeline(cat *catalog.Catalog, base *dataset.Table, cfg Config, logger zerolog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if err := cat.CheckColumns(base.Columns); err != nil {
		return nil, err
	}

	metrics.SetDatasetRows(base.Len())
	return &Pipeline{
		cat:    cat,
		base:   base.Clone(),
		cfg:    cfg,
		logger: logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Catalog returns the pipeline's field catalog.
func (p *Pipeline) Catalog() *catalog.Catalog {
	return p.cat
}

// Rows returns the number of species in the base dataset.
func (p *Pipeline) Rows() int {
	return p.base.Len()
}

// Run executes inject, normalize, scale, cluster and select for prefs.
func (p *Pipeline) Run(ctx context.Context, prefs query.Preferences) (*Result, error) {
	res, err := p.run(ctx, prefs)
	metrics.RecordOutcome(Outcome(err))
	return res, err
}

func (p *Pipeline) run(ctx context.Context, prefs query.Preferences) (*Result, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	seed := p.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	logger := p.logger.With().Uint64("seed", seed).Logger()
	start := time.Now()

	var in *query.Injected
	err := p.stage(logger, "inject", func() (err error) {
		in, err = query.Inject(p.base, prefs, p.cat, p.cfg.Placeholder)
		return err
	})
	if err != nil {
		return nil, err
	}

	var m *normalize.Matrix
	err = p.stage(logger, "normalize", func() (err error) {
		m, err = normalize.Normalize(in.Features, p.cat)
		return err
	})
	if err != nil {
		return nil, err
	}

	var scaled *mat.Dense
	var scaler *scale.Scaler
	err = p.stage(logger, "scale", func() (err error) {
		if p.cfg.ScalingPolicy == scale.PolicyBase {
			scaled, scaler, err = scale.StandardizeExcluding(m.Data, in.QueryIndex)
		} else {
			scaled, scaler, err = scale.Standardize(m.Data)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	var degenerate []string
	if serr := scaler.Err(); serr != nil {
		for _, j := range scaler.Degenerate {
			degenerate = append(degenerate, m.Columns[j])
		}
		metrics.RecordDegenerate(len(degenerate))
		logger.Warn().Err(serr).Strs("columns", degenerate).Msg("zero-variance columns set to zero")
	}

	var assignment *cluster.Assignment
	err = p.stage(logger, "cluster", func() (err error) {
		assignment, err = cluster.Spectral(ctx, scaled, p.cfg.Cluster, rng)
		return err
	})
	if err != nil {
		return nil, err
	}

	var picks []dataset.Identity
	err = p.stage(logger, "select", func() (err error) {
		picks, err = Select(assignment.Labels, in.QueryIndex, in.Identities, prefs.Count, rng)
		return err
	})
	if err != nil {
		return nil, err
	}

	peers, _ := Peers(assignment.Labels, in.QueryIndex)
	res := &Result{
		Recommendations: picks,
		Cluster:         assignment.Labels[in.QueryIndex],
		ClusterSize:     len(peers),
		Seed:            seed,
		Silhouette:      assignment.Silhouette,
		Degenerate:      degenerate,
	}

	logger.Info().
		Int("rows", len(assignment.Labels)).
		Int("cluster", res.Cluster).
		Int("cluster_size", res.ClusterSize).
		Int("returned", len(picks)).
		Dur("duration", time.Since(start)).
		Msg("recommendation complete")

	return res, nil
}

// stage times fn, records the metric and logs the result.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (p *Pipeline) stage(logger zerolog.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	metrics.RecordStage(name, d)

	if err != nil {
		logger.Debug().Err(err).Str("stage", name).Dur("duration", d).Msg("stage failed")
		return err
	}
	logger.Debug().Str("stage", name).Dur("duration", d).Msg("stage complete")
	return nil
}
