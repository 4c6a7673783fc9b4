// Package cluster partitions feature rows with spectral clustering.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Defaults match the recommender's tuned settings.
const (
	DefaultClusterCount  = 5
	DefaultKernelWidth   = 0.5
	DefaultInitCount     = 5
	DefaultMaxIterations = 300
)

// ErrInsufficientData is returned when there are fewer rows than clusters.
var ErrInsufficientData = errors.New("insufficient data for clustering")

// ErrFactorize is returned when the affinity eigendecomposition does not converge.
var ErrFactorize = errors.New("eigendecomposition of affinity matrix failed")

// Config controls spectral clustering.
type Config struct {
	ClusterCount  int     `yaml:"cluster_count" json:"cluster_count"`
	KernelWidth   float64 `yaml:"kernel_width" json:"kernel_width"`
	InitCount     int     `yaml:"init_count" json:"init_count"`
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations"`

	// Diagnostics enables the silhouette score on the result.
	Diagnostics bool `yaml:"diagnostics" json:"diagnostics"`
}

// DefaultConfig returns the standard clustering parameters.
func DefaultConfig() Config {
	return Config{
		ClusterCount:  DefaultClusterCount,
		KernelWidth:   DefaultKernelWidth,
		InitCount:     DefaultInitCount,
		MaxIterations: DefaultMaxIterations,
	}
}

// Validate checks that every parameter is usable.
func (c Config) Validate() error {
	switch {
	case c.ClusterCount < 1:
		return fmt.Errorf("cluster_count must be at least 1, got %d", c.ClusterCount)
	case c.KernelWidth <= 0 || math.IsNaN(c.KernelWidth) || math.IsInf(c.KernelWidth, 0):
		return fmt.Errorf("kernel_width must be positive, got %v", c.KernelWidth)
	case c.InitCount < 1:
		return fmt.Errorf("init_count must be at least 1, got %d", c.InitCount)
	case c.MaxIterations < 1:
		return fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations)
	}
	return nil
}

// Assignment is the outcome of a clustering run.
type Assignment struct {
	// Labels holds one cluster label in [0, ClusterCount) per input row.
	Labels []int

	// Inertia is the k-means objective of the winning restart in the
	// spectral embedding.
	Inertia float64

	// Silhouette is the mean silhouette coefficient in the embedding.
	// Only set when Config.Diagnostics is on.
	Silhouette float64
}

// Spectral clusters the rows of data. Identical rows always receive the same
// label. The run is reproducible for a given rng state.
func Spectral(ctx context.Context, data mat.Matrix, cfg Config, rng *rand.Rand) (*Assignment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n, _ := data.Dims()
	if n < cfg.ClusterCount {
		return nil, fmt.Errorf("%w: %d rows for %d clusters", ErrInsufficientData, n, cfg.ClusterCount)
	}

	affinity, err := rbfAffinity(ctx, data, cfg.KernelWidth)
	if err != nil {
		return nil, err
	}
	embedding, err := spectralEmbedding(ctx, affinity, cfg.ClusterCount)
	if err != nil {
		return nil, err
	}

	best := &Assignment{Inertia: math.Inf(1)}
	for run := 0; run < cfg.InitCount; run++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		labels, inertia, err := kmeans(ctx, embedding, cfg.ClusterCount, cfg.MaxIterations, rng)
		if err != nil {
			return nil, err
		}
		if inertia < best.Inertia {
			best.Labels, best.Inertia = labels, inertia
		}
	}

	if cfg.Diagnostics {
		best.Silhouette = silhouette(embedding, best.Labels)
	}

	return best, nil
}

// rbfAffinity builds the symmetric matrix exp(-gamma * ||xi - xj||^2).
func rbfAffinity(ctx context.Context, data mat.Matrix, gamma float64) (*mat.SymDense, error) {
	n, _ := data.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, data)
	}

	a := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			d := floats.Distance(rows[i], rows[j], 2)
			a.SetSym(i, j, math.Exp(-gamma*d*d))
		}
	}
	return a, nil
}

// spectralEmbedding normalizes the affinity as D^-1/2 A D^-1/2 and returns
// its top k eigenvectors as rows scaled to unit length. The factorization
// cannot be interrupted, so it runs on its own goroutine and is abandoned when
// ctx is done.
func spectralEmbedding(ctx context.Context, a *mat.SymDense, k int) (*mat.Dense, error) {
	n := a.SymmetricDim()

	inv := make([]float64, n)
	for i := 0; i < n; i++ {
		var deg float64
		for j := 0; j < n; j++ {
			deg += a.At(i, j)
		}
		inv[i] = 1 / math.Sqrt(deg)
	}

	l := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i; j < n; j++ {
			l.SetSym(i, j, inv[i]*a.At(i, j)*inv[j])
		}
	}

	vecs, err := factorize(ctx, l)
	if err != nil {
		return nil, err
	}

	// Eigenvalues are ascending, so the leading vectors are the last k columns.
	emb := mat.NewDense(n, k, nil)
	emb.Copy(vecs.Slice(0, n, n-k, n))

	for i := 0; i < n; i++ {
		row := emb.RawRowView(i)
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}
	return emb, nil
}

// factorize returns the eigenvectors of l, or ctx.Err() as soon as ctx is done.
func factorize(ctx context.Context, l *mat.SymDense) (*mat.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan *mat.Dense, 1)
	go func() {
		var eig mat.EigenSym
		if !eig.Factorize(l, true) {
			done <- nil
			return
		}
		var vecs mat.Dense
		eig.VectorsTo(&vecs)
		done <- &vecs
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case vecs := <-done:
		if vecs == nil {
			return nil, ErrFactorize
		}
		return vecs, nil
	}
}
