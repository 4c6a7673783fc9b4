// Package scale standardizes feature matrices to zero mean and unit variance.
package scale

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaling policies.
const (
	PolicyJoint = "joint"
	PolicyBase  = "base"
)

// ErrScalingDegenerate reports zero-variance columns. It is a warning: the
// affected columns are set to zero and the result is still usable.
var ErrScalingDegenerate = errors.New("zero-variance feature columns")

// ErrEmptyFit is returned when there are no rows to fit on.
var ErrEmptyFit = errors.New("no rows to fit scaler on")

// epsilon below which a standard deviation counts as zero.
const epsilon = 1e-12

// Scaler holds per-column statistics from a fit.
type Scaler struct {
	Mean []float64
	Std  []float64

	// Degenerate lists the indices of zero-variance columns.
	Degenerate []int
}

// Fit computes column means and population standard deviations over the rows
// of m, skipping the row indices in exclude.
func Fit(m mat.Matrix, exclude ...int) (*Scaler, error) {
	r, c := m.Dims()
	skip := make(map[int]bool, len(exclude))
	for _, i := range exclude {
		skip[i] = true
	}

	rows := make([]int, 0, r)
	for i := 0; i < r; i++ {
		if !skip[i] {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFit
	}

	s := &Scaler{Mean: make([]float64, c), Std: make([]float64, c)}
	col := make([]float64, len(rows))
	for j := 0; j < c; j++ {
		for k, i := range rows {
			col[k] = m.At(i, j)
		}
		s.Mean[j], s.Std[j] = stat.PopMeanStdDev(col, nil)
		if s.Std[j] < epsilon {
			s.Degenerate = append(s.Degenerate, j)
		}
	}

	return s, nil
}

// Transform returns a standardized copy of m. Degenerate columns become zero.
func (s *Scaler) Transform(m mat.Matrix) (*mat.Dense, error) {
	r, c := m.Dims()
	if c != len(s.Mean) {
		return nil, fmt.Errorf("scaler fitted on %d columns, got %d", len(s.Mean), c)
	}

	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		if s.Std[j] < epsilon {
			return 0
		}
		return (v - s.Mean[j]) / s.Std[j]
	}, m)
	return out, nil
}

// Err returns an error wrapping ErrScalingDegenerate if any column had zero
// variance, or nil.
func (s *Scaler) Err() error {
	if len(s.Degenerate) == 0 {
		return nil
	}
	return fmt.Errorf("%w: columns %v", ErrScalingDegenerate, s.Degenerate)
}

// Standardize fits over every row of m and transforms it.
func Standardize(m mat.Matrix) (*mat.Dense, *Scaler, error) {
	return StandardizeExcluding(m)
}

// StandardizeExcluding fits over the rows of m not listed in exclude, then
// transforms every row.
func StandardizeExcluding(m mat.Matrix, exclude ...int) (*mat.Dense, *Scaler, error) {
	s, err := Fit(m, exclude...)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.Transform(m)
	if err != nil {
		return nil, nil, err
	}
	return out, s, nil
}

// ValidPolicy reports whether p names a known scaling policy.
func ValidPolicy(p string) bool {
	return p == PolicyJoint || p == PolicyBase
}
