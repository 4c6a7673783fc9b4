package scale

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const tol = 1e-9

func TestStandardize(t *testing.T) {
	m := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})

	out, s, err := Standardize(m)
	if err != nil {
		t.Fatalf("Standardize: %v", err)
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil", s.Err())
	}

	for j := 0; j < 2; j++ {
		col := mat.Col(nil, j, out)
		mean, std := stat.PopMeanStdDev(col, nil)
		if math.Abs(mean) > tol {
			t.Errorf("column %d mean = %v, want 0", j, mean)
		}
		if math.Abs(std-1) > tol {
			t.Errorf("column %d std = %v, want 1", j, std)
		}
	}

	// Both columns are the same shape, so they scale identically.
	for i := 0; i < 4; i++ {
		if math.Abs(out.At(i, 0)-out.At(i, 1)) > tol {
			t.Errorf("row %d: %v != %v", i, out.At(i, 0), out.At(i, 1))
		}
	}
}

func TestStandardize_DoesNotModifyInput(t *testing.T) {
	m := mat.NewDense(2, 1, []float64{1, 3})
	if _, _, err := Standardize(m); err != nil {
		t.Fatalf("Standardize: %v", err)
	}
	if m.At(0, 0) != 1 || m.At(1, 0) != 3 {
		t.Errorf("input modified: %v", mat.Formatted(m))
	}
}

func TestStandardize_ZeroVariance(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		7, 1,
		7, 2,
		7, 3,
	})

	out, s, err := Standardize(m)
	if err != nil {
		t.Fatalf("Standardize: %v", err)
	}

	for i := 0; i < 3; i++ {
		if out.At(i, 0) != 0 {
			t.Errorf("degenerate column row %d = %v, want 0", i, out.At(i, 0))
		}
		if math.IsNaN(out.At(i, 1)) || math.IsInf(out.At(i, 1), 0) {
			t.Errorf("row %d has non-finite value", i)
		}
	}

	if len(s.Degenerate) != 1 || s.Degenerate[0] != 0 {
		t.Errorf("Degenerate = %v, want [0]", s.Degenerate)
	}
	if !errors.Is(s.Err(), ErrScalingDegenerate) {
		t.Errorf("Err() = %v, want ErrScalingDegenerate", s.Err())
	}
}

func TestStandardizeExcluding(t *testing.T) {
	// The last row is an outlier that must not move the statistics.
	m := mat.NewDense(4, 1, []float64{1, 2, 3, 100})

	out, s, err := StandardizeExcluding(m, 3)
	if err != nil {
		t.Fatalf("StandardizeExcluding: %v", err)
	}
	if math.Abs(s.Mean[0]-2) > tol {
		t.Errorf("Mean = %v, want 2", s.Mean[0])
	}
	if out.At(1, 0) != 0 {
		t.Errorf("row at the mean = %v, want 0", out.At(1, 0))
	}
	if out.At(3, 0) <= out.At(2, 0) {
		t.Errorf("excluded row was not transformed: %v", out.At(3, 0))
	}

	joint, _, err := Standardize(m)
	if err != nil {
		t.Fatalf("Standardize: %v", err)
	}
	if joint.At(1, 0) == out.At(1, 0) {
		t.Error("joint and base policies produced the same result for an outlier query")
	}
}

func TestFit_Errors(t *testing.T) {
	m := mat.NewDense(1, 1, []float64{5})
	if _, err := Fit(m, 0); !errors.Is(err, ErrEmptyFit) {
		t.Errorf("err = %v, want ErrEmptyFit", err)
	}

	s, err := Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := s.Transform(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("Transform with wrong width should fail")
	}
}

func TestValidPolicy(t *testing.T) {
	for _, p := range []string{PolicyJoint, PolicyBase} {
		if !ValidPolicy(p) {
			t.Errorf("ValidPolicy(%q) = false", p)
		}
	}
	if ValidPolicy("global") {
		t.Error(`ValidPolicy("global") = true`)
	}
}
