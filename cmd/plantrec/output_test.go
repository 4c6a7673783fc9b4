package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/plantrec/plantrec/internal/catalog"
	"github.com/plantrec/plantrec/internal/cluster"
	"github.com/plantrec/plantrec/internal/dataset"
	"github.com/plantrec/plantrec/internal/normalize"
	"github.com/plantrec/plantrec/internal/recommend"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"empty cluster", recommend.ErrEmptyCluster, ExitNoMatches},
		{"insufficient data", fmt.Errorf("clustering: %w", cluster.ErrInsufficientData), ExitInsufficientData},
		{"schema mismatch", fmt.Errorf("loading: %w", catalog.ErrSchemaMismatch), ExitDataError},
		{"invalid value", catalog.ErrInvalidFieldValue, ExitDataError},
		{"no rows", normalize.ErrNoRows, ExitDataError},
		{"unsupported source", dataset.ErrUnsupportedSource, ExitDataError},
		{"deadline", context.DeadlineExceeded, ExitError},
		{"other", errors.New("boom"), ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"Quercus alba L. var. latiloba", 15, "Quercus alba..."},
	}

	for _, tt := range tests {
		if got := truncateString(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestPrintRecommendationsHuman(t *testing.T) {
	res := &recommend.Result{
		Recommendations: []dataset.Identity{
			{ID: "ACRU", Name: "Acer rubrum"},
			{ID: "QUAL", Name: "Quercus alba"},
		},
		Cluster:     2,
		ClusterSize: 31,
		Seed:        7,
		Degenerate:  []string{"Toxicity"},
	}

	var buf bytes.Buffer
	printRecommendationsHuman(&buf, res)
	out := buf.String()

	for _, want := range []string{" 1. ACRU", "Acer rubrum", " 2. QUAL", "Cluster 2 (31 species), seed 7", "Constant columns ignored: Toxicity"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Silhouette") {
		t.Errorf("silhouette printed without diagnostics:\n%s", out)
	}
}

func TestPrintRecommendationsHuman_Empty(t *testing.T) {
	var buf bytes.Buffer
	printRecommendationsHuman(&buf, &recommend.Result{})
	if got := buf.String(); got != "No matches found.\n" {
		t.Errorf("output = %q", got)
	}
}

func TestPrintCatalogHuman(t *testing.T) {
	var buf bytes.Buffer
	printCatalogHuman(&buf, catalog.Plants())
	out := buf.String()

	for _, want := range []string{
		"Shade_Tolerance",
		"Intolerant < Intermediate < Tolerant",
		"Temperature_Minimum_F    numeric",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != len(catalog.Plants().Fields()) {
		t.Errorf("got %d lines, want one per field (%d)", len(lines), len(catalog.Plants().Fields()))
	}
}
