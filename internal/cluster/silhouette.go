package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// silhouette returns the mean silhouette coefficient of labels over the rows
// of data, or 0 when fewer than two clusters are populated.
func silhouette(data *mat.Dense, labels []int) float64 {
	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	if len(sizes) < 2 {
		return 0
	}

	n := len(labels)
	var total float64
	for i := 0; i < n; i++ {
		sums := make(map[int]float64, len(sizes))
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sums[labels[j]] += floats.Distance(data.RawRowView(i), data.RawRowView(j), 2)
		}

		own := labels[i]
		if sizes[own] == 1 {
			continue
		}
		a := sums[own] / float64(sizes[own]-1)

		b := math.Inf(1)
		for l, size := range sizes {
			if l == own {
				continue
			}
			if avg := sums[l] / float64(size); avg < b {
				b = avg
			}
		}

		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}

	return total / float64(n)
}
