package cluster

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// tolerance on total centroid movement below which k-means stops.
const tolerance = 1e-10

// kmeans runs one k-means++ seeded Lloyd's iteration sequence over the rows
// of data and returns labels and inertia.
func kmeans(ctx context.Context, data *mat.Dense, k, maxIter int, rng *rand.Rand) ([]int, float64, error) {
	centroids := seedPlusPlus(data, k, rng)
	labels := assign(data, centroids)

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		next := updateCentroids(data, labels, centroids)
		moved := centroidShift(centroids, next)
		centroids = next
		labels = assign(data, centroids)

		if moved < tolerance {
			break
		}
	}

	return labels, inertia(data, centroids, labels), nil
}

// seedPlusPlus picks k initial centroids with D^2 weighting.
func seedPlusPlus(data *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := data.Dims()
	centroids := mat.NewDense(k, d, nil)
	centroids.SetRow(0, data.RawRowView(rng.IntN(n)))

	dist := make([]float64, n)
	for i := 1; i < k; i++ {
		var total float64
		for j := 0; j < n; j++ {
			dist[j] = nearest(data.RawRowView(j), centroids, i)
			total += dist[j]
		}

		// All points coincide with a centroid.
		if total == 0 {
			centroids.SetRow(i, data.RawRowView(rng.IntN(n)))
			continue
		}

		target := rng.Float64() * total
		pick := n - 1
		var cum float64
		for j, w := range dist {
			cum += w
			if cum >= target && w > 0 {
				pick = j
				break
			}
		}
		centroids.SetRow(i, data.RawRowView(pick))
	}

	return centroids
}

// nearest returns the squared distance from p to the closest of the first
// count centroids.
func nearest(p []float64, centroids *mat.Dense, count int) float64 {
	best := math.Inf(1)
	for c := 0; c < count; c++ {
		if d := sqDist(p, centroids.RawRowView(c)); d < best {
			best = d
		}
	}
	return best
}

// assign labels each row with its closest centroid. Ties go to the lowest
// index so identical rows share a label.
func assign(data, centroids *mat.Dense) []int {
	n, _ := data.Dims()
	k, _ := centroids.Dims()
	labels := make([]int, n)

	for i := 0; i < n; i++ {
		p := data.RawRowView(i)
		best, bestDist := 0, math.Inf(1)
		for c := 0; c < k; c++ {
			if d := sqDist(p, centroids.RawRowView(c)); d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = best
	}
	return labels
}

// updateCentroids averages each cluster's members. A cluster left empty keeps
// its previous centroid.
func updateCentroids(data *mat.Dense, labels []int, prev *mat.Dense) *mat.Dense {
	k, d := prev.Dims()
	next := mat.NewDense(k, d, nil)
	counts := make([]int, k)

	for i, c := range labels {
		floats.Add(next.RawRowView(c), data.RawRowView(i))
		counts[c]++
	}

	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			next.SetRow(c, prev.RawRowView(c))
			continue
		}
		floats.Scale(1/float64(counts[c]), next.RawRowView(c))
	}
	return next
}

func centroidShift(a, b *mat.Dense) float64 {
	k, _ := a.Dims()
	var total float64
	for c := 0; c < k; c++ {
		total += sqDist(a.RawRowView(c), b.RawRowView(c))
	}
	return total
}

func inertia(data, centroids *mat.Dense, labels []int) float64 {
	var total float64
	for i, c := range labels {
		total += sqDist(data.RawRowView(i), centroids.RawRowView(c))
	}
	return total
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
