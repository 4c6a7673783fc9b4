// Package recommend turns cluster assignments into plant recommendations and
// runs the full recommendation pipeline.
package recommend

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/plantrec/plantrec/internal/catalog"
	"github.com/plantrec/plantrec/internal/dataset"
)

// ErrEmptyCluster is returned when no other species share the query's cluster.
var ErrEmptyCluster = errors.New("no matches found")

// Peers returns the indices of rows labelled like the query, excluding the
// query itself, in row order.
func Peers(labels []int, queryIndex int) ([]int, error) {
	if queryIndex < 0 || queryIndex >= len(labels) {
		return nil, fmt.Errorf("query index %d out of range for %d labels", queryIndex, len(labels))
	}

	target := labels[queryIndex]
	var peers []int
	for i, l := range labels {
		if i != queryIndex && l == target {
			peers = append(peers, i)
		}
	}
	return peers, nil
}

// Select draws a uniform random sample of min(n, population) identities from
// the query's cluster, in sampled order. The query row is never returned.
func Select(labels []int, queryIndex int, ids []dataset.Identity, n int, rng *rand.Rand) ([]dataset.Identity, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: result count must be at least 1, got %d", catalog.ErrInvalidFieldValue, n)
	}
	if len(ids) != len(labels) {
		return nil, fmt.Errorf("%d identities for %d labels", len(ids), len(labels))
	}

	peers, err := Peers(labels, queryIndex)
	if err != nil {
		return nil, err
	}
	if len(peers) == 0 {
		return nil, ErrEmptyCluster
	}

	k := min(n, len(peers))
	out := make([]dataset.Identity, k)
	for i, p := range rng.Perm(len(peers))[:k] {
		out[i] = ids[peers[p]]
	}
	return out, nil
}
