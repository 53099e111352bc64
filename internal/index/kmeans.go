package index

import (
	"math/rand"
)

// k-means parameters. The seed is fixed so that repeated builds over the
// same vector set produce identical centroids.
const (
	kmeansSeed          = 42
	kmeansRestarts      = 10
	kmeansMaxIterations = 300
)

// nearestCentroid returns the index of the centroid most similar to v under
// the metric, breaking ties toward the lowest index.
func nearestCentroid(metric Metric, v []float32, centroids [][]float32) int {
	best := 0
	bestScore := metric.score(v, centroids[0])
	for i := 1; i < len(centroids); i++ {
		if s := metric.score(v, centroids[i]); s > bestScore {
			best = i
			bestScore = s
		}
	}
	return best
}

// runKMeans clusters data into k centroids using Lloyd iterations with
// metric-based assignment and mean centroid updates. It runs several
// random-seeded restarts and keeps the lowest-cost clustering.
func runKMeans(data [][]float32, k int, metric Metric) [][]float32 {
	if k >= len(data) {
		// One point per cluster; no iteration needed.
		centroids := make([][]float32, len(data))
		for i, v := range data {
			centroids[i] = copyVector(v)
		}
		return centroids
	}

	rng := rand.New(rand.NewSource(kmeansSeed))
	var best [][]float32
	bestCost := float64(0)
	for restart := 0; restart < kmeansRestarts; restart++ {
		centroids, cost := lloyd(data, k, metric, rng)
		if best == nil || cost < bestCost {
			best = centroids
			bestCost = cost
		}
	}
	return best
}

// lloyd runs a single k-means fit from a random initialization and returns
// the centroids with the total assignment cost (negated similarity, so
// lower is better for every metric).
func lloyd(data [][]float32, k int, metric Metric, rng *rand.Rand) ([][]float32, float64) {
	dim := len(data[0])

	// Initialize centroids from k distinct data points.
	centroids := make([][]float32, k)
	for i, idx := range rng.Perm(len(data))[:k] {
		centroids[i] = copyVector(data[idx])
	}

	assign := make([]int, len(data))
	for i := range assign {
		assign[i] = -1
	}

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, v := range data {
			c := nearestCentroid(metric, v, centroids)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float32, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float32, dim)
		}
		for i, v := range data {
			c := assign[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += x
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Reseed an empty cluster to a random point.
				centroids[c] = copyVector(data[rng.Intn(len(data))])
				continue
			}
			for d := range sums[c] {
				sums[c][d] /= float32(counts[c])
			}
			centroids[c] = sums[c]
		}
	}

	var cost float64
	for i, v := range data {
		cost -= float64(metric.score(v, centroids[assign[i]]))
	}
	return centroids, cost
}
