// ════════════════════════════════════════════════════════════════════════════════════════════════
// Chiplet Partitioner - Spectral Partitioning
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Chiplet Partitioning & Floorplanning Engine
// Component: Laplacian Embedding + K-Means
//
// Description:
//   Embeds the vertices into the low eigenvectors of the graph Laplacian and
//   clusters the embedding with seeded k-means. The constant eigenvector is
//   skipped and every embedding column is L2-normalized before clustering.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package partgen

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"chipletpart/constants"
	"chipletpart/debug"
)

// Spectral returns a numParts-way partition from the Laplacian embedding.
// Graphs with at most numParts vertices are assigned round-robin; an empty
// graph or a failed factorization yields nil.
func (g *Generator) Spectral() []int {
	numVertices := g.hg.NumVertices()
	if numVertices == 0 {
		return nil
	}
	if numVertices <= g.numParts {
		partition := make([]int, numVertices)
		for v := range partition {
			partition[v] = v % g.numParts
		}
		return partition
	}

	// Unnormalized Laplacian: degree on the diagonal, -1 per neighbor pair.
	lap := mat.NewSymDense(numVertices, nil)
	for v := 0; v < numVertices; v++ {
		neighbors := g.hg.Neighbors(v)
		lap.SetSym(v, v, float64(len(neighbors)))
		for _, nb := range neighbors {
			if nb > v {
				lap.SetSym(v, nb, -1.0)
			}
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(lap, true) {
		debug.DropMessage("partgen", "laplacian eigendecomposition failed")
		return nil
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Eigenvalues come back ascending, so column 0 is the constant vector.
	dim := g.numParts
	if dim > numVertices-1 {
		dim = numVertices - 1
	}
	embedding := make([][]float64, numVertices)
	for v := range embedding {
		embedding[v] = make([]float64, dim)
	}
	for j := 0; j < dim; j++ {
		var norm float64
		for v := 0; v < numVertices; v++ {
			x := vecs.At(v, j+1)
			embedding[v][j] = x
			norm += x * x
		}
		norm = math.Sqrt(norm)
		if norm > 1e-10 {
			for v := 0; v < numVertices; v++ {
				embedding[v][j] /= norm
			}
		}
	}

	return g.kMeans(embedding, g.numParts)
}

// kMeans clusters the embedding rows into k groups. Centroids start at k
// distinct random rows; an empty cluster is re-seeded from a random row and
// forces another iteration.
func (g *Generator) kMeans(points [][]float64, k int) []int {
	numPoints := len(points)
	dim := len(points[0])

	centroidRows := make(map[int]struct{}, k)
	centroids := make([][]float64, 0, k)
	for len(centroids) < k {
		idx := g.rng.Intn(numPoints)
		if _, dup := centroidRows[idx]; dup {
			continue
		}
		centroidRows[idx] = struct{}{}
		row := make([]float64, dim)
		copy(row, points[idx])
		centroids = append(centroids, row)
	}

	clusters := make([]int, numPoints)
	changed := true
	for iter := 0; changed && iter < constants.KMeansMaxIters; iter++ {
		changed = false

		for i, p := range points {
			best, bestDist := 0, math.MaxFloat64
			for j, c := range centroids {
				var d float64
				for x := range p {
					diff := p[x] - c[x]
					d += diff * diff
				}
				if d < bestDist {
					bestDist = d
					best = j
				}
			}
			if clusters[i] != best {
				clusters[i] = best
				changed = true
			}
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for j := range sums {
			sums[j] = make([]float64, dim)
		}
		for i, p := range points {
			c := clusters[i]
			counts[c]++
			for x := range p {
				sums[c][x] += p[x]
			}
		}
		for j := 0; j < k; j++ {
			if counts[j] > 0 {
				for x := range sums[j] {
					centroids[j][x] = sums[j][x] / float64(counts[j])
				}
			} else {
				copy(centroids[j], points[g.rng.Intn(numPoints)])
				changed = true
			}
		}
	}
	return clusters
}
