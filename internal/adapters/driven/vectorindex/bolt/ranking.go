package bolt

import (
	"math"
	"sort"

	"go.etcd.io/bbolt"
)

// candidate is a scored vector awaiting selection.
type candidate struct {
	key   []byte
	vec   []float32
	score float64
	entry entry
}

// scoreAll computes cosine similarity of every stored vector to query,
// in insertion order.
func scoreAll(vecs *bbolt.Bucket, query []float32) ([]candidate, error) {
	qNorm := norm(query)
	var out []candidate
	err := vecs.ForEach(func(k, v []byte) error {
		vec, err := decodeVector(v)
		if err != nil {
			return err
		}
		out = append(out, candidate{key: k, vec: vec, score: cosine(query, qNorm, vec)})
		return nil
	})
	return out, err
}

// topN keeps the n best candidates. Ties keep insertion order.
func topN(c []candidate, n int) []candidate {
	sort.SliceStable(c, func(a, b int) bool { return c[a].score > c[b].score })
	if len(c) > n {
		c = c[:n]
	}
	return c
}

// maximalMarginalRelevance picks k candidates balancing similarity to the
// query (weight lambda) against similarity to already selected ones.
// Input must be sorted by score; the first pick is always the best match.
func maximalMarginalRelevance(c []candidate, k int, lambda float64) []candidate {
	if len(c) <= 1 || k <= 0 {
		if len(c) > k {
			return c[:k]
		}
		return c
	}

	norms := make([]float64, len(c))
	for n := range c {
		norms[n] = norm(c[n].vec)
	}

	selected := []int{0}
	used := map[int]bool{0: true}
	for len(selected) < k && len(selected) < len(c) {
		best, bestScore := -1, math.Inf(-1)
		for n := range c {
			if used[n] {
				continue
			}
			redundancy := math.Inf(-1)
			for _, s := range selected {
				if sim := cosine(c[n].vec, norms[n], c[s].vec); sim > redundancy {
					redundancy = sim
				}
			}
			if mmr := lambda*c[n].score - (1-lambda)*redundancy; mmr > bestScore {
				best, bestScore = n, mmr
			}
		}
		selected = append(selected, best)
		used[best] = true
	}

	out := make([]candidate, len(selected))
	for n, s := range selected {
		out[n] = c[s]
	}
	return out
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// cosine returns the cosine similarity of a (with precomputed norm) and b.
// Zero vectors score 0.
func cosine(a []float32, aNorm float64, b []float32) float64 {
	if len(a) != len(b) || aNorm == 0 {
		return 0
	}
	var dot float64
	for n := range a {
		dot += float64(a[n]) * float64(b[n])
	}
	bNorm := norm(b)
	if bNorm == 0 {
		return 0
	}
	return dot / (aNorm * bNorm)
}
