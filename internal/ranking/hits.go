package ranking

import "math"

// Convergence settings shared by both algorithms.
const (
	hitsEpsilon  = 0.005
	salsaEpsilon = 2 * hitsEpsilon
	maxIter      = 300
)

// denormalFloor matches single-precision machine epsilon; smaller scores
// are flushed to zero.
const denormalFloor = 1.1920929e-07

// HITS returns the authority score of every node and the iterations run.
// A node with no neighbours on one side keeps its previous score on that
// side, so a graph without edges stays uniform.
func HITS(in, out [][]int) ([]float64, int) {
	n := len(in)
	if n == 0 {
		return nil, 0
	}
	auth := uniform(n)
	hub := uniform(n)
	nextAuth := make([]float64, n)
	nextHub := make([]float64, n)

	delta := math.Inf(1)
	iter := 0
	for ; iter < maxIter && delta > hitsEpsilon; iter++ {
		for i := 0; i < n; i++ {
			nextAuth[i], nextHub[i] = auth[i], hub[i]
			var a, h float64
			for _, j := range in[i] {
				a += hub[j]
			}
			for _, j := range out[i] {
				h += auth[j]
			}
			if a != 0 {
				nextAuth[i] = a
			}
			if h != 0 {
				nextHub[i] = h
			}
		}
		authSum := max(sum(nextAuth), 1)
		hubSum := max(sum(nextHub), 1)

		delta = 0
		for i := 0; i < n; i++ {
			a := flush(nextAuth[i] / authSum)
			h := flush(nextHub[i] / hubSum)
			delta += math.Abs(auth[i]-a) + math.Abs(hub[i]-h)
			auth[i], hub[i] = a, h
		}
	}
	return auth, iter
}

func uniform(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = 1 / float64(n)
	}
	return s
}

func sum(v []float64) float64 {
	var t float64
	for _, x := range v {
		t += x
	}
	return t
}

func flush(x float64) float64 {
	if x < denormalFloor {
		return 0
	}
	return x
}
