package ranking

import "math"

// SALSA returns a score per node and the iterations run. Nodes with more
// in-links than out-links act as authorities, the rest as hubs; edges
// between nodes of the same role are ignored. The inputs are not modified.
func SALSA(in, out [][]int) ([]float64, int) {
	n := len(in)
	if n == 0 {
		return nil, 0
	}
	isAuth := make([]bool, n)
	var auths, hubs int
	for i := 0; i < n; i++ {
		isAuth[i] = len(in[i]) > len(out[i])
		if isAuth[i] {
			auths++
		} else {
			hubs++
		}
	}
	bin := bipartite(in, isAuth)
	bout := bipartite(out, isAuth)

	score := make([]float64, n)
	for i := range score {
		if isAuth[i] {
			score[i] = 1 / float64(auths)
		} else {
			score[i] = 1 / float64(hubs)
		}
	}
	next := make([]float64, n)

	delta := math.Inf(1)
	iter := 0
	for ; iter < maxIter && delta > salsaEpsilon; iter++ {
		for i := 0; i < n; i++ {
			// Authorities walk back to a hub and forward again; hubs the reverse.
			first, second := bin, bout
			if !isAuth[i] {
				first, second = bout, bin
			}
			if len(first[i]) == 0 {
				next[i] = score[i]
				continue
			}
			var s float64
			for _, j := range first[i] {
				var inner float64
				for _, k := range second[j] {
					inner += score[k] / float64(max(len(first[k]), 1))
				}
				s += inner / float64(max(len(second[j]), 1))
			}
			next[i] = s
		}
		total := max(sum(next), 1)

		delta = 0
		for i := 0; i < n; i++ {
			v := next[i] / total
			delta += math.Abs(v - score[i])
			score[i] = v
		}
	}
	return score, iter
}

// bipartite copies adj keeping only edges that cross roles.
func bipartite(adj [][]int, isAuth []bool) [][]int {
	out := make([][]int, len(adj))
	for i, nbrs := range adj {
		for _, j := range nbrs {
			if isAuth[j] != isAuth[i] {
				out[i] = append(out[i], j)
			}
		}
	}
	return out
}
