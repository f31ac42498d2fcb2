package ranking

import "math"

const (
	// graphBoost is the exponent applied to the max-normalized graph score.
	graphBoost = 6.5
	// largePageSize is where the size penalty starts.
	largePageSize = 48 * 1000
	// largePageScale stretches the logarithmic size penalty.
	largePageScale = 3 * 1000
)

// Blend combines a graph score (already divided by the maximum graph score)
// with a text rank. The boosted graph score and the size-discounted text
// rank are merged with a harmonic mean.
func Blend(normalizedGraph, textRank float64, size int64) float64 {
	boost := math.Exp(normalizedGraph * graphBoost)
	rank := textRank
	if size > largePageSize {
		rank /= math.Log(math.E + float64(size-largePageSize)/largePageScale)
	}
	if boost+rank == 0 {
		return 0
	}
	return 2 * boost * rank / (boost + rank)
}

// Score blends scores into every root-set node of g.
func Score(g *Graph, scores []float64) []Ranked {
	top := 0.0
	for _, s := range scores {
		top = max(top, s)
	}
	if top == 0 {
		top = 1
	}
	out := make([]Ranked, 0, len(g.pages))
	for id := 0; id < g.Len(); id++ {
		if !g.Root[id] {
			continue
		}
		p, _ := g.Page(id)
		var graph float64
		if id < len(scores) {
			graph = scores[id] / top
		}
		out = append(out, Ranked{
			URL:         p.URL,
			ContentType: p.ContentType,
			Size:        p.Size,
			ContentHash: p.ContentHash,
			Score:       Blend(graph, g.TextRank[id], p.Size),
		})
	}
	return out
}
