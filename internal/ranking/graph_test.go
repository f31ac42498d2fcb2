package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGraph(t *testing.T) {
	t.Parallel()

	root := []RootPage{
		{URL: "gemini://a.example/", CrossSiteLinks: []string{"gemini://b.example/", "gemini://b.example/", "gemini://nowhere.example/"}, Rank: 0.5},
		{URL: "gemini://b.example/", CrossSiteLinks: []string{"gemini://b.example/"}, Rank: 0.2},
		{URL: "gemini://a.example/", Rank: 0.9},
	}
	base := []BaseLink{
		{Source: "gemini://c.example/", Dest: "gemini://a.example/"},
		{Source: "gemini://c.example/", Dest: "gemini://b.example/"},
		{Source: "gemini://c.example/", Dest: "gemini://a.example/"},
	}
	g := BuildGraph(root, base)

	require.Equal(t, 3, g.Len())
	assert.Equal(t, []bool{true, true, false}, g.Root)
	assert.Equal(t, []float64{0.5, 0.2, 0}, g.TextRank)

	a, _ := g.ID("gemini://a.example/")
	b, _ := g.ID("gemini://b.example/")
	c, ok := g.ID("gemini://c.example/")
	require.True(t, ok)
	assert.Equal(t, []int{b}, g.Out[a])
	assert.Empty(t, g.Out[b])
	assert.ElementsMatch(t, []int{a, b}, g.Out[c])
	assert.ElementsMatch(t, []int{a, c}, g.In[b])
	assert.Equal(t, []int{c}, g.In[a])

	_, ok = g.Page(c)
	assert.False(t, ok)
	p, ok := g.Page(a)
	require.True(t, ok)
	assert.InDelta(t, 0.5, p.Rank, 1e-9)
}

func TestBuildGraphEmpty(t *testing.T) {
	t.Parallel()

	g := BuildGraph(nil, nil)
	assert.Equal(t, 0, g.Len())
	scores, iters := HITS(g.In, g.Out)
	assert.Nil(t, scores)
	assert.Equal(t, 0, iters)
}
