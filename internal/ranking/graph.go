package ranking

// Graph is the link graph of one query. Node ids index every slice.
type Graph struct {
	URLs     []string
	In       [][]int
	Out      [][]int
	Root     []bool
	TextRank []float64

	pages map[int]RootPage
	ids   map[string]int
}

// BuildGraph indexes the root and base sets. Only edges whose endpoints are
// both nodes are kept; self links and duplicate edges are dropped.
func BuildGraph(root []RootPage, base []BaseLink) *Graph {
	g := &Graph{
		pages: make(map[int]RootPage, len(root)),
		ids:   make(map[string]int, len(root)+len(base)),
	}
	for _, p := range root {
		if _, ok := g.ids[p.URL]; ok {
			continue
		}
		id := g.add(p.URL, true, p.Rank)
		g.pages[id] = p
	}
	for _, l := range base {
		if _, ok := g.ids[l.Source]; !ok {
			g.add(l.Source, false, 0)
		}
	}

	type edge struct{ from, to int }
	seen := make(map[edge]struct{})
	link := func(from, to string) {
		if from == to {
			return
		}
		src, ok := g.ids[from]
		if !ok {
			return
		}
		dst, ok := g.ids[to]
		if !ok {
			return
		}
		e := edge{src, dst}
		if _, dup := seen[e]; dup {
			return
		}
		seen[e] = struct{}{}
		g.Out[src] = append(g.Out[src], dst)
		g.In[dst] = append(g.In[dst], src)
	}
	for _, p := range root {
		for _, to := range p.CrossSiteLinks {
			link(p.URL, to)
		}
	}
	for _, l := range base {
		link(l.Source, l.Dest)
	}
	return g
}

func (g *Graph) add(url string, root bool, rank float64) int {
	id := len(g.URLs)
	g.ids[url] = id
	g.URLs = append(g.URLs, url)
	g.In = append(g.In, nil)
	g.Out = append(g.Out, nil)
	g.Root = append(g.Root, root)
	g.TextRank = append(g.TextRank, rank)
	return id
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.URLs) }

// ID returns the node id of url.
func (g *Graph) ID(url string) (int, bool) {
	id, ok := g.ids[url]
	return id, ok
}

// Page returns the root-set row behind node id.
func (g *Graph) Page(id int) (RootPage, bool) {
	p, ok := g.pages[id]
	return p, ok
}
