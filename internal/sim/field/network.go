package field

import (
	"sort"

	"beltworks.dev/internal/sim/building"
	"beltworks.dev/internal/sim/geom"
)

// BeltSystem is one connected group of conveyors.
type BeltSystem struct {
	// Cells in visit order: each head followed downstream until a visited
	// conveyor or the end of the line.
	Cells []geom.Vec2i `json:"cells"`
	// Heads are conveyors no other conveyor feeds.
	Heads []geom.Vec2i `json:"heads"`
	// Cyclic is set when following outputs returns to a conveyor already on
	// the same walk.
	Cyclic bool `json:"cyclic"`
}

// BeltNetwork is the directed graph of conveyors. There is an edge from a to
// b when a's output faces b and b takes input from that side.
type BeltNetwork struct {
	next    map[geom.Vec2i]geom.Vec2i
	prev    map[geom.Vec2i][]geom.Vec2i
	system  map[geom.Vec2i]int
	Systems []BeltSystem
}

func buildNetwork(f *Field) *BeltNetwork {
	n := &BeltNetwork{
		next:   map[geom.Vec2i]geom.Vec2i{},
		prev:   map[geom.Vec2i][]geom.Vec2i{},
		system: map[geom.Vec2i]int{},
	}

	var nodes []geom.Vec2i
	belts := map[geom.Vec2i]*building.Conveyor{}
	f.Each(func(c *Cell) {
		if cv, ok := c.Building().(*building.Conveyor); ok {
			nodes = append(nodes, c.Pos())
			belts[c.Pos()] = cv
		}
	})

	// nodes are x-major sorted, so prev lists come out sorted as well.
	for _, p := range nodes {
		out := belts[p].Output()
		if out == geom.None {
			continue
		}
		q := p.Add(out.Vec())
		down, ok := belts[q]
		if !ok {
			continue
		}
		side := geom.FromVec(p.Sub(q))
		for _, in := range down.Inputs() {
			if in == side {
				n.next[p] = q
				n.prev[q] = append(n.prev[q], p)
				break
			}
		}
	}

	for _, start := range nodes {
		if _, seen := n.system[start]; seen {
			continue
		}
		comp := n.component(start, len(n.Systems))
		n.Systems = append(n.Systems, n.walk(comp))
	}
	return n
}

// component collects the weakly connected group of start in sorted order.
func (n *BeltNetwork) component(start geom.Vec2i, id int) []geom.Vec2i {
	var comp []geom.Vec2i
	stack := []geom.Vec2i{start}
	n.system[start] = id
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		comp = append(comp, p)

		adj := append([]geom.Vec2i(nil), n.prev[p]...)
		if q, ok := n.next[p]; ok {
			adj = append(adj, q)
		}
		for _, q := range adj {
			if _, seen := n.system[q]; !seen {
				n.system[q] = id
				stack = append(stack, q)
			}
		}
	}
	sortVecs(comp)
	return comp
}

func (n *BeltNetwork) walk(comp []geom.Vec2i) BeltSystem {
	var sys BeltSystem
	for _, p := range comp {
		if len(n.prev[p]) == 0 {
			sys.Heads = append(sys.Heads, p)
		}
	}

	visited := map[geom.Vec2i]bool{}
	follow := func(p geom.Vec2i) {
		onWalk := map[geom.Vec2i]bool{}
		for {
			if onWalk[p] {
				sys.Cyclic = true
				return
			}
			if visited[p] {
				return
			}
			visited[p] = true
			onWalk[p] = true
			sys.Cells = append(sys.Cells, p)
			q, ok := n.next[p]
			if !ok {
				return
			}
			p = q
		}
	}
	for _, h := range sys.Heads {
		follow(h)
	}
	// Whatever is left sits on a loop that no head leads into.
	for _, p := range comp {
		if !visited[p] {
			follow(p)
		}
	}
	return sys
}

func sortVecs(v []geom.Vec2i) {
	sort.Slice(v, func(i, j int) bool { return v[i].Less(v[j]) })
}
