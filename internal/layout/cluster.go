package layout

import (
	"fmt"
	"math"

	"github.com/docslice/docslice/internal/geometry"
)

// ClusterConfig configures vector-graphic clustering.
type ClusterConfig struct {
	// WindowSize is the side length in pixels of the density window scanned
	// around each primitive's center.
	WindowSize float64
	// MinCount is the smallest number of co-windowed primitives that counts
	// as a dense group.
	MinCount int
	// OverlapRatio is the bbox-to-window overlap ratio above which a
	// primitive joins a window even when its center lies outside it.
	OverlapRatio float64
	// MaxIterations bounds the merge-until-fixed-point loop.
	MaxIterations int
}

// DefaultClusterConfig returns the clustering defaults.
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		WindowSize:    30,
		MinCount:      2,
		OverlapRatio:  0.1,
		MaxIterations: 10,
	}
}

// Clusterer merges densely co-located line and image primitives into
// synthetic vector-graphic elements. Figures drawn as many small paths plus
// embedded raster fragments arrive as dozens of disjoint boxes; downstream
// stages need them as one compound graphic.
type Clusterer struct {
	config ClusterConfig
}

// NewClusterer creates a vector-graphic clusterer.
func NewClusterer(config ClusterConfig) *Clusterer {
	def := DefaultClusterConfig()
	if config.WindowSize <= 0 {
		config.WindowSize = def.WindowSize
	}
	if config.MinCount < 2 {
		config.MinCount = def.MinCount
	}
	if config.OverlapRatio <= 0 {
		config.OverlapRatio = def.OverlapRatio
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = def.MaxIterations
	}
	return &Clusterer{config: config}
}

// Cluster returns the element list with dense raw_line/image groups replaced
// by merged vector_graphic elements. Elements of other kinds pass through
// untouched, as do primitives not captured by any dense window. The
// operation reaches a fixed point: running it on its own output produces no
// further merges.
func (c *Clusterer) Cluster(elements []Element) []Element {
	for iteration := 0; iteration < c.config.MaxIterations; iteration++ {
		merged, changed := c.mergeOnce(elements)
		elements = merged
		if !changed {
			break
		}
	}
	return elements
}

func (c *Clusterer) mergeOnce(elements []Element) ([]Element, bool) {
	// Only line and image primitives participate; merged vector graphics
	// and content elements are never re-clustered.
	var participants []int
	for i, e := range elements {
		if e.Kind == KindRawLine || e.Kind == KindImage {
			participants = append(participants, i)
		}
	}
	if len(participants) < c.config.MinCount {
		return elements, false
	}

	index := newGridIndex(c.config.WindowSize)
	for _, i := range participants {
		index.insert(i, elements[i].BBox)
	}

	uf := newUnionFind(len(elements))
	half := c.config.WindowSize / 2

	for _, i := range participants {
		cx, cy := elements[i].BBox.Center()
		window := geometry.Rect{X1: cx - half, Y1: cy - half, X2: cx + half, Y2: cy + half}

		for _, j := range index.query(window) {
			if i == j {
				continue
			}
			ox, oy := elements[j].BBox.Center()
			if window.Contains(ox, oy) || window.Overlaps(elements[j].BBox, c.config.OverlapRatio) {
				uf.union(i, j)
			}
		}
	}

	// Collect connected components over the participants.
	components := make(map[int][]int)
	for _, i := range participants {
		root := uf.find(i)
		components[root] = append(components[root], i)
	}

	mergedIndices := make(map[int]bool)
	var vectorGraphics []Element
	vectorSeq := 0
	for _, members := range components {
		if len(members) < c.config.MinCount || !hasLineAndImage(elements, members) {
			continue
		}
		union := elements[members[0]].BBox
		for _, idx := range members[1:] {
			union = union.Union(elements[idx].BBox)
		}
		vectorGraphics = append(vectorGraphics, Element{
			ID:     fmt.Sprintf("vg-%d", vectorSeq),
			Kind:   KindVectorGraphic,
			BBox:   union,
			Label:  fmt.Sprintf("vector graphic (%d primitives)", len(members)),
			Source: SourceDerived,
		})
		vectorSeq++
		for _, idx := range members {
			mergedIndices[idx] = true
		}
	}

	if len(vectorGraphics) == 0 {
		return elements, false
	}

	result := make([]Element, 0, len(elements)-len(mergedIndices)+len(vectorGraphics))
	result = append(result, vectorGraphics...)
	for i, e := range elements {
		if !mergedIndices[i] {
			result = append(result, e)
		}
	}
	return result, true
}

// hasLineAndImage reports whether a component contains at least one line
// primitive and at least one image primitive. A cloud of lines alone is
// usually a table grid or a chart axis, not a compound figure.
func hasLineAndImage(elements []Element, members []int) bool {
	hasLine, hasImage := false, false
	for _, idx := range members {
		switch elements[idx].Kind {
		case KindRawLine:
			hasLine = true
		case KindImage:
			hasImage = true
		}
		if hasLine && hasImage {
			return true
		}
	}
	return false
}

// gridIndex buckets element bounding boxes by window-sized cells so the
// per-window neighbor lookup stays near-linear in element count.
type gridIndex struct {
	cell    float64
	buckets map[[2]int][]int
}

func newGridIndex(cell float64) *gridIndex {
	return &gridIndex{cell: cell, buckets: make(map[[2]int][]int)}
}

func (g *gridIndex) cellRange(r geometry.Rect) (x1, y1, x2, y2 int) {
	return int(math.Floor(r.X1 / g.cell)), int(math.Floor(r.Y1 / g.cell)),
		int(math.Floor(r.X2 / g.cell)), int(math.Floor(r.Y2 / g.cell))
}

func (g *gridIndex) insert(id int, bbox geometry.Rect) {
	x1, y1, x2, y2 := g.cellRange(bbox)
	for x := x1; x <= x2; x++ {
		for y := y1; y <= y2; y++ {
			key := [2]int{x, y}
			g.buckets[key] = append(g.buckets[key], id)
		}
	}
}

func (g *gridIndex) query(window geometry.Rect) []int {
	x1, y1, x2, y2 := g.cellRange(window)
	seen := make(map[int]bool)
	var out []int
	for x := x1; x <= x2; x++ {
		for y := y1; y <= y2; y++ {
			for _, id := range g.buckets[[2]int{x, y}] {
				if !seen[id] {
					seen[id] = true
					out = append(out, id)
				}
			}
		}
	}
	return out
}

// unionFind is a standard disjoint-set with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}
