// Package clustering implements the agglomerative (bottom-up) clusterer
// (spec.md §4.2): it builds a binary cluster tree over samples indexed in
// a kd-tree, merging nearest-neighbour pairs popped from a min-heap until
// one cluster remains.
package clustering

import (
	"container/heap"
	"fmt"

	"glyphtrain"
	"glyphtrain/kdtree"
)

// Cluster is both a leaf (a single training sample) and an interior node
// (a merged pair) of the cluster tree built by Builder.Build. Interior
// nodes own their children exclusively; a Cluster never appears as the
// child of more than one parent.
type Cluster struct {
	Mean        []float64
	SampleCount int
	CharID      int // -1 for merged interior clusters
	Clustered   bool
	Prototype   bool
	Left, Right int // arena indices; both -1 iff this is a leaf
}

// IsLeaf reports whether c is an original sample rather than a merge.
func (c *Cluster) IsLeaf() bool {
	return c.Left < 0 && c.Right < 0
}

const noChild = -1

// Arena owns every Cluster produced for one clusterer's lifetime. It is
// freed in its entirety when the clusterer that owns it is discarded
// (spec.md §5); there is no per-cluster deallocation.
type Arena struct {
	clusters []Cluster
}

// NewArena returns an empty cluster arena.
func NewArena() *Arena {
	return &Arena{}
}

// Add appends c and returns its arena index.
func (a *Arena) Add(c Cluster) int {
	a.clusters = append(a.clusters, c)
	return len(a.clusters) - 1
}

// Get returns a pointer to the cluster at index i. The pointer is valid
// only until the next Add call, which may reallocate the backing slice.
func (a *Arena) Get(i int) *Cluster {
	return &a.clusters[i]
}

// Len returns the number of clusters (leaves and interior nodes combined)
// ever allocated in this arena.
func (a *Arena) Len() int {
	return len(a.clusters)
}

// LeafSamples returns the arena indices of every leaf reachable from root,
// in left-subtree-before-right-subtree order.
func (a *Arena) LeafSamples(root int) []int {
	var out []int
	var walk func(i int)
	walk = func(i int) {
		if i == noChild {
			return
		}
		c := a.Get(i)
		if c.IsLeaf() {
			out = append(out, i)
			return
		}
		walk(c.Left)
		walk(c.Right)
	}
	walk(root)
	return out
}

// MergeMeans computes the weighted centroid of two cluster means, handling
// circular dimensions by choosing the shorter arc (spec.md §4.2).
func MergeMeans(params []glyphtrain.ParamDesc, m1 []float64, n1 int, m2 []float64, n2 int) []float64 {
	out := make([]float64, len(params))
	total := float64(n1 + n2)
	for i, p := range params {
		if !p.Circular {
			out[i] = (float64(n1)*m1[i] + float64(n2)*m2[i]) / total
			continue
		}
		r := p.Range()
		h := p.HalfRange()
		var v float64
		switch {
		case m2[i]-m1[i] > h:
			v = (float64(n1)*m1[i] + float64(n2)*(m2[i]-r)) / total
		case m1[i]-m2[i] > h:
			v = (float64(n1)*(m1[i]-r) + float64(n2)*m2[i]) / total
		default:
			v = (float64(n1)*m1[i] + float64(n2)*m2[i]) / total
		}
		if v < p.Min {
			v += r
		}
		out[i] = v
	}
	return out
}

// pairCandidate is one entry of the nearest-neighbour min-heap: a cluster
// and the closest other cluster to it, keyed by squared distance.
type pairCandidate struct {
	cluster   int
	neighbour int
	keySq     float64
}

type pairHeap []pairCandidate

func (h pairHeap) Len() int            { return len(h) }
func (h pairHeap) Less(i, j int) bool  { return h[i].keySq < h[j].keySq }
func (h pairHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pairHeap) Push(x interface{}) { *h = append(*h, x.(pairCandidate)) }
func (h *pairHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Builder runs the agglomerative clustering pass described in spec.md
// §4.2: every sample added via AddSample is indexed in a private kd-tree;
// Build repeatedly merges the closest pair until a single root remains,
// then discards the kd-tree (spec.md §4.2 step 3).
type Builder struct {
	params  []glyphtrain.ParamDesc
	arena   *Arena
	index   *kdtree.Index
	started bool
}

// NewBuilder creates a Builder over the given dimension descriptors.
func NewBuilder(params []glyphtrain.ParamDesc) *Builder {
	return &Builder{
		params: params,
		arena:  NewArena(),
		index:  kdtree.New(params),
	}
}

// Arena exposes the cluster arena backing this builder, valid for the
// builder's lifetime (and beyond Build, since the tree persists after the
// kd-tree is discarded per spec.md §4.2 step 3).
func (b *Builder) Arena() *Arena {
	return b.arena
}

// AddSample registers one labelled feature sample as a leaf cluster.
// Calling AddSample after Build has started is a programmer error
// (spec.md §7) and panics.
func (b *Builder) AddSample(mean []float64, charID int) int {
	if b.started {
		panic("clustering: AddSample called after Build has started")
	}
	idx := b.arena.Add(Cluster{
		Mean:        append([]float64(nil), mean...),
		SampleCount: 1,
		CharID:      charID,
		Left:        noChild,
		Right:       noChild,
	})
	b.index.Insert(mean, idx)
	return idx
}

// nearestOf queries the kd-tree for the nearest cluster to arena index i,
// discarding the self-match. Clusters already merged away are not among the
// candidates, because Build deletes them from the kd-tree when it merges
// them.
func (b *Builder) nearestOf(i int) (neighbour int, distSq float64, ok bool) {
	mean := b.arena.Get(i).Mean
	neighbours := b.index.KNearest(mean, 2, 0)
	for _, n := range neighbours {
		if n.Data == i {
			continue
		}
		return n.Data, n.Distance * n.Distance, true
	}
	return 0, 0, false
}

// Build runs the agglomeration to completion and returns the arena index
// of the root cluster. It must be called at most once.
func (b *Builder) Build() (int, error) {
	if b.started {
		panic("clustering: Build called twice")
	}
	b.started = true

	if b.arena.Len() == 0 {
		return 0, fmt.Errorf("clustering: no samples added")
	}
	if b.arena.Len() == 1 {
		return 0, nil
	}

	h := &pairHeap{}
	heap.Init(h)
	for i := 0; i < b.arena.Len(); i++ {
		if nn, distSq, ok := b.nearestOf(i); ok {
			heap.Push(h, pairCandidate{cluster: i, neighbour: nn, keySq: distSq})
		}
	}

	var lastCreated = -1
	for h.Len() > 0 {
		top := heap.Pop(h).(pairCandidate)

		if b.arena.Get(top.cluster).Clustered {
			continue
		}
		if b.arena.Get(top.neighbour).Clustered {
			if nn, distSq, ok := b.nearestOf(top.cluster); ok {
				heap.Push(h, pairCandidate{cluster: top.cluster, neighbour: nn, keySq: distSq})
			}
			continue
		}

		left, right := b.arena.Get(top.cluster), b.arena.Get(top.neighbour)
		mergedMean := MergeMeans(b.params, left.Mean, left.SampleCount, right.Mean, right.SampleCount)
		newIdx := b.arena.Add(Cluster{
			Mean:        mergedMean,
			SampleCount: left.SampleCount + right.SampleCount,
			CharID:      -1,
			Left:        top.cluster,
			Right:       top.neighbour,
		})

		b.arena.Get(top.cluster).Clustered = true
		b.arena.Get(top.neighbour).Clustered = true
		b.index.Delete(left.Mean, top.cluster)
		b.index.Delete(right.Mean, top.neighbour)
		b.index.Insert(mergedMean, newIdx)
		lastCreated = newIdx

		if nn, distSq, ok := b.nearestOf(newIdx); ok {
			heap.Push(h, pairCandidate{cluster: newIdx, neighbour: nn, keySq: distSq})
		}
	}

	if lastCreated == -1 {
		// Every candidate was exhausted without a single merge (the
		// one-sample case returned above; this shouldn't happen for n>1
		// samples).
		return 0, fmt.Errorf("clustering: failed to reduce %d samples to a single root", b.arena.Len())
	}
	return lastCreated, nil
}
