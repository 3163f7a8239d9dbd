package merge

import (
	"github.com/bits-and-blooms/bitset"
)

// MaxNumProtos bounds how many prototypes a single class library may
// accumulate, matching original_source's MAX_NUM_PROTOS guard in
// AddProtoToClass (classify/cluster.h).
const MaxNumProtos = 512

const noProto = -1

// Class is one unichar's persistent prototype library (spec.md §3 "Class
// library"): the folded-together result of every training page's
// prototypes seen so far, plus the bit-vector configurations recording
// which protos each page actually used.
type Class struct {
	Protos    []LineProto
	NumMerged []int
	Configs   []*bitset.BitSet
	fontSet   []int
	seenFont  map[int]bool
}

// NewClass returns an empty class library.
func NewClass() *Class {
	return &Class{seenFont: make(map[int]bool)}
}

// NewClassFromProtos rehydrates a class library from a previously persisted
// prototype list (e.g. one class's entries in a loaded normproto file), each
// proto seeded with NumMerged=1 as if it had arrived from one already-folded
// training page. This lets a driver resume training into a library loaded
// from disk instead of starting every run from an empty Class.
func NewClassFromProtos(protos []LineProto) *Class {
	c := NewClass()
	c.Protos = append([]LineProto(nil), protos...)
	c.NumMerged = make([]int, len(protos))
	for i := range c.NumMerged {
		c.NumMerged[i] = 1
	}
	return c
}

// FontSet returns the font ids that have contributed a configuration to
// this class, in first-seen order.
func (c *Class) FontSet() []int {
	return append([]int(nil), c.fontSet...)
}

func (c *Class) recordFont(fontID int) {
	if c.seenFont[fontID] {
		return
	}
	c.seenFont[fontID] = true
	c.fontSet = append(c.fontSet, fontID)
}

// findClosestExistingProto searches every existing proto in c for the one
// that, merged with p, would produce the least evidence loss on either
// side, matching mergenf.cpp's FindClosestExistingProto. It returns
// noProto if no existing proto beats WorstMatchAllowed.
func (c *Class) findClosestExistingProto(p LineProto) int {
	best := noProto
	bestMatch := WorstMatchAllowed
	for i, existing := range c.Protos {
		merged := computeMergedProto(existing, p, float64(c.NumMerged[i]), 1.0)
		oldMatch := CompareProtos(existing, merged)
		newMatch := CompareProtos(p, merged)
		match := oldMatch
		if newMatch < match {
			match = newMatch
		}
		if match > bestMatch {
			best = i
			bestMatch = match
		}
	}
	return best
}

// appendProto adds p as a brand-new proto slot, returning its index. It
// panics if the class is already at MaxNumProtos, a precondition failure
// per spec.md §7 (the training driver is responsible for never exceeding
// it).
func (c *Class) appendProto(p LineProto) int {
	if len(c.Protos) >= MaxNumProtos {
		panic("merge: class already holds MaxNumProtos prototypes")
	}
	c.Protos = append(c.Protos, p)
	c.NumMerged = append(c.NumMerged, 1)
	return len(c.Protos) - 1
}

// mergeInto folds p into the existing proto at index i (weighted by its
// current NumMerged), incrementing NumMerged, matching mergenf.cpp's merge
// branch of its caller (AddProtoToClassify).
func (c *Class) mergeInto(i int, p LineProto) {
	merged := computeMergedProto(c.Protos[i], p, float64(c.NumMerged[i]), 1.0)
	c.Protos[i] = merged
	c.NumMerged[i]++
}

// AddPage folds one training page's freshly distilled prototypes (already
// converted to LineProto form) into the class library, allocating a new
// configuration bit-vector for the page and recording fontID in the font
// set, per spec.md §4.4. Configurations grow in place as new proto slots
// are appended (spec.md §9): bitset.BitSet.Set extends its backing words
// automatically, so no separate resize pass over older configs is needed.
func (c *Class) AddPage(protos []LineProto, fontID int) *bitset.BitSet {
	cfg := bitset.New(uint(len(c.Protos)))
	c.Configs = append(c.Configs, cfg)

	for _, p := range protos {
		idx := c.findClosestExistingProto(p)
		if idx == noProto {
			idx = c.appendProto(p)
		} else {
			c.mergeInto(idx, p)
		}
		cfg.Set(uint(idx))
	}

	c.recordFont(fontID)
	return cfg
}
