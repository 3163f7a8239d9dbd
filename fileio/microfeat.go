package fileio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/bits-and-blooms/bitset"

	"glyphtrain"
	"glyphtrain/merge"
)

// wordBits is the width of one hex word in a microfeat configuration dump.
const wordBits = 64

// MicrofeatClass is one unichar's class-library record as the microfeat
// dump format represents it: a flat proto list plus the per-page
// configuration bit-vectors that record which protos each page used,
// matching original_source/training/mergenf.cpp's WriteNormProtos dump.
type MicrofeatClass struct {
	Label   string
	Protos  []merge.LineProto
	Configs []*bitset.BitSet
}

// WriteMicrofeatClass writes one class record in the format
// ReadMicrofeatClass parses, matching mergenf.cpp's config-bitvector dump
// (spec.md §6 "Microfeat text file").
func WriteMicrofeatClass(w io.Writer, c *MicrofeatClass) error {
	if _, err := fmt.Fprintf(w, "%s\n%d\n", c.Label, len(c.Protos)); err != nil {
		return err
	}
	for _, p := range c.Protos {
		if _, err := fmt.Fprintf(w, "\t%9.6f %9.6f %9.6f %9.6f %9.6f %9.6f %9.6f\n",
			p.X, p.Y, p.Length, p.Angle, p.A, p.B, p.C); err != nil {
			return err
		}
	}

	wordsPerConfig := (len(c.Protos) + wordBits - 1) / wordBits
	if wordsPerConfig == 0 {
		wordsPerConfig = 1
	}
	if _, err := fmt.Fprintf(w, "%d %d\n", len(c.Configs), wordsPerConfig); err != nil {
		return err
	}
	for _, cfg := range c.Configs {
		words := configWords(cfg, wordsPerConfig)
		for i, word := range words {
			sep := " "
			if i == 0 {
				sep = ""
			}
			if _, err := fmt.Fprintf(w, "%s%016x", sep, word); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// configWords packs cfg's set bits into wordsPerConfig uint64 words, word 0
// first and holding the lowest proto indices, low bit of word 0 holding
// proto index 0.
func configWords(cfg *bitset.BitSet, wordsPerConfig int) []uint64 {
	words := make([]uint64, wordsPerConfig)
	for i, ok := cfg.NextSet(0); ok; i, ok = cfg.NextSet(i + 1) {
		word := int(i) / wordBits
		bit := uint(i) % wordBits
		if word < len(words) {
			words[word] |= 1 << bit
		}
	}
	return words
}

// ReadMicrofeatClass parses one class record, matching WriteMicrofeatClass.
func ReadMicrofeatClass(r *bufio.Reader) (*MicrofeatClass, error) {
	var label string
	var numProtos int
	if _, err := fmt.Fscan(r, &label, &numProtos); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, err, "reading microfeat class header")
	}
	if numProtos < 0 {
		return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, nil, "class %s has negative proto count %d", label, numProtos)
	}

	protos := make([]merge.LineProto, numProtos)
	for i := range protos {
		var p merge.LineProto
		if _, err := fmt.Fscan(r, &p.X, &p.Y, &p.Length, &p.Angle, &p.A, &p.B, &p.C); err != nil {
			return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, err, "reading proto %d of class %s", i, label)
		}
		protos[i] = p
	}

	var numConfigs, wordsPerConfig int
	if _, err := fmt.Fscan(r, &numConfigs, &wordsPerConfig); err != nil {
		return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, err, "reading configuration count for class %s", label)
	}
	if numConfigs < 0 || wordsPerConfig < 0 {
		return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, nil, "class %s has invalid configuration dimensions", label)
	}

	configs := make([]*bitset.BitSet, numConfigs)
	for i := range configs {
		cfg := bitset.New(uint(numProtos))
		for w := 0; w < wordsPerConfig; w++ {
			var token string
			if _, err := fmt.Fscan(r, &token); err != nil {
				return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, err, "reading configuration %d word %d of class %s", i, w, label)
			}
			word, err := strconv.ParseUint(token, 16, 64)
			if err != nil {
				return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, err, "parsing configuration %d word %d of class %s", i, w, label)
			}
			for bit := uint(0); bit < wordBits; bit++ {
				if word&(1<<bit) != 0 {
					idx := uint(w*wordBits) + bit
					if int(idx) < numProtos {
						cfg.Set(idx)
					}
				}
			}
		}
		configs[i] = cfg
	}

	return &MicrofeatClass{Label: label, Protos: protos, Configs: configs}, nil
}
