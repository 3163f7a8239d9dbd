package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"glyphtrain"
)

// loadSamples parses a driver-local samples file: one line per sample,
// "<unichar_label> <char_id> <v1> <v2> ... <vN>". This is glue the driver
// owns, not one of the three file formats spec.md §6 hands to the core —
// feature extraction and its on-disk representation are explicitly out of
// scope (spec.md §1); a real deployment would instead pipe already-extracted
// samples in from that external stage.
func loadSamples(r io.Reader, sampleSize int) ([]trainSample, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out []trainSample
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != sampleSize+2 {
			return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedParamDesc, nil,
				"samples line %d has %d fields, want %d (label, char_id, %d vector values)",
				lineNo, len(fields), sampleSize+2, sampleSize)
		}
		charID, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedParamDesc, err, "samples line %d: bad char_id", lineNo)
		}
		vec := make([]float64, sampleSize)
		for i := 0; i < sampleSize; i++ {
			v, err := strconv.ParseFloat(fields[i+2], 64)
			if err != nil {
				return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedParamDesc, err, "samples line %d: bad vector value %d", lineNo, i)
			}
			vec[i] = v
		}
		out = append(out, trainSample{Label: fields[0], CharID: charID, Vector: vec})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}
	return out, nil
}

// trainSample is one parsed line of a samples file.
type trainSample struct {
	Label  string
	CharID int
	Vector []float64
}
