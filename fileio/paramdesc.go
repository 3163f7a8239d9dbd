// Package fileio implements the text file formats the training pipeline
// persists and reloads: the ParamDesc header (spec.md §6), the normproto
// prototype file, and the microfeat class-library dump, grounded on
// original_source/classify/clusttool.cpp and training/mergenf.cpp.
package fileio

import (
	"bufio"
	"fmt"
	"io"

	"glyphtrain"
)

// maxSampleSize mirrors clusttool.cpp's MAXSAMPLESIZE guard on ReadSampleSize.
const maxSampleSize = 65535

// ReadSampleSize reads the leading dimension count from a ParamDesc
// header, matching clusttool.cpp's ReadSampleSize.
func ReadSampleSize(r *bufio.Reader) (int, error) {
	var n int
	if _, err := fmt.Fscan(r, &n); err != nil {
		return 0, glyphtrain.NewDataError(glyphtrain.ErrMalformedParamDesc, err, "reading sample size")
	}
	if n < 0 || n > maxSampleSize {
		return 0, glyphtrain.NewDataError(glyphtrain.ErrMalformedParamDesc, nil, "sample size %d out of range", n)
	}
	return n, nil
}

// ReadParamDescs reads n whitespace-delimited dimension descriptors,
// matching clusttool.cpp's ReadParamDesc: each is a circular/linear token,
// an essential/non-essential token, then a min and max float.
func ReadParamDescs(r *bufio.Reader, n int) ([]glyphtrain.ParamDesc, error) {
	out := make([]glyphtrain.ParamDesc, n)
	for i := 0; i < n; i++ {
		var circToken, essToken string
		var min, max float64
		if _, err := fmt.Fscan(r, &circToken); err != nil {
			return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedParamDesc, err, "reading circular/linear spec for dim %d", i)
		}
		if _, err := fmt.Fscan(r, &essToken); err != nil {
			return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedParamDesc, err, "reading essential spec for dim %d", i)
		}
		if _, err := fmt.Fscan(r, &min, &max); err != nil {
			return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedParamDesc, err, "reading min/max for dim %d", i)
		}
		out[i] = glyphtrain.ParamDesc{
			Circular:     len(circToken) > 0 && circToken[0] == 'c',
			NonEssential: len(essToken) > 0 && essToken[0] != 'e',
			Min:          min,
			Max:          max,
		}
	}
	return out, nil
}

// WriteParamDescs writes N dimension descriptors in the format
// clusttool.cpp's WriteParamDesc produces.
func WriteParamDescs(w io.Writer, params []glyphtrain.ParamDesc) error {
	for _, p := range params {
		circ := "linear   "
		if p.Circular {
			circ = "circular "
		}
		ess := "essential     "
		if p.NonEssential {
			ess = "non-essential "
		}
		if _, err := fmt.Fprintf(w, "%s%s%10.6f %10.6f\n", circ, ess, p.Min, p.Max); err != nil {
			return err
		}
	}
	return nil
}
