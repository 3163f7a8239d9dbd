package fileio

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"glyphtrain"
	"glyphtrain/bucket"
	"glyphtrain/config"
	"glyphtrain/distill"
)

// NormProtoFile is the parsed contents of a normproto file: a shared
// dimension layout plus one significant-prototype list per unichar label,
// matching original_source/training/cntraining.cpp's WriteNormProtos.
type NormProtoFile struct {
	Params  []glyphtrain.ParamDesc
	Classes map[string][]*distill.Prototype
	Order   []string // preserves on-disk class order for deterministic writes
}

// ReadNormProtoFile parses a complete normproto file, grounded on
// original_source/classify/clusttool.cpp's ReadProtoList plus
// training/cntraining.cpp's per-class wrapping.
func ReadNormProtoFile(r io.Reader) (*NormProtoFile, error) {
	br := bufio.NewReader(r)

	n, err := ReadSampleSize(br)
	if err != nil {
		return nil, err
	}
	params, err := ReadParamDescs(br, n)
	if err != nil {
		return nil, err
	}

	out := &NormProtoFile{Params: params, Classes: make(map[string][]*distill.Prototype)}
	for {
		label, protos, ok, err := readClass(br, n)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out.Classes[label] = protos
		out.Order = append(out.Order, label)
	}
	return out, nil
}

// readClass reads one "\n<label> <count>\n" block followed by count
// prototype records. It returns ok=false at clean end of file.
func readClass(r *bufio.Reader, numDims int) (string, []*distill.Prototype, bool, error) {
	var label string
	var count int
	if _, err := fmt.Fscan(r, &label, &count); err != nil {
		if err == io.EOF {
			return "", nil, false, nil
		}
		return "", nil, false, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, err, "reading class header")
	}
	if count < 0 {
		return "", nil, false, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, nil, "class %s has negative proto count %d", label, count)
	}

	protos := make([]*distill.Prototype, 0, count)
	for i := 0; i < count; i++ {
		p, err := readPrototype(r, numDims)
		if err != nil {
			return "", nil, false, err
		}
		protos = append(protos, p)
	}
	return label, protos, true, nil
}

// readPrototype parses one significant-only prototype record, matching
// clusttool.cpp's ReadPrototype.
func readPrototype(r *bufio.Reader, numDims int) (*distill.Prototype, error) {
	var sigToken, styleToken string
	var numSamples int
	if _, err := fmt.Fscan(r, &sigToken, &styleToken, &numSamples); err != nil {
		return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, err, "reading prototype header")
	}
	significant := strings.HasPrefix(sigToken, "significant")
	style, err := parseStyle(styleToken)
	if err != nil {
		return nil, err
	}

	mean, err := readNFloats(r, numDims)
	if err != nil {
		return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, err, "reading mean")
	}

	var variance []float64
	var distrib []bucket.Distribution
	switch style {
	case config.Spherical:
		variance, err = readNFloats(r, 1)
	case config.Elliptical:
		variance, err = readNFloats(r, numDims)
	case config.Mixed:
		distrib, err = readDistribs(r, numDims)
		if err == nil {
			variance, err = readNFloats(r, numDims)
		}
	default:
		return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, nil, "unsupported style %v in file", style)
	}
	if err != nil {
		return nil, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, err, "reading variance block")
	}

	p := distill.NewPrototypeFromFields(style, significant, numSamples, mean, variance, distrib)
	return p, nil
}

func parseStyle(token string) (config.Style, error) {
	switch token {
	case "spherical":
		return config.Spherical, nil
	case "elliptical":
		return config.Elliptical, nil
	case "mixed":
		return config.Mixed, nil
	default:
		return 0, glyphtrain.NewDataError(glyphtrain.ErrMalformedPrototype, nil, "unknown style token %q", token)
	}
}

func readNFloats(r *bufio.Reader, n int) ([]float64, error) {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if _, err := fmt.Fscan(r, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readDistribs(r *bufio.Reader, n int) ([]bucket.Distribution, error) {
	out := make([]bucket.Distribution, n)
	for i := 0; i < n; i++ {
		var tok string
		if _, err := fmt.Fscan(r, &tok); err != nil {
			return nil, err
		}
		switch tok {
		case "normal":
			out[i] = bucket.Normal
		case "uniform":
			out[i] = bucket.Uniform
		case "random":
			out[i] = bucket.Random
		default:
			return nil, glyphtrain.NewDataError(glyphtrain.ErrUnknownDistribution, nil, "unknown distribution token %q", tok)
		}
	}
	return out, nil
}

// WriteNormProtoFile writes f in the format ReadNormProtoFile parses,
// matching cntraining.cpp's WriteNormProtos/WriteProtos and
// clusttool.cpp's WritePrototype. Only significant prototypes are written,
// matching the original's filter in WriteProtos.
func WriteNormProtoFile(w io.Writer, f *NormProtoFile) error {
	if _, err := fmt.Fprintf(w, "%d\n", len(f.Params)); err != nil {
		return err
	}
	if err := WriteParamDescs(w, f.Params); err != nil {
		return err
	}

	order := f.Order
	if order == nil {
		for label := range f.Classes {
			order = append(order, label)
		}
	}

	for _, label := range order {
		protos := f.Classes[label]
		sig := significantOnly(protos)
		if _, err := fmt.Fprintf(w, "\n%s %d\n", label, len(sig)); err != nil {
			return err
		}
		for _, p := range sig {
			if err := writePrototype(w, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func significantOnly(protos []*distill.Prototype) []*distill.Prototype {
	out := make([]*distill.Prototype, 0, len(protos))
	for _, p := range protos {
		if p.Significant {
			out = append(out, p)
		}
	}
	return out
}

func writePrototype(w io.Writer, p *distill.Prototype) error {
	sig := "insignificant "
	if p.Significant {
		sig = "significant   "
	}
	style, err := styleToken(p.Style)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%s%6d\n\t", sig, style, p.NumSamples); err != nil {
		return err
	}
	if err := writeNFloats(w, p.Mean); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\t"); err != nil {
		return err
	}

	switch p.Style {
	case config.Mixed:
		for _, d := range p.Distrib {
			if _, err := fmt.Fprintf(w, " %9s", d.String()); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n\t"); err != nil {
			return err
		}
	}
	if err := writeNFloats(w, p.Variance); err != nil {
		return err
	}
	return nil
}

func writeNFloats(w io.Writer, vals []float64) error {
	for _, v := range vals {
		if _, err := fmt.Fprintf(w, " %9.6f", v); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func styleToken(s config.Style) (string, error) {
	switch s {
	case config.Spherical:
		return "spherical ", nil
	case config.Elliptical:
		return "elliptical", nil
	case config.Mixed:
		return "mixed     ", nil
	default:
		return "", fmt.Errorf("fileio: cannot write prototype with style %v", s)
	}
}
