package fileio

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"testing"

	"glyphtrain"
	"glyphtrain/bucket"
	"glyphtrain/config"
	"glyphtrain/distill"
	"glyphtrain/merge"
)

func sampleParams() []glyphtrain.ParamDesc {
	return []glyphtrain.ParamDesc{
		{Circular: false, NonEssential: false, Min: -1, Max: 1},
		{Circular: true, NonEssential: true, Min: 0, Max: 1},
	}
}

func TestParamDescRoundTrip(t *testing.T) {
	params := sampleParams()

	var buf bytes.Buffer
	if err := WriteParamDescs(&buf, params); err != nil {
		t.Fatalf("WriteParamDescs: %v", err)
	}

	r := bufio.NewReader(&buf)
	got, err := ReadParamDescs(r, len(params))
	if err != nil {
		t.Fatalf("ReadParamDescs: %v", err)
	}
	for i := range params {
		if got[i] != params[i] {
			t.Errorf("dim %d: got %+v, want %+v", i, got[i], params[i])
		}
	}
}

func TestReadSampleSizeRejectsGarbage(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("not-a-number\n"))
	if _, err := ReadSampleSize(r); err == nil {
		t.Fatal("expected an error for a non-numeric sample size")
	}
}

func TestNormProtoFileRoundTrip(t *testing.T) {
	params := sampleParams()

	spherical := distill.NewPrototypeFromFields(config.Spherical, true, 12,
		[]float64{0.1, 0.2}, []float64{0.05}, nil)
	elliptical := distill.NewPrototypeFromFields(config.Elliptical, true, 9,
		[]float64{-0.3, 0.4}, []float64{0.02, 0.03}, nil)
	mixed := distill.NewPrototypeFromFields(config.Mixed, true, 20,
		[]float64{0.0, 0.5}, []float64{0.01, 0.5},
		[]bucket.Distribution{bucket.Normal, bucket.Uniform})

	file := &NormProtoFile{
		Params: params,
		Classes: map[string][]*distill.Prototype{
			"a": {spherical, elliptical},
			"b": {mixed},
		},
		Order: []string{"a", "b"},
	}

	var buf bytes.Buffer
	if err := WriteNormProtoFile(&buf, file); err != nil {
		t.Fatalf("WriteNormProtoFile: %v", err)
	}

	got, err := ReadNormProtoFile(&buf)
	if err != nil {
		t.Fatalf("ReadNormProtoFile: %v", err)
	}

	if len(got.Params) != len(params) {
		t.Fatalf("len(Params) = %d, want %d", len(got.Params), len(params))
	}
	for i := range params {
		if got.Params[i] != params[i] {
			t.Errorf("param %d: got %+v, want %+v", i, got.Params[i], params[i])
		}
	}

	wantClasses := map[string][]*distill.Prototype{"a": {spherical, elliptical}, "b": {mixed}}
	for label, protos := range wantClasses {
		gotProtos, ok := got.Classes[label]
		if !ok {
			t.Fatalf("class %s missing from round trip", label)
		}
		if len(gotProtos) != len(protos) {
			t.Fatalf("class %s: got %d protos, want %d", label, len(gotProtos), len(protos))
		}
		for i, want := range protos {
			gp := gotProtos[i]
			if gp.Style != want.Style || gp.NumSamples != want.NumSamples {
				t.Errorf("class %s proto %d: got style=%v samples=%d, want style=%v samples=%d",
					label, i, gp.Style, gp.NumSamples, want.Style, want.NumSamples)
			}
			for d := range want.Mean {
				if math.Abs(gp.Mean[d]-want.Mean[d]) > 1e-5 {
					t.Errorf("class %s proto %d mean[%d]: got %v, want %v", label, i, d, gp.Mean[d], want.Mean[d])
				}
			}
			for d := range want.Variance {
				if math.Abs(gp.Variance[d]-want.Variance[d]) > 1e-5 {
					t.Errorf("class %s proto %d variance[%d]: got %v, want %v", label, i, d, gp.Variance[d], want.Variance[d])
				}
			}
			for d := range want.Distrib {
				if gp.Distrib[d] != want.Distrib[d] {
					t.Errorf("class %s proto %d distrib[%d]: got %v, want %v", label, i, d, gp.Distrib[d], want.Distrib[d])
				}
			}
		}
	}
}

func TestNormProtoFileDropsInsignificantPrototypes(t *testing.T) {
	sig := distill.NewPrototypeFromFields(config.Spherical, true, 5, []float64{0, 0}, []float64{0.1}, nil)
	insig := distill.NewPrototypeFromFields(config.Spherical, false, 1, []float64{1, 1}, []float64{0.1}, nil)

	file := &NormProtoFile{
		Params:  sampleParams(),
		Classes: map[string][]*distill.Prototype{"x": {sig, insig}},
		Order:   []string{"x"},
	}

	var buf bytes.Buffer
	if err := WriteNormProtoFile(&buf, file); err != nil {
		t.Fatalf("WriteNormProtoFile: %v", err)
	}
	got, err := ReadNormProtoFile(&buf)
	if err != nil {
		t.Fatalf("ReadNormProtoFile: %v", err)
	}
	if len(got.Classes["x"]) != 1 {
		t.Fatalf("len(Classes[x]) = %d, want 1 (insignificant proto dropped)", len(got.Classes["x"]))
	}
}

func TestMicrofeatClassRoundTrip(t *testing.T) {
	c := &MicrofeatClass{Label: "Q"}
	for _, v := range [][4]float64{{0, 0, 0.1, 0}, {1, 1, 0.2, 0.25}, {-1, 2, 0.3, 0.5}} {
		p := merge.LineProto{X: v[0], Y: v[1], Length: v[2], Angle: v[3]}
		merge.FillABC(&p)
		c.Protos = append(c.Protos, p)
	}

	cls := merge.NewClass()
	cls.AddPage(c.Protos[:2], 1)
	cls.AddPage(c.Protos[1:], 2)
	c.Configs = cls.Configs

	var buf bytes.Buffer
	if err := WriteMicrofeatClass(&buf, c); err != nil {
		t.Fatalf("WriteMicrofeatClass: %v", err)
	}

	got, err := ReadMicrofeatClass(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadMicrofeatClass: %v", err)
	}
	if got.Label != c.Label {
		t.Errorf("Label = %q, want %q", got.Label, c.Label)
	}
	if len(got.Protos) != len(c.Protos) {
		t.Fatalf("len(Protos) = %d, want %d", len(got.Protos), len(c.Protos))
	}
	for i := range c.Protos {
		want, gp := c.Protos[i], got.Protos[i]
		if math.Abs(gp.X-want.X) > 1e-5 || math.Abs(gp.Y-want.Y) > 1e-5 ||
			math.Abs(gp.Length-want.Length) > 1e-5 || math.Abs(gp.Angle-want.Angle) > 1e-5 {
			t.Errorf("proto %d: got %+v, want %+v", i, gp, want)
		}
	}
	if len(got.Configs) != len(c.Configs) {
		t.Fatalf("len(Configs) = %d, want %d", len(got.Configs), len(c.Configs))
	}
	for i, wantCfg := range c.Configs {
		gotCfg := got.Configs[i]
		for bit := uint(0); bit < uint(len(c.Protos)); bit++ {
			if gotCfg.Test(bit) != wantCfg.Test(bit) {
				t.Errorf("config %d bit %d: got %v, want %v", i, bit, gotCfg.Test(bit), wantCfg.Test(bit))
			}
		}
	}
}

func TestReadMicrofeatClassAtEOFReturnsEOF(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString(""))
	if _, err := ReadMicrofeatClass(r); err != io.EOF {
		t.Fatalf("ReadMicrofeatClass on an empty stream: err = %v, want io.EOF", err)
	}
}
