// Package trainjob drives one training page through the full pipeline:
// index samples into per-class clusterers, distill prototypes, convert them
// to the compact line representation, and fold the result into each
// class's persistent library. It is the Go analogue of
// original_source/training/cntraining.cpp's main loop, kept independent of
// any particular command-line surface so cmd/glyphtrain can stay a thin
// wrapper around it.
package trainjob

import (
	"sort"

	"github.com/google/uuid"

	"glyphtrain"
	"glyphtrain/clustering"
	"glyphtrain/config"
	"glyphtrain/distill"
	"glyphtrain/merge"
)

// Sample is one labelled feature vector arriving from the feature-extraction
// stream (spec.md §6), tagged with the generated id Job.AddSample returns.
type Sample struct {
	ID     uuid.UUID
	Label  string
	FontID int
	CharID int
	Vector []float64
}

// Job accumulates one training page's samples, grouped by unichar label,
// ready to be distilled and folded into class libraries.
type Job struct {
	params  []glyphtrain.ParamDesc
	samples map[string][]Sample
	order   []string
}

// NewJob starts an empty training page over the given dimension layout.
func NewJob(params []glyphtrain.ParamDesc) *Job {
	return &Job{params: params, samples: make(map[string][]Sample)}
}

// AddSample registers one sample under label, returning the generated id
// recorded with it (mirroring the teacher's per-record id assignment in its
// ingestion path).
func (j *Job) AddSample(label string, fontID, charID int, vector []float64) uuid.UUID {
	id := uuid.New()
	if _, ok := j.samples[label]; !ok {
		j.order = append(j.order, label)
	}
	j.samples[label] = append(j.samples[label], Sample{
		ID:     id,
		Label:  label,
		FontID: fontID,
		CharID: charID,
		Vector: append([]float64(nil), vector...),
	})
	return id
}

// ClassDistillation is one class's clustering-and-distillation outcome,
// not yet folded into any persistent class library.
type ClassDistillation struct {
	Label      string
	Prototypes []*distill.Prototype
	LineProtos []merge.LineProto
}

// Distillation collects every class touched by one training page, prior to
// the ProtoMerger fold step.
type Distillation struct {
	Classes map[string]*ClassDistillation
	Order   []string
}

// Distill clusters and distills every class accumulated in j under cfg,
// without folding anything into a class library yet. Splitting this step
// from Fold lets RetryMinSamples reattempt clustering at a smaller
// MinSamples without prematurely merging a rejected attempt's prototypes.
func (j *Job) Distill(cfg config.ClusterConfig) (*Distillation, error) {
	out := &Distillation{Classes: make(map[string]*ClassDistillation)}

	for _, label := range j.order {
		samples := j.samples[label]

		builder := clustering.NewBuilder(j.params)
		for _, s := range samples {
			builder.AddSample(s.Vector, s.CharID)
		}
		root, err := builder.Build()
		if err != nil {
			return nil, glyphtrain.NewDataError(glyphtrain.ErrInvalidConfig, err, "clustering class %s", label)
		}

		numChar := distinctCharCount(samples)
		d := distill.NewDistiller(j.params, numChar)
		protos := d.Distill(cfg, builder.Arena(), root)

		lineProtos := make([]merge.LineProto, len(protos))
		for i, p := range protos {
			lineProtos[i] = merge.FromPrototype(p)
		}

		out.Classes[label] = &ClassDistillation{Label: label, Prototypes: protos, LineProtos: lineProtos}
		out.Order = append(out.Order, label)
	}

	return out, nil
}

// ClassResult is one class's final, post-merge outcome for a page.
type ClassResult struct {
	Label      string
	ProtoID    []uuid.UUID
	Prototypes []*distill.Prototype
	LineProtos []merge.LineProto
	Config     []uint // bit positions set in this page's new configuration
}

// PageResult collects every class folded into its class library for one
// training page.
type PageResult struct {
	Classes map[string]*ClassResult
	Order   []string
}

// Fold takes an already-accepted Distillation and folds each class's
// significant prototypes into classes (creating a new class library for any
// label not already present), per spec.md §4.4 and §5's "class library
// accumulates across pages" rule. fontID identifies the page's font for
// ProtoMerger's font-set bookkeeping. Every distilled prototype of a class,
// folded or not, is assigned a fresh id in ClassResult.ProtoID, mirroring
// the teacher's buildPrototypeID pattern.
func Fold(dist *Distillation, classes map[string]*merge.Class, fontID int) *PageResult {
	result := &PageResult{Classes: make(map[string]*ClassResult)}

	for _, label := range dist.Order {
		cd := dist.Classes[label]

		protoIDs := make([]uuid.UUID, len(cd.Prototypes))
		for i := range cd.Prototypes {
			protoIDs[i] = uuid.New()
		}

		cls, ok := classes[label]
		if !ok {
			cls = merge.NewClass()
			classes[label] = cls
		}
		cfgBits := cls.AddPage(significantLineProtos(cd.Prototypes, cd.LineProtos), fontID)

		var bits []uint
		for i, ok := cfgBits.NextSet(0); ok; i, ok = cfgBits.NextSet(i + 1) {
			bits = append(bits, i)
		}

		result.Classes[label] = &ClassResult{
			Label:      label,
			ProtoID:    protoIDs,
			Prototypes: cd.Prototypes,
			LineProtos: cd.LineProtos,
			Config:     bits,
		}
		result.Order = append(result.Order, label)
	}

	return result
}

// significantLineProtos filters lineProtos down to the entries whose
// matching distill.Prototype was significant; insignificant prototypes are
// never folded into a class library (spec.md §4.4's "significant
// prototypes" wording).
func significantLineProtos(protos []*distill.Prototype, lineProtos []merge.LineProto) []merge.LineProto {
	out := make([]merge.LineProto, 0, len(lineProtos))
	for i, p := range protos {
		if p.Significant {
			out = append(out, lineProtos[i])
		}
	}
	return out
}

func distinctCharCount(samples []Sample) int {
	max := -1
	for _, s := range samples {
		if s.CharID > max {
			max = s.CharID
		}
	}
	if max < 0 {
		return 0
	}
	// distill indexes char ids directly into a fixed-size array, so the
	// count must cover the highest id seen (char ids need not be dense in
	// a handed-in sample set, though cntraining.cpp always assigns them
	// densely per class).
	return max + 1
}

// RetryMinSamples runs Distill, shrinking cfg.MinSamples by ×0.95 and
// retrying whenever nothing significant came out, matching
// original_source/training/cntraining.cpp's outermost retry loop: "while
// Config.MinSamples > 0.001, cluster; if any class produced a significant
// prototype, stop; otherwise shrink MinSamples and retry." Only the
// accepted attempt is folded into classes.
func RetryMinSamples(j *Job, cfg config.ClusterConfig, classes map[string]*merge.Class, fontID int) (*PageResult, error) {
	const floor = 0.001
	for {
		dist, err := j.Distill(cfg)
		if err != nil {
			return nil, err
		}
		if anySignificant(dist) || cfg.MinSamples <= floor {
			return Fold(dist, classes, fontID), nil
		}
		cfg.MinSamples *= 0.95
	}
}

func anySignificant(d *Distillation) bool {
	for _, label := range d.Order {
		for _, p := range d.Classes[label].Prototypes {
			if p.Significant {
				return true
			}
		}
	}
	return false
}

// SortedLabels returns a job's class labels sorted, for drivers that want a
// deterministic report order independent of arrival order.
func (j *Job) SortedLabels() []string {
	out := append([]string(nil), j.order...)
	sort.Strings(out)
	return out
}
