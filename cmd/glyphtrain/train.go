package main

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"glyphtrain"
	"glyphtrain/config"
	"glyphtrain/distill"
	"glyphtrain/fileio"
	"glyphtrain/internal/telemetry"
	"glyphtrain/merge"
	"glyphtrain/trainjob"
)

var (
	trainParamDescPath string
	trainSamplesPath   string
	trainConfigPath    string
	trainNormProtoPath string
	trainMicrofeatPath string
	trainFontID        int
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Cluster and distil one training page, folding it into a class library",
	Long: `train reads a ParamDesc header, a samples file, and a CLUSTERCONFIG
yaml file, clusters and distils one training page per spec.md §4, and folds
the resulting significant prototypes into a class library, writing an
updated normproto file and, optionally, a microfeat configuration dump.

It implements the outermost retry loop from spec.md §7: if no class produces
a significant prototype, min_samples is shrunk by x0.95 and the whole page
is reclustered, down to a floor of 0.001.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainParamDescPath, "paramdesc", "", "path to the ParamDesc header file (required)")
	trainCmd.Flags().StringVar(&trainSamplesPath, "samples", "", "path to the samples file (required)")
	trainCmd.Flags().StringVar(&trainConfigPath, "config", "", "path to the CLUSTERCONFIG yaml file (required)")
	trainCmd.Flags().StringVar(&trainNormProtoPath, "normproto", "", "normproto file to read and append to, and to write (required)")
	trainCmd.Flags().StringVar(&trainMicrofeatPath, "microfeat", "", "optional microfeat dump to write the folded class library's configurations to")
	trainCmd.Flags().IntVar(&trainFontID, "font-id", 0, "font id contributing this training page")
	_ = trainCmd.MarkFlagRequired("paramdesc")
	_ = trainCmd.MarkFlagRequired("samples")
	_ = trainCmd.MarkFlagRequired("config")
	_ = trainCmd.MarkFlagRequired("normproto")
}

func runTrain(cmd *cobra.Command, args []string) error {
	logger := telemetry.GetLogger()

	params, sampleSize, err := readParamDescFile(trainParamDescPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load(trainConfigPath)
	if err != nil {
		return err
	}

	samplesFile, err := os.Open(trainSamplesPath)
	if err != nil {
		return err
	}
	defer samplesFile.Close()
	samples, err := loadSamples(samplesFile, sampleSize)
	if err != nil {
		return err
	}

	job := trainjob.NewJob(params)
	for _, s := range samples {
		job.AddSample(s.Label, trainFontID, s.CharID, s.Vector)
	}
	logger.Info("loaded training page", "classes", len(job.SortedLabels()), "samples", len(samples))

	baseline, err := loadOrCreateNormProto(trainNormProtoPath, params)
	if err != nil {
		return err
	}

	classes := make(map[string]*merge.Class, len(baseline.Classes))
	for label, protos := range baseline.Classes {
		classes[label] = merge.NewClassFromProtos(toLineProtos(protos))
	}

	result, err := trainjob.RetryMinSamples(job, cfg, classes, trainFontID)
	if err != nil {
		return err
	}

	for _, label := range result.Order {
		cr := result.Classes[label]
		logger.Info("folded class", "label", label, "config_bits", len(cr.Config))
		baseline.Classes[label] = append(baseline.Classes[label], significantOnlyPrototypes(cr.Prototypes)...)
		if !containsLabel(baseline.Order, label) {
			baseline.Order = append(baseline.Order, label)
		}
	}

	if err := writeNormProtoFile(trainNormProtoPath, baseline); err != nil {
		return err
	}
	if trainMicrofeatPath != "" {
		if err := writeMicrofeatFile(trainMicrofeatPath, classes, baseline.Order); err != nil {
			return err
		}
	}
	return nil
}

func readParamDescFile(path string) ([]glyphtrain.ParamDesc, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	br := bufio.NewReader(f)
	n, err := fileio.ReadSampleSize(br)
	if err != nil {
		return nil, 0, err
	}
	params, err := fileio.ReadParamDescs(br, n)
	if err != nil {
		return nil, 0, err
	}
	return params, n, nil
}

// loadOrCreateNormProto reads an existing normproto file, or returns an
// empty one over params if the file doesn't exist yet -- a class library's
// very first training page has nothing to fold into.
func loadOrCreateNormProto(path string, params []glyphtrain.ParamDesc) (*fileio.NormProtoFile, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &fileio.NormProtoFile{Params: params, Classes: make(map[string][]*distill.Prototype)}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fileio.ReadNormProtoFile(f)
}

func writeNormProtoFile(path string, f *fileio.NormProtoFile) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return fileio.WriteNormProtoFile(out, f)
}

func writeMicrofeatFile(path string, classes map[string]*merge.Class, order []string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	for _, label := range order {
		cls, ok := classes[label]
		if !ok {
			continue
		}
		mf := &fileio.MicrofeatClass{Label: label, Protos: cls.Protos, Configs: cls.Configs}
		if err := fileio.WriteMicrofeatClass(out, mf); err != nil {
			return err
		}
	}
	return nil
}

func toLineProtos(protos []*distill.Prototype) []merge.LineProto {
	out := make([]merge.LineProto, len(protos))
	for i, p := range protos {
		out[i] = merge.FromPrototype(p)
	}
	return out
}

func significantOnlyPrototypes(protos []*distill.Prototype) []*distill.Prototype {
	out := make([]*distill.Prototype, 0, len(protos))
	for _, p := range protos {
		if p.Significant {
			out = append(out, p)
		}
	}
	return out
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
