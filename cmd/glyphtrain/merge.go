package main

import (
	"os"

	"github.com/spf13/cobra"

	"glyphtrain/fileio"
	"glyphtrain/internal/telemetry"
	"glyphtrain/merge"
)

var (
	mergeBasePath     string
	mergeIncomingPath string
	mergeOutputPath   string
	mergeFontID       int
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Fold one normproto file's prototypes into another class library",
	Long: `merge treats --incoming's prototypes as one more training page being
folded into the class library already standing in --base, using the same
ProtoMerger comparison (spec.md §4.4) a live training page goes through:
a proto close enough to an existing one (CompareProtos > WorstMatchAllowed)
is weight-averaged into it; anything else is appended as a new proto slot.
The result is written as a microfeat configuration dump, since the line
representation ProtoMerger operates on is compact (x, y, length, angle) and
does not carry the statistical fields a normproto record needs.`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeBasePath, "base", "", "normproto file whose class libraries are the merge target (required)")
	mergeCmd.Flags().StringVar(&mergeIncomingPath, "incoming", "", "normproto file whose prototypes are folded into --base (required)")
	mergeCmd.Flags().StringVar(&mergeOutputPath, "out", "", "microfeat dump to write the merged class libraries to (required)")
	mergeCmd.Flags().IntVar(&mergeFontID, "font-id", 0, "font id to record for --incoming's contributed page")
	_ = mergeCmd.MarkFlagRequired("base")
	_ = mergeCmd.MarkFlagRequired("incoming")
	_ = mergeCmd.MarkFlagRequired("out")
}

func runMerge(cmd *cobra.Command, args []string) error {
	logger := telemetry.GetLogger()

	base, err := readNormProtoFile(mergeBasePath)
	if err != nil {
		return err
	}
	incoming, err := readNormProtoFile(mergeIncomingPath)
	if err != nil {
		return err
	}

	classes := make(map[string]*merge.Class, len(base.Classes))
	order := append([]string(nil), base.Order...)
	for label, protos := range base.Classes {
		classes[label] = merge.NewClassFromProtos(toLineProtos(protos))
	}

	for _, label := range incoming.Order {
		cls, ok := classes[label]
		if !ok {
			cls = merge.NewClass()
			classes[label] = cls
			order = append(order, label)
		}
		lineProtos := toLineProtos(significantOnlyPrototypes(incoming.Classes[label]))
		cfg := cls.AddPage(lineProtos, mergeFontID)
		logger.Info("merged class", "label", label, "incoming_protos", len(lineProtos), "resulting_protos", len(cls.Protos), "config_len", cfg.Len())
	}

	return writeMicrofeatFile(mergeOutputPath, classes, order)
}

func readNormProtoFile(path string) (*fileio.NormProtoFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fileio.ReadNormProtoFile(f)
}
