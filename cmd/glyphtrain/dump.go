package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"glyphtrain/distill"
	"glyphtrain/fileio"
)

var (
	dumpNormProtoPath string
	dumpMicrofeatPath string
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Pretty-print a normproto or microfeat file",
	Long: `dump reads exactly one of --normproto or --microfeat and prints a
human-readable summary of its class libraries: for a normproto file, one
line per prototype giving its style, significance, sample count and mean,
plus one descriptive-statistics summary computed across the values of that
mean vector; for a microfeat file,
one line per prototype's compact line representation plus its configuration
count.`,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dumpNormProtoPath, "normproto", "", "normproto file to dump")
	dumpCmd.Flags().StringVar(&dumpMicrofeatPath, "microfeat", "", "microfeat file to dump")
}

func runDump(cmd *cobra.Command, args []string) error {
	switch {
	case dumpNormProtoPath != "" && dumpMicrofeatPath != "":
		return fmt.Errorf("dump: pass exactly one of --normproto or --microfeat, not both")
	case dumpNormProtoPath != "":
		return dumpNormProto(cmd.OutOrStdout(), dumpNormProtoPath)
	case dumpMicrofeatPath != "":
		return dumpMicrofeat(cmd.OutOrStdout(), dumpMicrofeatPath)
	default:
		return fmt.Errorf("dump: pass one of --normproto or --microfeat")
	}
}

func dumpNormProto(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	nf, err := fileio.ReadNormProtoFile(f)
	if err != nil {
		return err
	}

	labels := append([]string(nil), nf.Order...)
	sort.Strings(labels)
	for _, label := range labels {
		protos := nf.Classes[label]
		fmt.Fprintf(w, "%s: %d prototypes\n", label, len(protos))
		for i, p := range protos {
			sig := "insignificant"
			if p.Significant {
				sig = "significant"
			}
			fmt.Fprintf(w, "  [%d] %-13s %-10s samples=%-5d mean=%v\n", i, sig, p.Style, p.NumSamples, formatFloats(p.Mean))
			if summary, err := summarizeDims(p.Mean); err == nil {
				fmt.Fprintf(w, "       mean=%.4f median=%.4f stddev=%.4f p10=%.4f p90=%.4f\n",
					summary.Mean, summary.Median, summary.StdDev, summary.P10, summary.P90)
			}
		}
	}
	return nil
}

func dumpMicrofeat(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	br := bufio.NewReader(f)

	for {
		class, err := fileio.ReadMicrofeatClass(br)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %d prototypes, %d configurations\n", class.Label, len(class.Protos), len(class.Configs))
		for i, p := range class.Protos {
			fmt.Fprintf(w, "  [%d] x=%.4f y=%.4f length=%.4f angle=%.4f\n", i, p.X, p.Y, p.Length, p.Angle)
		}
	}
}

// summarizeDims reduces a prototype's mean vector to one descriptive summary
// across its dimensions, giving an operator a quick sense of scale without
// reading a full covariance block; it is not a per-sample statistic, since
// dump never has access to the original sample vectors, only the distilled
// mean.
func summarizeDims(mean []float64) (distill.DimensionSummary, error) {
	return distill.SummarizeDimension(mean)
}

func formatFloats(vals []float64) string {
	out := "["
	for i, v := range vals {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%.3f", v)
	}
	return out + "]"
}
