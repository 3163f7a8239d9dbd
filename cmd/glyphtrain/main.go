// Command glyphtrain is the driver for the classifier-training pipeline:
// it wires together kdtree, clustering, distill, and merge behind a
// github.com/spf13/cobra command tree, the same pattern
// jhkimqd-chaos-utils/cmd/chaos-runner and ehrlich-b-wingthing/cmd/wt use
// for their own multi-subcommand CLIs. It replaces the teacher's flat
// flag-based server/cmd/*/main.go binaries (one binary per operation) with
// subcommands of a single binary, per spec.md §6's external interfaces.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"glyphtrain/internal/telemetry"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "glyphtrain",
	Short: "Train statistical glyph prototypes for a legacy OCR classifier",
	Long: `glyphtrain builds compact statistical prototypes from labelled feature
samples: it indexes samples in a k-d tree, agglomeratively clusters them,
distils the resulting tree into significance-tested prototypes, and merges
those prototypes into a persistent per-class library.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		telemetry.Configure(os.Stderr, level)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(dumpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}
