// Command voxelgwas recovers voxel-level GWAS summary statistics from LDR
// summary statistics and reports the significant voxels.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the state shared by subcommands.
type app struct {
	verbose bool
	level   zap.AtomicLevel
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
	root := &cobra.Command{
		Use:   "voxelgwas",
		Short: "Voxel-level GWAS recovery from LDR summary statistics",
		Long: `voxelgwas expands GWAS results of low-dimensional representations (LDRs)
of an imaging phenotype back to every voxel, using the LDR basis and the
inner product of LDRs, and writes the voxels whose p-value crosses the
significance threshold.

Full voxel-by-SNP results are never materialized.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if a.verbose {
				a.level.SetLevel(zapcore.DebugLevel)
			}
			config.Level = a.level
			var err error
			a.logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newConfigCmd())

	return root
}
