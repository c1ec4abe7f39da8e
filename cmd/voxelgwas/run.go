package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/katalvlaran/voxelgwas/basis"
	"github.com/katalvlaran/voxelgwas/config"
	"github.com/katalvlaran/voxelgwas/dataio"
	"github.com/katalvlaran/voxelgwas/metrics"
	"github.com/katalvlaran/voxelgwas/pipeline"
	"github.com/katalvlaran/voxelgwas/recovery"
	"github.com/katalvlaran/voxelgwas/signif"
	"github.com/katalvlaran/voxelgwas/sink"
	"github.com/katalvlaran/voxelgwas/sumstats"
)

// runFlags mirrors config fields that can be set on the command line.
type runFlags struct {
	configPath string

	ldrSumstats, bases, innerLdr, voxel, extract string
	nLDRs                                        int
	sigThresh                                    float64
	policy, varianceModel, distribution          string
	covariates                                   int
	workers, blockSize, voxelBlockSize           int
	sampleSize                                   float64
	effectKind                                   string
	mafMin, infoMin, nMin                        float64
	rng                                          string
	keepAmbiguous                                bool
	out, metricsFile                             string
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Recover voxel-level statistics and write significant voxels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if !a.verbose {
				lvl, err := zapcore.ParseLevel(cfg.Logging.Level)
				if err != nil {
					return err
				}
				a.level.SetLevel(lvl)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runVoxelGWAS(ctx, a.logger, cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "YAML run configuration")
	fl.StringVar(&f.ldrSumstats, "ldr-sumstats", "", "LDR summary statistics (.gz/.zst/.bz2 allowed)")
	fl.StringVar(&f.bases, "bases", "", "Basis matrix, one voxel per row")
	fl.StringVar(&f.innerLdr, "inner-ldr", "", "Inner product matrix of LDRs")
	fl.StringVar(&f.voxel, "voxel", "", "File of 1-based voxel indices to keep")
	fl.StringVar(&f.extract, "extract", "", "File of SNP ids to keep")
	fl.IntVar(&f.nLDRs, "n-ldrs", 0, "Number of LDRs to use (0: all)")
	fl.Float64Var(&f.sigThresh, "sig-thresh", 0, "p-value threshold, inclusive")
	fl.StringVar(&f.policy, "policy", "", "Emission policy: all, best or ranked")
	fl.StringVar(&f.varianceModel, "variance-model", "", "Variance model: scaled or inner-product")
	fl.StringVar(&f.distribution, "distribution", "", "Reference distribution: normal or t")
	fl.IntVar(&f.covariates, "covariates", 0, "Covariates besides the intercept, for degrees of freedom")
	fl.IntVar(&f.workers, "workers", 0, "Recovery goroutines (0: GOMAXPROCS)")
	fl.IntVar(&f.blockSize, "block-size", 0, "SNPs per block")
	fl.IntVar(&f.voxelBlockSize, "voxel-block-size", 0, "Voxel rows per product block")
	fl.Float64Var(&f.sampleSize, "sample-size", 0, "Fixed sample size when the summary statistics have no N column")
	fl.StringVar(&f.effectKind, "effect-kind", "", "Effect columns hold beta or or (odds ratio)")
	fl.Float64Var(&f.mafMin, "maf-min", 0, "Minimum MAF")
	fl.Float64Var(&f.infoMin, "info-min", 0, "Minimum INFO score")
	fl.Float64Var(&f.nMin, "n-min", 0, "Minimum sample size")
	fl.StringVar(&f.rng, "range", "", "Genomic range CHR:START,CHR:END")
	fl.BoolVar(&f.keepAmbiguous, "keep-ambiguous", false, "Keep strand-ambiguous and non-SNP variants")
	fl.StringVar(&f.out, "out", "", "Output TSV (.gz/.zst compress)")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format")

	return cmd
}

// apply copies flags the user set over cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	str := func(name string, dst *string, v string) {
		if set(name) {
			*dst = v
		}
	}
	num := func(name string, dst *float64, v float64) {
		if set(name) {
			*dst = v
		}
	}
	integer := func(name string, dst *int, v int) {
		if set(name) {
			*dst = v
		}
	}

	str("ldr-sumstats", &cfg.Inputs.LdrSumstats, f.ldrSumstats)
	str("bases", &cfg.Inputs.Bases, f.bases)
	str("inner-ldr", &cfg.Inputs.InnerLdr, f.innerLdr)
	str("voxel", &cfg.Inputs.Voxel, f.voxel)
	str("extract", &cfg.Inputs.Extract, f.extract)
	integer("n-ldrs", &cfg.Model.NLDRs, f.nLDRs)
	num("sig-thresh", &cfg.Model.SigThresh, f.sigThresh)
	str("policy", &cfg.Model.Policy, f.policy)
	str("variance-model", &cfg.Model.VarianceModel, f.varianceModel)
	str("distribution", &cfg.Model.Distribution, f.distribution)
	integer("covariates", &cfg.Model.Covariates, f.covariates)
	integer("workers", &cfg.Run.Workers, f.workers)
	integer("block-size", &cfg.Run.BlockSize, f.blockSize)
	integer("voxel-block-size", &cfg.Run.VoxelBlockSize, f.voxelBlockSize)
	num("sample-size", &cfg.Columns.SampleSize, f.sampleSize)
	str("effect-kind", &cfg.Columns.EffectKind, f.effectKind)
	num("maf-min", &cfg.QC.MAFMin, f.mafMin)
	num("info-min", &cfg.QC.InfoMin, f.infoMin)
	num("n-min", &cfg.QC.NMin, f.nMin)
	str("range", &cfg.QC.Range, f.rng)
	if set("keep-ambiguous") {
		cfg.QC.KeepAmbiguous = f.keepAmbiguous
	}
	str("out", &cfg.Output.Path, f.out)
	str("metrics-file", &cfg.Output.MetricsFile, f.metricsFile)
}

// runVoxelGWAS loads the inputs, runs the pipeline and reports.
func runVoxelGWAS(ctx context.Context, logger *zap.Logger, cfg *config.Config) error {
	logger.Info("Reading basis", zap.String("path", cfg.Inputs.Bases))
	bases, err := dataio.ReadMatrixFile(cfg.Inputs.Bases)
	if err != nil {
		return err
	}
	logger.Info("Reading inner product of LDRs", zap.String("path", cfg.Inputs.InnerLdr))
	inner, err := dataio.ReadMatrixFile(cfg.Inputs.InnerLdr)
	if err != nil {
		return err
	}

	k := cfg.Model.NLDRs
	if k == 0 {
		k = bases.Cols()
	}
	var storeOpts []basis.Option
	if cfg.Inputs.Voxel != "" {
		ids, err := dataio.ReadIndexListFile(cfg.Inputs.Voxel)
		if err != nil {
			return err
		}
		logger.Info("Keeping selected voxels", zap.Int("voxels", len(ids)))
		storeOpts = append(storeOpts, basis.WithVoxels(ids))
	}
	if cfg.Run.VoxelBlockSize > 0 {
		storeOpts = append(storeOpts, basis.WithBlockSize(cfg.Run.VoxelBlockSize))
	}
	store, err := basis.New(bases, inner, k, storeOpts...)
	if err != nil {
		return err
	}
	logger.Info("Basis ready",
		zap.Int("voxels", store.V()),
		zap.Int("ldrs", store.K()),
		zap.Int("ldrs_available", store.Components()))

	engine, err := newEngine(store, cfg)
	if err != nil {
		return err
	}
	policy, err := signif.ParsePolicy(cfg.Model.Policy)
	if err != nil {
		return err
	}
	filter, err := signif.NewFilter(cfg.Model.SigThresh, policy)
	if err != nil {
		return err
	}

	schema, err := cfg.Schema()
	if err != nil {
		return err
	}
	reader, err := sumstats.OpenFile(cfg.Inputs.LdrSumstats, schema)
	if err != nil {
		return err
	}
	defer reader.Close()
	if reader.Components() < k {
		return fmt.Errorf("%s has %d LDRs, %d requested", cfg.Inputs.LdrSumstats, reader.Components(), k)
	}

	var extract map[string]struct{}
	if cfg.Inputs.Extract != "" {
		if extract, err = dataio.ReadStringSetFile(cfg.Inputs.Extract); err != nil {
			return err
		}
		logger.Info("Extracting SNPs", zap.Int("snps", len(extract)))
	}
	qcOpts, err := cfg.QCOptions(extract)
	if err != nil {
		return err
	}
	qc := sumstats.NewQC(reader, qcOpts)

	out, err := sink.NewFile(cfg.Output.Path)
	if err != nil {
		return err
	}

	m := metrics.New()
	var runOpts []pipeline.Option
	runOpts = append(runOpts,
		pipeline.WithBlockSize(cfg.Run.BlockSize),
		pipeline.WithObserver(pipeline.MultiObserver{&logObserver{logger: logger}, m}),
	)
	if cfg.Run.Workers > 0 {
		runOpts = append(runOpts, pipeline.WithWorkers(cfg.Run.Workers))
	}
	runner, err := pipeline.New(engine, filter, out, runOpts...)
	if err != nil {
		_ = out.Abort()
		return err
	}

	logger.Info("Recovering voxel-level statistics",
		zap.String("variance_model", engine.Model().String()),
		zap.String("distribution", engine.Distribution().String()),
		zap.Float64("sig_thresh", filter.Threshold()),
		zap.String("policy", filter.Policy().String()))
	sum, runErr := runner.Run(ctx, qc)

	for _, r := range sumstats.Reasons() {
		if n := qc.Dropped(r); n > 0 {
			logger.Info("Removed SNPs in QC", zap.String("reason", r.String()), zap.Int("snps", n))
		}
	}
	m.ObserveQC(qc)
	m.ObserveSummary(sum)
	if cfg.Output.MetricsFile != "" {
		if err := m.WriteFile(cfg.Output.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics", zap.Error(err))
		}
	}
	if runErr != nil {
		logger.Error("Run failed", zap.String("run_id", sum.RunID), zap.Error(runErr))
		return runErr
	}

	logger.Info("Run complete",
		zap.String("run_id", sum.RunID),
		zap.Int("snps_read", sum.SNPsRead),
		zap.Int("snps_excluded", sum.Excluded),
		zap.Int("snps_processed", sum.SNPsProcessed),
		zap.Int("malformed", sum.Malformed),
		zap.Int("invalid_voxels", sum.InvalidVoxels),
		zap.Int("snps_with_hits", sum.SNPsWithHits),
		zap.Int("rows", sum.Rows),
		zap.Duration("elapsed", sum.Elapsed),
		zap.String("out", out.Path()))

	return nil
}

func newEngine(store *basis.Store, cfg *config.Config) (*recovery.Engine, error) {
	model, err := recovery.ParseVarianceModel(cfg.Model.VarianceModel)
	if err != nil {
		return nil, err
	}
	dist, err := recovery.ParseDistribution(cfg.Model.Distribution)
	if err != nil {
		return nil, err
	}

	return recovery.NewEngine(store,
		recovery.WithVarianceModel(model),
		recovery.WithDistribution(dist),
		recovery.WithCovariates(cfg.Model.Covariates),
		recovery.WithVoxelBlockSize(cfg.Run.VoxelBlockSize),
	)
}

// logObserver reports pipeline events through zap.
type logObserver struct {
	logger *zap.Logger
}

func (o *logObserver) RecordSkipped(rec *sumstats.Record, err error) {
	if rec != nil {
		o.logger.Debug("Skipped SNP", zap.String("snp", rec.SNP), zap.Error(err))
		return
	}
	o.logger.Debug("Skipped row", zap.Error(err))
}

func (o *logObserver) BlockDone(b pipeline.BlockStats) {
	o.logger.Debug("Block done",
		zap.Int("block", b.Seq),
		zap.Int("snps", b.SNPs),
		zap.Int("rows", b.Rows),
		zap.Int("skipped", b.Skipped))
}
