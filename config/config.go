// Package config holds the run configuration of voxelgwas.
//
// A run is configured from documented defaults, then an optional YAML file,
// then command-line flags. Validate checks the merged result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/voxelgwas/sumstats"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the complete run configuration.
type Config struct {
	Inputs  InputsConfig  `yaml:"inputs"`
	Model   ModelConfig   `yaml:"model"`
	Run     RunConfig     `yaml:"run"`
	Columns ColumnsConfig `yaml:"columns"`
	QC      QCConfig      `yaml:"qc"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// InputsConfig names the input files.
type InputsConfig struct {
	LdrSumstats string `yaml:"ldr_sumstats" validate:"required"`
	Bases       string `yaml:"bases" validate:"required"`
	InnerLdr    string `yaml:"inner_ldr" validate:"required"`
	Voxel       string `yaml:"voxel"`   // optional 1-based voxel list
	Extract     string `yaml:"extract"` // optional SNP list
}

// ModelConfig configures recovery and significance.
type ModelConfig struct {
	NLDRs         int     `yaml:"n_ldrs" validate:"gte=0"` // 0 keeps every component
	SigThresh     float64 `yaml:"sig_thresh" validate:"gt=0,lte=1"`
	Policy        string  `yaml:"policy" validate:"oneof=all best ranked"`
	VarianceModel string  `yaml:"variance_model" validate:"oneof=scaled inner-product"`
	Distribution  string  `yaml:"distribution" validate:"oneof=normal t"`
	Covariates    int     `yaml:"covariates" validate:"gte=0"`
}

// RunConfig sizes the worker pool.
type RunConfig struct {
	Workers        int `yaml:"workers" validate:"gte=0"` // 0 uses GOMAXPROCS
	BlockSize      int `yaml:"block_size" validate:"gte=1"`
	VoxelBlockSize int `yaml:"voxel_block_size" validate:"gte=0"`
}

// ColumnsConfig names summary-statistics columns.
type ColumnsConfig struct {
	SNP          string  `yaml:"snp" validate:"required"`
	Chr          string  `yaml:"chr" validate:"required"`
	Pos          string  `yaml:"pos" validate:"required"`
	A1           string  `yaml:"a1" validate:"required"`
	A2           string  `yaml:"a2" validate:"required"`
	N            string  `yaml:"n" validate:"required_without=SampleSize"`
	SampleSize   float64 `yaml:"sample_size" validate:"gte=0"`
	MAF          string  `yaml:"maf"`
	Info         string  `yaml:"info"`
	EffectPrefix string  `yaml:"effect_prefix" validate:"required"`
	SEPrefix     string  `yaml:"se_prefix" validate:"required"`
	EffectKind   string  `yaml:"effect_kind" validate:"oneof=beta or"`
}

// QCConfig holds the summary-statistics pruning rules.
type QCConfig struct {
	MAFMin        float64 `yaml:"maf_min" validate:"gte=0,lte=0.5"`
	InfoMin       float64 `yaml:"info_min" validate:"gte=0,lte=1"`
	NMin          float64 `yaml:"n_min" validate:"gte=0"`
	Range         string  `yaml:"range"`
	KeepAmbiguous bool    `yaml:"keep_ambiguous"`
}

// OutputConfig names the outputs.
type OutputConfig struct {
	Path        string `yaml:"path" validate:"required"`
	MetricsFile string `yaml:"metrics_file"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			SigThresh:     5e-8,
			Policy:        "all",
			VarianceModel: "scaled",
			Distribution:  "normal",
			Covariates:    1,
		},
		Run: RunConfig{
			BlockSize: 256,
		},
		Columns: ColumnsConfig{
			SNP:          "SNP",
			Chr:          "CHR",
			Pos:          "POS",
			A1:           "A1",
			A2:           "A2",
			N:            "N",
			EffectPrefix: "BETA",
			SEPrefix:     "SE",
			EffectKind:   "beta",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.QC.Range != "" {
		if _, err := sumstats.ParseRange(c.QC.Range); err != nil {
			return fmt.Errorf("%w: qc.range: %v", ErrInvalid, err)
		}
	}

	return nil
}

// Schema builds the summary-statistics Schema from Columns.
func (c *Config) Schema() (sumstats.Schema, error) {
	kind, err := sumstats.ParseEffectKind(c.Columns.EffectKind)
	if err != nil {
		return sumstats.Schema{}, err
	}
	col := c.Columns
	s := sumstats.Schema{
		SNP:          col.SNP,
		Chr:          col.Chr,
		Pos:          col.Pos,
		A1:           col.A1,
		A2:           col.A2,
		N:            col.N,
		MAF:          col.MAF,
		Info:         col.Info,
		EffectPrefix: col.EffectPrefix,
		SEPrefix:     col.SEPrefix,
		Effect:       kind,
		FixedN:       col.SampleSize,
	}
	if col.SampleSize > 0 {
		s.N = ""
	}

	return s, nil
}

// QCOptions builds the pruning options. extract may be nil.
func (c *Config) QCOptions(extract map[string]struct{}) (sumstats.QCOptions, error) {
	o := sumstats.QCOptions{
		MinMAF:        c.QC.MAFMin,
		MinInfo:       c.QC.InfoMin,
		MinN:          c.QC.NMin,
		Extract:       extract,
		KeepAmbiguous: c.QC.KeepAmbiguous,
	}
	if c.QC.Range != "" {
		r, err := sumstats.ParseRange(c.QC.Range)
		if err != nil {
			return o, err
		}
		o.Range = &r
	}

	return o, nil
}
