package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/voxelgwas/config"
	"github.com/katalvlaran/voxelgwas/dataio"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()

	return out.String(), err
}

// fixture writes the 4×2 literal scenario: Σ = I, β = (0.5, −0.2), SE = 1
// so that the derived scale is 1.
func fixture(t *testing.T) (dir string, args []string) {
	dir = t.TempDir()
	bases := writeFile(t, dir, "bases.txt", "1 0\n0 1\n1 1\n2 -1\n")
	inner := writeFile(t, dir, "inner.txt", "1 0\n0 1\n")
	ldr := writeFile(t, dir, "ldr.txt",
		"SNP CHR POS A1 A2 N BETA1 BETA2 SE1 SE2\n"+
			"rs1 1 100 A G 1000 0.5 -0.2 1 1\n"+
			"rs2 1 200 A G 1000 0.5 x 1 1\n"+
			"rs3 1 300 A T 1000 9 9 1 1\n")

	return dir, []string{"run",
		"--bases", bases,
		"--inner-ldr", inner,
		"--ldr-sumstats", ldr,
		"--sig-thresh", "0.62",
		"--workers", "2",
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir, args := fixture(t)
	out := filepath.Join(dir, "voxel.tsv.gz")
	prom := filepath.Join(dir, "run.prom")
	_, err := execute(t, append(args, "--out", out, "--metrics-file", prom)...)
	require.NoError(t, err)

	rc, err := dataio.Open(out)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "CHR\tPOS\tSNP\tA1\tA2\tN\tINDEX\tBETA\tSE\tZ\tP", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "1\t100\trs1\tA\tG\t1000\t1\t0.5\t1\t0.5\t0.617"), lines[1])
	require.True(t, strings.HasPrefix(lines[2], "1\t100\trs1\tA\tG\t1000\t4\t"), lines[2])

	metrics, err := os.ReadFile(prom)
	require.NoError(t, err)
	require.Contains(t, string(metrics), `voxelgwas_records_skipped_total{cause="parse"} 1`)
	require.Contains(t, string(metrics), `voxelgwas_qc_dropped_total{reason="ambiguous-or-non-snp"} 1`)
}

func TestRunConfigFileAndOverride(t *testing.T) {
	dir, args := fixture(t)
	out := filepath.Join(dir, "best.tsv")
	cfgPath := writeFile(t, dir, "run.yaml", "model:\n  policy: best\n  sig_thresh: 0.01\n")

	// the flag wins over the file's threshold
	_, err := execute(t, append(args, "--config", cfgPath, "--out", out)...)
	require.NoError(t, err)
	body, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], "\trs1\t")
	require.Contains(t, lines[1], "\t4\t")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	_, args := fixture(t)
	_, err := execute(t, append(args, "--policy", "top", "--out", "x.tsv")...)
	require.ErrorIs(t, err, config.ErrInvalid)

	_, err = execute(t, "run")
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestRunTooManyLDRs(t *testing.T) {
	dir, args := fixture(t)
	out := filepath.Join(dir, "out.tsv")
	_, err := execute(t, append(args, "--n-ldrs", "3", "--out", out)...)
	require.Error(t, err)
	_, statErr := os.Stat(out)
	require.True(t, os.IsNotExist(statErr))
}

func TestConfigCommandPrintsDefaults(t *testing.T) {
	out, err := execute(t, "config")
	require.NoError(t, err)

	got := &config.Config{}
	require.NoError(t, yaml.Unmarshal([]byte(out), got))
	require.Equal(t, config.Default(), got)
}
