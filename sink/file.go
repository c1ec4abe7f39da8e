package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/katalvlaran/voxelgwas/dataio"
)

// Header is the column line of File output.
var Header = []string{"CHR", "POS", "SNP", "A1", "A2", "N", "INDEX", "BETA", "SE", "Z", "P"}

// File writes tab-separated rows to a temporary file next to the target and
// renames it into place on Commit. The target's extension selects gzip
// (".gz") or zstd (".zst") compression.
type File struct {
	path string
	tmp  *os.File
	zw   io.WriteCloser
	bw   *bufio.Writer
	line []byte
	done bool
}

// NewFile creates the temporary file and writes the header.
func NewFile(path string) (*File, error) {
	c := dataio.DetectCompression(path)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}
	zw, err := dataio.NewWriter(tmp, c)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("sink: %w", err)
	}
	f := &File{path: path, tmp: tmp, zw: zw, bw: bufio.NewWriterSize(zw, 1<<20)}
	for i, h := range Header {
		if i > 0 {
			f.line = append(f.line, '\t')
		}
		f.line = append(f.line, h...)
	}
	f.line = append(f.line, '\n')
	if _, err := f.bw.Write(f.line); err != nil {
		_ = f.Abort()
		return nil, fmt.Errorf("sink: %w", err)
	}

	return f, nil
}

// Path returns the final output path.
func (f *File) Path() string { return f.path }

// Write implements Sink.
func (f *File) Write(r SNPResult) error {
	if f.done {
		return ErrClosed
	}
	rec := r.Record
	for _, v := range r.Voxels {
		b := f.line[:0]
		b = append(b, rec.Chr...)
		b = append(b, '\t')
		b = strconv.AppendInt(b, rec.Pos, 10)
		b = append(b, '\t')
		b = append(b, rec.SNP...)
		b = append(b, '\t')
		b = append(b, rec.A1...)
		b = append(b, '\t')
		b = append(b, rec.A2...)
		b = append(b, '\t')
		b = strconv.AppendFloat(b, rec.N, 'g', -1, 64)
		b = append(b, '\t')
		b = strconv.AppendInt(b, int64(v.Voxel), 10)
		for _, x := range [...]float64{v.Beta, v.SE, v.Z, v.P} {
			b = append(b, '\t')
			b = strconv.AppendFloat(b, x, 'g', -1, 64)
		}
		b = append(b, '\n')
		f.line = b
		if _, err := f.bw.Write(b); err != nil {
			return fmt.Errorf("sink: %w", err)
		}
	}

	return nil
}

// Commit flushes, closes and renames the output into place.
func (f *File) Commit() error {
	if f.done {
		return ErrClosed
	}
	f.done = true
	err := errors.Join(f.bw.Flush(), f.zw.Close(), f.tmp.Sync(), f.tmp.Close())
	if err == nil {
		err = os.Rename(f.tmp.Name(), f.path)
	}
	if err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("sink: commit %s: %w", f.path, err)
	}

	return nil
}

// Abort removes the temporary file. The target path is left untouched.
func (f *File) Abort() error {
	if f.done {
		return ErrClosed
	}
	f.done = true
	_ = f.zw.Close()
	_ = f.tmp.Close()
	if err := os.Remove(f.tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("sink: abort %s: %w", f.path, err)
	}

	return nil
}
