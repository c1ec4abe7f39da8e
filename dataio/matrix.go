package dataio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/katalvlaran/voxelgwas/matrix"
)

// ErrParse reports a malformed matrix or index list.
var ErrParse = errors.New("dataio: parse error")

// maxLine bounds a single text line (a basis row of many components, or a
// summary-statistics row with two values per LDR).
const maxLine = 64 << 20

// NewScanner returns a line scanner sized for wide rows.
func NewScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<16), maxLine)

	return sc
}

// skipLine reports blank and '#' comment lines.
func skipLine(line string) bool {
	line = strings.TrimSpace(line)

	return line == "" || strings.HasPrefix(line, "#")
}

// ReadMatrix parses a whitespace-delimited dense matrix, one row per line.
// Every row must have the same number of columns; values must be finite.
func ReadMatrix(r io.Reader) (*matrix.Dense, error) {
	sc := NewScanner(r)
	var (
		data   []float64
		rows   int
		cols   = -1
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if skipLine(line) {
			continue
		}
		fields := strings.Fields(line)
		if cols < 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, fmt.Errorf("line %d: %d columns, want %d: %w", lineNo, len(fields), cols, ErrParse)
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %q: %w", lineNo, f, ErrParse)
			}
			data = append(data, v)
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("empty matrix: %w", ErrParse)
	}

	return matrix.NewDenseFrom(rows, cols, data)
}

// ReadMatrixFile opens path (compressed or not) and parses it with ReadMatrix.
func ReadMatrixFile(path string) (*matrix.Dense, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	m, err := ReadMatrix(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// ReadIndexList parses whitespace-separated integers (e.g. 1-based voxel ids).
func ReadIndexList(r io.Reader) ([]int, error) {
	sc := NewScanner(r)
	var out []int
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if skipLine(sc.Text()) {
			continue
		}
		for _, f := range strings.Fields(sc.Text()) {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: %q: %w", lineNo, f, ErrParse)
			}
			out = append(out, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// ReadIndexListFile opens path and parses it with ReadIndexList.
func ReadIndexListFile(path string) ([]int, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return ReadIndexList(rc)
}

// ReadStringSetFile reads the first whitespace field of every line into a
// set (e.g. a SNP extract list).
func ReadStringSetFile(path string) (map[string]struct{}, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	set := make(map[string]struct{})
	sc := NewScanner(rc)
	for sc.Scan() {
		if skipLine(sc.Text()) {
			continue
		}
		set[strings.Fields(sc.Text())[0]] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return set, nil
}
