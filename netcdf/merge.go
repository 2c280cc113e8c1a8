// Package netcdf implements the optional merge capability for per-batch
// profile output files. Merging concatenates the batch files along the
// profile dimension into a single NetCDF file, keeping all variables,
// attributes and shared coordinates.
package netcdf

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/rs/zerolog/log"
)

// DefaultDim is the dimension profile responses are concatenated along.
const DefaultDim = "profile_number"

// globalAttributes are stamped on merged outputs when the inputs do not
// already carry them.
var globalAttributes = map[string]string{
	"coordinate_system": "geographic",
	"institution":       "COAPS, FSU",
	"author":            "Jose Roberto Miranda",
	"contact":           "jrm22n@fsu.edu",
	"DOI":               "https://doi.org/10.1016/j.ocemod.2025.102550",
}

// Merger concatenates NetCDF batch files along Dim. The zero value is
// ready to use and concatenates along DefaultDim.
type Merger struct {
	// Dim is the concatenation dimension. Empty means DefaultDim.
	Dim string
}

func (m *Merger) dim() string {
	if m.Dim == "" {
		return DefaultDim
	}
	return m.Dim
}

// Merge combines the input files, in order, into a single NetCDF file at
// output. Variables carrying the concatenation dimension must have it as
// their leading dimension and are concatenated in input order; variables
// without it (shared coordinates such as depth) are copied from the first
// file. The coordinate variable named after the concatenation dimension is
// reindexed sequentially from zero.
func (m *Merger) Merge(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("netcdf: no input files to merge")
	}
	dim := m.dim()

	files := make([]*cdf.File, len(inputs))
	for i, name := range inputs {
		ff, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("netcdf: opening %s: %w", name, err)
		}
		defer func() {
			_ = ff.Close()
		}()
		f, err := cdf.Open(ff)
		if err != nil {
			return fmt.Errorf("netcdf: reading %s: %w", name, err)
		}
		files[i] = f
	}

	first := files[0]
	vars := first.Header.Variables()
	sort.Strings(vars)

	// Dimension table from the first file; the concatenation dimension is
	// stretched to the combined length below.
	dimLengths := map[string]int{}
	var dimNames []string
	for _, v := range vars {
		dims := first.Header.Dimensions(v)
		lengths := first.Header.Lengths(v)
		for j, d := range dims {
			if _, ok := dimLengths[d]; !ok {
				dimNames = append(dimNames, d)
				dimLengths[d] = lengths[j]
			}
		}
	}
	if _, ok := dimLengths[dim]; !ok {
		return fmt.Errorf("netcdf: dimension %q not present in %s", dim, inputs[0])
	}

	counts, total, err := concatCounts(files, inputs, vars, dim)
	if err != nil {
		return err
	}

	lengths := make([]int, len(dimNames))
	for i, d := range dimNames {
		if d == dim {
			lengths[i] = total
		} else {
			lengths[i] = dimLengths[d]
		}
	}
	h := cdf.NewHeader(dimNames, lengths)
	for _, v := range vars {
		proto, err := zeroValue(first, v)
		if err != nil {
			return err
		}
		h.AddVariable(v, first.Header.Dimensions(v), proto)
		for _, a := range first.Header.Attributes(v) {
			h.AddAttribute(v, a, first.Header.GetAttribute(v, a))
		}
	}
	for _, a := range first.Header.Attributes("") {
		h.AddAttribute("", a, first.Header.GetAttribute("", a))
	}
	for _, k := range sortedKeys(globalAttributes) {
		if first.Header.GetAttribute("", k) == nil {
			h.AddAttribute("", k, globalAttributes[k])
		}
	}
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("netcdf: building merged header: %w", err)
	}

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("netcdf: creating %s: %w", output, err)
	}
	defer func() {
		_ = out.Close()
	}()
	of, err := cdf.Create(out, h)
	if err != nil {
		return fmt.Errorf("netcdf: writing %s: %w", output, err)
	}

	for _, v := range vars {
		if err := ctx.Err(); err != nil {
			return err
		}
		dims := first.Header.Dimensions(v)
		switch {
		case v == dim:
			if err := writeIndex(of, first, v, total); err != nil {
				return err
			}
		case !contains(dims, dim):
			if err := copyVar(of, first, v); err != nil {
				return err
			}
		case dims[0] != dim:
			return fmt.Errorf("netcdf: variable %s: %s must be the leading dimension", v, dim)
		default:
			if err := concatVar(of, files, counts, v, total); err != nil {
				return err
			}
		}
	}

	log.Debug().Int("files", len(inputs)).Str("output", output).Msg("merged netcdf files")
	return nil
}

// concatCounts returns the per-file length of the concatenation dimension
// and the combined total, checking that every file carries the same
// variables with the same trailing shapes.
func concatCounts(files []*cdf.File, names []string, vars []string, dim string) ([]int, int, error) {
	first := files[0]
	counts := make([]int, len(files))
	total := 0
	for i, f := range files {
		fv := f.Header.Variables()
		if len(fv) != len(vars) {
			return nil, 0, fmt.Errorf("netcdf: %s has a different variable set than %s", names[i], names[0])
		}
		for _, v := range fv {
			if !contains(vars, v) {
				return nil, 0, fmt.Errorf("netcdf: %s has a different variable set than %s", names[i], names[0])
			}
		}
		n := -1
		for _, v := range vars {
			dims := f.Header.Dimensions(v)
			lengths := f.Header.Lengths(v)
			if len(dims) != len(first.Header.Dimensions(v)) {
				return nil, 0, fmt.Errorf("netcdf: variable %s: rank differs between %s and %s", v, names[i], names[0])
			}
			if len(dims) == 0 {
				continue
			}
			for j, d := range dims {
				switch {
				case d == dim:
					if j != 0 {
						return nil, 0, fmt.Errorf("netcdf: variable %s in %s: %s must be the leading dimension", v, names[i], dim)
					}
					if n >= 0 && n != lengths[j] {
						return nil, 0, fmt.Errorf("netcdf: inconsistent %s length within %s", dim, names[i])
					}
					n = lengths[j]
				case lengths[j] != first.Header.Lengths(v)[j]:
					return nil, 0, fmt.Errorf("netcdf: variable %s: dimension %s differs between %s and %s",
						v, d, names[i], names[0])
				}
			}
		}
		if n < 0 {
			return nil, 0, fmt.Errorf("netcdf: dimension %q not present in %s", dim, names[i])
		}
		counts[i] = n
		total += n
	}
	return counts, total, nil
}

// concatVar concatenates v across the input files along its leading
// dimension. Numeric data goes through dense float64 arrays; other element
// types are passed through per file.
func concatVar(out *cdf.File, files []*cdf.File, counts []int, v string, total int) error {
	shape := append([]int{total}, files[0].Header.Lengths(v)[1:]...)
	rowSize := 1
	for _, d := range shape[1:] {
		rowSize *= d
	}

	proto, err := zeroValue(files[0], v)
	if err != nil {
		return err
	}
	if !numeric(proto) {
		// BYTE and CHAR data reads back as []uint8 slabs; pass them
		// through one file at a time without conversion.
		offset := 0
		for i, f := range files {
			buf, err := readFull(f, v)
			if err != nil {
				return err
			}
			begin := make([]int, len(shape))
			begin[0] = offset
			end := append([]int{offset + counts[i]}, shape[1:]...)
			if _, err := out.Writer(v, begin, end).Write(buf); err != nil {
				return fmt.Errorf("netcdf: writing %s: %w", v, err)
			}
			offset += counts[i]
		}
		return nil
	}

	merged := sparse.ZerosDense(shape...)
	offset := 0
	for i, f := range files {
		arr, err := readDense(f, v)
		if err != nil {
			return err
		}
		if len(arr.Elements) != counts[i]*rowSize {
			return fmt.Errorf("netcdf: variable %s: unexpected element count in input %d", v, i+1)
		}
		copy(merged.Elements[offset*rowSize:], arr.Elements)
		offset += counts[i]
	}
	buf, err := fromFloats(proto, merged.Elements)
	if err != nil {
		return fmt.Errorf("netcdf: variable %s: %w", v, err)
	}
	begin := make([]int, len(shape))
	if _, err := out.Writer(v, begin, shape).Write(buf); err != nil {
		return fmt.Errorf("netcdf: writing %s: %w", v, err)
	}
	return nil
}

// copyVar copies a variable that does not carry the concatenation
// dimension from the first input file.
func copyVar(out, in *cdf.File, v string) error {
	buf, err := readFull(in, v)
	if err != nil {
		return err
	}
	shape := in.Header.Lengths(v)
	begin := make([]int, len(shape))
	if _, err := out.Writer(v, begin, shape).Write(buf); err != nil {
		return fmt.Errorf("netcdf: writing %s: %w", v, err)
	}
	return nil
}

// writeIndex rewrites the concatenation coordinate as a sequential index
// starting at zero, keeping the element type of the first input.
func writeIndex(out, in *cdf.File, v string, total int) error {
	proto, err := zeroValue(in, v)
	if err != nil {
		return err
	}
	idx := make([]float64, total)
	for i := range idx {
		idx[i] = float64(i)
	}
	buf, err := fromFloats(proto, idx)
	if err != nil {
		return fmt.Errorf("netcdf: variable %s: %w", v, err)
	}
	if _, err := out.Writer(v, []int{0}, []int{total}).Write(buf); err != nil {
		return fmt.Errorf("netcdf: writing %s: %w", v, err)
	}
	return nil
}

// readFull reads the complete contents of a variable.
func readFull(f *cdf.File, v string) (any, error) {
	n := 1
	for _, d := range f.Header.Lengths(v) {
		n *= d
	}
	r := f.Reader(v, nil, nil)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("netcdf: reading %s: %w", v, err)
	}
	return buf, nil
}

// readDense reads a numeric variable into a dense float64 array.
func readDense(f *cdf.File, v string) (*sparse.DenseArray, error) {
	buf, err := readFull(f, v)
	if err != nil {
		return nil, err
	}
	vals, err := toFloats(buf)
	if err != nil {
		return nil, fmt.Errorf("netcdf: variable %s: %w", v, err)
	}
	out := sparse.ZerosDense(f.Header.Lengths(v)...)
	copy(out.Elements, vals)
	return out, nil
}

// zeroValue returns a one-element zero value of the variable's declared
// type, in the prototype form cdf header construction expects. The header
// is the authority here: read buffers come back as []uint8 for both BYTE
// and CHAR variables, so deriving the prototype from a reader would
// silently re-declare CHAR data as BYTE.
func zeroValue(f *cdf.File, v string) (any, error) {
	proto := f.Header.ZeroValue(v, 1)
	if proto == nil {
		return nil, fmt.Errorf("netcdf: variable %s: unknown element type", v)
	}
	return proto, nil
}

func numeric(proto any) bool {
	switch proto.(type) {
	case []float64, []float32, []int32, []int16:
		return true
	}
	return false
}

func toFloats(buf any) ([]float64, error) {
	switch b := buf.(type) {
	case []float64:
		return b, nil
	case []float32:
		out := make([]float64, len(b))
		for i, x := range b {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(b))
		for i, x := range b {
			out[i] = float64(x)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(b))
		for i, x := range b {
			out[i] = float64(x)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported element type %T", buf)
}

func fromFloats(proto any, vals []float64) (any, error) {
	switch proto.(type) {
	case []float64:
		out := make([]float64, len(vals))
		copy(out, vals)
		return out, nil
	case []float32:
		out := make([]float32, len(vals))
		for i, x := range vals {
			out[i] = float32(x)
		}
		return out, nil
	case []int32:
		out := make([]int32, len(vals))
		for i, x := range vals {
			out[i] = int32(x)
		}
		return out, nil
	case []int16:
		out := make([]int16, len(vals))
		for i, x := range vals {
			out[i] = int16(x)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported element type %T", proto)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
