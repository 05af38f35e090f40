// Package column splits tab-delimited lines into a selected field and the
// remaining fields, and joins them back together.
//
// All functions work on raw bytes. A field is whatever lies between two tab
// bytes; no quoting or escaping is recognised.
package column

import "bytes"

// Delimiter separates fields within a line.
const Delimiter = '\t'

// TrimNewline strips a single trailing newline.
func TrimNewline(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		return line[:n-1]
	}
	return line
}

// Split separates the field at col from the other fields of line. The
// returned slices alias line. ok is false when line has no field at col, in
// which case nfields reports how many fields it does have.
func Split(line []byte, col int) (field []byte, rest [][]byte, nfields int, ok bool) {
	fields := bytes.Split(line, []byte{Delimiter})
	nfields = len(fields)
	if col < 0 || col >= nfields {
		return nil, nil, nfields, false
	}
	field = fields[col]
	rest = make([][]byte, 0, nfields-1)
	rest = append(rest, fields[:col]...)
	rest = append(rest, fields[col+1:]...)
	return field, rest, nfields, true
}

// AppendJoin appends rest with field re-inserted at col, tab separated, to
// dst and returns the extended slice. If col is past the end of rest the
// field is appended last.
func AppendJoin(dst []byte, rest [][]byte, col int, field []byte) []byte {
	if col > len(rest) {
		col = len(rest)
	}
	for i, f := range rest[:col] {
		if i > 0 {
			dst = append(dst, Delimiter)
		}
		dst = append(dst, f...)
	}
	if col > 0 {
		dst = append(dst, Delimiter)
	}
	dst = append(dst, field...)
	for _, f := range rest[col:] {
		dst = append(dst, Delimiter)
		dst = append(dst, f...)
	}
	return dst
}

// Join is AppendJoin into a fresh slice.
func Join(rest [][]byte, col int, field []byte) []byte {
	size := len(field) + len(rest)
	for _, f := range rest {
		size += len(f)
	}
	return AppendJoin(make([]byte, 0, size), rest, col, field)
}
