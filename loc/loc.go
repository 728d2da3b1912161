// Package loc has routines for tracking file locations.
package loc

import (
	"fmt"
	"sort"
)

// Loc compactly identifies a string in a set of files
// as a half-open range of byte offsets [Loc[0], Loc[1]).
// Offsets start at 1; the zero value indicates no location.
//
// A Loc with Loc[0] == Loc[1] is a point between two bytes,
// used as an insertion position.
type Loc [2]int

// Start returns the zero-width Loc at the beginning of l.
func (l Loc) Start() Loc { return Loc{l[0], l[0]} }

// End returns the zero-width Loc at the end of l.
func (l Loc) End() Loc { return Loc{l[1], l[1]} }

// IsPoint returns whether l is a non-zero, zero-width Loc.
func (l Loc) IsPoint() bool { return l != (Loc{}) && l[0] == l[1] }

// Join returns the smallest Loc containing both l and m.
// If either is the zero Loc, the other is returned.
func (l Loc) Join(m Loc) Loc {
	switch {
	case l == (Loc{}):
		return m
	case m == (Loc{}):
		return l
	}
	if m[0] < l[0] {
		l[0] = m[0]
	}
	if m[1] > l[1] {
		l[1] = m[1]
	}
	return l
}

// A Locer has a location.
type Locer interface {
	Loc() Loc
}

// A Location identifies a string in a file.
// The zero value indicates no location.
type Location struct {
	Path string
	Line [2]int
	Col  [2]int
}

func (l Location) String() string {
	if (l == Location{}) {
		return ""
	}
	if l.Line[0] == l.Line[1] && l.Col[0] == l.Col[1] {
		return fmt.Sprintf("%s:%d.%d", l.Path, l.Line[0], l.Col[0])
	}
	return fmt.Sprintf("%s:%d.%d-%d.%d", l.Path, l.Line[0], l.Col[0], l.Line[1], l.Col[1])
}

// File is an interface describing a file
// by its path, size, and newline byte offsets.
type File interface {
	Path() string
	Len() int
	NewLines() []int
}

// Files tracks locations within a set of files.
// Offsets of each file follow those of the previous file.
type Files []File

// Len returns the total length of all files.
func (fs Files) Len() int {
	var n int
	for _, f := range fs {
		n += f.Len()
	}
	return n
}

// Location returns the Location of a Loc.
// Both ends of the Loc must be in the same file.
func (fs Files) Location(l Loc) Location {
	switch {
	case len(fs) == 0:
		panic("no files")
	case l == (Loc{}):
		return Location{}
	case l[0] < 1 || l[1]-1 > fs.Len():
		panic("out of range")
	case l[0] > l[1]:
		panic("bad Loc")
	}
	f0, line0, col0 := fs.find(l[0], false)
	f1, line1, col1 := fs.find(l[1], l[1] > l[0])
	if f0 != f1 {
		panic("multi-file Loc")
	}
	return Location{
		Path: fs[f0].Path(),
		Line: [2]int{line0, line1},
		Col:  [2]int{col0, col1},
	}
}

// find returns the file index, line, and column of offset q.
// Lines and columns are 1-based.
// If end is set, an offset just past the end of a file belongs to that file.
func (fs Files) find(q int, end bool) (int, int, int) {
	q-- // locs start at 1
	var i, base int
	for i = 0; i < len(fs)-1; i++ {
		n := fs[i].Len()
		if q < base+n || end && q == base+n {
			break
		}
		base += fs[i].Len()
	}
	off := q - base
	nls := fs[i].NewLines()
	// The number of newlines strictly before off is the 0-based line.
	line := sort.SearchInts(nls, off)
	lineStart := 0
	if line > 0 {
		lineStart = nls[line-1] + 1
	}
	return i, line + 1, off - lineStart + 1
}
