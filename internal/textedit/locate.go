package textedit

import (
	"fmt"

	"github.com/dgallion1/docedit/internal/doctree"
)

// EditKind selects the boundary rule used when resolving an offset. An
// insertion at a run's trailing boundary must land after that run's
// content, while deleting the last character of a run must still resolve
// inside it, so the two rules differ on exact-boundary offsets.
type EditKind uint8

const (
	EditInsert EditKind = iota
	EditDelete
)

// Location identifies the run owning an offset within a paragraph.
type Location struct {
	// Run is the owning run, nil when the paragraph has no length-bearing
	// runs (the caller appends in that case).
	Run *doctree.Run
	// Parent is the paragraph child holding Run: the run itself, or the
	// revision wrapper / hyperlink containing it.
	Parent doctree.ParagraphChild
	// ChildIndex is Parent's index in the paragraph's child sequence.
	ChildIndex int
	// RunIndex is Run's index within Parent when Parent is a wrapper or
	// hyperlink, 0 otherwise.
	RunIndex int
	// Offset is the target offset local to Run.
	Offset int
}

// ParentOffset returns the target offset local to Parent rather than to
// the run itself.
func (l Location) ParentOffset() int {
	off := l.Offset
	switch v := l.Parent.(type) {
	case *doctree.RevisionWrapper:
		for _, r := range v.Runs[:l.RunIndex] {
			off += r.Length()
		}
	case *doctree.Hyperlink:
		for _, r := range v.Runs[:l.RunIndex] {
			off += r.Length()
		}
	}
	return off
}

// Locate resolves offset to the run that owns it, in a single forward pass
// accumulating child lengths. For EditInsert the owner is the first run
// whose cumulative length reaches offset; for EditDelete the cumulative
// length must exceed it.
//
// Preconditions: 0 <= offset <= Length(p) for EditInsert, and
// 0 <= offset < Length(p) for EditDelete; violations return
// ErrIndexOutOfRange before anything is touched.
func Locate(p *doctree.Paragraph, offset int, kind EditKind) (Location, error) {
	total := p.Length()
	if offset < 0 || offset > total || (kind == EditDelete && offset == total) {
		return Location{}, fmt.Errorf("locate offset %d in paragraph of length %d: %w", offset, total, ErrIndexOutOfRange)
	}

	cum := 0
	for i, child := range p.Children {
		l := doctree.ChildLength(child)
		if l == 0 || !owns(kind, cum+l, offset) {
			cum += l
			continue
		}
		switch v := child.(type) {
		case *doctree.Run:
			return Location{Run: v, Parent: v, ChildIndex: i, Offset: offset - cum}, nil
		case *doctree.RevisionWrapper:
			j, local := locateInRuns(v.Runs, offset-cum, kind)
			return Location{Run: v.Runs[j], Parent: v, ChildIndex: i, RunIndex: j, Offset: local}, nil
		case *doctree.Hyperlink:
			j, local := locateInRuns(v.Runs, offset-cum, kind)
			return Location{Run: v.Runs[j], Parent: v, ChildIndex: i, RunIndex: j, Offset: local}, nil
		}
		cum += l
	}

	// No length-bearing run owns the offset: empty paragraph (or bookmark
	// markers only). Only reachable for EditInsert at offset 0.
	return Location{ChildIndex: len(p.Children)}, nil
}

func owns(kind EditKind, cum, offset int) bool {
	if kind == EditInsert {
		return cum >= offset
	}
	return cum > offset
}

// locateInRuns resolves a container-local offset within a run sequence
// using the same boundary rule as the paragraph-level walk. The caller
// guarantees the sequence owns the offset.
func locateInRuns(runs []*doctree.Run, offset int, kind EditKind) (int, int) {
	cum := 0
	last := -1
	for j, r := range runs {
		l := r.Length()
		if l == 0 {
			continue
		}
		last = j
		if owns(kind, cum+l, offset) {
			return j, offset - cum
		}
		cum += l
	}
	// offset == total length with trailing zero-length runs; land on the
	// last length-bearing run's trailing boundary.
	return last, offset - cum + runs[last].Length()
}
