package textedit

import (
	"fmt"

	"github.com/dgallion1/docedit/internal/doctree"
)

// SplitRun splits a run at a run-local offset into two runs carrying the
// same formatting. A half that ends up with zero length and no content
// child (drawing, field marker) is returned as nil so callers never splice
// degenerate empty runs into the tree.
//
// Invariant: length(left) + length(right) == length(run).
func SplitRun(r *doctree.Run, offset int) (*doctree.Run, *doctree.Run, error) {
	total := r.Length()
	if offset < 0 || offset > total {
		return nil, nil, fmt.Errorf("split run of length %d at %d: %w", total, offset, ErrIndexOutOfRange)
	}

	left := &doctree.Run{Props: r.Props.Clone()}
	right := &doctree.Run{Props: r.Props.Clone()}

	cum := 0
	for _, c := range r.Children {
		l := doctree.LeafLength(c)
		switch {
		case cum+l <= offset && cum < offset:
			left.Children = append(left.Children, c)
		case cum >= offset:
			right.Children = append(right.Children, c)
		default:
			// A text leaf straddling the boundary.
			at := offset - cum
			switch v := c.(type) {
			case *doctree.Text:
				rs := []rune(v.Value)
				left.Children = append(left.Children, &doctree.Text{Value: string(rs[:at])})
				right.Children = append(right.Children, &doctree.Text{Value: string(rs[at:])})
			case *doctree.DeletedText:
				rs := []rune(v.Value)
				left.Children = append(left.Children, &doctree.DeletedText{Value: string(rs[:at])})
				right.Children = append(right.Children, &doctree.DeletedText{Value: string(rs[at:])})
			default:
				return nil, nil, fmt.Errorf("split inside atomic leaf %T: %w", c, ErrInvariant)
			}
		}
		cum += l
	}

	lout, rout := dropEmptyRun(left), dropEmptyRun(right)
	if runLen(lout)+runLen(rout) != total {
		return nil, nil, fmt.Errorf("run split at %d lost characters (%d+%d != %d): %w",
			offset, runLen(lout), runLen(rout), total, ErrInvariant)
	}
	return lout, rout, nil
}

// dropEmptyRun maps a run with no length and no content children to nil.
func dropEmptyRun(r *doctree.Run) *doctree.Run {
	if r == nil || (r.Length() == 0 && !r.HasContent()) {
		return nil
	}
	return r
}

func runLen(r *doctree.Run) int {
	if r == nil {
		return 0
	}
	return r.Length()
}

// splitRunSeq splits an ordered run sequence at a sequence-local offset.
// Runs strictly before the owning run go left, runs after it go right, and
// the owning run is split in place.
func splitRunSeq(runs []*doctree.Run, offset int, kind EditKind) (left, right []*doctree.Run, err error) {
	cum := 0
	for i, r := range runs {
		l := r.Length()
		if l > 0 && owns(kind, cum+l, offset) {
			lhalf, rhalf, err := SplitRun(r, offset-cum)
			if err != nil {
				return nil, nil, err
			}
			left = append(left, runs[:i]...)
			if lhalf != nil {
				left = append(left, lhalf)
			}
			if rhalf != nil {
				right = append(right, rhalf)
			}
			right = append(right, runs[i+1:]...)
			return left, right, nil
		}
		cum += l
	}
	if offset != cum {
		return nil, nil, fmt.Errorf("split run sequence of length %d at %d: %w", cum, offset, ErrIndexOutOfRange)
	}
	// Trailing boundary: everything left.
	return append(left, runs...), nil, nil
}

// SplitWrapper splits a revision wrapper at a wrapper-local offset. Both
// fragments replicate the wrapper's identity (kind, id, author, date); a
// fragment with zero length and no content is dropped entirely rather than
// emitted as an empty wrapper.
func SplitWrapper(w *doctree.RevisionWrapper, offset int, kind EditKind) (*doctree.RevisionWrapper, *doctree.RevisionWrapper, error) {
	lruns, rruns, err := splitRunSeq(w.Runs, offset, kind)
	if err != nil {
		return nil, nil, err
	}
	left, right := w.Shell(), w.Shell()
	left.Runs, right.Runs = lruns, rruns
	return dropEmptyWrapper(left), dropEmptyWrapper(right), nil
}

func dropEmptyWrapper(w *doctree.RevisionWrapper) *doctree.RevisionWrapper {
	if w == nil || len(w.Runs) == 0 {
		return nil
	}
	if w.Length() == 0 {
		for _, r := range w.Runs {
			if r.HasContent() {
				return w
			}
		}
		return nil
	}
	return w
}

// SplitHyperlink splits a hyperlink at a hyperlink-local offset; both
// halves keep the relationship reference.
func SplitHyperlink(h *doctree.Hyperlink, offset int, kind EditKind) (*doctree.Hyperlink, *doctree.Hyperlink, error) {
	lruns, rruns, err := splitRunSeq(h.Runs, offset, kind)
	if err != nil {
		return nil, nil, err
	}
	var left, right *doctree.Hyperlink
	if len(lruns) > 0 {
		left = h.Shell()
		left.Runs = lruns
	}
	if len(rruns) > 0 {
		right = h.Shell()
		right.Runs = rruns
	}
	return left, right, nil
}
