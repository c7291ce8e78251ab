package textedit

import (
	"fmt"

	"github.com/dgallion1/docedit/internal/doctree"
	"github.com/dgallion1/docedit/internal/revision"
)

// Engine applies character-indexed edits to paragraphs. It carries the
// revision context supplying author/date stamps and sequential ids for
// tracked changes. The engine mutates trees directly and assumes a single
// logical writer.
type Engine struct {
	rev *revision.Context
}

// NewEngine returns an engine stamping tracked changes from rev.
func NewEngine(rev *revision.Context) *Engine {
	return &Engine{rev: rev}
}

// InsertOptions controls InsertText behavior.
type InsertOptions struct {
	// TrackChanges wraps the inserted content in an insertion marker.
	TrackChanges bool
	// Formatting is merged field-by-field onto the formatting present at
	// the insertion point: set fields override, unset fields keep the
	// ambient value.
	Formatting *doctree.RunProperties
}

// InsertText inserts text at a paragraph-local offset. Valid offsets are
// [0, Length(p)]; inserting at a run's trailing boundary lands after that
// run's existing content.
func (e *Engine) InsertText(p *doctree.Paragraph, offset int, text string, opts InsertOptions) error {
	loc, err := Locate(p, offset, EditInsert)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	newRun := doctree.NewRun(text, e.ambientProps(p, loc).Merge(opts.Formatting))

	// Empty paragraph (or bookmarks only): append.
	if loc.Run == nil {
		if opts.TrackChanges {
			p.Children = append(p.Children, e.newInsertWrapper(newRun))
		} else {
			p.Children = append(p.Children, newRun)
		}
		return nil
	}

	switch parent := loc.Parent.(type) {
	case *doctree.Run:
		lhalf, rhalf, err := SplitRun(parent, loc.Offset)
		if err != nil {
			return err
		}
		if opts.TrackChanges {
			spliceChildren(p, loc.ChildIndex, lhalf, e.newInsertWrapper(newRun), rhalf)
		} else {
			spliceChildren(p, loc.ChildIndex, lhalf, newRun, rhalf)
		}
		return nil

	case *doctree.RevisionWrapper:
		if parent.Kind == doctree.RevisionInsert && opts.TrackChanges && e.sameRevision(parent) {
			// Rapid sequential edits by the same author in the same
			// minute merge into the existing marker instead of nesting a
			// fresh one: an ordinary splice inside the wrapper.
			lruns, rruns, err := splitRunSeq(parent.Runs, loc.ParentOffset(), EditInsert)
			if err != nil {
				return err
			}
			parent.Runs = append(lruns, append([]*doctree.Run{newRun}, rruns...)...)
			return nil
		}
		// Any other case splits the wrapper so its identity survives on
		// both fragments and the new content sits between them. In
		// particular, text typed into a tracked deletion is a fresh
		// insertion adjacent to the deletion, never inside it.
		lw, rw, err := SplitWrapper(parent, loc.ParentOffset(), EditInsert)
		if err != nil {
			return err
		}
		if opts.TrackChanges {
			spliceChildren(p, loc.ChildIndex, lw, e.newInsertWrapper(newRun), rw)
		} else {
			spliceChildren(p, loc.ChildIndex, lw, newRun, rw)
		}
		return nil

	case *doctree.Hyperlink:
		if opts.TrackChanges {
			lh, rh, err := SplitHyperlink(parent, loc.ParentOffset(), EditInsert)
			if err != nil {
				return err
			}
			spliceChildren(p, loc.ChildIndex, lh, e.newInsertWrapper(newRun), rh)
			return nil
		}
		// Untracked insertion inside a hyperlink becomes part of the link.
		lruns, rruns, err := splitRunSeq(parent.Runs, loc.ParentOffset(), EditInsert)
		if err != nil {
			return err
		}
		parent.Runs = append(lruns, append([]*doctree.Run{newRun}, rruns...)...)
		return nil
	}

	return fmt.Errorf("insert into unexpected node %T: %w", loc.Parent, ErrInvariant)
}

// AppendText inserts text at the end of the paragraph.
func (e *Engine) AppendText(p *doctree.Paragraph, text string, opts InsertOptions) error {
	return e.InsertText(p, p.Length(), text, opts)
}

// RemoveText removes count characters starting at offset. In tracked mode
// the consumed spans are wrapped in deletion markers instead of being
// detached, except content already inside a deletion marker, which is left
// alone and merely counted. Offsets past the paragraph end fail with
// ErrIndexOutOfRange before any mutation.
func (e *Engine) RemoveText(p *doctree.Paragraph, offset, count int, trackChanges bool) error {
	if offset < 0 || count < 0 || offset+count > p.Length() {
		return fmt.Errorf("remove [%d,%d) in paragraph of length %d: %w", offset, offset+count, p.Length(), ErrIndexOutOfRange)
	}

	cursor := offset
	remaining := count
	for remaining > 0 {
		loc, err := Locate(p, cursor, EditDelete)
		if err != nil {
			return err
		}
		if loc.Run == nil {
			return fmt.Errorf("remove ran past content with %d characters left: %w", remaining, ErrInvariant)
		}

		take := loc.Run.Length() - loc.Offset
		if take > remaining {
			take = remaining
		}

		consumed, err := e.removeFromRun(p, loc, take, trackChanges)
		if err != nil {
			return err
		}
		cursor += consumed
		remaining -= take
	}
	return nil
}

// removeFromRun consumes take characters from the located run. It returns
// how far the cursor must advance: wrapped or skipped content stays in the
// markup offset space, physically detached content does not.
func (e *Engine) removeFromRun(p *doctree.Paragraph, loc Location, take int, trackChanges bool) (int, error) {
	switch parent := loc.Parent.(type) {
	case *doctree.Run:
		if trackChanges {
			l, mid, r, err := carveRun(parent, loc.Offset, take)
			if err != nil {
				return 0, err
			}
			mid.MarkDeleted()
			spliceChildren(p, loc.ChildIndex, l, e.newDeleteWrapper(mid), r)
			return take, nil
		}
		kept, err := detachFromRun(parent, loc.Offset, take)
		if err != nil {
			return 0, err
		}
		spliceChildren(p, loc.ChildIndex, kept...)
		return 0, nil

	case *doctree.RevisionWrapper:
		switch {
		case parent.Kind == doctree.RevisionDelete && trackChanges:
			// Cannot double-delete; the span merely counts toward the
			// total and the cursor moves past it.
			return take, nil
		case parent.Kind == doctree.RevisionInsert && trackChanges && e.sameRevision(parent):
			// Deleting your own same-minute insertion leaves no trace.
			return e.detachInsideSeq(p, loc, take)
		case trackChanges:
			// Split the wrapper and emit the consumed middle as a
			// deletion between the two identity-preserving halves.
			pOff := loc.ParentOffset()
			lw, mid, err := SplitWrapper(parent, pOff, EditDelete)
			if err != nil {
				return 0, err
			}
			var rw *doctree.RevisionWrapper
			if mid != nil {
				mid, rw, err = SplitWrapper(mid, take, EditInsert)
				if err != nil {
					return 0, err
				}
			}
			if mid == nil {
				return 0, fmt.Errorf("tracked delete carved empty span: %w", ErrInvariant)
			}
			for _, r := range mid.Runs {
				r.MarkDeleted()
			}
			del := e.newDeleteWrapper(mid.Runs...)
			spliceChildren(p, loc.ChildIndex, lw, del, rw)
			return take, nil
		default:
			return e.detachInsideSeq(p, loc, take)
		}

	case *doctree.Hyperlink:
		if trackChanges {
			pOff := loc.ParentOffset()
			lh, mid, err := SplitHyperlink(parent, pOff, EditDelete)
			if err != nil {
				return 0, err
			}
			var rh *doctree.Hyperlink
			if mid != nil {
				mid, rh, err = SplitHyperlink(mid, take, EditInsert)
				if err != nil {
					return 0, err
				}
			}
			if mid == nil {
				return 0, fmt.Errorf("tracked delete carved empty span: %w", ErrInvariant)
			}
			for _, r := range mid.Runs {
				r.MarkDeleted()
			}
			del := e.newDeleteWrapper(mid.Runs...)
			// Keep the link around the deleted span so rejecting the
			// revision restores it.
			del.Link = parent.Shell()
			spliceChildren(p, loc.ChildIndex, lh, del, rh)
			return take, nil
		}
		return e.detachInsideSeq(p, loc, take)
	}

	return 0, fmt.Errorf("remove from unexpected node %T: %w", loc.Parent, ErrInvariant)
}

// detachInsideSeq physically removes take characters from the located run
// inside a wrapper or hyperlink, dropping the container if it empties.
func (e *Engine) detachInsideSeq(p *doctree.Paragraph, loc Location, take int) (int, error) {
	kept, err := detachFromRun(loc.Run, loc.Offset, take)
	if err != nil {
		return 0, err
	}
	keptRuns := make([]*doctree.Run, 0, len(kept))
	for _, c := range kept {
		keptRuns = append(keptRuns, c.(*doctree.Run))
	}

	switch parent := loc.Parent.(type) {
	case *doctree.RevisionWrapper:
		parent.Runs = replaceRun(parent.Runs, loc.RunIndex, keptRuns)
		if dropEmptyWrapper(parent) == nil {
			spliceChildren(p, loc.ChildIndex)
		}
	case *doctree.Hyperlink:
		parent.Runs = replaceRun(parent.Runs, loc.RunIndex, keptRuns)
		if len(parent.Runs) == 0 {
			spliceChildren(p, loc.ChildIndex)
		}
	default:
		return 0, fmt.Errorf("detach inside unexpected node %T: %w", loc.Parent, ErrInvariant)
	}
	return 0, nil
}

// carveRun splits a run twice, yielding the parts before, inside and after
// the span [offset, offset+take). The middle part is never nil.
func carveRun(r *doctree.Run, offset, take int) (left, mid, right *doctree.Run, err error) {
	left, rest, err := SplitRun(r, offset)
	if err != nil {
		return nil, nil, nil, err
	}
	if rest == nil {
		return nil, nil, nil, fmt.Errorf("carve [%d,%d) of run length %d: %w", offset, offset+take, r.Length(), ErrIndexOutOfRange)
	}
	mid, right, err = SplitRun(rest, take)
	if err != nil {
		return nil, nil, nil, err
	}
	if mid == nil {
		return nil, nil, nil, fmt.Errorf("carved empty middle: %w", ErrInvariant)
	}
	return left, mid, right, nil
}

// detachFromRun removes the span's text from a run, preserving any content
// children (embedded objects, field markers) the span crosses. The result
// is the run's replacement sequence, possibly empty.
func detachFromRun(r *doctree.Run, offset, take int) ([]doctree.ParagraphChild, error) {
	left, mid, right, err := carveRun(r, offset, take)
	if err != nil {
		return nil, err
	}
	var out []doctree.ParagraphChild
	if left != nil {
		out = append(out, left)
	}
	// A run emptied of text keeps living only for its content children.
	if mid.HasContent() {
		stripped := &doctree.Run{Props: mid.Props}
		for _, c := range mid.Children {
			switch c.(type) {
			case *doctree.Text, *doctree.DeletedText, *doctree.Tab, *doctree.Break:
			default:
				stripped.Children = append(stripped.Children, c)
			}
		}
		out = append(out, stripped)
	}
	if right != nil {
		out = append(out, right)
	}
	return out, nil
}

// SplitParagraph splits a paragraph at offset into two paragraphs whose
// concatenated content equals the original. The right half keeps the
// paragraph's trailing identity (section properties); both keep its
// formatting.
func (e *Engine) SplitParagraph(p *doctree.Paragraph, offset int) (*doctree.Paragraph, *doctree.Paragraph, error) {
	total := p.Length()
	if offset < 0 || offset > total {
		return nil, nil, fmt.Errorf("split paragraph of length %d at %d: %w", total, offset, ErrIndexOutOfRange)
	}

	leftProps := p.Props.Clone()
	if leftProps != nil {
		leftProps.SectPr = ""
	}
	left := &doctree.Paragraph{Props: leftProps}
	right := &doctree.Paragraph{Props: p.Props.Clone()}

	cum := 0
	for _, child := range p.Children {
		l := doctree.ChildLength(child)
		switch {
		case cum+l <= offset && cum < offset:
			left.Children = append(left.Children, child)
		case cum >= offset:
			right.Children = append(right.Children, child)
		default:
			local := offset - cum
			switch v := child.(type) {
			case *doctree.Run:
				lh, rh, err := SplitRun(v, local)
				if err != nil {
					return nil, nil, err
				}
				appendChild(left, lh)
				appendChild(right, rh)
			case *doctree.RevisionWrapper:
				lw, rw, err := SplitWrapper(v, local, EditInsert)
				if err != nil {
					return nil, nil, err
				}
				appendChild(left, lw)
				appendChild(right, rw)
			case *doctree.Hyperlink:
				lh, rh, err := SplitHyperlink(v, local, EditInsert)
				if err != nil {
					return nil, nil, err
				}
				appendChild(left, lh)
				appendChild(right, rh)
			default:
				return nil, nil, fmt.Errorf("split inside %T: %w", child, ErrInvariant)
			}
		}
		cum += l
	}

	if left.Length()+right.Length() != total {
		return nil, nil, fmt.Errorf("paragraph split at %d lost characters: %w", offset, ErrInvariant)
	}
	return left, right, nil
}

// InsertBookmark splices a named bookmark (start and end marker pair) at
// offset, splitting the owning run the same way InsertText does.
func (e *Engine) InsertBookmark(p *doctree.Paragraph, offset int, name string) error {
	if name == "" {
		return fmt.Errorf("bookmark name: %w", ErrArgumentInvalid)
	}
	id := e.rev.NextBookmarkID()
	return e.spliceAt(p, offset, &doctree.BookmarkStart{ID: id, Name: name}, &doctree.BookmarkEnd{ID: id})
}

// InsertDrawing splices an embedded object at offset. The relationship id
// on the drawing must already be resolved by the relationship layer.
func (e *Engine) InsertDrawing(p *doctree.Paragraph, offset int, d *doctree.Drawing, trackChanges bool) error {
	run := &doctree.Run{Children: []doctree.RunChild{d}}
	if trackChanges {
		return e.spliceAt(p, offset, e.newInsertWrapper(run))
	}
	return e.spliceAt(p, offset, run)
}

// InsertField splices a field at offset as the canonical run sequence:
// begin marker, instruction, separate marker, end marker. Fields contribute
// no length until the consumer computes a result.
func (e *Engine) InsertField(p *doctree.Paragraph, offset int, instr string) error {
	if instr == "" {
		return fmt.Errorf("field instruction: %w", ErrArgumentInvalid)
	}
	return e.spliceAt(p, offset,
		&doctree.Run{Children: []doctree.RunChild{&doctree.FieldChar{Type: doctree.FieldBegin}}},
		&doctree.Run{Children: []doctree.RunChild{&doctree.InstrText{Value: instr}}},
		&doctree.Run{Children: []doctree.RunChild{&doctree.FieldChar{Type: doctree.FieldSeparate}}},
		&doctree.Run{Children: []doctree.RunChild{&doctree.FieldChar{Type: doctree.FieldEnd}}},
	)
}

// InsertHyperlink splices a hyperlink with the given display text at
// offset. relID references an external target resolved by the relationship
// layer; pass an anchor instead for internal links.
func (e *Engine) InsertHyperlink(p *doctree.Paragraph, offset int, relID, anchor, text string, props *doctree.RunProperties) error {
	if text == "" {
		return fmt.Errorf("hyperlink text: %w", ErrArgumentInvalid)
	}
	h := &doctree.Hyperlink{RelID: relID, Anchor: anchor, Runs: []*doctree.Run{doctree.NewRun(text, props)}}
	return e.spliceAt(p, offset, h)
}

// spliceAt inserts nodes at offset using the run-locate-and-split pattern.
func (e *Engine) spliceAt(p *doctree.Paragraph, offset int, nodes ...doctree.ParagraphChild) error {
	loc, err := Locate(p, offset, EditInsert)
	if err != nil {
		return err
	}
	if loc.Run == nil {
		p.Children = append(p.Children, nodes...)
		return nil
	}

	switch parent := loc.Parent.(type) {
	case *doctree.Run:
		lhalf, rhalf, err := SplitRun(parent, loc.Offset)
		if err != nil {
			return err
		}
		repl := make([]doctree.ParagraphChild, 0, len(nodes)+2)
		if lhalf != nil {
			repl = append(repl, lhalf)
		}
		repl = append(repl, nodes...)
		if rhalf != nil {
			repl = append(repl, rhalf)
		}
		spliceChildren(p, loc.ChildIndex, repl...)
	case *doctree.RevisionWrapper:
		lw, rw, err := SplitWrapper(parent, loc.ParentOffset(), EditInsert)
		if err != nil {
			return err
		}
		repl := make([]doctree.ParagraphChild, 0, len(nodes)+2)
		if lw != nil {
			repl = append(repl, lw)
		}
		repl = append(repl, nodes...)
		if rw != nil {
			repl = append(repl, rw)
		}
		spliceChildren(p, loc.ChildIndex, repl...)
	case *doctree.Hyperlink:
		lh, rh, err := SplitHyperlink(parent, loc.ParentOffset(), EditInsert)
		if err != nil {
			return err
		}
		repl := make([]doctree.ParagraphChild, 0, len(nodes)+2)
		if lh != nil {
			repl = append(repl, lh)
		}
		repl = append(repl, nodes...)
		if rh != nil {
			repl = append(repl, rh)
		}
		spliceChildren(p, loc.ChildIndex, repl...)
	default:
		return fmt.Errorf("splice into unexpected node %T: %w", loc.Parent, ErrInvariant)
	}
	return nil
}

// ambientProps resolves the formatting present at the insertion point: the
// located run's own formatting, falling back to the paragraph-mark run
// formatting for empty paragraphs.
func (e *Engine) ambientProps(p *doctree.Paragraph, loc Location) *doctree.RunProperties {
	if loc.Run != nil {
		return loc.Run.Props
	}
	if p.Props != nil {
		return p.Props.RunProps
	}
	return nil
}

// sameRevision reports whether a wrapper carries the current context's
// author and minute stamp, the condition for merging rapid sequential
// edits into one marker.
func (e *Engine) sameRevision(w *doctree.RevisionWrapper) bool {
	return w.Author == e.rev.Author() && w.Date.Equal(e.rev.Stamp())
}

func (e *Engine) newInsertWrapper(runs ...*doctree.Run) *doctree.RevisionWrapper {
	return &doctree.RevisionWrapper{
		Kind:   doctree.RevisionInsert,
		ID:     e.rev.NextRevisionID(),
		Author: e.rev.Author(),
		Date:   e.rev.Stamp(),
		Runs:   runs,
	}
}

func (e *Engine) newDeleteWrapper(runs ...*doctree.Run) *doctree.RevisionWrapper {
	return &doctree.RevisionWrapper{
		Kind:   doctree.RevisionDelete,
		ID:     e.rev.NextRevisionID(),
		Author: e.rev.Author(),
		Date:   e.rev.Stamp(),
		Runs:   runs,
	}
}

// spliceChildren replaces the child at index i with repl, dropping nils.
func spliceChildren(p *doctree.Paragraph, i int, repl ...doctree.ParagraphChild) {
	out := make([]doctree.ParagraphChild, 0, len(p.Children)+len(repl)-1)
	out = append(out, p.Children[:i]...)
	for _, c := range repl {
		if !isNilChild(c) {
			out = append(out, c)
		}
	}
	out = append(out, p.Children[i+1:]...)
	p.Children = out
}

func isNilChild(c doctree.ParagraphChild) bool {
	switch v := c.(type) {
	case nil:
		return true
	case *doctree.Run:
		return v == nil
	case *doctree.RevisionWrapper:
		return v == nil
	case *doctree.Hyperlink:
		return v == nil
	case *doctree.BookmarkStart:
		return v == nil
	case *doctree.BookmarkEnd:
		return v == nil
	}
	return false
}

func appendChild(p *doctree.Paragraph, c doctree.ParagraphChild) {
	if !isNilChild(c) {
		p.Children = append(p.Children, c)
	}
}

// replaceRun substitutes the run at index i with repl, dropping nothing
// else from the sequence.
func replaceRun(runs []*doctree.Run, i int, repl []*doctree.Run) []*doctree.Run {
	out := make([]*doctree.Run, 0, len(runs)+len(repl)-1)
	out = append(out, runs[:i]...)
	out = append(out, repl...)
	out = append(out, runs[i+1:]...)
	return out
}
