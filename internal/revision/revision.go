// Package revision supplies document-wide revision identity: the author
// name, minute-truncated UTC timestamps, and the sequential counters for
// revision, bookmark and relationship ids. State is explicit and carried on
// a Context so tests can pin the clock and ids.
package revision

import (
	"fmt"
	"time"
)

// Context stamps tracked changes for one document. Not safe for concurrent
// use; the engine assumes a single logical writer.
type Context struct {
	author string
	now    func() time.Time

	nextRevisionID int
	nextBookmarkID int
	nextRelID      int
}

// NewContext returns a context stamping changes as author, starting ids
// after the highest ids already present in the document.
func NewContext(author string) *Context {
	return &Context{
		author:         author,
		now:            time.Now,
		nextRevisionID: 1,
		nextBookmarkID: 1,
		nextRelID:      1,
	}
}

// WithClock replaces the time source. For tests.
func (c *Context) WithClock(now func() time.Time) *Context {
	c.now = now
	return c
}

// Author returns the author name applied to new revision wrappers.
func (c *Context) Author() string { return c.author }

// Stamp returns the current time in UTC truncated to the minute, the
// granularity revision dates carry.
func (c *Context) Stamp() time.Time {
	return c.now().UTC().Truncate(time.Minute)
}

// NextRevisionID returns a fresh sequential revision id.
func (c *Context) NextRevisionID() int {
	id := c.nextRevisionID
	c.nextRevisionID++
	return id
}

// NextBookmarkID returns a fresh sequential bookmark id.
func (c *Context) NextBookmarkID() int {
	id := c.nextBookmarkID
	c.nextBookmarkID++
	return id
}

// NextRelID returns a fresh relationship id ("rId42").
func (c *Context) NextRelID() string {
	id := c.nextRelID
	c.nextRelID++
	return fmt.Sprintf("rId%d", id)
}

// ReserveRevisionID bumps the revision counter past id. Called while
// loading a document so fresh ids never collide with existing ones.
func (c *Context) ReserveRevisionID(id int) {
	if id >= c.nextRevisionID {
		c.nextRevisionID = id + 1
	}
}

// ReserveBookmarkID bumps the bookmark counter past id.
func (c *Context) ReserveBookmarkID(id int) {
	if id >= c.nextBookmarkID {
		c.nextBookmarkID = id + 1
	}
}

// ReserveRelID bumps the relationship counter past the numeric part of
// rid when rid has the canonical "rIdN" shape.
func (c *Context) ReserveRelID(rid string) {
	var n int
	if _, err := fmt.Sscanf(rid, "rId%d", &n); err != nil {
		return
	}
	if n >= c.nextRelID {
		c.nextRelID = n + 1
	}
}
