package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ClearingState is the reconciliation state of a transaction or posting.
type ClearingState int

const (
	Uncleared ClearingState = iota
	Pending
	Cleared
)

func (s ClearingState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Cleared:
		return "cleared"
	default:
		return "uncleared"
	}
}

// Position records where in a source file an item was recognized.
type Position struct {
	File string
	Line int
}

// Location renders the position as a diagnostic prefix, empty when the item
// was built programmatically.
func (p Position) Location() string {
	if p.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d: ", p.File, p.Line)
}

// Tag is one metadata entry. A nil Value marks a bare tag.
type Tag struct {
	Key   string
	Value *string
}

// TagSet is an insertion-ordered metadata map. Order matters: metadata
// registration walks tags in the order they appeared in the source.
type TagSet struct {
	tags []Tag
}

// Set adds or replaces a tag, keeping the original position on replace.
func (ts *TagSet) Set(key string, value *string) {
	for i := range ts.tags {
		if ts.tags[i].Key == key {
			ts.tags[i].Value = value
			return
		}
	}
	ts.tags = append(ts.tags, Tag{Key: key, Value: value})
}

// Get returns the value of key and whether the tag exists.
func (ts *TagSet) Get(key string) (*string, bool) {
	for i := range ts.tags {
		if ts.tags[i].Key == key {
			return ts.tags[i].Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present, with or without a value.
func (ts *TagSet) Has(key string) bool {
	_, ok := ts.Get(key)
	return ok
}

// Len returns the number of tags.
func (ts *TagSet) Len() int { return len(ts.tags) }

// All returns the tags in insertion order.
func (ts *TagSet) All() []Tag { return ts.tags }

// XData holds transient computed state attached to an item during a load,
// opaque to the engine itself. It never survives a Load call.
type XData struct {
	Visited bool
	Total   decimal.Decimal
	Scratch map[string]any
}

// Item carries the state shared by transactions and postings.
type Item struct {
	State ClearingState
	Tags  TagSet
	Temp  bool
	Pos   Position

	xdata *XData
}

// HasXData reports whether computed state is attached.
func (it *Item) HasXData() bool { return it.xdata != nil }

// XData returns the computed state, allocating it on first use.
func (it *Item) XData() *XData {
	if it.xdata == nil {
		it.xdata = &XData{}
	}
	return it.xdata
}

// ClearXData drops any attached computed state.
func (it *Item) ClearXData() { it.xdata = nil }

// SetTag records a metadata tag on the item.
func (it *Item) SetTag(key string, value *string) { it.Tags.Set(key, value) }

// TagValue returns the value of a metadata tag, if present.
func (it *Item) TagValue(key string) (*string, bool) { return it.Tags.Get(key) }
