// Package history keeps the undo and redo stacks of applied splices.
package history

import (
	"pktedit/internal/textdoc"
	"pktedit/internal/textsync"
)

// DefaultLimit is the number of edits kept for undo.
const DefaultLimit = 100

type History struct {
	undoStack []textsync.Splice
	redoStack []textsync.Splice
	limit     int
}

func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

func (h *History) Limit() int {
	return h.limit
}

// Record pushes a user edit. Any redo entries are discarded and the oldest
// entry is dropped once the limit is reached.
func (h *History) Record(s textsync.Splice) {
	s.Bytes = append([]byte(nil), s.Bytes...)
	h.undoStack = append(h.undoStack, s)
	if len(h.undoStack) > h.limit {
		h.undoStack = h.undoStack[len(h.undoStack)-h.limit:]
	}
	h.redoStack = nil
}

// Undo pops the latest edit and moves it to the redo stack. The caller
// applies Invert of the returned splice.
func (h *History) Undo() (textsync.Splice, bool) {
	if len(h.undoStack) == 0 {
		return textsync.Splice{}, false
	}
	s := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.redoStack = append(h.redoStack, s)
	return s, true
}

// Redo pops the latest undone edit and moves it back to the undo stack. The
// caller applies the returned splice as is.
func (h *History) Redo() (textsync.Splice, bool) {
	if len(h.redoStack) == 0 {
		return textsync.Splice{}, false
	}
	s := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.undoStack = append(h.undoStack, s)
	return s, true
}

// Abandon drops the entry a failed Undo or Redo just moved, so a splice that
// could not be applied is not offered again.
func (h *History) Abandon(undone bool) {
	if undone {
		if n := len(h.redoStack); n > 0 {
			h.redoStack = h.redoStack[:n-1]
		}
		return
	}
	if n := len(h.undoStack); n > 0 {
		h.undoStack = h.undoStack[:n-1]
	}
}

func (h *History) CanUndo() bool {
	return len(h.undoStack) > 0
}

func (h *History) CanRedo() bool {
	return len(h.redoStack) > 0
}

func (h *History) Reset() {
	h.undoStack = nil
	h.redoStack = nil
}

// Invert returns the splice that undoes s.
func Invert(s textsync.Splice) textsync.Splice {
	inv := s
	switch s.Kind {
	case textdoc.EventInsert:
		inv.Kind = textdoc.EventRemove
	case textdoc.EventRemove:
		inv.Kind = textdoc.EventInsert
	}
	return inv
}
