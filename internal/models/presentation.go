package models

import (
	"time"

	"github.com/google/uuid"
)

// Note holds speaker notes for one or more pages.
type Note struct {
	PageIndices []int  `json:"pageIndices"`
	Markdown    string `json:"markdown"`
}

// Presentation is the document read by viewers and written by the upload flow.
type Presentation struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Username string     `json:"username"`
	UID      uuid.UUID  `json:"uid"`
	Pages    []string   `json:"pages"`
	Notes    []Note     `json:"notes"`
	Created  time.Time  `json:"created"`
	Rendered *time.Time `json:"rendered,omitempty"`
	Original string     `json:"original,omitempty"`
}

// SlideCount is the number of rendered pages.
func (p *Presentation) SlideCount() int {
	return len(p.Pages)
}

// PageURL returns the image URL for a page index, falling back to the first
// page when the index is out of range. Empty when nothing is rendered.
func (p *Presentation) PageURL(index int) string {
	if index >= 0 && index < len(p.Pages) {
		return p.Pages[index]
	}
	if len(p.Pages) > 0 {
		return p.Pages[0]
	}
	return ""
}

// DefaultNotes returns one empty note per page.
func DefaultNotes(pageCount int) []Note {
	notes := make([]Note, pageCount)
	for i := range notes {
		notes[i] = Note{PageIndices: []int{i}}
	}
	return notes
}
