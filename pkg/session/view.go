package session

import (
	"time"

	"github.com/matzehuels/printomat/pkg/engine"
)

// EntryView is the read-only state of one entry as shown to the user.
type EntryView struct {
	Index   int                `json:"index"`
	Name    string             `json:"name"`
	File    string             `json:"file"`
	Version int                `json:"version"`
	Pages   int                `json:"pages"`
	Options engine.FileOptions `json:"options"`
	Active  bool               `json:"active"`
	State   string             `json:"state,omitempty"`
}

// Summary is the read-only state of a session.
type Summary struct {
	ID        string      `json:"id"`
	Code      string      `json:"code"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	Revision  int         `json:"revision"`
	Entries   []EntryView `json:"entries"`
	Failures  []Failure   `json:"failures,omitempty"`
}

// Entries returns a snapshot of the session's entries in index order. An
// active entry reports its live options and state.
func (s *Session) Entries() []EntryView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views()
}

// Summary returns a snapshot of the whole session.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		ID:        s.ID,
		Code:      s.Code,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.expiresAt,
		Revision:  s.revision,
		Entries:   s.views(),
		Failures:  append([]Failure(nil), s.failures...),
	}
}

func (s *Session) views() []EntryView {
	out := make([]EntryView, len(s.entries))
	for i, e := range s.entries {
		v := EntryView{
			Index:   e.Index,
			Name:    e.Name,
			File:    e.Path.Name(),
			Version: e.Path.Version,
			Pages:   e.Pages,
			Options: e.Options,
		}
		if e.engine != nil {
			v.Active = true
			v.Options = e.engine.Options()
			v.State = e.engine.State().String()
			if doc := e.engine.Document(); doc != nil {
				v.Pages = doc.PageCount()
			}
		}
		out[i] = v
	}
	return out
}
