package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/printomat/pkg/engine"
	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/geometry"
	"github.com/matzehuels/printomat/pkg/preview"
	"github.com/matzehuels/printomat/pkg/session"
)

// maxBody bounds JSON request bodies.
const maxBody = 64 << 10

type createRequest struct {
	Code string `json:"code"`
}

type rotateRequest struct {
	Orientation string `json:"orientation"`
}

type imposeRequest struct {
	Layout int `json:"layout"`
}

type optionsRequest struct {
	Copies *int    `json:"copies,omitempty"`
	Color  *string `json:"color,omitempty"`
	Duplex *string `json:"duplex,omitempty"`
}

type saveResponse struct {
	Path string `json:"path"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request body")
	}
	return nil
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	sess, _, err := s.manager.Create(r.Context(), req.Code)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Summary())
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary())
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	manifest, err := s.manager.Close(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, manifest)
}

// document resolves the session and document index of a request.
func (s *Server) document(r *http.Request) (*session.Session, int, error) {
	sess, err := s.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, 0, err
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return nil, 0, errors.New(errors.ErrCodeInvalidInput, "invalid document index %q", chi.URLParam(r, "index"))
	}
	return sess, index, nil
}

// entryResponse writes the current view of the document at index.
func (s *Server) entryResponse(w http.ResponseWriter, sess *session.Session, index int) {
	entries := sess.Entries()
	if index < 0 || index >= len(entries) {
		writeError(w, s.logger, errors.New(errors.ErrCodeNotFound, "no document %d", index))
		return
	}
	writeJSON(w, http.StatusOK, entries[index])
}

func (s *Server) selectDocument(w http.ResponseWriter, r *http.Request) {
	sess, index, err := s.document(r)
	if err == nil {
		err = sess.Select(r.Context(), index)
	}
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.entryResponse(w, sess, index)
}

func (s *Server) previewDocument(w http.ResponseWriter, r *http.Request) {
	sess, index, err := s.document(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	req, err := previewRequest(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	png, err := sess.PreviewPNG(r.Context(), index, req)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}

// previewRequest reads the optional page, w and h query parameters.
func previewRequest(r *http.Request) (preview.Request, error) {
	var req preview.Request
	q := r.URL.Query()
	for name, dst := range map[string]*int{"page": &req.Page, "w": &req.Width, "h": &req.Height} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, errors.New(errors.ErrCodeInvalidInput, "invalid %s %q", name, v)
		}
		*dst = n
	}
	return req, nil
}

func (s *Server) rotateDocument(w http.ResponseWriter, r *http.Request) {
	sess, index, err := s.document(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	var req rotateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	o, err := geometry.ParseOrientation(req.Orientation)
	if err == nil {
		err = sess.Rotate(r.Context(), index, o)
	}
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.entryResponse(w, sess, index)
}

func (s *Server) imposeDocument(w http.ResponseWriter, r *http.Request) {
	sess, index, err := s.document(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	var req imposeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := sess.Impose(r.Context(), index, geometry.Layout(req.Layout)); err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.entryResponse(w, sess, index)
}

func (s *Server) restoreDocument(w http.ResponseWriter, r *http.Request) {
	sess, index, err := s.document(r)
	if err == nil {
		err = sess.RestoreOriginal(r.Context(), index)
	}
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.entryResponse(w, sess, index)
}

func (s *Server) updateOptions(w http.ResponseWriter, r *http.Request) {
	sess, index, err := s.document(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	var req optionsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	// Validate everything before applying anything.
	var color engine.ColorMode
	var duplex engine.Duplex
	if req.Color != nil {
		if color, err = engine.ParseColorMode(*req.Color); err != nil {
			writeError(w, s.logger, err)
			return
		}
	}
	if req.Duplex != nil {
		if duplex, err = engine.ParseDuplex(*req.Duplex); err != nil {
			writeError(w, s.logger, err)
			return
		}
	}

	if req.Copies != nil {
		_, err = sess.SetCopies(index, *req.Copies)
	}
	if err == nil && req.Color != nil {
		err = sess.SetColor(index, color)
	}
	if err == nil && req.Duplex != nil {
		err = sess.SetDuplex(index, duplex)
	}
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.entryResponse(w, sess, index)
}

func (s *Server) saveDocument(w http.ResponseWriter, r *http.Request) {
	sess, index, err := s.document(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	path, err := sess.FinalizeSave(r.Context(), index)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Path: path})
}

func (s *Server) discardDocument(w http.ResponseWriter, r *http.Request) {
	sess, index, err := s.document(r)
	if err == nil {
		err = sess.Discard(index)
	}
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.entryResponse(w, sess, index)
}
