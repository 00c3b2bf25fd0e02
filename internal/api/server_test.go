package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/geometry"
	"github.com/matzehuels/printomat/pkg/pagedoc"
	"github.com/matzehuels/printomat/pkg/session"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "4821")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	a4p := geometry.A4.Sheet(geometry.Portrait)
	if err := os.WriteFile(filepath.Join(dir, "doc.pdf"), pagedoc.MemoryFixture(a4p, a4p), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(New(session.NewManager(root, session.Config{}, nil), nil))
	t.Cleanup(srv.Close)
	return srv, dir
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func createSession(t *testing.T, base string) session.Summary {
	t.Helper()
	resp := do(t, http.MethodPost, base+"/sessions", `{"code":"4821"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var sum session.Summary
	decodeBody(t, resp, &sum)
	return sum
}

func TestSessionFlow(t *testing.T) {
	srv, dir := newTestServer(t)
	sum := createSession(t, srv.URL)
	if len(sum.Entries) != 1 || sum.Entries[0].File != "doc.1" {
		t.Fatalf("entries = %+v", sum.Entries)
	}
	doc := srv.URL + "/sessions/" + sum.ID + "/documents/0"

	resp := do(t, http.MethodPost, doc+"/impose", `{"layout":2}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("impose status = %d", resp.StatusCode)
	}
	var view session.EntryView
	decodeBody(t, resp, &view)
	if !view.Active || view.State != "transformed" || view.Options.Layout != geometry.TwoUp || view.Pages != 1 {
		t.Errorf("view after impose = %+v", view)
	}

	resp = do(t, http.MethodPatch, doc+"/options", `{"copies":3,"color":"grayscale"}`)
	decodeBody(t, resp, &view)
	if view.Options.Copies != 3 || view.Options.Color != "grayscale" {
		t.Errorf("options = %+v", view.Options)
	}

	resp = do(t, http.MethodGet, doc+"/preview?page=0&w=120&h=170", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("preview status = %d, type = %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	var png bytes.Buffer
	if _, err := png.ReadFrom(resp.Body); err != nil || !bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")) {
		t.Errorf("preview is not a PNG: %v", err)
	}

	resp = do(t, http.MethodPost, doc+"/save", "")
	var saved saveResponse
	decodeBody(t, resp, &saved)
	if filepath.Base(saved.Path) != "doc.2" {
		t.Errorf("saved path = %s", saved.Path)
	}
	if _, err := os.Stat(filepath.Join(dir, "doc.2")); err != nil {
		t.Error(err)
	}

	resp = do(t, http.MethodDelete, srv.URL+"/sessions/"+sum.ID, "")
	var manifest session.Manifest
	decodeBody(t, resp, &manifest)
	if len(manifest.Jobs) != 1 || manifest.Jobs[0].Options.Copies != 3 {
		t.Errorf("manifest = %+v", manifest)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	sum := createSession(t, srv.URL)
	doc := srv.URL + "/sessions/" + sum.ID + "/documents/"

	tests := []struct {
		name   string
		method string
		url    string
		body   string
		status int
		code   errors.Code
	}{
		{"bad code", http.MethodPost, srv.URL + "/sessions", `{"code":"../x"}`, 400, errors.ErrCodeInvalidInput},
		{"unknown upload", http.MethodPost, srv.URL + "/sessions", `{"code":"1"}`, 404, errors.ErrCodeNotFound},
		{"malformed body", http.MethodPost, srv.URL + "/sessions", `{`, 400, errors.ErrCodeInvalidFormat},
		{"unknown session", http.MethodGet, srv.URL + "/sessions/nope", "", 404, errors.ErrCodeSessionNotFound},
		{"bad index", http.MethodPost, doc + "x/select", "", 400, errors.ErrCodeInvalidInput},
		{"missing document", http.MethodPost, doc + "7/select", "", 404, errors.ErrCodeNotFound},
		{"bad layout", http.MethodPost, doc + "0/impose", `{"layout":3}`, 400, errors.ErrCodeInvalidInput},
		{"bad orientation", http.MethodPost, doc + "0/rotate", `{"orientation":"up"}`, 400, errors.ErrCodeInvalidInput},
		{"bad duplex", http.MethodPatch, doc + "0/options", `{"duplex":"both"}`, 400, errors.ErrCodeInvalidInput},
		{"page out of range", http.MethodGet, doc + "0/preview?page=9", "", 404, errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, tt.url, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body errorResponse
			decodeBody(t, resp, &body)
			if body.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Code, tt.code)
			}
		})
	}
}

func TestSourceVanished(t *testing.T) {
	srv, dir := newTestServer(t)
	sum := createSession(t, srv.URL)
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	resp := do(t, http.MethodPost, srv.URL+"/sessions/"+sum.ID+"/documents/0/select", "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[errors.Code]int{
		errors.ErrCodeUnreadableSource:   422,
		errors.ErrCodeGeometryDegenerate: 422,
		errors.ErrCodeInvalidInput:       400,
		errors.ErrCodeNotFound:           404,
		errors.ErrCodeDoubleSave:         409,
		errors.ErrCodeSnapshotMissing:    409,
		errors.ErrCodeSessionExpired:     410,
		errors.ErrCodeInternal:           500,
		"":                               500,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%q) = %d, want %d", code, got, want)
		}
	}
}
