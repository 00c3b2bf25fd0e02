package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/printomat/pkg/cache"
	"github.com/matzehuels/printomat/pkg/geometry"
	"github.com/matzehuels/printomat/pkg/pagedoc"
)

// execute runs the root command with args against the memory backend.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PRINTOMAT_BACKEND", "memory")
	t.Setenv("PRINTOMAT_PREVIEW_CACHE", "none")

	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFixture(t *testing.T, dir, name string, sizes ...geometry.Size) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, pagedoc.MemoryFixture(sizes...), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func pageCount(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	sizes, err := pagedoc.MemoryBackend{}.Inspect(data)
	if err != nil {
		t.Fatal(err)
	}
	return len(sizes)
}

func TestNormalizeCommand(t *testing.T) {
	dir := t.TempDir()
	a4p := geometry.A4.Sheet(geometry.Portrait)
	writeFixture(t, dir, "a.pdf", a4p, a4p)
	writeFixture(t, dir, "b.pdf", a4p)

	if _, err := execute(t, "normalize", dir); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got := pageCount(t, filepath.Join(dir, "a.1")); got != 2 {
		t.Errorf("a.1 pages = %d, want 2", got)
	}
	if got := pageCount(t, filepath.Join(dir, "b.1")); got != 1 {
		t.Errorf("b.1 pages = %d, want 1", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.2")); !os.IsNotExist(err) {
		t.Errorf("normalize without transform wrote a second version: %v", err)
	}
}

func TestImposeCommand(t *testing.T) {
	dir := t.TempDir()
	a4p := geometry.A4.Sheet(geometry.Portrait)
	src := writeFixture(t, dir, "slides.pdf", a4p, a4p, a4p, a4p)

	if _, err := execute(t, "impose", src, "-n", "4", "--copies", "5"); err != nil {
		t.Fatalf("impose: %v", err)
	}
	if got := pageCount(t, filepath.Join(dir, "slides.1")); got != 4 {
		t.Errorf("slides.1 pages = %d, want 4", got)
	}
	if got := pageCount(t, filepath.Join(dir, "slides.2")); got != 1 {
		t.Errorf("slides.2 pages = %d, want 1", got)
	}
}

func TestImposeCommandErrors(t *testing.T) {
	dir := t.TempDir()
	a4p := geometry.A4.Sheet(geometry.Portrait)
	good := writeFixture(t, dir, "good.pdf", a4p)
	bad := filepath.Join(dir, "bad.pdf")
	if err := os.WriteFile(bad, []byte("not a document"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unreadable file", []string{"impose", good, bad}, "1 file failed"},
		{"invalid layout", []string{"impose", good, "-n", "3"}, "invalid layout"},
		{"empty dir", []string{"normalize", t.TempDir()}, "no supported files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestPreviewCommand(t *testing.T) {
	dir := t.TempDir()
	a4p := geometry.A4.Sheet(geometry.Portrait)
	src := writeFixture(t, dir, "doc.pdf", a4p, a4p)
	out := filepath.Join(dir, "out.png")

	if _, err := execute(t, "preview", src, "--page", "1", "--width", "120", "-o", out); err != nil {
		t.Fatalf("preview: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
	if _, err := os.Stat(filepath.Join(dir, "doc.1")); !os.IsNotExist(err) {
		t.Errorf("preview wrote a version file: %v", err)
	}

	if _, err := execute(t, "preview", src, "--page", "5", "-o", out); err == nil {
		t.Error("expected error for page out of range")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "version:") || !strings.Contains(out, "commit:") {
		t.Errorf("version output = %q", out)
	}
}

func TestCompletionCommand(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, appName) {
		t.Error("bash completion does not mention the command name")
	}
	if _, err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("expected error for unsupported shell")
	}
}

func TestCacheCommands(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "previews")
	t.Setenv("PRINTOMAT_CACHE_DIR", dir)

	out, err := execute(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != dir {
		t.Errorf("cache path = %q, want %q", out, dir)
	}

	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		if err := fc.Set(ctx, key, []byte(key), time.Hour); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := execute(t, "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := fc.Get(ctx, "a"); ok {
		t.Error("entry survived cache clear")
	}
}

func TestGroupByDir(t *testing.T) {
	dirs, groups := groupByDir([]string{"b/x.pdf", "a/y.jpg", "b/z.png", "w.pdf"})
	if want := []string{".", "a", "b"}; !reflect.DeepEqual(dirs, want) {
		t.Errorf("dirs = %v, want %v", dirs, want)
	}
	if want := []string{"x.pdf", "z.png"}; !reflect.DeepEqual(groups["b"], want) {
		t.Errorf("groups[b] = %v, want %v", groups["b"], want)
	}
	if want := []string{"w.pdf"}; !reflect.DeepEqual(groups["."], want) {
		t.Errorf("groups[.] = %v, want %v", groups["."], want)
	}
}

func TestExpandArgs(t *testing.T) {
	dir := t.TempDir()
	a4p := geometry.A4.Sheet(geometry.Portrait)
	writeFixture(t, dir, "b.pdf", a4p)
	writeFixture(t, dir, "a.pdf", a4p)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := expandArgs([]string{dir, "other/c.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf"), "other/c.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandArgs = %v, want %v", got, want)
	}
}

func TestPreviewPath(t *testing.T) {
	tests := map[string]string{
		"report.pdf":     "report.p2.png",
		"dir/scan.JPG":   "dir/scan.p2.png",
		"report.3":       "report.3.p2.png",
		"dir/archive.gz": "dir/archive.gz.p2.png",
	}
	for in, want := range tests {
		if got := previewPath(in, 2); got != want {
			t.Errorf("previewPath(%q) = %q, want %q", in, got, want)
		}
	}
}
