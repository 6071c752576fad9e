package file

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"statesdb/internal/fetch"
)

type stubSource struct {
	pages map[string]string
	calls int
}

func (s *stubSource) Fetch(_ context.Context, locator string) (fetch.Document, error) {
	s.calls++
	body, ok := s.pages[locator]
	if !ok {
		return fetch.Document{}, &fetch.Error{Kind: fetch.KindPermanent, URL: locator, Status: 404, Err: errors.New("not found")}
	}
	return fetch.Document{URL: locator, Body: []byte(body), Hash: fetch.Fingerprint([]byte(body))}, nil
}

// TestRecorderThenMirror records pages through a Recorder and replays them
// from a Mirror over the same directory.
func TestRecorderThenMirror(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := &stubSource{pages: map[string]string{
		"/wiki/France": "<html>France</html>",
		"/wiki/Spain":  "<html>Spain</html>",
	}}
	rec, err := NewRecorder(src, dir)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	ctx := context.Background()
	for _, loc := range []string{"/wiki/France", "/wiki/Spain"} {
		if _, err := rec.Fetch(ctx, loc); err != nil {
			t.Fatalf("record %s: %v", loc, err)
		}
	}
	if _, err := rec.Fetch(ctx, "/wiki/Atlantis"); !fetch.IsPermanent(err) {
		t.Fatalf("expected permanent error passthrough, got %v", err)
	}
	if _, err := os.Stat(PagePath(dir, "/wiki/Atlantis")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("failed fetch must not be saved, stat err = %v", err)
	}

	m := NewMirror(dir)
	doc, err := m.Fetch(ctx, "/wiki/France")
	if err != nil {
		t.Fatalf("mirror fetch: %v", err)
	}
	if string(doc.Body) != "<html>France</html>" {
		t.Fatalf("body = %q", doc.Body)
	}
	if doc.Hash != fetch.Fingerprint(doc.Body) {
		t.Fatalf("hash = %q, want fingerprint of body", doc.Hash)
	}
	if doc.FetchedAt.IsZero() {
		t.Fatalf("FetchedAt not set")
	}
}

// TestMirrorFetch_Errors covers the error classification of the mirror.
func TestMirrorFetch_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := NewMirror(dir)

	_, err := m.Fetch(context.Background(), "/wiki/Missing")
	if !fetch.IsPermanent(err) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing page: got %v", err)
	}
	if !strings.Contains(err.Error(), "open ") {
		t.Fatalf("error %q should name the path", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Fetch(ctx, "/wiki/Missing")
	if !fetch.IsTransient(err) || !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled: got %v", err)
	}

	if err := os.WriteFile(PagePath(dir, "/wiki/Big"), []byte(strings.Repeat("x", 32)), 0o644); err != nil {
		t.Fatal(err)
	}
	m.maxBytes = 8
	if _, err := m.Fetch(context.Background(), "/wiki/Big"); !fetch.IsPermanent(err) {
		t.Fatalf("oversized page: got %v", err)
	}
}

// BenchmarkMirrorFetch measures the steady-state cost of serving a saved page.
func BenchmarkMirrorFetch(b *testing.B) {
	dir := b.TempDir()
	if err := os.WriteFile(PagePath(dir, "/wiki/France"), []byte("<html>payload</html>"), 0o644); err != nil {
		b.Fatalf("write page: %v", err)
	}
	m := NewMirror(dir)
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := m.Fetch(ctx, "/wiki/France"); err != nil {
			b.Fatal(err)
		}
	}
}
