// Package file implements the on-disk page mirror and locator list files.
//
// A mirror is a directory of saved pages, one file per locator, named by
// httpds.SafeFilenameFromURL. Recorder writes pages as they are fetched;
// Mirror serves them back so a run can be replayed without the network.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"statesdb/internal/datasource"
	"statesdb/internal/datasource/httpds"
	"statesdb/internal/fetch"
)

const pageExt = ".html"

// PagePath returns the mirror file for locator under dir.
func PagePath(dir, locator string) string {
	return filepath.Join(dir, httpds.SafeFilenameFromURL(locator)+pageExt)
}

// Mirror serves pages from a directory written by Recorder. It is safe for
// concurrent use.
type Mirror struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

// NewMirror returns a Mirror rooted at dir.
func NewMirror(dir string) *Mirror {
	return &Mirror{dir: dir, maxBytes: fetch.DefaultMaxBodyBytes, now: time.Now}
}

// Fetch reads the saved page for locator.
//
// Behavior:
//   - A canceled context returns a transient *fetch.Error without touching
//     the filesystem.
//   - A missing page is a permanent *fetch.Error wrapping os.ErrNotExist.
//   - Other read errors are transient.
func (m *Mirror) Fetch(ctx context.Context, locator string) (fetch.Document, error) {
	if err := ctx.Err(); err != nil {
		return fetch.Document{}, &fetch.Error{Kind: fetch.KindTransient, URL: locator, Err: err}
	}
	path := PagePath(m.dir, locator)
	f, err := os.Open(path)
	if err != nil {
		kind := fetch.KindTransient
		if errors.Is(err, fs.ErrNotExist) {
			kind = fetch.KindPermanent
		}
		return fetch.Document{}, &fetch.Error{Kind: kind, URL: locator, Err: fmt.Errorf("open %s: %w", path, err)}
	}
	defer f.Close()

	body, err := httpds.ReadLimited(f, m.maxBytes)
	if err != nil {
		return fetch.Document{}, &fetch.Error{Kind: fetch.KindPermanent, URL: locator, Err: fmt.Errorf("read %s: %w", path, err)}
	}
	fetchedAt := m.now().UTC()
	if st, err := f.Stat(); err == nil {
		fetchedAt = st.ModTime().UTC()
	}
	return fetch.Document{
		URL:       locator,
		Body:      body,
		Hash:      fetch.Fingerprint(body),
		FetchedAt: fetchedAt,
	}, nil
}

// Recorder passes fetches through to another Source and saves every
// successful page into a mirror directory.
type Recorder struct {
	next datasource.Source
	dir  string
}

// NewRecorder creates dir if needed.
func NewRecorder(next datasource.Source, dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mirror dir %s: %w", dir, err)
	}
	return &Recorder{next: next, dir: dir}, nil
}

// Fetch fetches through the wrapped source and saves the page. A failed save
// is returned as a transient error so the page is not silently missing from
// the mirror.
func (r *Recorder) Fetch(ctx context.Context, locator string) (fetch.Document, error) {
	doc, err := r.next.Fetch(ctx, locator)
	if err != nil {
		return doc, err
	}
	path := PagePath(r.dir, locator)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, doc.Body, 0o644); err != nil {
		return doc, &fetch.Error{Kind: fetch.KindTransient, URL: locator, Err: fmt.Errorf("save %s: %w", path, err)}
	}
	if err := os.Rename(tmp, path); err != nil {
		return doc, &fetch.Error{Kind: fetch.KindTransient, URL: locator, Err: fmt.Errorf("save %s: %w", path, err)}
	}
	return doc, nil
}

var (
	_ datasource.Source = (*Mirror)(nil)
	_ datasource.Source = (*Recorder)(nil)
)
