// Package artifact fetches GGUF weights from a Hugging Face style hub into a
// local cache and reports what is already cached.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/common/fsutil"
)

// ggufMagic opens every GGUF file.
var ggufMagic = []byte("GGUF")

// Ref identifies a weights file inside a hub repository.
type Ref struct {
	ModelID  string // e.g. TheBloke/GOAT-70B-Storytelling-GGUF
	File     string // e.g. goat-70b-storytelling.Q5_K_M.gguf
	Revision string // branch, tag or commit; "main" when empty
}

func (r Ref) String() string { return r.ModelID + "/" + r.File }

// Validate rejects refs that would escape the cache directory or do not name a
// GGUF file.
func (r Ref) Validate() error {
	id := strings.Trim(r.ModelID, "/")
	if id == "" || strings.Contains(id, "..") || strings.ContainsAny(id, `\:`) {
		return fmt.Errorf("invalid model id %q", r.ModelID)
	}
	if r.File == "" || strings.ContainsAny(r.File, `/\`) || r.File == "." || r.File == ".." {
		return fmt.Errorf("invalid model file %q", r.File)
	}
	if !isGGUFName(r.File) {
		return badFormatError{path: r.File, reason: "not a .gguf file"}
	}
	return nil
}

type notFoundError struct {
	ref    Ref
	status string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("artifact not found: %s (%s)", e.ref, e.status)
}

// IsNotFound reports whether err means the hub has no such file or refused access.
func IsNotFound(err error) bool {
	var nf notFoundError
	return errors.As(err, &nf)
}

type badFormatError struct{ path, reason string }

func (e badFormatError) Error() string { return fmt.Sprintf("%s: %s", e.path, e.reason) }

// IsBadFormat reports whether err means the file is not usable GGUF.
func IsBadFormat(err error) bool {
	var bf badFormatError
	return errors.As(err, &bf)
}

// Store materializes refs under Dir as <Dir>/<model id>/<file>.
type Store struct {
	Dir    string
	HubURL string
	Token  string
	Client *http.Client
	Logger zerolog.Logger
	// ProgressEvery throttles download progress logs; 0 means 10s.
	ProgressEvery time.Duration
}

// Path returns where ref lives (or will live) in the cache.
func (s *Store) Path(ref Ref) (string, error) {
	if err := ref.Validate(); err != nil {
		return "", err
	}
	base, err := fsutil.ExpandHome(s.Dir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	return filepath.Join(abs, filepath.FromSlash(strings.Trim(ref.ModelID, "/")), ref.File), nil
}

// Cached reports the cache path of ref and whether a file is already there.
func (s *Store) Cached(ref Ref) (string, bool) {
	p, err := s.Path(ref)
	if err != nil {
		return "", false
	}
	_, ok := fsutil.RegularFileSize(p)
	return p, ok
}

// Resolve returns a local path holding ref, downloading it first when the
// cache does not have it. The file is checked for the GGUF magic either way.
func (s *Store) Resolve(ctx context.Context, ref Ref) (string, error) {
	dst, err := s.Path(ref)
	if err != nil {
		return "", err
	}
	if _, ok := fsutil.RegularFileSize(dst); ok {
		s.Logger.Debug().Str("artifact", ref.String()).Str("path", dst).Msg("artifact cached")
		return dst, CheckMagic(dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("mkdir cache: %w", err)
	}
	removeStalePartials(dst)
	if err := s.download(ctx, ref, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// URL is the hub download location of ref.
func (s *Store) URL(ref Ref) string {
	rev := ref.Revision
	if rev == "" {
		rev = "main"
	}
	hub := strings.TrimRight(s.HubURL, "/")
	if hub == "" {
		hub = "https://huggingface.co"
	}
	id := strings.Trim(ref.ModelID, "/")
	return hub + "/" + path.Join(id, "resolve", url.PathEscape(rev), url.PathEscape(ref.File))
}

func (s *Store) download(ctx context.Context, ref Ref, dst string) error {
	u := s.URL(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	cli := s.Client
	if cli == nil {
		cli = http.DefaultClient
	}
	start := time.Now()
	s.Logger.Info().Str("artifact", ref.String()).Str("url", u).Msg("download start")
	resp, err := cli.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", ref, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return notFoundError{ref: ref, status: resp.Status}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("download %s: %s: %s", ref, resp.Status, strings.TrimSpace(string(b)))
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".partial*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	pw := &progressWriter{
		log:   s.Logger,
		ref:   ref.String(),
		total: resp.ContentLength,
		every: s.ProgressEvery,
		last:  start,
	}
	if pw.every <= 0 {
		pw.every = 10 * time.Second
	}
	n, err := io.Copy(io.MultiWriter(tmp, pw), resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("download %s: %w", ref, err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return fmt.Errorf("download %s: short body %d/%d bytes", ref, n, resp.ContentLength)
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := CheckMagic(tmpName); err != nil {
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("commit %s: %w", dst, err)
	}
	committed = true
	s.Logger.Info().Str("artifact", ref.String()).Int64("bytes", n).
		Dur("dur", time.Since(start)).Str("path", dst).Msg("download done")
	return nil
}

// CheckMagic verifies that the file at p starts with the GGUF magic.
func CheckMagic(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	head := make([]byte, len(ggufMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return badFormatError{path: p, reason: "file too short for GGUF header"}
	}
	if !bytes.Equal(head, ggufMagic) {
		return badFormatError{path: p, reason: "missing GGUF magic"}
	}
	return nil
}

// progressWriter logs download progress at most once per interval.
type progressWriter struct {
	log   zerolog.Logger
	ref   string
	total int64
	done  int64
	every time.Duration
	last  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.done += int64(len(p))
	if now := time.Now(); now.Sub(pw.last) >= pw.every {
		pw.last = now
		ev := pw.log.Info().Str("artifact", pw.ref).Int64("bytes", pw.done)
		if pw.total > 0 {
			ev = ev.Float64("pct", float64(pw.done)*100/float64(pw.total))
		}
		ev.Msg("download progress")
	}
	return len(p), nil
}
