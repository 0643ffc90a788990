// Package media maps public media URLs onto files under the upload root.
// Every filesystem path the archive subsystem reads or writes goes through a
// Locator, which guarantees the path stays inside the root.
package media

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPrefix is the public URL prefix uploads are served under.
const DefaultPrefix = "/uploads/"

// ArchiveDir is the directory inside an archive that holds media files.
const ArchiveDir = "media/"

// Locator resolves media URLs against one upload root.
type Locator struct {
	root   string
	prefix string
}

// NewLocator returns a Locator for the given upload root and public prefix.
// The root is made absolute once so every later check is lexical only.
func NewLocator(root, prefix string) (*Locator, error) {
	if root == "" {
		return nil, fmt.Errorf("media.NewLocator: upload root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("media.NewLocator: %w", err)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Locator{root: filepath.Clean(abs), prefix: prefix}, nil
}

// Resolve is the package-level form of Locator.Resolve using DefaultPrefix.
func Resolve(url, uploadRoot string) (string, bool) {
	l, err := NewLocator(uploadRoot, DefaultPrefix)
	if err != nil {
		return "", false
	}
	return l.Resolve(url)
}

// Root returns the absolute upload root.
func (l *Locator) Root() string { return l.root }

// Prefix returns the public URL prefix, always ending in "/".
func (l *Locator) Prefix() string { return l.prefix }

// IsUpload reports whether url is under the public upload prefix.
// URLs that are not (external cover images, data URIs) are not media files.
func (l *Locator) IsUpload(url string) bool {
	return strings.HasPrefix(url, l.prefix)
}

// Resolve returns the absolute path of the file behind url.
// It returns false for URLs outside the upload prefix and for URLs whose
// path escapes the upload root.
func (l *Locator) Resolve(url string) (string, bool) {
	rel, ok := l.relative(url)
	if !ok {
		return "", false
	}
	return filepath.Join(l.root, filepath.FromSlash(rel)), true
}

// ArchivePath returns the archive entry name for url, e.g.
// "/uploads/trips/a.jpg" becomes "media/trips/a.jpg".
func (l *Locator) ArchivePath(url string) (string, bool) {
	rel, ok := l.relative(url)
	if !ok {
		return "", false
	}
	return ArchiveDir + rel, true
}

// URL builds the public URL for a slash-separated path relative to the root.
func (l *Locator) URL(rel string) string {
	return l.prefix + strings.TrimPrefix(rel, "/")
}

// relative returns the cleaned, slash-separated path of url below the root.
func (l *Locator) relative(url string) (string, bool) {
	if !l.IsUpload(url) {
		return "", false
	}
	rest := strings.TrimPrefix(url, l.prefix)
	if rest == "" || strings.ContainsRune(rest, 0) {
		return "", false
	}

	full := filepath.Join(l.root, filepath.FromSlash(rest))
	rel, err := filepath.Rel(l.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// UploadName returns a fresh file name for an upload that was originally
// called name, following the upload naming convention prefix-timestamp-random.
// "photo-1.jpg" becomes something like "photo-1760000000000-3f9a1c2b7d4e.jpg".
// The directory part of name, if any, is preserved.
func UploadName(name string, now time.Time) string {
	dir, base := path.Split(name)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	prefix, _, _ := strings.Cut(stem, "-")
	if prefix == "" {
		prefix = "media"
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s%s-%d-%s%s", dir, prefix, now.UnixMilli(), random, strings.ToLower(ext))
}
