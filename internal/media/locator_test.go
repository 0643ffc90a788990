package media_test

import (
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/internal/media"
)

func newLocator(t *testing.T) *media.Locator {
	t.Helper()
	l, err := media.NewLocator(t.TempDir(), media.DefaultPrefix)
	require.NoError(t, err)
	return l
}

func TestResolve_InsideRoot(t *testing.T) {
	root := t.TempDir()

	got, ok := media.Resolve("/uploads/trips/x.jpg", root)

	require.True(t, ok)
	absRoot, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(absRoot, "trips", "x.jpg"), got)
	assert.True(t, strings.HasPrefix(got, absRoot+string(filepath.Separator)))
}

func TestResolve_TraversalRejected(t *testing.T) {
	root := t.TempDir()

	for _, url := range []string{
		"/uploads/../../etc/passwd",
		"/uploads/trips/../../secret.txt",
		"/uploads/..",
		"/uploads/",
		"/uploads/.",
	} {
		_, ok := media.Resolve(url, root)
		assert.False(t, ok, "expected %q to be rejected", url)
	}
}

func TestResolve_NonUploadURLRejected(t *testing.T) {
	root := t.TempDir()

	for _, url := range []string{
		"https://cdn.example.com/cover.jpg",
		"/static/logo.png",
		"uploads/trips/x.jpg",
		"",
	} {
		_, ok := media.Resolve(url, root)
		assert.False(t, ok, "expected %q to be rejected", url)
	}
}

func TestResolve_DotSegmentsStayingInside(t *testing.T) {
	l := newLocator(t)

	got, ok := l.Resolve("/uploads/trips/../covers/c.png")

	require.True(t, ok)
	assert.Equal(t, filepath.Join(l.Root(), "covers", "c.png"), got)
}

func TestLocator_ArchivePath(t *testing.T) {
	l := newLocator(t)

	got, ok := l.ArchivePath("/uploads/trips/photo-1.jpg")

	require.True(t, ok)
	assert.Equal(t, "media/trips/photo-1.jpg", got)
}

func TestLocator_ArchivePath_Traversal(t *testing.T) {
	l := newLocator(t)

	_, ok := l.ArchivePath("/uploads/../x.jpg")

	assert.False(t, ok)
}

func TestLocator_CustomPrefixWithoutSlash(t *testing.T) {
	l, err := media.NewLocator(t.TempDir(), "/files")
	require.NoError(t, err)

	assert.Equal(t, "/files/", l.Prefix())
	assert.True(t, l.IsUpload("/files/a.jpg"))
	assert.False(t, l.IsUpload("/filesystem/a.jpg"))
	assert.Equal(t, "/files/trips/a.jpg", l.URL("trips/a.jpg"))
}

func TestNewLocator_EmptyRoot(t *testing.T) {
	_, err := media.NewLocator("", media.DefaultPrefix)

	assert.Error(t, err)
}

func TestUploadName_FollowsConvention(t *testing.T) {
	now := time.UnixMilli(1760000000000)

	got := media.UploadName("trips/photo-1.JPG", now)

	assert.Regexp(t, regexp.MustCompile(`^trips/photo-1760000000000-[0-9a-f]{12}\.jpg$`), got)
}

func TestUploadName_NoPrefix(t *testing.T) {
	got := media.UploadName("-x.mp4", time.UnixMilli(1))

	assert.Regexp(t, regexp.MustCompile(`^media-1-[0-9a-f]{12}\.mp4$`), got)
}

func TestUploadName_Unique(t *testing.T) {
	now := time.Now()

	assert.NotEqual(t, media.UploadName("a.jpg", now), media.UploadName("a.jpg", now))
}
