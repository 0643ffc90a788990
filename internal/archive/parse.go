package archive

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/media"
)

// maxDocumentBytes bounds each JSON document read into memory.
const maxDocumentBytes = 64 << 20

// Parsed is a structurally valid archive. Aggregate keeps the identifiers and
// URLs exactly as exported; remapping happens at restore time.
type Parsed struct {
	Meta      Meta
	Aggregate domain.TripAggregate
	Media     []ArchivedMedia
}

// ArchivedMedia is a media entry inside the ZIP, keyed by its original URL.
type ArchivedMedia struct {
	URL  string
	Path string

	file *zip.File
}

// Open returns a reader over the entry's content.
func (m ArchivedMedia) Open() (io.ReadCloser, error) {
	return m.file.Open()
}

// Size is the uncompressed size recorded in the ZIP directory.
func (m ArchivedMedia) Size() int64 {
	return int64(m.file.UncompressedSize64)
}

// Counts are the row counts a restore of p would create.
func (p *Parsed) Counts() domain.Counts {
	return domain.Counts{
		Trip:    1,
		Entries: len(p.Aggregate.Entries),
		Tags:    len(p.Aggregate.Tags),
		Media:   p.Aggregate.MediaCount(),
	}
}

// Parse reads and validates the archive in r.
//
// Errors are typed: *domain.MalformedArchiveError for anything structurally
// wrong, *domain.UnsupportedVersionError for an unknown formatVersion and
// *domain.ArchiveMediaMissingError when a referenced upload has no media/
// entry. Parse reads the JSON documents only; media content is left in place
// and opened through Parsed.Media.
func Parse(r io.ReaderAt, size int64, loc *media.Locator) (*Parsed, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &domain.MalformedArchiveError{Reason: "not a readable zip archive", Err: err}
	}

	files := make(map[string]*zip.File, len(zr.File))
	var dups []string
	for _, f := range zr.File {
		if _, ok := files[f.Name]; ok {
			dups = append(dups, f.Name)
			continue
		}
		files[f.Name] = f
	}
	if len(dups) > 0 {
		return nil, &domain.MalformedArchiveError{Reason: "duplicate zip entries", Problems: dups}
	}

	var missing []string
	for _, name := range []string{MetaFile, TripFile, EntriesFile} {
		if files[name] == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.MalformedArchiveError{Reason: "missing required documents", Problems: missing}
	}

	rawMeta, err := readDocument(files[MetaFile])
	if err != nil {
		return nil, &domain.MalformedArchiveError{Reason: "unreadable " + MetaFile, Err: err}
	}
	var meta Meta
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return nil, &domain.MalformedArchiveError{Reason: MetaFile + " is not valid JSON", Err: err}
	}
	if meta.FormatVersion == "" {
		return nil, &domain.MalformedArchiveError{Reason: MetaFile + " has no formatVersion"}
	}
	sch, ok := schemas[meta.FormatVersion]
	if !ok {
		return nil, &domain.UnsupportedVersionError{Version: meta.FormatVersion, Supported: SupportedVersions()}
	}

	docs := rawDocuments{meta: meta}
	if docs.trip, err = readDocument(files[TripFile]); err != nil {
		return nil, &domain.MalformedArchiveError{Reason: "unreadable " + TripFile, Err: err}
	}
	if docs.entries, err = readDocument(files[EntriesFile]); err != nil {
		return nil, &domain.MalformedArchiveError{Reason: "unreadable " + EntriesFile, Err: err}
	}

	agg, problems := sch.decode(docs)
	if len(problems) > 0 {
		return nil, &domain.MalformedArchiveError{Reason: "invalid archive structure", Problems: problems}
	}

	archived, err := archivedMedia(agg, files, loc)
	if err != nil {
		return nil, err
	}
	if meta.MediaCount != len(archived) {
		return nil, &domain.MalformedArchiveError{
			Reason: "invalid archive structure",
			Problems: []string{fmt.Sprintf("%s: mediaCount is %d but the archive references %d media files",
				MetaFile, meta.MediaCount, len(archived))},
		}
	}

	return &Parsed{Meta: meta, Aggregate: agg, Media: archived}, nil
}

// archivedMedia pairs every distinct upload URL of agg with its media/ entry,
// in the same order Serialize builds the manifest.
func archivedMedia(agg domain.TripAggregate, files map[string]*zip.File, loc *media.Locator) ([]ArchivedMedia, error) {
	out := []ArchivedMedia{}
	seen := make(map[string]bool)
	var unsafe, missing []string

	add := func(url string) {
		if url == "" || !loc.IsUpload(url) || seen[url] {
			return
		}
		seen[url] = true
		path, ok := loc.ArchivePath(url)
		if !ok {
			unsafe = append(unsafe, url)
			return
		}
		f := files[path]
		if f == nil || f.FileInfo().IsDir() {
			missing = append(missing, path)
			return
		}
		out = append(out, ArchivedMedia{URL: url, Path: path, file: f})
	}

	add(deref(agg.Trip.CoverImageURL))
	for _, e := range agg.Entries {
		add(deref(e.Entry.CoverImageURL))
		for _, m := range e.Media {
			add(m.URL)
		}
	}

	if len(unsafe) > 0 {
		return nil, &domain.MalformedArchiveError{Reason: "media urls escape the upload root", Problems: unsafe}
	}
	if len(missing) > 0 {
		return nil, &domain.ArchiveMediaMissingError{Paths: missing}
	}
	return out, nil
}

func readDocument(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	body, err := io.ReadAll(io.LimitReader(rc, maxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxDocumentBytes {
		return nil, errors.New("document exceeds size limit")
	}
	return body, nil
}
