package crawler

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsafePathSegment is returned for a slug or id that would not stay a
// single directory entry below the day directory.
var ErrUnsafePathSegment = errors.New("unsafe path segment")

// csvExportMarker flags tag-based CSV exports (OpenDataSoft and CKAN style),
// whose last path segments are "download" plus the query, not a file name.
const csvExportMarker = "format=csv"

// CSVExtension is the only extension the downloader keeps.
const CSVExtension = "csv"

// DeriveFilename derives a local filename and its extension from a resource URL.
//
// For CSV export URLs the query is treated as its own trailing segment and
// the third-to-last segment plus ".csv" is used:
//
//	https://ods.example/explore/dataset/bornes/download/?format=csv -> bornes.csv
//	https://ckan.example/dataset/abc/resource/xyz/download?format=csv -> xyz.csv
//
// Otherwise the last "/" segment is used verbatim. The extension is whatever
// follows the final "." (the whole name when there is none).
func DeriveFilename(rawURL string) (string, string) {
	var filename string

	if strings.Contains(rawURL, csvExportMarker) {
		filename = exportName(rawURL) + "." + CSVExtension
	} else {
		segments := strings.Split(rawURL, "/")
		filename = segments[len(segments)-1]
	}

	return filename, Extension(filename)
}

func exportName(rawURL string) string {
	segments := strings.Split(rawURL, "/")

	if base, query, ok := strings.Cut(rawURL, "?"); ok {
		segments = strings.Split(strings.TrimRight(base, "/"), "/")
		segments = append(segments, "?"+query)
	}

	if len(segments) < 3 {
		return segments[0]
	}

	return segments[len(segments)-3]
}

// Extension returns the text after the final "." of filename.
func Extension(filename string) string {
	return filename[strings.LastIndex(filename, ".")+1:]
}

// IsCSV reports whether a derived extension selects the resource for download.
// The comparison is case-sensitive.
func IsCSV(ext string) bool {
	return ext == CSVExtension
}

// ResourcePath returns {dayDir}/{datasetSlug}/{resourceID}.{ext}.
func ResourcePath(dayDir, datasetSlug, resourceID, ext string) string {
	return filepath.Join(dayDir, datasetSlug, resourceID+"."+ext)
}

// CheckPathSegment rejects catalog values that cannot be used verbatim as
// one path element: empty, "." or "..", or containing a separator or "..".
func CheckPathSegment(segment string) error {
	if segment == "" || segment == "." ||
		strings.Contains(segment, "..") ||
		strings.ContainsAny(segment, `/\`) {
		return fmt.Errorf("%w: %q", ErrUnsafePathSegment, segment)
	}

	return nil
}
