// Package mediafile classifies library files by extension and carries the
// lightweight file descriptors that the scanner groups into library items.
package mediafile

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Kind is the coarse classification of a file inside a library folder.
type Kind string

const (
	KindAudio    Kind = "audio"
	KindEbook    Kind = "ebook"
	KindImage    Kind = "image"
	KindText     Kind = "text"
	KindMetadata Kind = "metadata"
	KindUnknown  Kind = "unknown"
)

var audioExtensions = map[string]struct{}{
	".m4b": {}, ".mp3": {}, ".m4a": {}, ".flac": {}, ".opus": {}, ".ogg": {},
	".oga": {}, ".mp4": {}, ".aac": {}, ".wma": {}, ".aiff": {}, ".wav": {},
	".webm": {}, ".webma": {}, ".mka": {}, ".awb": {},
}

var ebookExtensions = map[string]struct{}{
	".epub": {}, ".pdf": {}, ".mobi": {}, ".azw3": {}, ".cbr": {}, ".cbz": {},
}

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".webp": {},
}

var textExtensions = map[string]struct{}{
	".txt": {}, ".nfo": {},
}

var metadataExtensions = map[string]struct{}{
	".opf": {}, ".abs": {}, ".xml": {},
}

// MetadataJSONFilename is the conventionally-named JSON sidecar.
const MetadataJSONFilename = "metadata.json"

// discFolderRE matches disc/CD subfolder names such as "CD 1", "disk 002", or
// "Disc12". These folders merge into their parent item instead of forming one.
var discFolderRE = regexp.MustCompile(`(?i)^(cd|dis[ck])\s*\d{1,3}$`)

// IsDiscFolder reports whether a directory name denotes a disc/CD subfolder.
func IsDiscFolder(name string) bool {
	return discFolderRE.MatchString(name)
}

// Classify returns the Kind of a file based on its name. metadata.json is
// recognized by full name; everything else goes by extension.
func Classify(filename string) Kind {
	if strings.EqualFold(filepath.Base(filename), MetadataJSONFilename) {
		return KindMetadata
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case IsAudio(ext):
		return KindAudio
	case IsEbook(ext):
		return KindEbook
	case IsImage(ext):
		return KindImage
	case IsText(ext):
		return KindText
	case IsMetadataSidecar(ext):
		return KindMetadata
	}
	return KindUnknown
}

// IsAudio reports whether ext (with leading dot, any case) is a supported
// audio extension.
func IsAudio(ext string) bool {
	_, ok := audioExtensions[strings.ToLower(ext)]
	return ok
}

// IsEbook reports whether ext is a supported ebook extension.
func IsEbook(ext string) bool {
	_, ok := ebookExtensions[strings.ToLower(ext)]
	return ok
}

// IsImage reports whether ext is a supported image extension.
func IsImage(ext string) bool {
	_, ok := imageExtensions[strings.ToLower(ext)]
	return ok
}

// IsText reports whether ext is a text file extension (txt/nfo).
func IsText(ext string) bool {
	_, ok := textExtensions[strings.ToLower(ext)]
	return ok
}

// IsMetadataSidecar reports whether ext is a metadata sidecar extension.
func IsMetadataSidecar(ext string) bool {
	_, ok := metadataExtensions[strings.ToLower(ext)]
	return ok
}

// IsMedia reports whether a file is a primary media file for the given media
// kind: audio always, ebooks only for book libraries.
func IsMedia(filename string, booksAllowEbooks bool) bool {
	kind := Classify(filename)
	if kind == KindAudio {
		return true
	}
	return kind == KindEbook && booksAllowEbooks
}

// FileInfo describes one file discovered under a library folder, relative to
// that folder's root.
type FileInfo struct {
	RelDirPath string // directory path relative to the library folder, "" for root
	Filename   string
	Extension  string // with leading dot, lowercased
	Depth      int    // number of directory components in RelDirPath
}

// RelPath returns the file's path relative to the library folder.
func (fi FileInfo) RelPath() string {
	if fi.RelDirPath == "" {
		return fi.Filename
	}
	return fi.RelDirPath + "/" + fi.Filename
}

// NewFileInfo builds a FileInfo from a slash-separated relative file path.
func NewFileInfo(relPath string) FileInfo {
	relPath = filepath.ToSlash(relPath)
	dir := ""
	depth := 0
	if idx := strings.LastIndex(relPath, "/"); idx >= 0 {
		dir = relPath[:idx]
		depth = strings.Count(dir, "/") + 1
	}
	filename := relPath[strings.LastIndex(relPath, "/")+1:]
	return FileInfo{
		RelDirPath: dir,
		Filename:   filename,
		Extension:  strings.ToLower(filepath.Ext(filename)),
		Depth:      depth,
	}
}

// HasHiddenSegment reports whether any path component of relPath starts with
// a dot. Hidden segments are excluded from scanning entirely.
func HasHiddenSegment(relPath string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(relPath), "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
