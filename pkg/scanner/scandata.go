package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hondanabooks/hondana/pkg/mediafile"
	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// ignoreFilename marks a directory (and everything under it) as excluded
// from scanning.
const ignoreFilename = ".ignore"

// FileData is one scanned file with its filesystem identity and timestamps.
type FileData struct {
	Path        string // absolute
	RelPath     string // relative to the library folder, slash-separated
	Filename    string
	Ext         string
	Ino         uint64
	DeviceID    uint64
	Size        int64
	MTimeMs     int64
	CTimeMs     int64
	BirthTimeMs int64
}

// ScanData is one candidate item discovered on disk: either a folder with
// its member files, or a single root-level media file.
type ScanData struct {
	LibraryFolderID int
	Path            string // absolute item path
	RelPath         string
	IsFile          bool
	Ino             uint64
	DeviceID        uint64
	MTime           time.Time
	CTime           time.Time
	BirthTime       time.Time
	Files           []FileData
}

// AudioFiles returns the scanned audio files, sorted by relative path.
func (sd *ScanData) AudioFiles() []FileData {
	var audio []FileData
	for _, f := range sd.Files {
		if mediafile.Classify(f.Filename) == mediafile.KindAudio {
			audio = append(audio, f)
		}
	}
	return audio
}

// HasMediaFiles reports whether the scan data contains at least one audio or
// ebook file.
func (sd *ScanData) HasMediaFiles() bool {
	for _, f := range sd.Files {
		kind := mediafile.Classify(f.Filename)
		if kind == mediafile.KindAudio || kind == mediafile.KindEbook {
			return true
		}
	}
	return false
}

// ScanFolder walks one library folder and returns the candidate items found
// under it, grouped and stat-ed, sorted by relative path. Item groups whose
// path can no longer be stat-ed are logged and skipped; the rest of the
// folder still scans.
func ScanFolder(ctx context.Context, folder *models.LibraryFolder, booksAllowEbooks bool) ([]*ScanData, error) {
	files, err := collectFiles(folder.Path)
	if err != nil {
		return nil, err
	}
	groups := GroupFiles(files, booksAllowEbooks)

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	scanned := make([]*ScanData, 0, len(keys))
	for _, key := range keys {
		sd, err := buildScanData(ctx, folder, key, groups[key])
		if err != nil {
			logger.FromContext(ctx).Err(err).Warn("item group skipped", logger.Data{
				"library_folder_id": folder.ID,
				"rel_path":          key,
			})
			continue
		}
		scanned = append(scanned, sd)
	}
	return scanned, nil
}

// collectFiles lists every file under root, skipping hidden segments and any
// directory containing a .ignore file.
func collectFiles(root string) ([]mediafile.FileInfo, error) {
	var files []mediafile.FileInfo
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.WithStack(err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return errors.WithStack(err)
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			// A .ignore at the folder root excludes the whole folder.
			if _, statErr := os.Stat(filepath.Join(p, ignoreFilename)); statErr == nil {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if filepath.Base(p)[0] == '.' {
				return filepath.SkipDir
			}
			if _, statErr := os.Stat(filepath.Join(p, ignoreFilename)); statErr == nil {
				return filepath.SkipDir
			}
			return nil
		}
		if mediafile.HasHiddenSegment(rel) {
			return nil
		}
		files = append(files, mediafile.NewFileInfo(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func buildScanData(ctx context.Context, folder *models.LibraryFolder, itemRelPath string, memberRelPaths []string) (*ScanData, error) {
	itemPath := filepath.Join(folder.Path, filepath.FromSlash(itemRelPath))
	info, err := os.Stat(itemPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	ino, dev := fileIdentity(info)
	ctime, birthtime := fileTimes(info)
	sd := &ScanData{
		LibraryFolderID: folder.ID,
		Path:            filepath.ToSlash(itemPath),
		RelPath:         itemRelPath,
		IsFile:          !info.IsDir(),
		Ino:             ino,
		DeviceID:        dev,
		MTime:           info.ModTime(),
		CTime:           ctime,
		BirthTime:       birthtime,
	}

	for _, rel := range memberRelPaths {
		p := filepath.Join(folder.Path, filepath.FromSlash(rel))
		fi, err := os.Stat(p)
		if err != nil {
			// One unreadable member (a dangling symlink, a file deleted
			// mid-walk) doesn't invalidate the item.
			logger.FromContext(ctx).Err(err).Warn("member file skipped", logger.Data{
				"library_folder_id": folder.ID,
				"rel_path":          rel,
			})
			continue
		}
		fino, fdev := fileIdentity(fi)
		fctime, fbirth := fileTimes(fi)
		sd.Files = append(sd.Files, FileData{
			Path:        filepath.ToSlash(p),
			RelPath:     rel,
			Filename:    filepath.Base(rel),
			Ext:         mediafile.NewFileInfo(rel).Extension,
			Ino:         fino,
			DeviceID:    fdev,
			Size:        fi.Size(),
			MTimeMs:     fi.ModTime().UnixMilli(),
			CTimeMs:     fctime.UnixMilli(),
			BirthTimeMs: fbirth.UnixMilli(),
		})
	}
	return sd, nil
}
