package scanner

import "github.com/hondanabooks/hondana/pkg/models"

// Item and file matching is path-first with an (inode, device) fallback, so
// renames and moves within a filesystem keep their catalog identity. An
// inode alone never matches; inode numbers are recycled and only mean
// anything paired with their device.

// MatchItem finds the scan data for an existing item, preferring an exact
// path match over filesystem identity.
func MatchItem(item *models.LibraryItem, pool []*ScanData) *ScanData {
	for _, sd := range pool {
		if sd.Path == item.Path {
			return sd
		}
	}
	for _, sd := range pool {
		if identityEqual(sd.Ino, sd.DeviceID, item.Ino, item.DeviceID) && sd.IsFile == item.IsFile {
			return sd
		}
	}
	return nil
}

// filePool hands out scanned files to the reconciler, each at most once.
type filePool struct {
	files   []FileData
	claimed []bool
}

func newFilePool(files []FileData) *filePool {
	return &filePool{files: files, claimed: make([]bool, len(files))}
}

// take finds the scanned counterpart of a stored file, path-first then by
// identity, and removes it from the pool.
func (p *filePool) take(stored *models.LibraryFile) *FileData {
	for i := range p.files {
		if !p.claimed[i] && p.files[i].Path == stored.Path {
			p.claimed[i] = true
			return &p.files[i]
		}
	}
	for i := range p.files {
		if !p.claimed[i] && identityEqual(p.files[i].Ino, p.files[i].DeviceID, stored.Ino, stored.DeviceID) {
			p.claimed[i] = true
			return &p.files[i]
		}
	}
	return nil
}

// remaining returns the scanned files no stored file claimed.
func (p *filePool) remaining() []FileData {
	var rest []FileData
	for i := range p.files {
		if !p.claimed[i] {
			rest = append(rest, p.files[i])
		}
	}
	return rest
}

func identityEqual(ino, dev, otherIno, otherDev uint64) bool {
	if ino == 0 {
		return false
	}
	return ino == otherIno && dev == otherDev
}
