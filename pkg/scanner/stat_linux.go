//go:build linux

package scanner

import (
	"os"
	"syscall"
	"time"
)

// fileIdentity extracts the (inode, device) pair that identifies a file
// across renames on the same filesystem.
func fileIdentity(info os.FileInfo) (uint64, uint64) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Ino, uint64(st.Dev)
	}
	return 0, 0
}

// fileTimes returns the change time and creation time. Linux does not expose
// a creation time through stat, so the change time stands in for it.
func fileTimes(info os.FileInfo) (time.Time, time.Time) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		ctime := time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
		return ctime, ctime
	}
	return info.ModTime(), info.ModTime()
}
