//go:build !linux

package scanner

import (
	"os"
	"time"
)

// fileIdentity has no portable implementation off Linux; items fall back to
// path-only matching when both values are zero.
func fileIdentity(info os.FileInfo) (uint64, uint64) {
	return 0, 0
}

func fileTimes(info os.FileInfo) (time.Time, time.Time) {
	return info.ModTime(), info.ModTime()
}
