//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package core

import "os"

// Access time is not portable here; the modification time stands in for it.
func lstatTimes(path string) (int64, float64, float64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, 0, 0, err
	}
	mtime := float64(info.ModTime().UnixNano()) / 1e9
	return info.Size(), mtime, mtime, nil
}
