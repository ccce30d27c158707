//go:build darwin || netbsd

package core

import (
	"os"

	"golang.org/x/sys/unix"
)

func lstatTimes(path string) (int64, float64, float64, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, 0, 0, &os.PathError{Op: "lstat", Path: path, Err: err}
	}
	return st.Size, timespecSeconds(st.Mtimespec), timespecSeconds(st.Atimespec), nil
}

func timespecSeconds(ts unix.Timespec) float64 {
	return float64(ts.Nano()) / 1e9
}
