//go:build linux

package fetch

import "syscall"

// freeSpaceOS reports bytes free on the filesystem backing path, used by
// Pool.overBudget's disk-reserve backpressure check (spec.md §4.4). No
// library in the dependency set wraps statfs, and the syscall is a
// single-platform, single-call stdlib primitive -- not worth a dependency.
func freeSpaceOS(path string) (int64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
