//go:build !linux

package fetch

// freeSpaceOS is unimplemented outside Linux; callers treat a non-nil error
// as "unknown" and skip the disk-reserve check rather than fail the run.
func freeSpaceOS(path string) (int64, error) {
	return 0, errUnsupportedPlatform
}
