//go:build !linux

// pkg/extent/device_other.go
//
// Non-Linux stubs: regular files only, Sync as the barrier, no block
// device support.

package extent

import (
	"os"

	cerr "github.com/cockroachdb/errors"
)

func openNoFollow(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}

func datasync(f *os.File) error {
	return f.Sync()
}

func blockDeviceSize(f *os.File) (int64, error) {
	return 0, cerr.New("block devices are only supported on Linux")
}

func discardBlockDevice(path string) error {
	return cerr.New("block devices are only supported on Linux")
}
