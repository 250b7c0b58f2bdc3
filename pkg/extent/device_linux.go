//go:build linux

// pkg/extent/device_linux.go
//
// Linux storage primitives: O_NOFOLLOW opens, fdatasync barriers, and the
// BLKGETSIZE64/BLKDISCARD ioctls for block devices.

package extent

import (
	"os"
	"unsafe"

	cerr "github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// openNoFollow opens path read-write without following a symlink leaf.
func openNoFollow(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR|unix.O_NOFOLLOW, 0)
}

// datasync flushes file data without forcing a metadata update, which is
// all a pass barrier needs.
func datasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}

// blockDeviceSize reads the device length via BLKGETSIZE64.
func blockDeviceSize(f *os.File) (int64, error) {
	size, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKGETSIZE64)
	if err != nil {
		return 0, err
	}
	return int64(size), nil
}

// discardBlockDevice issues BLKDISCARD over the whole device, the block
// analog of unlinking a file after the final pass.
func discardBlockDevice(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NOFOLLOW, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	size, err := blockDeviceSize(f)
	if err != nil {
		return err
	}
	if size == 0 {
		return nil
	}

	rng := [2]uint64{0, uint64(size)}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKDISCARD, uintptr(unsafe.Pointer(&rng[0])))
	if errno != 0 {
		return cerr.Wrapf(errno, "BLKDISCARD %s", path)
	}
	return nil
}
