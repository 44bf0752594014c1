//go:build linux

package identity

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// FS_IOC_FIEMAP, from linux/fs.h / linux/fiemap.h: _IOWR('f', 11, struct fiemap).
const fsIocFiemap = 0xC020660B

// fiemap and fiemapExtent mirror struct fiemap / struct fiemap_extent from
// linux/fiemap.h. x/sys/unix does not wrap FIEMAP, so the ioctl is issued
// directly, the same way the teacher issues LOOP_* ioctls by hand.
type fiemap struct {
	Start         uint64
	Length        uint64
	Flags         uint32
	MappedExtents uint32
	ExtentCount   uint32
	Reserved      uint32
}

type fiemapExtent struct {
	Logical   uint64
	Physical  uint64
	Length    uint64
	Reserved1 [2]uint64
	Flags     uint32
	Reserved2 [3]uint32
}

// probeMiddleOffset biases mid into real data on sparse files: if mid falls
// inside an allocated extent it is used unchanged, otherwise it is advanced
// to the start of the next allocated extent (capped to size-sparseWindow).
// Any failure of the probe leaves mid unchanged.
func probeMiddleOffset(f *os.File, mid, size int64) int64 {
	capped := size - sparseWindow
	if capped < 0 {
		capped = 0
	}

	var req struct {
		fiemap
		extent fiemapExtent
	}
	req.Start = uint64(mid)
	req.Length = uint64(size - mid)
	req.ExtentCount = 1

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), fsIocFiemap, uintptr(unsafe.Pointer(&req)))
	if errno != 0 || req.MappedExtents == 0 {
		return mid
	}

	e := req.extent
	if uint64(mid) >= e.Logical && uint64(mid) < e.Logical+e.Length {
		return mid // mid is already inside allocated data
	}

	next := int64(e.Logical)
	if next > capped {
		next = capped
	}
	if next < mid {
		return mid
	}
	return next
}
