//go:build linux

package linkengine

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// reflink creates dst as a copy-on-write clone of src using the FICLONE
// ioctl. It fails with a wrapped syscall error on any filesystem that does
// not implement the clone operation (ext4 without reflink support, NFS,
// cross-filesystem pairs, and so on) — the caller treats that as a
// capability gap, not a fatal error.
func reflink(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return xerrors.Errorf("reflink open src %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return xerrors.Errorf("reflink open dst %s: %w", dst, err)
	}
	defer out.Close()

	if err := unix.IoctlFileClone(int(out.Fd()), int(in.Fd())); err != nil {
		return xerrors.Errorf("FICLONE %s from %s: %w", dst, src, err)
	}
	return nil
}
