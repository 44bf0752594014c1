// Package linkengine replaces a tree file with a space-sharing reference to
// a vault master (reflink by preference, hard link by explicit opt-in),
// restores an independent byte copy, and compares files byte-for-byte.
package linkengine

import (
	"bytes"
	"errors"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/xerrors"
)

// TempSuffix is the staging suffix used while replacing or restoring a
// target file. No file ending in this suffix is ever exposed as a logical
// file.
const TempSuffix = ".imprint_tmp"

const ioBufSize = 128 * 1024

// LinkType identifies which kind of space-sharing reference ReplaceWithLink
// created.
type LinkType int

const (
	Reflink LinkType = iota
	HardLink
)

func (t LinkType) String() string {
	switch t {
	case Reflink:
		return "REFLINK"
	case HardLink:
		return "HARDLINK"
	default:
		return "UNKNOWN"
	}
}

// ErrReflinkUnsupported is returned by ReplaceWithLink when the filesystem
// does not support copy-on-write reflinks and the caller did not opt into
// the hard-link fallback. It is a capability gap, not a per-file error: the
// caller is expected to roll the vault master back out and skip the group.
var ErrReflinkUnsupported = errors.New("imprint: reflink not supported and hardlink fallback not allowed")

// metadataSnapshot captures the user-observable metadata ReplaceWithLink and
// RestoreFile must preserve across the swap.
type metadataSnapshot struct {
	mode   os.FileMode
	mtime  time.Time
	xattrs map[string][]byte
}

func snapshotMetadata(path string) (metadataSnapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return metadataSnapshot{}, xerrors.Errorf("stat %s: %w", path, err)
	}
	return metadataSnapshot{
		mode:   info.Mode(),
		mtime:  info.ModTime(),
		xattrs: listXattrs(path),
	}, nil
}

// applyMetadata re-applies a snapshot to path: permissions first, then
// mtime, then each xattr. A failed xattr is silently ignored — portability
// across filesystems with differing xattr namespaces matters more here than
// completeness.
func applyMetadata(path string, snap metadataSnapshot) {
	_ = os.Chmod(path, snap.mode)
	_ = os.Chtimes(path, snap.mtime, snap.mtime)
	for name, value := range snap.xattrs {
		_ = setXattr(path, name, value)
	}
}

// CompareFiles reports whether a and b have byte-identical contents. It
// reads both in synchronized buffers and returns false at the first
// size-or-content disagreement.
func CompareFiles(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, xerrors.Errorf("compare %s: %w", a, err)
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, xerrors.Errorf("compare %s: %w", b, err)
	}
	defer fb.Close()

	bufA := make([]byte, ioBufSize)
	bufB := make([]byte, ioBufSize)
	for {
		na, erra := io.ReadFull(fa, bufA)
		nb, errb := io.ReadFull(fb, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}

		doneA := erra == io.EOF || erra == io.ErrUnexpectedEOF
		doneB := errb == io.EOF || errb == io.ErrUnexpectedEOF
		if doneA != doneB {
			return false, nil
		}
		if doneA {
			return true, nil
		}
		if erra != nil {
			return false, xerrors.Errorf("compare %s: %w", a, erra)
		}
		if errb != nil {
			return false, xerrors.Errorf("compare %s: %w", b, errb)
		}
	}
}

// ReplaceWithLink swaps target for a space-sharing reference to master. If
// master and target are the same path, it is a same-path short-circuit:
// no I/O is performed and (nil, nil) is returned.
//
// A reflink is attempted first. If it fails and allowUnsafeHardlinks is
// false, ReplaceWithLink fails with ErrReflinkUnsupported and target is left
// untouched. If allowUnsafeHardlinks is true, a hard link is created
// instead.
//
// If target does not exist (its bytes were just moved into the vault as
// master), the metadata re-applied to the new target is taken from master.
func ReplaceWithLink(master, target string, allowUnsafeHardlinks bool) (*LinkType, error) {
	if master == target {
		return nil, nil
	}

	metaSrc := target
	if _, err := os.Lstat(target); os.IsNotExist(err) {
		metaSrc = master
	}
	snap, err := snapshotMetadata(metaSrc)
	if err != nil {
		return nil, err
	}

	temp := target + TempSuffix
	os.Remove(temp) // clear any stale staging file from a prior crash

	renamed := false
	defer func() {
		if !renamed {
			os.Remove(temp)
		}
	}()

	var linkType LinkType
	if err := reflink(master, temp); err == nil {
		linkType = Reflink
	} else {
		os.Remove(temp)
		if !allowUnsafeHardlinks {
			return nil, ErrReflinkUnsupported
		}
		if err := os.Link(master, temp); err != nil {
			return nil, xerrors.Errorf("hardlink %s to %s: %w", master, temp, err)
		}
		linkType = HardLink
	}

	if err := os.Rename(temp, target); err != nil {
		return nil, xerrors.Errorf("replace %s: %w", target, err)
	}
	renamed = true

	applyMetadata(target, snap)

	return &linkType, nil
}

// RestoreFile rehydrates target into an independent byte copy, breaking any
// reflink or hardlink sharing it had with a vault master.
func RestoreFile(target string) error {
	snap, err := snapshotMetadata(target)
	if err != nil {
		return err
	}

	temp := target + TempSuffix
	os.Remove(temp)

	renamed := false
	defer func() {
		if !renamed {
			os.Remove(temp)
		}
	}()

	if err := copyBytes(target, temp); err != nil {
		return xerrors.Errorf("restore copy %s: %w", target, err)
	}
	if err := os.Rename(temp, target); err != nil {
		return xerrors.Errorf("restore rename %s: %w", target, err)
	}
	renamed = true

	applyMetadata(target, snap)

	return nil
}

func copyBytes(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	buf := make([]byte, ioBufSize)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		return err
	}
	return out.Sync()
}

// Inode returns the inode number of the file at path.
func Inode(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, xerrors.Errorf("stat %s: %w", path, err)
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, xerrors.Errorf("stat %s: no inode information available on this platform", path)
	}
	return stat.Ino, nil
}
