// Package identity computes the two hashes the pipeline uses to decide
// which files are duplicate candidates and which are confirmed duplicates.
package identity

import (
	"crypto/sha256"
	"io"
	"os"

	"github.com/Rakshat28/imprint"
	"golang.org/x/xerrors"
)

const (
	sparseWindow  = 4096       // one sampled window, in bytes
	sparseTotal   = 12 * 1024  // size at or below which sparse_hash == full_hash
	fullReadBufSz = 128 * 1024 // streaming read buffer for full_hash
)

// SparseHash computes a fast, partial fingerprint of the file at path, whose
// size the caller has already measured. Files at or below sparseTotal are
// fully hashed; larger files are sampled at three fixed windows (head,
// middle, tail) fed into a single streaming hash in that order.
//
// The result is a candidate fingerprint, not proof of equality: two files
// can share a sparse hash and differ elsewhere.
func SparseHash(path string, size int64) (imprint.Hash, error) {
	if size <= sparseTotal {
		return FullHash(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return imprint.Hash{}, xerrors.Errorf("sparse hash %s: %w", path, err)
	}
	defer f.Close()

	mid := size/2 - sparseWindow/2
	if mid < 0 {
		mid = 0
	}
	mid = probeMiddleOffset(f, mid, size)

	h := sha256.New()
	for _, off := range []int64{0, mid, size - sparseWindow} {
		if err := copyWindow(h, f, off, sparseWindow); err != nil {
			return imprint.Hash{}, xerrors.Errorf("sparse hash %s: %w", path, err)
		}
	}

	var out imprint.Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}

func copyWindow(dst io.Writer, f *os.File, off, n int64) error {
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return err
	}
	_, err := io.CopyN(dst, f, n)
	return err
}

// FullHash computes a streaming cryptographic hash over the entire contents
// of the file at path.
func FullHash(path string) (imprint.Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return imprint.Hash{}, xerrors.Errorf("full hash %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, fullReadBufSz)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return imprint.Hash{}, xerrors.Errorf("full hash %s: %w", path, err)
	}

	var out imprint.Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}
