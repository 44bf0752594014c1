// Package vault implements the content-addressed store: it gives a Hash a
// canonical on-disk location and ingests master bytes into it atomically.
package vault

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/Rakshat28/imprint"
	"golang.org/x/xerrors"
)

// TempSuffix is the staging suffix used while ingesting a master into the
// vault. No file ending in this suffix is ever visible at rest.
const TempSuffix = ".imprint_tmp"

const copyBufSize = 128 * 1024

// Vault is a shard-layout content-addressed store rooted at Root.
type Vault struct {
	Root string
}

// New returns a Vault rooted at root. root need not exist yet.
func New(root string) *Vault {
	return &Vault{Root: root}
}

// ShardPath returns the canonical on-disk location for h:
// <root>/<hex[0:2]>/<hex[2:4]>/<hex>. It is deterministic and side-effect-free.
func (v *Vault) ShardPath(h imprint.Hash) string {
	hex := h.String()
	return filepath.Join(v.Root, hex[0:2], hex[2:4], hex)
}

// EnsureInVault makes h's master available in the vault, moving src's bytes
// into it if it is not already there. On return, the vault file at
// ShardPath(h) exists and src no longer exists as an independent file
// (unless the vault already held h, in which case src is left untouched —
// callers must check for that edge case themselves, as the dedupe
// orchestrator's paranoid mode does).
func (v *Vault) EnsureInVault(h imprint.Hash, src string) (string, error) {
	shardPath := v.ShardPath(h)
	if _, err := os.Stat(shardPath); err == nil {
		return shardPath, nil
	} else if !os.IsNotExist(err) {
		return "", xerrors.Errorf("stat %s: %w", shardPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(shardPath), 0755); err != nil {
		return "", xerrors.Errorf("mkdir %s: %w", filepath.Dir(shardPath), err)
	}

	temp := shardPath + TempSuffix
	staged := false
	defer func() {
		if !staged {
			os.Remove(temp)
		}
	}()

	usedCopy := false
	if err := os.Rename(src, temp); err != nil {
		if !isCrossDevice(err) {
			return "", xerrors.Errorf("stage %s: %w", src, err)
		}
		if err := copyFile(src, temp); err != nil {
			return "", xerrors.Errorf("copy %s to vault: %w", src, err)
		}
		usedCopy = true
	}

	if err := os.Rename(temp, shardPath); err != nil {
		return "", xerrors.Errorf("ingest %s: %w", shardPath, err)
	}
	staged = true // temp no longer exists under its staging name; nothing left to clean up

	if usedCopy {
		if err := os.Remove(src); err != nil {
			return "", xerrors.Errorf("remove %s after copy-ingest: %w", src, err)
		}
	}

	return shardPath, nil
}

// Relinquish reverses EnsureInVault: it moves h's master back out to dest
// and prunes the now-empty shard directories. Used by the dedupe
// orchestrator to roll a vault ingest back when no tree file could actually
// reference the master (reflink unsupported and hardlink fallback not
// allowed).
func (v *Vault) Relinquish(h imprint.Hash, dest string) error {
	shardPath := v.ShardPath(h)
	if err := os.Rename(shardPath, dest); err != nil {
		if !isCrossDevice(err) {
			return xerrors.Errorf("relinquish %s: %w", shardPath, err)
		}
		if err := copyFile(shardPath, dest); err != nil {
			return xerrors.Errorf("relinquish copy %s: %w", shardPath, err)
		}
		if err := os.Remove(shardPath); err != nil {
			return xerrors.Errorf("relinquish cleanup %s: %w", shardPath, err)
		}
	}
	return v.RemoveFromVault(h)
}

// RemoveFromVault removes h's master file and, best-effort, the two shard
// directories if they are now empty. Failure to remove a non-empty shard
// directory is not an error.
func (v *Vault) RemoveFromVault(h imprint.Hash) error {
	shardPath := v.ShardPath(h)
	if err := os.Remove(shardPath); err != nil && !os.IsNotExist(err) {
		return xerrors.Errorf("remove vault master %s: %w", shardPath, err)
	}
	leaf := filepath.Dir(shardPath)
	os.Remove(leaf) // ignore error: non-empty or already gone
	os.Remove(filepath.Dir(leaf))
	return nil
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return linkErr.Err == syscall.EXDEV
	}
	return false
}

func copyFile(src, dst string) error {
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

	buf := make([]byte, copyBufSize)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		return err
	}
	return out.Sync()
}
