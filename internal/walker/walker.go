// Package walker streams absolute regular-file paths from a root directory,
// filtering out directories, symlinks, and staging files reserved for
// imprint's own atomic-rename protocol.
package walker

import (
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
)

// TempSuffix marks a path as reserved staging for imprint's atomic-rename
// protocol (vault ingest, link replacement, restore). Such paths must never
// be exposed as logical files.
const TempSuffix = ".imprint_tmp"

// Walk streams the absolute paths of regular files under root on paths,
// closing it when the walk completes. Errors on individual entries are
// logged and skipped; an error reading root itself is sent on errc and
// walking stops. skip, if non-nil, is called with each absolute path
// (including directories) and excludes it (and, for directories, its
// subtree) from the walk — used to keep a run from vaulting the vault it is
// writing into.
func Walk(root string, logger *log.Logger, skip func(path string) bool) (paths <-chan string, errc <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			errs <- xerrors.Errorf("walk %s: %w", root, err)
			return
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == absRoot {
					return err // root failure is fatal
				}
				logger.Printf("walk: skipping %s: %v", path, err)
				return nil
			}
			if skip != nil && skip(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if strings.HasSuffix(path, TempSuffix) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				logger.Printf("walk: skipping %s: %v", path, err)
				return nil
			}
			if info.Mode()&fs.ModeSymlink != 0 || !info.Mode().IsRegular() {
				return nil
			}
			out <- path
			return nil
		})
		if err != nil {
			errs <- xerrors.Errorf("walk %s: %w", root, err)
		}
	}()

	return out, errs
}
