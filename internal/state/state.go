// Package state persists the three tables the pipeline and link engine
// share: the file index, the CAS refcount index, and the vaulted-inode set.
// It wraps go.etcd.io/bbolt, an embedded, ordered, single-writer-ACID store —
// exactly the kind of external collaborator spec.md names.
package state

import (
	"encoding/binary"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/Rakshat28/imprint"
	"github.com/Rakshat28/imprint/internal/appdir"
	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

var (
	bucketFileIndex     = []byte("file_index")
	bucketCASIndex      = []byte("cas_index")
	bucketVaultedInodes = []byte("vaulted_inodes")
)

// Store is a shared handle onto the state database. A *Store is safe for
// concurrent use by multiple goroutines: bbolt serializes writers
// internally, so every mutation below runs in its own transaction and no
// additional locking is required. Re-opening the database per worker is
// forbidden; share one *Store instead.
type Store struct {
	db *bbolt.DB
}

// OpenDefault creates (if needed) and opens the state store at
// <home>/.imprint/state.db, ensuring all three tables exist.
func OpenDefault() (*Store, error) {
	path, err := appdir.StatePath()
	if err != nil {
		return nil, xerrors.Errorf("resolve state path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, xerrors.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, xerrors.Errorf("open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketFileIndex, bucketCASIndex, bucketVaultedInodes} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, xerrors.Errorf("initialize tables in %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenReadonlyIfExists opens the state store without creating it. It
// returns a nil *Store and a nil error if the store does not exist yet, so
// that a dry-run never materialises the state directory.
func OpenReadonlyIfExists() (*Store, error) {
	path, err := appdir.StatePath()
	if err != nil {
		return nil, xerrors.Errorf("resolve state path: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, xerrors.Errorf("stat %s: %w", path, err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true})
	if err != nil {
		return nil, xerrors.Errorf("open %s read-only: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenEphemeral opens a scratch store in a freshly created temporary
// directory, never touching the real <home>/.imprint path. It is used by
// dry-run commands when no persisted state exists yet: the dry-run pipeline
// still needs a store handle to answer "is this inode vaulted" and "what
// metadata do we have" queries, but the critical invariant is that a
// dry-run never materialises the real state directory, not that it avoids
// a state handle altogether. Callers must invoke the returned cleanup func
// once done.
func OpenEphemeral() (*Store, func() error, error) {
	dir, err := ioutil.TempDir("", "imprint-dryrun")
	if err != nil {
		return nil, nil, xerrors.Errorf("create ephemeral state dir: %w", err)
	}
	cleanup := func() error { return os.RemoveAll(dir) }

	db, err := bbolt.Open(filepath.Join(dir, "state.db"), 0600, nil)
	if err != nil {
		cleanup()
		return nil, nil, xerrors.Errorf("open ephemeral state: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketFileIndex, bucketCASIndex, bucketVaultedInodes} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		cleanup()
		return nil, nil, xerrors.Errorf("initialize ephemeral tables: %w", err)
	}

	return &Store{db: db}, cleanup, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertFile writes meta under path's key, overwriting any previous entry.
func (s *Store) UpsertFile(path string, meta imprint.FileMetadata) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFileIndex).Put([]byte(path), encodeFileMetadata(meta))
	})
}

// GetFileMetadata looks up path, reporting ok=false if it has no entry.
func (s *Store) GetFileMetadata(path string) (meta imprint.FileMetadata, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketFileIndex).Get([]byte(path))
		if v == nil {
			return nil
		}
		m, err := decodeFileMetadata(v)
		if err != nil {
			return err
		}
		meta, ok = m, true
		return nil
	})
	return meta, ok, err
}

// RemoveFileFromIndex deletes path's entry, if any.
func (s *Store) RemoveFileFromIndex(path string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFileIndex).Delete([]byte(path))
	})
}

// SetCASRefcount records that n tree files are expected to reference h's
// vault master.
func (s *Store) SetCASRefcount(h imprint.Hash, n uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCASIndex).Put(h[:], encodeUint64(n))
	})
}

// GetCASRefcount returns h's refcount, or 0 if h has no entry.
func (s *Store) GetCASRefcount(h imprint.Hash) (uint64, error) {
	var n uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketCASIndex).Get(h[:])
		if v == nil {
			return nil
		}
		var err error
		n, err = decodeUint64(v)
		return err
	})
	return n, err
}

// RemoveCASRefcount deletes h's refcount entry.
func (s *Store) RemoveCASRefcount(h imprint.Hash) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCASIndex).Delete(h[:])
	})
}

// MarkInodeVaulted records that ino is a hard-linked reference to a vault
// master and must be skipped by hashing.
func (s *Store) MarkInodeVaulted(ino uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVaultedInodes).Put(encodeUint64(ino), []byte{1})
	})
}

// UnmarkInodeVaulted removes ino's vaulted-inode entry.
func (s *Store) UnmarkInodeVaulted(ino uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVaultedInodes).Delete(encodeUint64(ino))
	})
}

// IsInodeVaulted reports whether ino is a known vaulted inode.
func (s *Store) IsInodeVaulted(ino uint64) (bool, error) {
	var vaulted bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		vaulted = tx.Bucket(bucketVaultedInodes).Get(encodeUint64(ino)) != nil
		return nil
	})
	return vaulted, err
}

func encodeUint64(n uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, n)
	return buf
}

func decodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, xerrors.Errorf("corrupt uint64 record: %d bytes", len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

const fileMetadataSize = 8 + 8 + imprint.HashSize

func encodeFileMetadata(m imprint.FileMetadata) []byte {
	buf := make([]byte, fileMetadataSize)
	binary.LittleEndian.PutUint64(buf[0:8], m.Size)
	binary.LittleEndian.PutUint64(buf[8:16], m.Modified)
	copy(buf[16:], m.Hash[:])
	return buf
}

func decodeFileMetadata(b []byte) (imprint.FileMetadata, error) {
	if len(b) != fileMetadataSize {
		return imprint.FileMetadata{}, xerrors.Errorf("corrupt file metadata record: %d bytes, want %d", len(b), fileMetadataSize)
	}
	var m imprint.FileMetadata
	m.Size = binary.LittleEndian.Uint64(b[0:8])
	m.Modified = binary.LittleEndian.Uint64(b[8:16])
	copy(m.Hash[:], b[16:])
	return m, nil
}
