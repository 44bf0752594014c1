package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Rakshat28/imprint"
)

func withHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("IMPRINT_HOME", dir)
	return dir
}

func TestOpenReadonlyIfExistsAbsentIsNilNil(t *testing.T) {
	withHome(t)
	s, err := OpenReadonlyIfExists()
	if err != nil {
		t.Fatal(err)
	}
	if s != nil {
		t.Errorf("OpenReadonlyIfExists on a fresh home returned a non-nil store")
	}
}

func TestOpenDefaultCreatesStateDirOnce(t *testing.T) {
	home := withHome(t)
	s, err := OpenDefault()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	path := filepath.Join(home, "state.db")
	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("state.db not created at %s: %v", path, statErr)
	}
}

func TestFileIndexRoundTrip(t *testing.T) {
	withHome(t)
	s, err := OpenDefault()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var h imprint.Hash
	h[0] = 0xCC
	meta := imprint.FileMetadata{Size: 1234, Modified: 5678, Hash: h}

	if err := s.UpsertFile("/tmp/a.txt", meta); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.GetFileMetadata("/tmp/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("GetFileMetadata: ok = false, want true")
	}
	if got != meta {
		t.Errorf("GetFileMetadata = %+v, want %+v", got, meta)
	}

	if err := s.RemoveFileFromIndex("/tmp/a.txt"); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := s.GetFileMetadata("/tmp/a.txt"); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Errorf("GetFileMetadata after remove: ok = true, want false")
	}
}

func TestCASRefcountDefaultsToZero(t *testing.T) {
	withHome(t)
	s, err := OpenDefault()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var h imprint.Hash
	h[0] = 0xDD

	n, err := s.GetCASRefcount(h)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("GetCASRefcount on absent hash = %d, want 0", n)
	}

	if err := s.SetCASRefcount(h, 3); err != nil {
		t.Fatal(err)
	}
	n, err = s.GetCASRefcount(h)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("GetCASRefcount = %d, want 3", n)
	}

	if err := s.RemoveCASRefcount(h); err != nil {
		t.Fatal(err)
	}
	n, err = s.GetCASRefcount(h)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("GetCASRefcount after remove = %d, want 0", n)
	}
}

func TestVaultedInodeLifecycle(t *testing.T) {
	withHome(t)
	s, err := OpenDefault()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	const ino = uint64(42)
	if vaulted, err := s.IsInodeVaulted(ino); err != nil {
		t.Fatal(err)
	} else if vaulted {
		t.Errorf("IsInodeVaulted before mark = true, want false")
	}

	if err := s.MarkInodeVaulted(ino); err != nil {
		t.Fatal(err)
	}
	if vaulted, err := s.IsInodeVaulted(ino); err != nil {
		t.Fatal(err)
	} else if !vaulted {
		t.Errorf("IsInodeVaulted after mark = false, want true")
	}

	if err := s.UnmarkInodeVaulted(ino); err != nil {
		t.Fatal(err)
	}
	if vaulted, err := s.IsInodeVaulted(ino); err != nil {
		t.Fatal(err)
	} else if vaulted {
		t.Errorf("IsInodeVaulted after unmark = true, want false")
	}
}
