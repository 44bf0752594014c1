package linkengine

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCompareFilesIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	writeFile(t, a, []byte("identical bytes"))
	writeFile(t, b, []byte("identical bytes"))

	eq, err := CompareFiles(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !eq {
		t.Errorf("CompareFiles on identical content = false, want true")
	}
}

func TestCompareFilesDifferingLength(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	writeFile(t, a, []byte("short"))
	writeFile(t, b, []byte("much longer content here"))

	eq, err := CompareFiles(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if eq {
		t.Errorf("CompareFiles on differing lengths = true, want false")
	}
}

func TestCompareFilesSameLengthDifferingContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	writeFile(t, a, []byte("aaaaaaaaaa"))
	writeFile(t, b, []byte("aaaaaaaaab"))

	eq, err := CompareFiles(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if eq {
		t.Errorf("CompareFiles on differing tail byte = true, want false")
	}
}

func TestCompareFilesBothEmpty(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	writeFile(t, a, nil)
	writeFile(t, b, nil)

	eq, err := CompareFiles(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !eq {
		t.Errorf("CompareFiles on two empty files = false, want true")
	}
}

func TestReplaceWithLinkSamePathShortCircuits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	writeFile(t, path, []byte("content"))

	lt, err := ReplaceWithLink(path, path, false)
	if err != nil {
		t.Fatal(err)
	}
	if lt != nil {
		t.Errorf("ReplaceWithLink(path, path) = %v, want nil", lt)
	}
}

func TestReplaceWithLinkFallsBackToHardlinkWhenAllowed(t *testing.T) {
	dir := t.TempDir()
	master := filepath.Join(dir, "master")
	target := filepath.Join(dir, "target")
	writeFile(t, master, []byte("shared payload"))
	writeFile(t, target, []byte("shared payload"))

	lt, err := ReplaceWithLink(master, target, true)
	if err != nil {
		t.Fatal(err)
	}
	if lt == nil {
		t.Fatal("ReplaceWithLink returned nil LinkType, want non-nil")
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "shared payload" {
		t.Errorf("target content after link = %q, want %q", got, "shared payload")
	}

	// No .imprint_tmp sentinel left behind.
	if _, err := os.Stat(target + TempSuffix); !os.IsNotExist(err) {
		t.Errorf("staging file %s still exists", target+TempSuffix)
	}

	mi, err := Inode(master)
	if err != nil {
		t.Fatal(err)
	}
	ti, err := Inode(target)
	if err != nil {
		t.Fatal(err)
	}
	if lt != nil && *lt == HardLink && mi != ti {
		t.Errorf("hardlink target inode %d != master inode %d", ti, mi)
	}
}

func TestReplaceWithLinkPreservesMode(t *testing.T) {
	dir := t.TempDir()
	master := filepath.Join(dir, "master")
	target := filepath.Join(dir, "target")
	writeFile(t, master, []byte("payload"))
	writeFile(t, target, []byte("payload"))
	if err := os.Chmod(target, 0640); err != nil {
		t.Fatal(err)
	}

	if _, err := ReplaceWithLink(master, target, true); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("target mode after link = %o, want %o", info.Mode().Perm(), 0640)
	}
}

func TestRestoreFileBreaksHardlinkSharing(t *testing.T) {
	dir := t.TempDir()
	master := filepath.Join(dir, "master")
	target := filepath.Join(dir, "target")
	writeFile(t, master, []byte("payload"))
	writeFile(t, target, []byte("payload"))

	if _, err := ReplaceWithLink(master, target, true); err != nil {
		t.Fatal(err)
	}

	if err := RestoreFile(target); err != nil {
		t.Fatal(err)
	}

	mi, err := Inode(master)
	if err != nil {
		t.Fatal(err)
	}
	ti, err := Inode(target)
	if err != nil {
		t.Fatal(err)
	}
	if mi == ti {
		t.Errorf("RestoreFile left target sharing master's inode")
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("target content after restore = %q, want %q", got, "payload")
	}

	if _, err := os.Stat(target + TempSuffix); !os.IsNotExist(err) {
		t.Errorf("staging file %s still exists after restore", target+TempSuffix)
	}
}

func TestReplaceWithLinkRefusesWithoutHardlinkOptIn(t *testing.T) {
	dir := t.TempDir()
	master := filepath.Join(dir, "master")
	target := filepath.Join(dir, "target")
	writeFile(t, master, []byte("payload"))
	writeFile(t, target, []byte("payload"))

	// On a filesystem without reflink support (the common case in a test
	// sandbox), ReplaceWithLink must fail closed rather than silently
	// falling back to a hardlink when allowUnsafeHardlinks is false, and
	// must leave target untouched.
	_, err := ReplaceWithLink(master, target, false)
	if err == nil {
		t.Skip("reflink apparently supported in this test environment; nothing to assert")
	}

	got, readErr := os.ReadFile(target)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if string(got) != "payload" {
		t.Errorf("target content after refused link = %q, want %q", got, "payload")
	}
	if _, statErr := os.Stat(target + TempSuffix); !os.IsNotExist(statErr) {
		t.Errorf("staging file %s still exists after refused link", target+TempSuffix)
	}
}
