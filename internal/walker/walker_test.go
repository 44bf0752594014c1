package walker

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func drain(t *testing.T, paths <-chan string, errc <-chan error) ([]string, error) {
	t.Helper()
	var got []string
	for p := range paths {
		got = append(got, p)
	}
	var err error
	for e := range errc {
		err = e
	}
	sort.Strings(got)
	return got, err
}

func TestWalkFiltersTempSentinelsAndDirs(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel string) string {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	a := mustWrite("a.txt")
	b := mustWrite("sub/b.txt")
	mustWrite("x.imprint_tmp")

	logger := log.New(os.Stderr, "", 0)
	paths, errc := Walk(dir, logger, nil)
	got, err := drain(t, paths, errc)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{a, b}
	sort.Strings(want)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Walk(%s) mismatch (-want +got):\n%s", dir, diff)
	}
}

func TestWalkSkipsExcludedSubtree(t *testing.T) {
	dir := t.TempDir()
	vault := filepath.Join(dir, ".imprint")
	if err := os.MkdirAll(vault, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vault, "state.db"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	visible := filepath.Join(dir, "keep.txt")
	if err := os.WriteFile(visible, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	logger := log.New(os.Stderr, "", 0)
	paths, errc := Walk(dir, logger, func(p string) bool { return p == vault })
	got, err := drain(t, paths, errc)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{visible}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Walk with exclusion mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkRootFailureIsFatal(t *testing.T) {
	logger := log.New(os.Stderr, "", 0)
	paths, errc := Walk(filepath.Join(t.TempDir(), "does-not-exist"), logger, nil)
	_, err := drain(t, paths, errc)
	if err == nil {
		t.Fatal("Walk on missing root: want error, got nil")
	}
}
