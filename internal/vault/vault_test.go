package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Rakshat28/imprint"
)

func hashOf(b byte) imprint.Hash {
	var h imprint.Hash
	h[0] = b
	h[1] = b
	return h
}

func TestShardPathLayout(t *testing.T) {
	v := New("/vault")
	h := hashOf(0xAB)
	got := v.ShardPath(h)
	want := filepath.Join("/vault", h.String()[0:2], h.String()[2:4], h.String())
	if got != want {
		t.Errorf("ShardPath = %s, want %s", got, want)
	}
}

func TestEnsureInVaultMovesSrc(t *testing.T) {
	dir := t.TempDir()
	v := New(filepath.Join(dir, "store"))
	src := filepath.Join(dir, "master")
	if err := os.WriteFile(src, []byte("hello vault"), 0644); err != nil {
		t.Fatal(err)
	}
	h := hashOf(0x11)

	shardPath, err := v.EnsureInVault(h, src)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("src %s still exists after EnsureInVault", src)
	}

	got, err := os.ReadFile(shardPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello vault" {
		t.Errorf("vault master content = %q, want %q", got, "hello vault")
	}

	// No .imprint_tmp sentinel left behind.
	if _, err := os.Stat(shardPath + TempSuffix); !os.IsNotExist(err) {
		t.Errorf("staging file %s still exists", shardPath+TempSuffix)
	}
}

func TestEnsureInVaultIdempotent(t *testing.T) {
	dir := t.TempDir()
	v := New(filepath.Join(dir, "store"))
	src := filepath.Join(dir, "master")
	if err := os.WriteFile(src, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}
	h := hashOf(0x22)

	first, err := v.EnsureInVault(h, src)
	if err != nil {
		t.Fatal(err)
	}

	// Calling again with a never-existing src must be a no-op returning the
	// same shard path, since the vault already holds h.
	second, err := v.EnsureInVault(h, filepath.Join(dir, "does-not-exist"))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("EnsureInVault not idempotent: %s != %s", first, second)
	}
}

func TestRemoveFromVaultPrunesEmptyShards(t *testing.T) {
	dir := t.TempDir()
	v := New(filepath.Join(dir, "store"))
	src := filepath.Join(dir, "master")
	if err := os.WriteFile(src, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}
	h := hashOf(0x33)

	shardPath, err := v.EnsureInVault(h, src)
	if err != nil {
		t.Fatal(err)
	}

	if err := v.RemoveFromVault(h); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(shardPath); !os.IsNotExist(err) {
		t.Errorf("shard file %s still exists after RemoveFromVault", shardPath)
	}
	if _, err := os.Stat(filepath.Dir(shardPath)); !os.IsNotExist(err) {
		t.Errorf("leaf shard dir %s still exists after RemoveFromVault", filepath.Dir(shardPath))
	}
	if _, err := os.Stat(filepath.Dir(filepath.Dir(shardPath))); !os.IsNotExist(err) {
		t.Errorf("top shard dir still exists after RemoveFromVault")
	}
}

func TestRemoveFromVaultKeepsNonEmptyShard(t *testing.T) {
	dir := t.TempDir()
	v := New(filepath.Join(dir, "store"))

	// Two hashes sharing the same top-level shard directory (same hex[0:2]).
	var h1, h2 imprint.Hash
	h1[0] = 0x44
	h2[0] = 0x44
	h2[1] = 0xFF

	for i, h := range []imprint.Hash{h1, h2} {
		src := filepath.Join(dir, "master"+string(rune('0'+i)))
		if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := v.EnsureInVault(h, src); err != nil {
			t.Fatal(err)
		}
	}

	if err := v.RemoveFromVault(h1); err != nil {
		t.Fatal(err)
	}
	// h2's shard leaf directory differs (hex[2:4] differs), but the
	// top-level hex[0:2] directory is shared and must survive.
	top := filepath.Dir(filepath.Dir(v.ShardPath(h1)))
	if _, err := os.Stat(top); err != nil {
		t.Errorf("shared top shard dir removed even though h2 still references it: %v", err)
	}
	if _, err := os.Stat(v.ShardPath(h2)); err != nil {
		t.Errorf("h2 master missing after removing h1: %v", err)
	}
}
