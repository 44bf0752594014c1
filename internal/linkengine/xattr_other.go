//go:build !linux

package linkengine

// listXattrs and setXattr are no-ops on platforms without a wired xattr
// syscall surface; the metadata snapshot simply carries no xattrs there.
func listXattrs(path string) map[string][]byte { return map[string][]byte{} }

func setXattr(path, name string, value []byte) error { return nil }
