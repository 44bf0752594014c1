//go:build linux

package linkengine

import (
	"strings"

	"golang.org/x/sys/unix"
)

// listXattrs returns path's extended attributes as a name-to-value map. Any
// failure to list or read an individual attribute is treated as that
// attribute being absent rather than a fatal error: xattr support varies
// widely across filesystems and the snapshot is inherently best-effort.
func listXattrs(path string) map[string][]byte {
	size, err := unix.Listxattr(path, nil)
	if err != nil || size == 0 {
		return map[string][]byte{}
	}
	buf := make([]byte, size)
	n, err := unix.Listxattr(path, buf)
	if err != nil {
		return map[string][]byte{}
	}

	out := make(map[string][]byte)
	for _, name := range splitNullTerminated(buf[:n]) {
		vsize, err := unix.Getxattr(path, name, nil)
		if err != nil {
			continue
		}
		val := make([]byte, vsize)
		vn, err := unix.Getxattr(path, name, val)
		if err != nil {
			continue
		}
		out[name] = val[:vn]
	}
	return out
}

func splitNullTerminated(buf []byte) []string {
	var names []string
	for _, part := range strings.Split(string(buf), "\x00") {
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}

func setXattr(path, name string, value []byte) error {
	return unix.Setxattr(path, name, value, 0)
}
