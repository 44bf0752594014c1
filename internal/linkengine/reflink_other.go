//go:build !linux

package linkengine

import "errors"

// reflink is unimplemented on non-Linux platforms: imprint's vault and
// link engine are designed against Linux's FICLONE/FIEMAP ioctls, and the
// spec treats an unimplemented reflink as just another capability gap.
func reflink(src, dst string) error {
	return errors.New("imprint: reflink not implemented on this platform")
}
