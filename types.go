// Package imprint contains the types and process-wide helpers shared by
// imprint's subsystems: the identity pipeline, the vault, the state store,
// the link engine and the orchestrating pipeline.
package imprint

import "encoding/hex"

// HashSize is the width of a Hash in bytes (256 bits).
const HashSize = 32

// Hash is an opaque content digest. It is produced by the identity package
// and used as the key of the vault and the CAS refcount index.
type Hash [HashSize]byte

// String renders h as lowercase hex, the form used for shard paths and log
// output.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero value (no hash computed yet).
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// FileMetadata is the record persisted per tree path: enough to detect that
// a file has changed since it was last hashed, plus the hash itself.
type FileMetadata struct {
	Size     uint64
	Modified uint64 // seconds since epoch
	Hash     Hash
}
