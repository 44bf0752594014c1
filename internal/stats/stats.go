// Package stats accumulates the per-run counters a command prints in its
// summary line.
package stats

import "sync"

// Counters is safe for concurrent use by the hashing worker pool and the
// dedupe/restore orchestrators.
type Counters struct {
	mu sync.Mutex

	filesScanned      uint64
	duplicateGroups   uint64
	duplicateFiles    uint64
	reflinked         uint64
	hardlinked        uint64
	restored          uint64
	vaultEntriesFreed uint64
	skipped           uint64
	errors            uint64
}

// Summary is a point-in-time, lock-free copy of a Counters.
type Summary struct {
	FilesScanned      uint64
	DuplicateGroups   uint64
	DuplicateFiles    uint64
	Reflinked         uint64
	Hardlinked        uint64
	Restored          uint64
	VaultEntriesFreed uint64
	Skipped           uint64
	Errors            uint64
}

func (c *Counters) add(field *uint64, n uint64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

func (c *Counters) AddScanned(n uint64)          { c.add(&c.filesScanned, n) }
func (c *Counters) AddGroup()                    { c.add(&c.duplicateGroups, 1) }
func (c *Counters) AddDuplicateFiles(n uint64)    { c.add(&c.duplicateFiles, n) }
func (c *Counters) AddReflinked(n uint64)         { c.add(&c.reflinked, n) }
func (c *Counters) AddHardlinked(n uint64)        { c.add(&c.hardlinked, n) }
func (c *Counters) AddRestored(n uint64)          { c.add(&c.restored, n) }
func (c *Counters) AddVaultEntriesFreed(n uint64) { c.add(&c.vaultEntriesFreed, n) }
func (c *Counters) AddSkipped(n uint64)           { c.add(&c.skipped, n) }
func (c *Counters) AddErrors(n uint64)            { c.add(&c.errors, n) }

// Snapshot returns a copy of the current counts.
func (c *Counters) Snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Summary{
		FilesScanned:      c.filesScanned,
		DuplicateGroups:   c.duplicateGroups,
		DuplicateFiles:    c.duplicateFiles,
		Reflinked:         c.reflinked,
		Hardlinked:        c.hardlinked,
		Restored:          c.restored,
		VaultEntriesFreed: c.vaultEntriesFreed,
		Skipped:           c.skipped,
		Errors:            c.errors,
	}
}
