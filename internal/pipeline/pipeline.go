// Package pipeline implements the tiered identity pipeline and the
// dedupe/scan/restore orchestrations built on top of it: size grouping,
// a hashing worker pool, duplicate-group finalisation, and the restore
// sweep.
package pipeline

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/Rakshat28/imprint"
	"github.com/Rakshat28/imprint/internal/identity"
	"github.com/Rakshat28/imprint/internal/linkengine"
	"github.com/Rakshat28/imprint/internal/progress"
	"github.com/Rakshat28/imprint/internal/stats"
	"github.com/Rakshat28/imprint/internal/state"
	"github.com/Rakshat28/imprint/internal/vault"
	"github.com/Rakshat28/imprint/internal/walker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Options configures a single pipeline run.
type Options struct {
	Paranoid             bool
	DryRun               bool
	AllowUnsafeHardlinks bool
	Workers              int
}

// DefaultWorkers returns the default hashing worker pool size: the number
// of available CPUs, capped at 8.
func DefaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Pipeline ties the walker, state store, and vault together for one root.
type Pipeline struct {
	Root     string
	Vault    *vault.Vault
	Store    *state.Store
	Opts     Options
	Stats    *stats.Counters
	Logger   *log.Logger
	Progress *progress.Reporter
}

// New returns a Pipeline over root using store and v. logger receives
// per-file diagnostics; opts.Workers of 0 or less selects DefaultWorkers().
// The returned Pipeline has no Progress reporter; callers that want a
// redrawn scanning status line set Progress after construction.
func New(root string, v *vault.Vault, store *state.Store, opts Options, logger *log.Logger) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers()
	}
	return &Pipeline{
		Root:   root,
		Vault:  v,
		Store:  store,
		Opts:   opts,
		Stats:  &stats.Counters{},
		Logger: logger,
	}
}

// skip excludes the vault's own root from the walk, so a run never hashes
// or dedupes the store it is writing into.
func (p *Pipeline) skip(path string) bool {
	if p.Vault == nil || p.Vault.Root == "" {
		return false
	}
	if path == p.Vault.Root {
		return true
	}
	return strings.HasPrefix(path, p.Vault.Root+string(filepath.Separator))
}

type hashJob struct {
	path     string
	size     int64
	modified int64
}

type hashResult struct {
	hash imprint.Hash
	path string
}

// computeGroups walks Root, dispatches every file that is not alone in its
// size bucket to the hashing worker pool, and returns every hash reached
// mapped to the paths that produced it. Groups of size 1 are included and
// must be filtered by the caller if only true duplicates are wanted.
func (p *Pipeline) computeGroups(ctx context.Context) (map[imprint.Hash][]string, error) {
	paths, errc := walker.Walk(p.Root, p.Logger, p.skip)

	if p.Progress != nil {
		defer p.Progress.Done()
	}

	jobs := make(chan hashJob)
	results := make(chan hashResult)

	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < p.Opts.Workers; i++ {
		eg.Go(func() error {
			for j := range jobs {
				select {
				case <-egCtx.Done():
					return egCtx.Err()
				default:
				}
				h, err := p.hashFile(j)
				if err != nil {
					p.Logger.Printf("hash %s: %v", j.path, err)
					p.Stats.AddErrors(1)
					continue
				}
				if h == nil {
					continue // vaulted inode: skip, it is a known reference, not a candidate
				}
				select {
				case results <- hashResult{hash: *h, path: j.path}:
				case <-egCtx.Done():
					return egCtx.Err()
				}
			}
			return nil
		})
	}

	groups := make(map[imprint.Hash][]string)
	var groupsMu sync.Mutex
	collectDone := make(chan struct{})
	go func() {
		defer close(collectDone)
		for r := range results {
			groupsMu.Lock()
			groups[r.hash] = append(groups[r.hash], r.path)
			groupsMu.Unlock()
		}
	}()

	sizeGroups := make(map[int64][]string)
	var filesScanned, bytesScanned uint64
	for path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			p.Logger.Printf("stat %s: %v", path, err)
			p.Stats.AddErrors(1)
			continue
		}
		p.Stats.AddScanned(1)
		size := info.Size()
		filesScanned++
		bytesScanned += uint64(size)
		if p.Progress != nil {
			p.Progress.Status(filesScanned, bytesScanned)
		}
		sizeGroups[size] = append(sizeGroups[size], path)
		n := len(sizeGroups[size])
		job := hashJob{path: path, size: size, modified: info.ModTime().Unix()}
		switch {
		case n == 2:
			first := hashJob{path: sizeGroups[size][0], size: size}
			if fi, err := os.Stat(first.path); err == nil {
				first.modified = fi.ModTime().Unix()
			}
			select {
			case jobs <- first:
			case <-egCtx.Done():
			}
			select {
			case jobs <- job:
			case <-egCtx.Done():
			}
		case n > 2:
			select {
			case jobs <- job:
			case <-egCtx.Done():
			}
		}
	}
	close(jobs)

	if err, ok := <-errc; ok && err != nil {
		eg.Wait()
		close(results)
		<-collectDone
		return nil, err
	}

	workErr := eg.Wait()
	close(results)
	<-collectDone
	if workErr != nil {
		return nil, workErr
	}

	return groups, nil
}

// hashFile hashes a single candidate, skipping files whose inode is already
// known to reference a vault master. It returns a nil hash (not an error)
// for a vaulted inode.
func (p *Pipeline) hashFile(j hashJob) (*imprint.Hash, error) {
	ino, err := linkengine.Inode(j.path)
	if err != nil {
		return nil, err
	}
	vaulted, err := p.Store.IsInodeVaulted(ino)
	if err != nil {
		return nil, xerrors.Errorf("check vaulted inode for %s: %w", j.path, err)
	}
	if vaulted {
		return nil, nil
	}

	if _, err := identity.SparseHash(j.path, j.size); err != nil {
		return nil, err
	}
	h, err := identity.FullHash(j.path)
	if err != nil {
		return nil, err
	}

	if !p.Opts.DryRun {
		meta := imprint.FileMetadata{Size: uint64(j.size), Modified: uint64(j.modified), Hash: h}
		if err := p.Store.UpsertFile(j.path, meta); err != nil {
			return nil, xerrors.Errorf("record metadata for %s: %w", j.path, err)
		}
	}

	return &h, nil
}
