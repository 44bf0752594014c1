package pipeline

import (
	"context"
	"os"

	"github.com/Rakshat28/imprint"
	"github.com/Rakshat28/imprint/internal/linkengine"
	"github.com/Rakshat28/imprint/internal/stats"
	"github.com/Rakshat28/imprint/internal/walker"
)

// Restore walks Root, rehydrating every file the state store knows about
// into an independent byte copy, decrementing refcounts, and pruning vault
// masters whose refcount reaches zero.
func (p *Pipeline) Restore(ctx context.Context) (stats.Summary, error) {
	paths, errc := walker.Walk(p.Root, p.Logger, p.skip)
	if p.Progress != nil {
		defer p.Progress.Done()
	}

	var filesScanned uint64
	for path := range paths {
		select {
		case <-ctx.Done():
			return p.Stats.Snapshot(), ctx.Err()
		default:
		}
		if err := p.restoreFile(path); err != nil {
			p.Logger.Printf("restore %s: %v", path, err)
			p.Stats.AddErrors(1)
		}
		filesScanned++
		if p.Progress != nil {
			p.Progress.Status(filesScanned, 0)
		}
	}

	if err, ok := <-errc; ok && err != nil {
		return p.Stats.Snapshot(), err
	}

	return p.Stats.Snapshot(), nil
}

func (p *Pipeline) restoreFile(path string) error {
	ino, err := linkengine.Inode(path)
	if err != nil {
		return err
	}

	vaulted, err := p.Store.IsInodeVaulted(ino)
	if err != nil {
		return err
	}

	var (
		needsRestore bool
		hash         imprint.Hash
		haveHash     bool
	)

	if vaulted {
		needsRestore = true
		if meta, ok, err := p.Store.GetFileMetadata(path); err != nil {
			return err
		} else if ok {
			hash, haveHash = meta.Hash, true
		}
	} else {
		meta, ok, err := p.Store.GetFileMetadata(path)
		if err != nil {
			return err
		}
		if ok {
			if _, statErr := os.Stat(p.Vault.ShardPath(meta.Hash)); statErr == nil {
				needsRestore = true
				hash, haveHash = meta.Hash, true
			}
		}
	}

	if !needsRestore {
		return nil
	}

	if p.Opts.DryRun {
		p.Logger.Printf("DRY RUN restore %s", path)
		return nil
	}

	if err := linkengine.RestoreFile(path); err != nil {
		return err
	}
	p.Logger.Printf("RESTORED %s", path)
	p.Stats.AddRestored(1)

	if vaulted {
		if err := p.Store.UnmarkInodeVaulted(ino); err != nil {
			return err
		}
	}
	if err := p.Store.RemoveFileFromIndex(path); err != nil {
		return err
	}

	if !haveHash {
		return nil
	}

	n, err := p.Store.GetCASRefcount(hash)
	if err != nil {
		return err
	}
	if n > 0 {
		n--
	}
	if n == 0 {
		if err := p.Store.RemoveCASRefcount(hash); err != nil {
			return err
		}
		if err := p.Vault.RemoveFromVault(hash); err != nil {
			return err
		}
		p.Logger.Printf("GC %s", hash)
		p.Stats.AddVaultEntriesFreed(1)
		return nil
	}
	return p.Store.SetCASRefcount(hash, n)
}
