package pipeline

import (
	"context"
	"errors"
	"os"

	"github.com/Rakshat28/imprint"
	"github.com/Rakshat28/imprint/internal/linkengine"
	"github.com/Rakshat28/imprint/internal/stats"
)

// Dedupe walks Root, groups files by full-hash equality, and for every
// group of two or more moves one copy into the vault and replaces every
// occurrence in the tree with a space-sharing link.
func (p *Pipeline) Dedupe(ctx context.Context) (stats.Summary, error) {
	groups, err := p.computeGroups(ctx)
	if err != nil {
		return p.Stats.Snapshot(), err
	}

	for hash, paths := range groups {
		if len(paths) < 2 {
			continue
		}
		if err := p.dedupeGroup(hash, paths); err != nil {
			p.Logger.Printf("dedupe group %s: %v", hash, err)
			p.Stats.AddErrors(1)
		}
	}

	return p.Stats.Snapshot(), nil
}

// dedupeGroup finalises one duplicate group: master = paths[0] by arrival
// order, ingested into the vault; every path in the group (including the
// master) is then replaced with a link to the vault master.
func (p *Pipeline) dedupeGroup(hash imprint.Hash, paths []string) error {
	master := paths[0]
	rest := paths[1:]

	if p.Opts.DryRun {
		p.Logger.Printf("DRY RUN dedupe group %s: %d files, master %s", hash, len(paths), master)
		return nil
	}

	vaultPath, err := p.Vault.EnsureInVault(hash, master)
	if err != nil {
		return err
	}

	if p.Opts.Paranoid {
		if _, statErr := os.Stat(master); statErr == nil {
			eq, err := linkengine.CompareFiles(vaultPath, master)
			if err != nil {
				p.Logger.Printf("PARANOID verification error for %s: %v", master, err)
				return nil
			}
			if !eq {
				p.Logger.Printf("HASH COLLISION OR BIT ROT DETECTED: %s disagrees with vault master %s", master, vaultPath)
				p.Stats.AddSkipped(1)
				return nil
			}
		}
	}

	if err := p.linkMember(hash, vaultPath, master); err != nil {
		if errors.Is(err, linkengine.ErrReflinkUnsupported) {
			return p.abandonGroup(hash, vaultPath, master)
		}
		return err
	}

	for _, path := range rest {
		if p.Opts.Paranoid {
			eq, err := linkengine.CompareFiles(vaultPath, path)
			if err != nil {
				p.Logger.Printf("PARANOID verification error for %s: %v", path, err)
				p.Stats.AddSkipped(1)
				continue
			}
			if !eq {
				p.Logger.Printf("HASH COLLISION OR BIT ROT DETECTED: %s disagrees with vault master %s", path, vaultPath)
				p.Stats.AddSkipped(1)
				continue
			}
		}
		if err := p.linkMember(hash, vaultPath, path); err != nil {
			if errors.Is(err, linkengine.ErrReflinkUnsupported) {
				return p.abandonGroup(hash, vaultPath, master)
			}
			p.Logger.Printf("link %s: %v", path, err)
			p.Stats.AddErrors(1)
			continue
		}
	}

	p.Stats.AddGroup()
	p.Stats.AddDuplicateFiles(uint64(len(paths)))
	return p.Store.SetCASRefcount(hash, uint64(len(paths)))
}

func (p *Pipeline) linkMember(hash imprint.Hash, vaultPath, target string) error {
	lt, err := linkengine.ReplaceWithLink(vaultPath, target, p.Opts.AllowUnsafeHardlinks)
	if err != nil {
		return err
	}
	if lt == nil {
		return nil // same-path short-circuit, should not occur here since target != vaultPath
	}
	switch *lt {
	case linkengine.Reflink:
		p.Stats.AddReflinked(1)
		p.Logger.Printf("REFLINK %s", target)
	case linkengine.HardLink:
		p.Stats.AddHardlinked(1)
		p.Logger.Printf("HARDLINK %s", target)
		if ino, err := linkengine.Inode(target); err == nil {
			if err := p.Store.MarkInodeVaulted(ino); err != nil {
				return err
			}
		}
	}
	return nil
}

// abandonGroup rolls the vault master for hash back out to master and
// warns once; the group is left entirely untouched in the tree.
func (p *Pipeline) abandonGroup(hash imprint.Hash, vaultPath, master string) error {
	p.Logger.Printf("warning: %s does not support reflinks; skipping duplicate group (pass --allow-unsafe-hardlinks to permit hard links)", master)
	if err := p.Vault.Relinquish(hash, master); err != nil {
		return err
	}
	p.Stats.AddSkipped(1)
	return nil
}
