package pipeline

import (
	"context"

	"github.com/Rakshat28/imprint/internal/stats"
)

// Scan walks Root, computes full-hash duplicate groups, and records
// FileMetadata for every hashed file. It never touches the vault or the
// tree, and never writes CAS refcounts (a refcount implies a vault master
// exists, which scanning alone never creates).
func (p *Pipeline) Scan(ctx context.Context) (stats.Summary, error) {
	groups, err := p.computeGroups(ctx)
	if err != nil {
		return p.Stats.Snapshot(), err
	}

	for hash, paths := range groups {
		if len(paths) < 2 {
			continue
		}
		p.Stats.AddGroup()
		p.Stats.AddDuplicateFiles(uint64(len(paths)))
		p.Logger.Printf("duplicate group %s: %d files", hash, len(paths))
	}

	return p.Stats.Snapshot(), nil
}
