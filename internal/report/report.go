// Package report writes a run's summary counters to a JSON file atomically,
// so a reader never observes a half-written report.
package report

import (
	"encoding/json"

	"github.com/Rakshat28/imprint/internal/stats"
	"github.com/google/renameio"
	"golang.org/x/xerrors"
)

// Document is the on-disk shape of a report file.
type Document struct {
	Command string         `json:"command"`
	Root    string         `json:"root"`
	Summary stats.Summary  `json:"summary"`
	Errors  []string       `json:"errors,omitempty"`
}

// Write serialises doc as indented JSON to path using an atomic
// write-then-rename, so a crash mid-write never leaves a truncated report
// visible at path.
func Write(path string, doc Document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return xerrors.Errorf("marshal report: %w", err)
	}
	b = append(b, '\n')
	if err := renameio.WriteFile(path, b, 0644); err != nil {
		return xerrors.Errorf("write report %s: %w", path, err)
	}
	return nil
}
