package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/Rakshat28/imprint/internal/appdir"
	"github.com/Rakshat28/imprint/internal/pipeline"
	"github.com/Rakshat28/imprint/internal/progress"
	"github.com/Rakshat28/imprint/internal/report"
	"github.com/Rakshat28/imprint/internal/state"
	"github.com/Rakshat28/imprint/internal/vault"
)

const scanHelp = `imprint scan <path>

Read-only: computes duplicate groups and records file metadata for each
hashed file. Never touches the tree or the vault.

Example:
  % imprint scan ~/Pictures
`

func cmdscan(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("scan", flag.ExitOnError)
	reportPath := fset.String("report", "", "write a JSON summary of this run to the given path")
	fset.Usage = usage(fset, scanHelp)
	fset.Parse(args)

	if fset.NArg() != 1 {
		fset.Usage()
		os.Exit(2)
	}
	root := fset.Arg(0)

	store, err := state.OpenDefault()
	if err != nil {
		return err
	}
	defer store.Close()

	vaultRoot, err := appdir.VaultRoot()
	if err != nil {
		return err
	}
	v := vault.New(vaultRoot)

	logger := log.New(os.Stdout, "", 0)
	p := pipeline.New(root, v, store, pipeline.Options{}, logger)
	reporter := progress.New()
	p.Progress = reporter

	summary, err := p.Scan(ctx)
	if err != nil {
		return err
	}

	reporter.Line("scan complete. files scanned: %d, duplicate groups: %d, duplicate files: %d",
		summary.FilesScanned, summary.DuplicateGroups, summary.DuplicateFiles)

	if *reportPath != "" {
		return report.Write(*reportPath, report.Document{Command: "scan", Root: root, Summary: summary})
	}
	return nil
}
